package tenduke

import (
	"errors"
)

var (
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrNilParameter       = errors.New("nil parameter")
	ErrInvalidCACert      = errors.New("invalid CA certificate")
	ErrIDGeneratorFailed  = errors.New("id generation failed")
	ErrInvalidState       = errors.New("invalid state")
	ErrExpiredState       = errors.New("state is expired")
	ErrMissingAccessToken = errors.New("access_token is missing")
	ErrUnexpectedStatus   = errors.New("unexpected response status")
)
