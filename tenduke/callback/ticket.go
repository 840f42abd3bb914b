package callback

import (
	"context"

	"github.com/tenduke/go-auth/tenduke"
)

// Ticket pairs the identity produced by one authentication attempt with the
// properties carried through the protected state parameter.  A Ticket with a
// nil Identity always means the attempt failed or was rejected, and is never
// signed into a session.
type Ticket struct {
	Identity   *tenduke.Identity
	Properties *tenduke.Properties
}

// AuthenticatedContext is passed to the Authenticated hook after the identity
// has been built, before the ticket is finalized.  The hook may mutate
// Identity (for example, replacing it with a re-tagged copy) or record side
// effects.
type AuthenticatedContext struct {
	// Identity is the claim set built from the profile and license grants.
	Identity *tenduke.Identity

	// Properties are the caller properties carried through the state.
	Properties *tenduke.Properties

	// AccessToken is the token issued for this attempt.  It is not retained
	// after the request completes.
	AccessToken tenduke.AccessToken

	// User is the normalized user record, including the raw provider
	// document.
	User *tenduke.UserRecord

	// Licenses are the individual license grant results, including those
	// that did not produce a claim.
	Licenses []tenduke.LicenseResult
}

// ReturnEndpointContext is passed to the ReturnEndpoint hook after callback
// processing, before sign-in and the final redirect.  The hook may change the
// sign-in target, set or clear the redirect, or mark the request as fully
// handled.
type ReturnEndpointContext struct {
	// Ticket is the outcome of the authentication attempt.
	Ticket *Ticket

	// SignInAsAuthType, when non-empty, re-tags the identity before it is
	// handed to the session layer.
	SignInAsAuthType string

	// RedirectURI is where the user-agent is sent after completion.  An
	// empty value suppresses the redirect.
	RedirectURI string

	requestCompleted bool
}

// RequestCompleted marks the request as fully handled, suppressing the
// default redirect.
func (c *ReturnEndpointContext) RequestCompleted() {
	c.requestCompleted = true
}

// IsRequestCompleted reports whether the request has been marked fully
// handled.
func (c *ReturnEndpointContext) IsRequestCompleted() bool {
	return c.requestCompleted
}

// AuthenticatedFunc is invoked whenever the flow successfully authenticates a
// user.  Returning an error rejects the attempt.
type AuthenticatedFunc func(ctx context.Context, ac *AuthenticatedContext) error

// ReturnEndpointFunc is invoked prior to the identity being signed into the
// session layer and the user-agent being redirected to the originally
// requested URL.
type ReturnEndpointFunc func(ctx context.Context, rc *ReturnEndpointContext) error
