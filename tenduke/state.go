package tenduke

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/square/go-jose.v2"
)

// Properties is the caller data carried across one authentication attempt,
// round-tripped through the provider inside the protected state parameter.
type Properties struct {
	// RedirectURI is the post-login redirect target.
	RedirectURI string `json:"redirect_uri,omitempty"`

	// CorrelationID is the per-challenge anti-forgery nonce, verified on
	// callback against the value recorded at challenge time.
	CorrelationID string `json:"correlation_id,omitempty"`

	// Items holds arbitrary caller-supplied properties.
	Items map[string]string `json:"items,omitempty"`
}

const (
	// DefaultStateTTL is how long a protected state parameter remains
	// acceptable after it is issued.
	DefaultStateTTL = 10 * time.Minute

	// DefaultStateExpirySkew defines a default time skew when checking a
	// protected state's expiration.
	DefaultStateExpirySkew = 1 * time.Second
)

// StateCodec produces and verifies the opaque state parameter exchanged with
// the provider.  The payload is encrypted and authenticated (JWE, direct
// symmetric A256GCM), so it is both tamper-evident and unreadable in transit.
// A codec is safe for concurrent use.
type StateCodec struct {
	key []byte
	ttl time.Duration
}

// stateClaims is the serialized form of a protected state.
type stateClaims struct {
	Properties *Properties `json:"props"`
	IssuedAt   int64       `json:"iat"`
	Expiration int64       `json:"exp"`
}

// NewStateCodec creates a codec from a StateKeyLen byte symmetric key.
// Supported options: WithStateTTL
func NewStateCodec(key []byte, opt ...Option) (*StateCodec, error) {
	const op = "tenduke.NewStateCodec"
	if len(key) != StateKeyLen {
		return nil, fmt.Errorf("%s: state key must be %d bytes: %w", op, StateKeyLen, ErrInvalidParameter)
	}
	opts := getStateOpts(opt...)
	if opts.withTTL <= 0 {
		return nil, fmt.Errorf("%s: ttl not greater than zero: %w", op, ErrInvalidParameter)
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &StateCodec{
		key: k,
		ttl: opts.withTTL,
	}, nil
}

// Protect serializes and encrypts the properties into an opaque string
// suitable for the oauth state parameter.
func (c *StateCodec) Protect(p *Properties) (string, error) {
	const op = "tenduke.StateCodec.Protect"
	if p == nil {
		return "", fmt.Errorf("%s: properties are nil: %w", op, ErrNilParameter)
	}
	now := time.Now()
	payload, err := json.Marshal(&stateClaims{
		Properties: p,
		IssuedAt:   now.Unix(),
		Expiration: now.Add(c.ttl).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("%s: unable to marshal properties: %w", op, err)
	}
	enc, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.DIRECT, Key: c.key},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("%s: unable to create encrypter: %w", op, err)
	}
	jwe, err := enc.Encrypt(payload)
	if err != nil {
		return "", fmt.Errorf("%s: unable to encrypt properties: %w", op, err)
	}
	serialized, err := jwe.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("%s: unable to serialize state: %w", op, err)
	}
	return serialized, nil
}

// Unprotect verifies and decodes an opaque state string.  It fails closed:
// tampering, expiry, or malformed input all yield a nil Properties and an
// error wrapping ErrInvalidState or ErrExpiredState.
// Supported options: WithExpirySkew
func (c *StateCodec) Unprotect(s string, opt ...Option) (*Properties, error) {
	const op = "tenduke.StateCodec.Unprotect"
	opts := getStateOpts(opt...)
	if s == "" {
		return nil, fmt.Errorf("%s: state is empty: %w", op, ErrInvalidState)
	}
	jwe, err := jose.ParseEncrypted(s)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to parse state: %w", op, ErrInvalidState)
	}
	payload, err := jwe.Decrypt(c.key)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to decrypt state: %w", op, ErrInvalidState)
	}
	var claims stateClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%s: unable to unmarshal state: %w", op, ErrInvalidState)
	}
	if claims.Properties == nil {
		return nil, fmt.Errorf("%s: state has no properties: %w", op, ErrInvalidState)
	}
	expiration := time.Unix(claims.Expiration, 0)
	if expiration.Before(time.Now().Add(opts.withExpirySkew)) {
		return nil, fmt.Errorf("%s: %w", op, ErrExpiredState)
	}
	return claims.Properties, nil
}

// stateOptions is the set of available options for StateCodec functions
type stateOptions struct {
	withTTL        time.Duration
	withExpirySkew time.Duration
}

// stateDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func stateDefaults() stateOptions {
	return stateOptions{
		withTTL:        DefaultStateTTL,
		withExpirySkew: DefaultStateExpirySkew,
	}
}

// getStateOpts gets the state defaults and applies the opt overrides passed in
func getStateOpts(opt ...Option) stateOptions {
	opts := stateDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithStateTTL provides an optional time-to-live for protected state
func WithStateTTL(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*stateOptions); ok {
			o.withTTL = d
		}
	}
}

// WithExpirySkew provides an optional expiry skew duration for state
// verification
func WithExpirySkew(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*stateOptions); ok {
			o.withExpirySkew = d
		}
	}
}
