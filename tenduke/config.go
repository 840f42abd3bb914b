package tenduke

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-multierror"

	"github.com/tenduke/go-auth/internal/strutils"
)

type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// Endpoints are the 10Duke endpoint paths, relative to Config.BaseURL.
type Endpoints struct {
	// Authorization is the endpoint used to redirect users to request access
	Authorization string

	// Token is the endpoint used to exchange an authorization code for an
	// access token
	Token string

	// UserInfo is the endpoint used to obtain user information after
	// authentication
	UserInfo string

	// LicenseRequest is the endpoint used to obtain user licenses after
	// authentication
	LicenseRequest string
}

// Default endpoint paths on a 10Duke identity provider.
const (
	DefaultAuthorizationEndpoint  = "/oauth2/authz/"
	DefaultTokenEndpoint          = "/oauth2/access"
	DefaultUserInfoEndpoint       = "/graph/me().json"
	DefaultLicenseRequestEndpoint = "/authz/.json"
)

const (
	// DefaultCallbackPath is the request path within the host application
	// where the user-agent will be returned after authentication.
	DefaultCallbackPath = "/signin-tenduke"

	// DefaultGrantType is the oauth grant type sent with the token exchange.
	DefaultGrantType = "authorization_code"

	// DefaultAuthType is the authentication type tag attached to identities
	// produced by this package.
	DefaultAuthType = "TenDuke"

	// DefaultBackchannelTimeout is applied uniformly to all outbound calls to
	// the provider.
	DefaultBackchannelTimeout = 60 * time.Second
)

// StateKeyLen is the required length in bytes of the symmetric key protecting
// the state parameter.
const StateKeyLen = 32

// Config represents the configuration for the 10Duke oauth2 authorization
// code flow.  It is immutable after construction and safe to share across
// concurrent requests.
type Config struct {
	// BaseURL is the scheme and host of the 10Duke identity provider, with no
	// trailing slash.  Endpoint paths are appended to it.
	BaseURL string

	// ClientID is the relying party id
	ClientID string

	// ClientSecret is the relying party secret
	ClientSecret ClientSecret

	// GrantType is the oauth grant type string sent with the token exchange.
	// Defaults to DefaultGrantType.
	GrantType string

	// LicenseRequests is a comma-separated list of licensable item
	// identifiers.  A license grant is requested for each one, in order,
	// after authentication.  Duplicates are not removed.
	LicenseRequests string

	// Scopes is a list of permissions to request.  Note that the provider's
	// authorization endpoint is always sent the literal scope "email",
	// matching the provider's documented behavior; this list is part of the
	// configuration surface for hosts that need it.
	Scopes []string

	// CallbackPath is the request path where the user-agent is returned.
	// Defaults to DefaultCallbackPath.
	CallbackPath string

	// AuthType is the authentication type tag for identities produced by the
	// flow.  Defaults to DefaultAuthType.
	AuthType string

	// SignInAsAuthType optionally names another authentication type which
	// will be responsible for actually issuing the session.  When set, the
	// identity is re-tagged before sign-in.
	SignInAsAuthType string

	// BackchannelTimeout is the timeout for all outbound calls to the
	// provider.  Defaults to DefaultBackchannelTimeout.
	BackchannelTimeout time.Duration

	// StateKey is the symmetric key used to protect the state parameter.  It
	// must be StateKeyLen bytes.
	StateKey []byte

	// Endpoints are the provider endpoint paths.  Defaults to the standard
	// 10Duke paths.
	Endpoints Endpoints

	// ProviderCA is an optional CA cert PEM to use when sending requests to
	// the provider.
	ProviderCA string
}

// NewConfig composes a new config for the 10Duke flow.
// Supported options: WithScopes, WithGrantType, WithLicenseRequests,
// WithCallbackPath, WithAuthType, WithSignInAsAuthType,
// WithBackchannelTimeout, WithEndpoints, WithProviderCA
func NewConfig(baseURL string, clientID string, clientSecret ClientSecret, stateKey []byte, opt ...Option) (*Config, error) {
	const op = "tenduke.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		BaseURL:            baseURL,
		ClientID:           clientID,
		ClientSecret:       clientSecret,
		StateKey:           stateKey,
		GrantType:          opts.withGrantType,
		LicenseRequests:    opts.withLicenseRequests,
		Scopes:             opts.withScopes,
		CallbackPath:       opts.withCallbackPath,
		AuthType:           opts.withAuthType,
		SignInAsAuthType:   opts.withSignInAsAuthType,
		BackchannelTimeout: opts.withBackchannelTimeout,
		Endpoints:          opts.withEndpoints,
		ProviderCA:         opts.withProviderCA,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}
	return c, nil
}

// Validate the configuration.  All problems are reported, not just the first
// one found.  Configuration errors fail here, at setup time, never at request
// time.
func (c *Config) Validate() error {
	const op = "tenduke.Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter))
	}
	if c.ClientSecret == "" {
		result = multierror.Append(result, fmt.Errorf("%s: client secret is empty: %w", op, ErrInvalidParameter))
	}
	switch {
	case c.BaseURL == "":
		result = multierror.Append(result, fmt.Errorf("%s: base URL is empty: %w", op, ErrInvalidParameter))
	default:
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: base URL %s is invalid: %w", op, c.BaseURL, err))
		} else if !strutils.StrListContains([]string{"https", "http"}, u.Scheme) {
			result = multierror.Append(result, fmt.Errorf("%s: base URL %s scheme is not http or https: %w", op, c.BaseURL, ErrInvalidParameter))
		}
	}
	if len(c.StateKey) != StateKeyLen {
		result = multierror.Append(result, fmt.Errorf("%s: state key must be %d bytes: %w", op, StateKeyLen, ErrInvalidParameter))
	}
	if c.GrantType == "" {
		result = multierror.Append(result, fmt.Errorf("%s: grant type is empty: %w", op, ErrInvalidParameter))
	}
	if c.CallbackPath == "" || !strings.HasPrefix(c.CallbackPath, "/") {
		result = multierror.Append(result, fmt.Errorf("%s: callback path %q must begin with /: %w", op, c.CallbackPath, ErrInvalidParameter))
	}
	if c.AuthType == "" {
		result = multierror.Append(result, fmt.Errorf("%s: auth type is empty: %w", op, ErrInvalidParameter))
	}
	if c.BackchannelTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("%s: backchannel timeout not greater than zero: %w", op, ErrInvalidParameter))
	}
	for _, e := range []string{c.Endpoints.Authorization, c.Endpoints.Token, c.Endpoints.UserInfo, c.Endpoints.LicenseRequest} {
		if e == "" {
			result = multierror.Append(result, fmt.Errorf("%s: endpoint path is empty: %w", op, ErrInvalidParameter))
		}
	}
	return result.ErrorOrNil()
}

// HTTPClient is a helper function that creates a new http client for the
// provider configured.  The client uses a pooled transport which may be
// shared safely by concurrent requests, and applies the configured
// backchannel timeout uniformly.
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "tenduke.Config.HTTPClient"
	tr := cleanhttp.DefaultPooledTransport()

	if c.ProviderCA != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(c.ProviderCA)); !ok {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		tr.TLSClientConfig = &tls.Config{
			RootCAs: certPool,
		}
	}

	return &http.Client{
		Transport: tr,
		Timeout:   c.BackchannelTimeout,
	}, nil
}

// LicenseRequestNames returns the configured license identifiers in order.
// Duplicates are preserved; empty entries are dropped.
func (c *Config) LicenseRequestNames() []string {
	if c.LicenseRequests == "" {
		return nil
	}
	var names []string
	for _, n := range strings.Split(c.LicenseRequests, ",") {
		if n == "" {
			continue
		}
		names = append(names, n)
	}
	return names
}

// configOptions is the set of available options for NewConfig
type configOptions struct {
	withScopes             []string
	withGrantType          string
	withLicenseRequests    string
	withCallbackPath       string
	withAuthType           string
	withSignInAsAuthType   string
	withBackchannelTimeout time.Duration
	withEndpoints          Endpoints
	withProviderCA         string
}

// configDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func configDefaults() configOptions {
	return configOptions{
		withScopes:             []string{"email"},
		withGrantType:          DefaultGrantType,
		withCallbackPath:       DefaultCallbackPath,
		withAuthType:           DefaultAuthType,
		withBackchannelTimeout: DefaultBackchannelTimeout,
		withEndpoints: Endpoints{
			Authorization:  DefaultAuthorizationEndpoint,
			Token:          DefaultTokenEndpoint,
			UserInfo:       DefaultUserInfoEndpoint,
			LicenseRequest: DefaultLicenseRequestEndpoint,
		},
	}
}

// getConfigOpts gets the config defaults and applies the opt overrides passed
// in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithScopes provides an optional list of scopes for the config
func WithScopes(scopes []string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithGrantType provides an optional grant type for the token exchange
func WithGrantType(grantType string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withGrantType = grantType
		}
	}
}

// WithLicenseRequests provides an optional comma-separated list of licensable
// item identifiers
func WithLicenseRequests(licenseRequests string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withLicenseRequests = licenseRequests
		}
	}
}

// WithCallbackPath provides an optional callback path for the config
func WithCallbackPath(path string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withCallbackPath = path
		}
	}
}

// WithAuthType provides an optional authentication type tag for the config
func WithAuthType(authType string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withAuthType = authType
		}
	}
}

// WithSignInAsAuthType provides an optional authentication type the identity
// is re-tagged with before sign-in
func WithSignInAsAuthType(authType string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withSignInAsAuthType = authType
		}
	}
}

// WithBackchannelTimeout provides an optional timeout for outbound calls to
// the provider
func WithBackchannelTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withBackchannelTimeout = d
		}
	}
}

// WithEndpoints provides optional endpoint paths, overriding the 10Duke
// defaults
func WithEndpoints(e Endpoints) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withEndpoints = e
		}
	}
}

// WithProviderCA provides an optional CA cert for the config
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}
