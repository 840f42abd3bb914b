package tenduke

import (
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// Client performs the backchannel interactions with a 10Duke identity
// provider: building the authorization redirect, exchanging an authorization
// code for an access token, and resolving the user's profile and license
// grants.  A Client is safe for concurrent use; its pooled transport is the
// only shared resource and it is never mutated.
type Client struct {
	config *Config
	client *http.Client
}

// NewClient creates a Client for the configured provider.
func NewClient(c *Config) (*Client, error) {
	const op = "tenduke.NewClient"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: config is invalid: %w", op, err)
	}
	client, err := c.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	return &Client{
		config: c,
		client: client,
	}, nil
}

// AuthCodeURL generates the URL the user-agent is redirected to in order to
// kick off the authorization code flow.  The redirectURL is the absolute
// callback URL of the current request's host.  The state must be a protected
// state produced by a StateCodec.
//
// The scope sent is always the literal "email", which is what the provider
// expects on this endpoint regardless of the configured scope list.
func (c *Client) AuthCodeURL(redirectURL string, state string) string {
	oauth2Config := oauth2.Config{
		ClientID:    c.config.ClientID,
		RedirectURL: redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL: c.config.BaseURL + c.config.Endpoints.Authorization,
		},
		Scopes: []string{"email"},
	}
	return oauth2Config.AuthCodeURL(state)
}
