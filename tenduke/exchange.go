package tenduke

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// tokenResponse is the explicit schema for the provider's token endpoint
// response.  Only access_token is consumed; the provider issues no refresh
// token on this grant.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Exchange swaps an authorization code for an access token.  The redirectURL
// must be the same callback URL the code was issued against.  A non-2xx
// response or a response missing access_token is an error; no retries are
// performed.
func (c *Client) Exchange(ctx context.Context, code string, redirectURL string) (AccessToken, error) {
	const op = "tenduke.Client.Exchange"
	body := url.Values{
		"code":          {code},
		"redirect_uri":  {redirectURL},
		"client_id":     {c.config.ClientID},
		"client_secret": {string(c.config.ClientSecret)},
		"grant_type":    {c.config.GrantType},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+c.config.Endpoints.Token, strings.NewReader(body.Encode()))
	if err != nil {
		return "", fmt.Errorf("%s: unable to create token request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: token request failed: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%s: token endpoint returned %d: %w", op, resp.StatusCode, ErrUnexpectedStatus)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%s: unable to decode token response: %w", op, err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%s: %w", op, ErrMissingAccessToken)
	}
	return AccessToken(tr.AccessToken), nil
}
