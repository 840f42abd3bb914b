package tenduke

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// UserRecord is the normalized user profile derived from the first entry of
// the provider's user-list response.  All fields are absent when the response
// list is empty.
type UserRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`

	// Raw is the first element of the user-list response as returned by the
	// provider, for hooks that need fields beyond the normalized ones.
	Raw json.RawMessage `json:"-"`
}

// LicenseResult is the outcome of one license grant request.  A result
// produces an identity claim only when it is Valid and carries an expiry.
type LicenseResult struct {
	// Name is the licensable item identifier the grant was requested for.
	Name string

	// Valid reports whether the response field named exactly Name held the
	// string "True".  The comparison is case-sensitive and exact.
	Valid bool

	// Expiry is the raw string form of the response's exp field.
	Expiry string

	// HasExpiry reports whether an exp field was present at all.  An empty
	// Expiry with HasExpiry set still produces a claim.
	HasExpiry bool
}

// UserInfo fetches the user profile.  The provider replies with a JSON array
// of users; the first element becomes the UserRecord and the rest are
// ignored.  An empty array yields a UserRecord with no fields.
func (c *Client) UserInfo(ctx context.Context, token AccessToken) (*UserRecord, error) {
	const op = "tenduke.Client.UserInfo"
	reqURL := c.config.BaseURL + c.config.Endpoints.UserInfo + "?access_token=" + url.QueryEscape(string(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create userinfo request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: userinfo request failed: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: userinfo endpoint returned %d: %w", op, resp.StatusCode, ErrUnexpectedStatus)
	}

	var users []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("%s: unable to decode userinfo response: %w", op, err)
	}
	if len(users) == 0 {
		return &UserRecord{}, nil
	}
	var user UserRecord
	if err := json.Unmarshal(users[0], &user); err != nil {
		return nil, fmt.Errorf("%s: unable to decode user record: %w", op, err)
	}
	user.Raw = users[0]
	return &user, nil
}

// Licenses requests a license grant for each configured licensable item
// identifier, in order.  The sequence is strictly sequential; the first
// failure aborts the whole resolution.
func (c *Client) Licenses(ctx context.Context, token AccessToken) ([]LicenseResult, error) {
	const op = "tenduke.Client.Licenses"
	names := c.config.LicenseRequestNames()
	if len(names) == 0 {
		return nil, nil
	}
	results := make([]LicenseResult, 0, len(names))
	for _, name := range names {
		result, err := c.license(ctx, token, name)
		if err != nil {
			return nil, fmt.Errorf("%s: license request for %q failed: %w", op, name, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// license requests a single license grant.  The identifier is sent as the
// raw, unencoded query string, which is the form the provider expects.
func (c *Client) license(ctx context.Context, token AccessToken, name string) (LicenseResult, error) {
	const op = "tenduke.Client.license"
	u, err := url.Parse(c.config.BaseURL + c.config.Endpoints.LicenseRequest)
	if err != nil {
		return LicenseResult{}, fmt.Errorf("%s: invalid license endpoint: %w", op, err)
	}
	u.RawQuery = name
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return LicenseResult{}, fmt.Errorf("%s: unable to create license request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+string(token))

	resp, err := c.client.Do(req)
	if err != nil {
		return LicenseResult{}, fmt.Errorf("%s: license request failed: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return LicenseResult{}, fmt.Errorf("%s: license endpoint returned %d: %w", op, resp.StatusCode, ErrUnexpectedStatus)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var grant map[string]interface{}
	if err := dec.Decode(&grant); err != nil {
		return LicenseResult{}, fmt.Errorf("%s: unable to decode license response: %w", op, err)
	}

	result := LicenseResult{Name: name}
	if v, ok := grant[name].(string); ok && v == "True" {
		result.Valid = true
	}
	if exp, ok := grant["exp"]; ok {
		result.HasExpiry = true
		result.Expiry = rawString(exp)
	}
	return result, nil
}

// rawString renders a decoded JSON value in its raw string form.  Numbers
// keep their wire representation via json.Number.
func rawString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
