package tenduke

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestProvider is a local server that implements the 10Duke endpoints used by
// this package, which makes writing tests much easier.  All reply data can be
// configured with the Set... receiver functions, which are safe to call from
// concurrent tests.
type TestProvider struct {
	httpServer *httptest.Server

	mu                  sync.Mutex
	clientID            string
	clientSecret        string
	expectedAuthCode    string
	expectedGrantType   string
	expectedRedirectURI string
	accessToken         string
	replyUserinfo       []interface{}
	replyLicenses       map[string]map[string]interface{}
	tokenReplyStatus    int
	userinfoReplyStatus int
	licenseReplyStatus  int
	omitAccessToken     bool
	licenseQueries      []string

	t *testing.T
}

// StartTestProvider creates a disposable TestProvider with reasonable reply
// defaults: one user record and no license grants.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	p := &TestProvider{
		t:                 t,
		accessToken:       "test-access-token",
		expectedGrantType: DefaultGrantType,
		replyUserinfo: []interface{}{
			map[string]interface{}{
				"id":    "test-user-id",
				"name":  "alice",
				"email": "alice@example.com",
			},
		},
		replyLicenses: map[string]map[string]interface{}{},
	}
	p.httpServer = httptest.NewServer(p)
	t.Cleanup(p.httpServer.Close)
	return p
}

// URL is the base URL of the running TestProvider, suitable for
// Config.BaseURL.
func (p *TestProvider) URL() string {
	return p.httpServer.URL
}

// SetClientCreds configures the client credentials the token endpoint will
// accept.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// SetExpectedAuthCode configures the auth code returned from the
// authorization endpoint and required by the token endpoint.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetExpectedRedirectURI configures the redirect_uri the token endpoint will
// require, when non-empty.
func (p *TestProvider) SetExpectedRedirectURI(uri string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedRedirectURI = uri
}

// SetAccessToken configures the access token issued by the token endpoint and
// required by the userinfo and license endpoints.
func (p *TestProvider) SetAccessToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accessToken = token
}

// SetUserInfoReply configures the JSON array returned by the userinfo
// endpoint.
func (p *TestProvider) SetUserInfoReply(users []interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyUserinfo = users
}

// SetLicenseReply configures the JSON document returned by the license
// endpoint when the raw request query equals name.  Unknown queries are
// answered with an empty document.
func (p *TestProvider) SetLicenseReply(name string, doc map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyLicenses[name] = doc
}

// SetTokenReplyStatus forces a non-2xx status from the token endpoint.  Zero
// restores normal replies.
func (p *TestProvider) SetTokenReplyStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenReplyStatus = status
}

// SetUserInfoReplyStatus forces a non-2xx status from the userinfo endpoint.
// Zero restores normal replies.
func (p *TestProvider) SetUserInfoReplyStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userinfoReplyStatus = status
}

// SetLicenseReplyStatus forces a non-2xx status from the license endpoint.
// Zero restores normal replies.
func (p *TestProvider) SetLicenseReplyStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.licenseReplyStatus = status
}

// SetOmitAccessToken makes the token endpoint reply 200 with a body missing
// the access_token field.
func (p *TestProvider) SetOmitAccessToken(omit bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitAccessToken = omit
}

// LicenseQueries returns the raw query strings the license endpoint has seen,
// in request order.
func (p *TestProvider) LicenseQueries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	queries := make([]string, len(p.licenseQueries))
	copy(queries, p.licenseQueries)
	return queries
}

// ServeHTTP implements the provider endpoints.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	require := require.New(p.t)

	switch req.URL.Path {
	case DefaultAuthorizationEndpoint:
		// the browser leg: bounce straight back to the relying party with
		// the expected code and the state it sent us.
		q := req.URL.Query()
		require.Equal("code", q.Get("response_type"))
		require.Equal("email", q.Get("scope"))
		redirectURI := q.Get("redirect_uri")
		require.NotEmpty(redirectURI)
		u, err := url.Parse(redirectURI)
		require.NoError(err)
		params := u.Query()
		params.Set("code", p.expectedAuthCode)
		params.Set("state", q.Get("state"))
		u.RawQuery = params.Encode()
		http.Redirect(w, req, u.String(), http.StatusFound)

	case DefaultTokenEndpoint:
		if p.tokenReplyStatus != 0 {
			w.WriteHeader(p.tokenReplyStatus)
			return
		}
		require.NoError(req.ParseForm())
		switch {
		case p.clientID != "" && req.PostFormValue("client_id") != p.clientID,
			p.clientSecret != "" && req.PostFormValue("client_secret") != p.clientSecret,
			p.expectedAuthCode != "" && req.PostFormValue("code") != p.expectedAuthCode,
			p.expectedGrantType != "" && req.PostFormValue("grant_type") != p.expectedGrantType,
			p.expectedRedirectURI != "" && req.PostFormValue("redirect_uri") != p.expectedRedirectURI:
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if p.omitAccessToken {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		reply, err := json.Marshal(map[string]interface{}{
			"access_token": p.accessToken,
			"token_type":   "bearer",
		})
		require.NoError(err)
		_, _ = w.Write(reply)

	case DefaultUserInfoEndpoint:
		if p.userinfoReplyStatus != 0 {
			w.WriteHeader(p.userinfoReplyStatus)
			return
		}
		if req.URL.Query().Get("access_token") != p.accessToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		reply, err := json.Marshal(p.replyUserinfo)
		require.NoError(err)
		_, _ = w.Write(reply)

	case DefaultLicenseRequestEndpoint:
		p.licenseQueries = append(p.licenseQueries, req.URL.RawQuery)
		if p.licenseReplyStatus != 0 {
			w.WriteHeader(p.licenseReplyStatus)
			return
		}
		if req.Header.Get("Authorization") != "Bearer "+p.accessToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		doc, ok := p.replyLicenses[req.URL.RawQuery]
		if !ok {
			doc = map[string]interface{}{}
		}
		w.Header().Set("Content-Type", "application/json")
		reply, err := json.Marshal(doc)
		require.NoError(err)
		_, _ = w.Write(reply)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
