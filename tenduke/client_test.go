package tenduke

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Parallel()
	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := NewClient(testConfig(t))
		require.NoError(err)
		assert.NotNil(got)
	})
	t.Run("nil-config", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := NewClient(nil)
		require.Error(err)
		assert.Nil(got)
		assert.Truef(errors.Is(err, ErrNilParameter), "wanted \"%s\" but got \"%s\"", ErrNilParameter, err)
	})
	t.Run("invalid-config", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c := testConfig(t)
		c.ClientID = ""
		got, err := NewClient(c)
		require.Error(err)
		assert.Nil(got)
	})
}

func TestClient_AuthCodeURL(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	c := testConfig(t)
	c.Scopes = []string{"email", "profile", "licenses"}
	client, err := NewClient(c)
	require.NoError(err)

	got := client.AuthCodeURL("https://app.example.com/signin-tenduke", "protected-state")
	u, err := url.Parse(got)
	require.NoError(err)

	assert.Equal(c.BaseURL+c.Endpoints.Authorization, u.Scheme+"://"+u.Host+u.Path)
	q := u.Query()
	assert.Equal("test-client-id", q.Get("client_id"))
	assert.Equal("https://app.example.com/signin-tenduke", q.Get("redirect_uri"))
	assert.Equal("code", q.Get("response_type"))
	assert.Equal("protected-state", q.Get("state"))
	// the emitted scope is always the literal "email", not the configured list
	assert.Equal("email", q.Get("scope"))
}
