package tenduke

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testProviderConfig returns a Config pointed at the TestProvider.
func testProviderConfig(t *testing.T, p *TestProvider, opt ...Option) *Config {
	t.Helper()
	c, err := NewConfig(p.URL(), "test-client-id", "test-client-secret", testStateKey, opt...)
	require.NoError(t, err)
	return c
}

func TestClient_Exchange(t *testing.T) {
	ctx := context.Background()
	tp := StartTestProvider(t)
	tp.SetClientCreds("test-client-id", "test-client-secret")
	tp.SetExpectedAuthCode("valid-code")
	tp.SetAccessToken("test-access-token")

	client, err := NewClient(testProviderConfig(t, tp))
	require.NoError(t, err)

	redirectURL := "http://app.example.com/signin-tenduke"

	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := client.Exchange(ctx, "valid-code", redirectURL)
		require.NoError(err)
		assert.Equal(AccessToken("test-access-token"), got)
	})
	t.Run("wrong-code", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := client.Exchange(ctx, "wrong-code", redirectURL)
		require.Error(err)
		assert.Empty(got)
		assert.Truef(errors.Is(err, ErrUnexpectedStatus), "wanted \"%s\" but got \"%s\"", ErrUnexpectedStatus, err)
	})
	t.Run("non-2xx", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp.SetTokenReplyStatus(http.StatusInternalServerError)
		defer tp.SetTokenReplyStatus(0)
		got, err := client.Exchange(ctx, "valid-code", redirectURL)
		require.Error(err)
		assert.Empty(got)
		assert.Truef(errors.Is(err, ErrUnexpectedStatus), "wanted \"%s\" but got \"%s\"", ErrUnexpectedStatus, err)
	})
	t.Run("missing-access-token", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp.SetOmitAccessToken(true)
		defer tp.SetOmitAccessToken(false)
		got, err := client.Exchange(ctx, "valid-code", redirectURL)
		require.Error(err)
		assert.Empty(got)
		assert.Truef(errors.Is(err, ErrMissingAccessToken), "wanted \"%s\" but got \"%s\"", ErrMissingAccessToken, err)
	})
	t.Run("wrong-redirect-uri", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp.SetExpectedRedirectURI(redirectURL)
		defer tp.SetExpectedRedirectURI("")
		got, err := client.Exchange(ctx, "valid-code", "http://evil.example.com/callback")
		require.Error(err)
		assert.Empty(got)
	})
	t.Run("canceled-context", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		got, err := client.Exchange(canceled, "valid-code", redirectURL)
		require.Error(err)
		assert.Empty(got)
	})
}
