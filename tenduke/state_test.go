package tenduke

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStateCodec(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		key       []byte
		opt       []Option
		wantErr   bool
		wantIsErr error
	}{
		{"valid", testStateKey, nil, false, nil},
		{"valid-with-ttl", testStateKey, []Option{WithStateTTL(time.Minute)}, false, nil},
		{"short-key", []byte("short"), nil, true, ErrInvalidParameter},
		{"nil-key", nil, nil, true, ErrInvalidParameter},
		{"zero-ttl", testStateKey, []Option{WithStateTTL(0)}, true, ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := NewStateCodec(tt.key, tt.opt...)
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
			assert.NotNil(got)
		})
	}
}

func TestStateCodec_RoundTrip(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	codec, err := NewStateCodec(testStateKey)
	require.NoError(err)

	p := &Properties{
		RedirectURI:   "https://app.example.com/dashboard?tab=1",
		CorrelationID: "corr_1234",
		Items: map[string]string{
			"tenant": "acme",
		},
	}
	protected, err := codec.Protect(p)
	require.NoError(err)
	require.NotEmpty(protected)

	got, err := codec.Unprotect(protected)
	require.NoError(err)
	assert.Equal(p, got)
}

func TestStateCodec_Protect(t *testing.T) {
	t.Parallel()
	t.Run("nil-properties", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		codec, err := NewStateCodec(testStateKey)
		require.NoError(err)
		got, err := codec.Protect(nil)
		require.Error(err)
		assert.Empty(got)
		assert.Truef(errors.Is(err, ErrNilParameter), "wanted \"%s\" but got \"%s\"", ErrNilParameter, err)
	})
	t.Run("opaque", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		codec, err := NewStateCodec(testStateKey)
		require.NoError(err)
		got, err := codec.Protect(&Properties{RedirectURI: "https://app.example.com/secret-path"})
		require.NoError(err)
		// the redirect target must not be readable from the wire form
		assert.NotContains(got, "secret-path")
	})
}

func TestStateCodec_Unprotect(t *testing.T) {
	t.Parallel()
	codec, err := NewStateCodec(testStateKey)
	require.NoError(t, err)
	p := &Properties{RedirectURI: "https://app.example.com/", CorrelationID: "corr_1"}
	protected, err := codec.Protect(p)
	require.NoError(t, err)

	t.Run("tampered-byte-always-rejects", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		raw := []byte(protected)
		i := len(raw) / 2
		if raw[i] == 'A' {
			raw[i] = 'B'
		} else {
			raw[i] = 'A'
		}
		tampered := string(raw)
		// repeated attempts with the same tampered state always reject
		for attempt := 0; attempt < 3; attempt++ {
			got, err := codec.Unprotect(tampered)
			require.Error(err)
			assert.Nil(got)
			assert.Truef(errors.Is(err, ErrInvalidState), "wanted \"%s\" but got \"%s\"", ErrInvalidState, err)
		}
	})
	t.Run("empty", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := codec.Unprotect("")
		require.Error(err)
		assert.Nil(got)
		assert.Truef(errors.Is(err, ErrInvalidState), "wanted \"%s\" but got \"%s\"", ErrInvalidState, err)
	})
	t.Run("garbage", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := codec.Unprotect("not-a-protected-state")
		require.Error(err)
		assert.Nil(got)
		assert.Truef(errors.Is(err, ErrInvalidState), "wanted \"%s\" but got \"%s\"", ErrInvalidState, err)
	})
	t.Run("wrong-key", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		otherCodec, err := NewStateCodec([]byte("ffffffffffffffffffffffffffffffff"))
		require.NoError(err)
		got, err := otherCodec.Unprotect(protected)
		require.Error(err)
		assert.Nil(got)
		assert.Truef(errors.Is(err, ErrInvalidState), "wanted \"%s\" but got \"%s\"", ErrInvalidState, err)
	})
	t.Run("expired", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		shortCodec, err := NewStateCodec(testStateKey, WithStateTTL(1*time.Nanosecond))
		require.NoError(err)
		expired, err := shortCodec.Protect(p)
		require.NoError(err)
		got, err := shortCodec.Unprotect(expired)
		require.Error(err)
		assert.Nil(got)
		assert.Truef(errors.Is(err, ErrExpiredState), "wanted \"%s\" but got \"%s\"", ErrExpiredState, err)
	})
}
