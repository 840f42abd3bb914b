package callback

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tenduke/go-auth/tenduke"
)

// SessionManager is the host application's session layer.  SignIn is invoked
// only with a non-nil identity, once per successful authentication attempt.
// Implementations must be concurrently safe, since the manager is used within
// a concurrent http.Handler.
type SessionManager interface {
	SignIn(w http.ResponseWriter, r *http.Request, props *tenduke.Properties, identity *tenduke.Identity) error
}

// CorrelationStore records the per-challenge anti-forgery nonce on the
// user-agent and verifies it on callback.  Implementations must be
// concurrently safe.
type CorrelationStore interface {
	// Generate issues a fresh correlation id and persists it for the
	// user-agent making the request.
	Generate(w http.ResponseWriter, r *http.Request) (string, error)

	// Validate checks the persisted correlation id against the one carried
	// in the returned state, consuming the persisted value either way.
	Validate(w http.ResponseWriter, r *http.Request, id string) bool
}

// CookieCorrelationStore implements CorrelationStore with a short-lived
// http-only cookie, one per authentication type.
type CookieCorrelationStore struct {
	// Name is the cookie name.
	Name string

	// TTL bounds how long a challenge may remain outstanding.
	TTL time.Duration
}

// NewCookieCorrelationStore creates a store whose cookie is named after the
// authentication type.
func NewCookieCorrelationStore(authType string) *CookieCorrelationStore {
	return &CookieCorrelationStore{
		Name: fmt.Sprintf(".correlation.%s", authType),
		TTL:  tenduke.DefaultStateTTL,
	}
}

// Generate issues a correlation id and sets it as a cookie on the response.
func (s *CookieCorrelationStore) Generate(w http.ResponseWriter, r *http.Request) (string, error) {
	const op = "callback.CookieCorrelationStore.Generate"
	id, err := tenduke.NewID(tenduke.WithPrefix("corr"))
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate correlation id: %w", op, err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.Name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		Expires:  time.Now().Add(s.TTL),
	})
	return id, nil
}

// Validate compares the cookie against the id carried in the returned state.
// The cookie is cleared whether or not the comparison succeeds; a correlation
// id is single use.
func (s *CookieCorrelationStore) Validate(w http.ResponseWriter, r *http.Request, id string) bool {
	if id == "" {
		return false
	}
	cookie, err := r.Cookie(s.Name)
	if err != nil {
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		MaxAge:   -1,
	})
	return cookie.Value == id
}
