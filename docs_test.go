package auth_test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tenduke/go-auth/tenduke"
	"github.com/tenduke/go-auth/tenduke/callback"
)

func Example() {
	// Create a new Config
	cfg, err := tenduke.NewConfig(
		"https://your-account.10duke.com",
		"your_client_id",
		"your_client_secret",
		[]byte("a-32-byte-key-for-state-protect!"),
		tenduke.WithLicenseRequests("YOUR_LICENSED_ITEM"),
	)
	if err != nil {
		// handle error
	}

	// The session manager is your application's sign-in mechanism; it
	// receives the identity once authentication succeeds.
	var sessions callback.SessionManager // e.g. backed by your session store

	// Create the flow handler.  Hooks are optional.
	h, err := callback.New(cfg, sessions,
		callback.WithAuthenticated(func(ctx context.Context, ac *callback.AuthenticatedContext) error {
			fmt.Println("authenticated:", ac.User.Email)
			return nil
		}),
	)
	if err != nil {
		// handle error
	}

	// Wrap your application.  Unauthorized (401) responses become login
	// redirects, and the provider callback is consumed automatically.
	app := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_ = http.ListenAndServe("localhost:8080", h.Wrap(app))
}
