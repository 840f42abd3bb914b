package callback

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/tenduke/go-auth/tenduke"
)

// Handler owns the authentication flow: it issues challenges for
// unauthorized requests, consumes the provider callback, and completes the
// request by signing in or redirecting with a failure marker.  A Handler is
// immutable after construction and safe for concurrent requests.
type Handler struct {
	config      *tenduke.Config
	client      *tenduke.Client
	codec       *tenduke.StateCodec
	sessions    SessionManager
	correlation CorrelationStore
	logger      hclog.Logger

	onAuthenticated  AuthenticatedFunc
	onReturnEndpoint ReturnEndpointFunc
}

// New creates a Handler for the configured provider.  The sessions manager
// is the host application's sign-in mechanism and is required.
// Supported options: WithLogger, WithAuthenticated, WithReturnEndpoint,
// WithCorrelationStore, WithHandlerStateTTL
func New(c *tenduke.Config, sessions SessionManager, opt ...tenduke.Option) (*Handler, error) {
	const op = "callback.New"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, tenduke.ErrNilParameter)
	}
	if sessions == nil {
		return nil, fmt.Errorf("%s: session manager is nil: %w", op, tenduke.ErrNilParameter)
	}
	client, err := tenduke.NewClient(c)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create client: %w", op, err)
	}
	opts := getHandlerOpts(opt...)
	codec, err := tenduke.NewStateCodec(c.StateKey, tenduke.WithStateTTL(opts.withStateTTL))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create state codec: %w", op, err)
	}
	correlation := opts.withCorrelationStore
	if correlation == nil {
		correlation = NewCookieCorrelationStore(c.AuthType)
	}
	return &Handler{
		config:           c,
		client:           client,
		codec:            codec,
		sessions:         sessions,
		correlation:      correlation,
		logger:           opts.withLogger,
		onAuthenticated:  opts.withAuthenticatedFn,
		onReturnEndpoint: opts.withReturnEndpointFn,
	}, nil
}

// Wrap returns a middleware around next.  Requests to the configured
// callback path are consumed by the callback phase; any other request passes
// through, and an unauthorized (401) response from next is converted into a
// challenge redirect to the provider.
func (h *Handler) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == h.config.CallbackPath {
			h.callback(w, r)
			return
		}
		next.ServeHTTP(&challengeWriter{ResponseWriter: w, h: h, r: r}, r)
	})
}

// Challenge redirects the user-agent to the provider's authorization
// endpoint.  When props carries no redirect URI, the current request URI
// becomes the post-login target.
func (h *Handler) Challenge(w http.ResponseWriter, r *http.Request, props *tenduke.Properties) error {
	const op = "callback.Handler.Challenge"
	if props == nil {
		props = &tenduke.Properties{}
	}
	baseURI := requestScheme(r) + "://" + r.Host
	if props.RedirectURI == "" {
		props.RedirectURI = baseURI + r.URL.RequestURI()
	}

	// OAuth2 10.12 CSRF
	id, err := h.correlation.Generate(w, r)
	if err != nil {
		return fmt.Errorf("%s: unable to generate correlation id: %w", op, err)
	}
	props.CorrelationID = id

	state, err := h.codec.Protect(props)
	if err != nil {
		return fmt.Errorf("%s: unable to protect state: %w", op, err)
	}

	authURL := h.client.AuthCodeURL(baseURI+h.config.CallbackPath, state)
	http.Redirect(w, r, authURL, http.StatusFound)
	return nil
}

// callback runs the inbound half of the flow and completes the request.
func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ticket := h.authenticate(ctx, w, r)
	if ticket == nil {
		h.logger.Warn("invalid return state, unable to redirect")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	rc := &ReturnEndpointContext{
		Ticket:           ticket,
		SignInAsAuthType: h.config.SignInAsAuthType,
	}
	if ticket.Properties != nil {
		rc.RedirectURI = ticket.Properties.RedirectURI
	}
	if err := h.onReturnEndpoint(ctx, rc); err != nil {
		h.logger.Error("return endpoint hook failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	identity := rc.Ticket.Identity
	signInFailed := false
	if identity != nil {
		if rc.SignInAsAuthType != "" && identity.AuthType != rc.SignInAsAuthType {
			identity = identity.WithAuthType(rc.SignInAsAuthType)
		}
		if err := h.sessions.SignIn(w, r, ticket.Properties, identity); err != nil {
			h.logger.Error("session sign-in failed", "error", err)
			signInFailed = true
		}
	}

	if !rc.IsRequestCompleted() && rc.RedirectURI != "" {
		location := rc.RedirectURI
		if identity == nil || signInFailed {
			// add a redirect hint that sign-in failed in some way
			location = addQueryString(location, "error", "access_denied")
		}
		http.Redirect(w, r, location, http.StatusFound)
		rc.RequestCompleted()
	}
	if !rc.IsRequestCompleted() {
		w.WriteHeader(http.StatusForbidden)
	}
}

// authenticate runs the callback protocol and produces the attempt's ticket.
// A nil return means the state could not be verified at all.  Every other
// failure is absorbed here: the ticket keeps its properties and carries no
// identity.
func (h *Handler) authenticate(ctx context.Context, w http.ResponseWriter, r *http.Request) *Ticket {
	query := r.URL.Query()
	code := singleParam(query, "code")
	state := singleParam(query, "state")

	props, err := h.codec.Unprotect(state)
	if err != nil {
		h.logger.Warn("unable to unprotect state", "error", err)
		return nil
	}

	// OAuth2 10.12 CSRF
	if !h.correlation.Validate(w, r, props.CorrelationID) {
		h.logger.Warn("correlation id validation failed")
		return &Ticket{Properties: props}
	}

	if errParam := singleParam(query, "error"); errParam != "" {
		h.logger.Warn("provider returned an error response",
			"error", errParam, "description", query.Get("error_description"))
		return &Ticket{Properties: props}
	}

	redirectURL := requestScheme(r) + "://" + r.Host + h.config.CallbackPath

	token, err := h.client.Exchange(ctx, code, redirectURL)
	if err != nil {
		h.logger.Error("token exchange failed", "error", err)
		return &Ticket{Properties: props}
	}
	user, err := h.client.UserInfo(ctx, token)
	if err != nil {
		h.logger.Error("userinfo request failed", "error", err)
		return &Ticket{Properties: props}
	}
	licenses, err := h.client.Licenses(ctx, token)
	if err != nil {
		h.logger.Error("license resolution failed", "error", err)
		return &Ticket{Properties: props}
	}

	ac := &AuthenticatedContext{
		Identity:    tenduke.NewIdentity(h.config.AuthType, user, licenses),
		Properties:  props,
		AccessToken: token,
		User:        user,
		Licenses:    licenses,
	}
	if err := h.onAuthenticated(ctx, ac); err != nil {
		h.logger.Error("authenticated hook failed", "error", err)
		return &Ticket{Properties: props}
	}
	return &Ticket{Identity: ac.Identity, Properties: props}
}

// challengeWriter converts an unauthorized response from the downstream
// handler into a challenge redirect, leaving all other responses untouched.
type challengeWriter struct {
	http.ResponseWriter
	h *Handler
	r *http.Request

	wroteHeader bool
	intercepted bool
}

func (cw *challengeWriter) WriteHeader(status int) {
	if cw.wroteHeader {
		return
	}
	cw.wroteHeader = true
	if status == http.StatusUnauthorized {
		cw.intercepted = true
		if err := cw.h.Challenge(cw.ResponseWriter, cw.r, nil); err != nil {
			cw.h.logger.Error("unable to issue challenge", "error", err)
			cw.ResponseWriter.WriteHeader(http.StatusInternalServerError)
		}
		return
	}
	cw.ResponseWriter.WriteHeader(status)
}

func (cw *challengeWriter) Write(b []byte) (int, error) {
	if !cw.wroteHeader {
		cw.WriteHeader(http.StatusOK)
	}
	if cw.intercepted {
		// the downstream body of a converted 401 is discarded
		return len(b), nil
	}
	return cw.ResponseWriter.Write(b)
}

// singleParam returns the query parameter's value only when it appears
// exactly once; otherwise it is treated as absent.
func singleParam(query url.Values, name string) string {
	values, ok := query[name]
	if !ok || len(values) != 1 {
		return ""
	}
	return values[0]
}

// requestScheme reconstructs the inbound request's scheme.
func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// addQueryString appends a query parameter to a URI that may or may not
// already carry a query.
func addQueryString(uri, name, value string) string {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	return uri + sep + url.QueryEscape(name) + "=" + url.QueryEscape(value)
}

// handlerOptions is the set of available options for New
type handlerOptions struct {
	withLogger           hclog.Logger
	withAuthenticatedFn  AuthenticatedFunc
	withReturnEndpointFn ReturnEndpointFunc
	withCorrelationStore CorrelationStore
	withStateTTL         time.Duration
}

// handlerDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func handlerDefaults() handlerOptions {
	return handlerOptions{
		withLogger:           hclog.NewNullLogger(),
		withAuthenticatedFn:  func(context.Context, *AuthenticatedContext) error { return nil },
		withReturnEndpointFn: func(context.Context, *ReturnEndpointContext) error { return nil },
		withStateTTL:         tenduke.DefaultStateTTL,
	}
}

// getHandlerOpts gets the handler defaults and applies the opt overrides
// passed in.
func getHandlerOpts(opt ...tenduke.Option) handlerOptions {
	opts := handlerDefaults()
	tenduke.ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger for the handler
func WithLogger(l hclog.Logger) tenduke.Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithAuthenticated provides an optional hook invoked after the identity is
// built, before the ticket is finalized
func WithAuthenticated(fn AuthenticatedFunc) tenduke.Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok && fn != nil {
			o.withAuthenticatedFn = fn
		}
	}
}

// WithReturnEndpoint provides an optional hook invoked before sign-in and the
// final redirect
func WithReturnEndpoint(fn ReturnEndpointFunc) tenduke.Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok && fn != nil {
			o.withReturnEndpointFn = fn
		}
	}
}

// WithCorrelationStore provides an optional correlation store, replacing the
// default cookie-based store
func WithCorrelationStore(cs CorrelationStore) tenduke.Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok && cs != nil {
			o.withCorrelationStore = cs
		}
	}
}

// WithHandlerStateTTL provides an optional time-to-live for the protected
// state issued by the handler's challenges
func WithHandlerStateTTL(d time.Duration) tenduke.Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok && d > 0 {
			o.withStateTTL = d
		}
	}
}
