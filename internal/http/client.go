package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/target/demobank-api/internal/service"
)

const (
	// DefaultClientCookieName names the signed cookie carrying the client id.
	DefaultClientCookieName = "demobank_client"
	clientIDKey             = "client_id"
)

// ClientAcquirer resolves a client id to its workspace. Each Acquire is
// paired with a Release once the request is done with the client.
type ClientAcquirer interface {
	Acquire(ctx context.Context, id string) (*service.Client, error)
	Release(c *service.Client)
}

// CookieConfig configures the client cookie.
type CookieConfig struct {
	Secret []byte
	MaxAge time.Duration
	Domain string
	Secure bool
}

// NewCookieStore builds the signed cookie store used to identify browser clients.
func NewCookieStore(cfg CookieConfig) *sessions.CookieStore {
	store := sessions.NewCookieStore(cfg.Secret)
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// ClientResolver attaches the caller's client workspace to the request context,
// issuing a fresh client id cookie when the request carries none.
type ClientResolver struct {
	store      sessions.Store
	clients    ClientAcquirer
	cookieName string
	logger     *slog.Logger
}

// ClientResolverOptions groups dependencies for ClientResolver.
type ClientResolverOptions struct {
	Store      sessions.Store // Required
	Clients    ClientAcquirer // Required
	CookieName string
	Logger     *slog.Logger
}

// NewClientResolver constructs a ClientResolver.
func NewClientResolver(opts ClientResolverOptions) *ClientResolver {
	name := opts.CookieName
	if name == "" {
		name = DefaultClientCookieName
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ClientResolver{
		store:      opts.Store,
		clients:    opts.Clients,
		cookieName: name,
		logger:     logger.With("component", "client_resolver"),
	}
}

// Middleware resolves the client and stores it in the request context.
func (cr *ClientResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := cr.clientID(w, r)
		if err != nil {
			cr.logger.ErrorContext(r.Context(), "failed to issue client cookie", "error", err)
			WriteError(w, ErrorParams{Code: http.StatusInternalServerError, Message: "Internal server error"})
			return
		}

		client, err := cr.clients.Acquire(r.Context(), id)
		if err != nil {
			cr.logger.ErrorContext(r.Context(), "failed to acquire client", "client_id", id, "error", err)
			WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, Message: "service unavailable"})
			return
		}
		// held for the whole request, including a long-lived event stream
		defer cr.clients.Release(client)

		next.ServeHTTP(w, r.WithContext(SetClientInContext(r.Context(), client)))
	})
}

// clientID reads the id from the signed cookie. A missing, tampered or
// malformed cookie gets replaced with a new id.
func (cr *ClientResolver) clientID(w http.ResponseWriter, r *http.Request) (string, error) {
	// A decode error still yields a usable new session.
	sess, err := cr.store.Get(r, cr.cookieName)
	if err != nil {
		cr.logger.DebugContext(r.Context(), "discarding unreadable client cookie", "error", err)
	}

	if id, ok := sess.Values[clientIDKey].(string); ok {
		if _, perr := uuid.Parse(id); perr == nil {
			return id, nil
		}
	}

	id := uuid.NewString()
	sess.Values[clientIDKey] = id
	if err := sess.Save(r, w); err != nil {
		return "", err
	}
	return id, nil
}

// requireClient returns the client attached by ClientResolver, writing a 500
// when a route was registered without the resolver.
func requireClient(w http.ResponseWriter, r *http.Request) (*service.Client, bool) {
	c, ok := GetClientFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, Message: "Internal server error"})
		return nil, false
	}
	return c, true
}
