package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/sahanas/mailsense/internal/api/middleware"
	"github.com/sahanas/mailsense/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler       http.HandlerFunc
	InboxHandler        http.HandlerFunc
	ListMessagesHandler http.HandlerFunc
	MessageHandler      http.HandlerFunc
	ReplyHandler        http.HandlerFunc
	SendHandler         http.HandlerFunc
	PrioritizeHandler   http.HandlerFunc
	AnalyticsHandler    http.HandlerFunc
	CreateKeyHandler    http.HandlerFunc
	ListKeysHandler     http.HandlerFunc
	RevokeKeyHandler    http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/inbox", orNotImplemented(deps.InboxHandler))
		r.Get("/api/v1/messages", orNotImplemented(deps.ListMessagesHandler))
		r.Get("/api/v1/messages/{messageID}", orNotImplemented(deps.MessageHandler))
		r.Post("/api/v1/messages/{messageID}/reply", orNotImplemented(deps.ReplyHandler))
		r.Post("/api/v1/messages/{messageID}/send", orNotImplemented(deps.SendHandler))

		r.Post("/api/v1/prioritize", orNotImplemented(deps.PrioritizeHandler))
		r.Get("/api/v1/analytics", orNotImplemented(deps.AnalyticsHandler))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
