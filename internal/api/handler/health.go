package handler

import (
	"net/http"

	"github.com/sahanas/mailsense/internal/api/response"
	"github.com/sahanas/mailsense/internal/cache"
	"github.com/sahanas/mailsense/internal/store"
	"github.com/sahanas/mailsense/pkg/models"
)

type healthResponse struct {
	Status   string            `json:"status"`
	Mailbox  string            `json:"mailbox"`
	Checks   map[string]string `json:"checks"`
	AIModels bool              `json:"ai_available"`
}

// NewHealthHandler reports component health. The endpoint stays 200 as long
// as the process can serve; individual components report degraded state.
func NewHealthHandler(s store.Store, c cache.Cache, backend models.ChatBackend, mailboxProvider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
			"backend":  "ok",
		}
		status := "ok"

		if err := s.Ping(ctx); err != nil {
			checks["database"] = "unreachable"
			status = "degraded"
		}
		if err := c.Ping(ctx); err != nil {
			checks["cache"] = "unreachable"
			status = "degraded"
		}
		aiUp := backend.Available(ctx)
		if !aiUp {
			// Analysis degrades to heuristics; not a service outage.
			checks["backend"] = "unavailable"
			if status == "ok" {
				status = "degraded"
			}
		}

		response.JSON(w, healthResponse{
			Status:   status,
			Mailbox:  mailboxProvider,
			Checks:   checks,
			AIModels: aiUp,
		})
	}
}
