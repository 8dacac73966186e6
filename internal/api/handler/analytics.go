package handler

import (
	"net/http"

	mw "github.com/sahanas/mailsense/internal/api/middleware"
	"github.com/sahanas/mailsense/internal/api/response"
	"github.com/sahanas/mailsense/internal/store"
)

const analyticsRecentLimit = 10

// NewAnalyticsHandler serves GET /api/v1/analytics: stored-record aggregates
// for the authenticated user.
func NewAnalyticsHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		summary, err := s.Analytics(r.Context(), userID, analyticsRecentLimit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute analytics", nil)
			return
		}

		response.JSON(w, summary)
	}
}
