package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/sahanas/mailsense/internal/api/middleware"
	"github.com/sahanas/mailsense/internal/api/response"
)

// NewMessageHandler serves GET /api/v1/messages/{messageID}: the cached or
// stored analysis record when one exists, otherwise a fresh analysis.
func NewMessageHandler(triage *Triage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		messageID := chi.URLParam(r, "messageID")
		if messageID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "messageID is required", nil)
			return
		}

		record, report, err := triage.GetOrAnalyze(r.Context(), userID, messageID)
		if err != nil {
			writeTriageError(w, err)
			return
		}

		body := map[string]any{"analysis": record}
		if report != nil {
			body["tasks"] = report
		}
		response.JSON(w, body)
	}
}
