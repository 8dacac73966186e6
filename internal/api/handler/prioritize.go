package handler

import (
	"encoding/json"
	"net/http"

	mw "github.com/sahanas/mailsense/internal/api/middleware"
	"github.com/sahanas/mailsense/internal/api/response"
)

const maxPrioritizeBatch = 50

// NewPrioritizeHandler serves POST /api/v1/prioritize: a batch priority
// lookup over message IDs, analyzing any that have no stored record yet.
func NewPrioritizeHandler(triage *Triage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		var req struct {
			IDs []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if len(req.IDs) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "ids is required", nil)
			return
		}
		if len(req.IDs) > maxPrioritizeBatch {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "too many ids in one batch", map[string]int{"max": maxPrioritizeBatch})
			return
		}

		response.JSON(w, map[string]any{
			"priorities": triage.Prioritize(r.Context(), userID, req.IDs),
		})
	}
}
