package handler

import (
	"net/http"
	"strconv"

	mw "github.com/sahanas/mailsense/internal/api/middleware"
	"github.com/sahanas/mailsense/internal/api/response"
	"github.com/sahanas/mailsense/internal/store"
	"github.com/sahanas/mailsense/pkg/models"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// NewListMessagesHandler serves GET /api/v1/messages: processed analysis
// records, newest first, filterable by priority and category.
func NewListMessagesHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		q := r.URL.Query()
		filter := store.AnalysisFilter{
			UserID:   userID,
			Priority: q.Get("priority"),
			Category: q.Get("category"),
			Page:     1,
			Limit:    defaultListLimit,
		}
		if filter.Priority != "" && !models.ValidPriority(filter.Priority) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "priority must be HIGH, MEDIUM, or LOW", nil)
			return
		}
		if filter.Category != "" && !models.ValidCategory(filter.Category) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "unknown category", nil)
			return
		}
		if raw := q.Get("page"); raw != "" {
			p, err := strconv.Atoi(raw)
			if err != nil || p < 1 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "page must be a positive integer", nil)
				return
			}
			filter.Page = p
		}
		if raw := q.Get("limit"); raw != "" {
			l, err := strconv.Atoi(raw)
			if err != nil || l < 1 || l > maxListLimit {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be between 1 and 100", nil)
				return
			}
			filter.Limit = l
		}

		records, total, err := s.ListAnalyses(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list messages", nil)
			return
		}
		if records == nil {
			records = []*models.Analysis{}
		}
		response.Collection(w, records, response.Meta(filter.Page, filter.Limit, total))
	}
}
