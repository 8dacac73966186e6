package handler

import (
	"net/http"
	"strconv"

	"github.com/sahanas/mailsense/internal/api/response"
	"github.com/sahanas/mailsense/pkg/models"
)

const (
	defaultInboxFetch = 10
	maxInboxFetch     = 50
)

// NewInboxHandler returns recent message metadata from the mailbox provider.
func NewInboxHandler(mailbox models.Mailbox) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		max := defaultInboxFetch
		if raw := r.URL.Query().Get("max"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "max must be a positive integer", nil)
				return
			}
			max = n
		}
		if max > maxInboxFetch {
			max = maxInboxFetch
		}

		messages, err := mailbox.ListRecent(r.Context(), max)
		if err != nil {
			response.Error(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Failed to fetch inbox from mailbox provider", nil)
			return
		}

		response.JSON(w, map[string]any{
			"messages": messages,
			"count":    len(messages),
		})
	}
}
