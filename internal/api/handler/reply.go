package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sahanas/mailsense/internal/api/response"
	"github.com/sahanas/mailsense/internal/store"
)

// NewReplyHandler drafts a reply for POST /api/v1/messages/{messageID}/reply.
func NewReplyHandler(triage *Triage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messageID := chi.URLParam(r, "messageID")

		var req struct {
			Tone         string `json:"tone"`
			Instructions string `json:"instructions"`
		}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
				return
			}
		}

		reply, degraded, err := triage.DraftReply(r.Context(), messageID, req.Tone, req.Instructions)
		if err != nil {
			writeTriageError(w, err)
			return
		}

		response.JSON(w, map[string]any{
			"reply":    reply,
			"degraded": degraded,
		})
	}
}

// NewSendHandler sends a reply for POST /api/v1/messages/{messageID}/send.
func NewSendHandler(triage *Triage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messageID := chi.URLParam(r, "messageID")

		var req struct {
			ReplyText string `json:"reply_text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.ReplyText == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "reply_text is required", nil)
			return
		}

		sentID, err := triage.SendReply(r.Context(), messageID, req.ReplyText)
		if err != nil {
			writeTriageError(w, err)
			return
		}

		response.JSON(w, map[string]any{
			"sent_id": sentID,
			"status":  "sent",
		})
	}
}

func writeTriageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Message not found", nil)
	case errors.Is(err, ErrUpstream):
		response.Error(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Mailbox provider request failed", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}
