// Package handler contains the HTTP handlers for the triage API.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/sahanas/mailsense/internal/analyzer"
	"github.com/sahanas/mailsense/internal/cache"
	"github.com/sahanas/mailsense/internal/store"
	"github.com/sahanas/mailsense/pkg/models"
)

// prioritizeWorkers bounds concurrent mailbox fetches during batch
// prioritization.
const prioritizeWorkers = 5

// ErrUpstream wraps mailbox provider failures so handlers can map them to
// 502 without inspecting provider-specific errors.
var ErrUpstream = errors.New("mailbox provider error")

// Triage coordinates the mailbox, the analysis pipeline, and the two-level
// record store (Redis in front of Postgres).
type Triage struct {
	store    store.Store
	cache    cache.Cache
	mailbox  models.Mailbox
	analyzer *analyzer.Analyzer
	logger   *slog.Logger
}

func NewTriage(s store.Store, c cache.Cache, mb models.Mailbox, a *analyzer.Analyzer, logger *slog.Logger) *Triage {
	return &Triage{store: s, cache: c, mailbox: mb, analyzer: a, logger: logger}
}

// GetOrAnalyze returns the analysis record for one message. Lookup order is
// cache, then database, then a fresh fetch-and-analyze. A record found in
// either tier is returned unchanged; analysis runs at most once per message
// ID under normal operation.
func (t *Triage) GetOrAnalyze(ctx context.Context, userID uuid.UUID, messageID string) (*models.Analysis, *analyzer.Report, error) {
	if cached, found, err := t.cache.GetAnalysis(ctx, userID, messageID); err == nil && found {
		return cached, nil, nil
	} else if err != nil {
		// Cache trouble is not fatal; fall through to the database.
		t.logger.Warn("analysis cache read failed", "error", err, "message_id", messageID)
	}

	stored, err := t.store.GetAnalysis(ctx, messageID, userID)
	if err == nil {
		if cerr := t.cache.SetAnalysis(ctx, stored); cerr != nil {
			t.logger.Warn("analysis cache write failed", "error", cerr, "message_id", messageID)
		}
		return stored, nil, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, nil, err
	}

	return t.analyze(ctx, userID, messageID)
}

func (t *Triage) analyze(ctx context.Context, userID uuid.UUID, messageID string) (*models.Analysis, *analyzer.Report, error) {
	msg, err := t.mailbox.Get(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, store.ErrNotFound
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	result, report := t.analyzer.Analyze(ctx, msg.Subject, msg.Body)
	result.ID = msg.ID
	result.UserID = userID
	result.Sender = msg.Sender
	result.Date = msg.Date
	result.Snippet = msg.Snippet
	result.Body = msg.Body

	if err := t.store.UpsertAnalysis(ctx, &result); err != nil {
		return nil, nil, err
	}
	if err := t.cache.SetAnalysis(ctx, &result); err != nil {
		t.logger.Warn("analysis cache write failed", "error", err, "message_id", messageID)
	}
	return &result, &report, nil
}

// DraftReply produces a reply draft for the given message.
func (t *Triage) DraftReply(ctx context.Context, messageID, tone, instructions string) (string, bool, error) {
	msg, err := t.mailbox.Get(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", false, store.ErrNotFound
		}
		return "", false, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	reply, status := t.analyzer.DraftReply(ctx, msg.Body, tone, instructions)
	return reply, status.Degraded, nil
}

// SendReply sends replyText as a reply to the given message.
func (t *Triage) SendReply(ctx context.Context, messageID, replyText string) (string, error) {
	sentID, err := t.mailbox.SendReply(ctx, messageID, replyText)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", store.ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return sentID, nil
}

// Prioritize resolves a priority label for each requested message ID,
// analyzing uncached messages through a bounded worker pool. Failures are
// reported per ID, never for the batch.
func (t *Triage) Prioritize(ctx context.Context, userID uuid.UUID, ids []string) map[string]string {
	results := make(map[string]string, len(ids))
	var mu sync.Mutex

	sem := make(chan struct{}, prioritizeWorkers)
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			record, _, err := t.GetOrAnalyze(ctx, userID, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[id] = "ERROR"
				return
			}
			results[id] = record.Priority
		}(id)
	}
	wg.Wait()
	return results
}
