// Package analyzer derives triage metadata for a single email by fanning out
// independent model tasks and falling back to deterministic heuristics when
// the backend cannot serve a task.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sahanas/mailsense/internal/heuristic"
	"github.com/sahanas/mailsense/internal/ollama"
	"github.com/sahanas/mailsense/pkg/models"
)

// TaskStatus records how one enrichment task produced its value.
type TaskStatus struct {
	Degraded bool   `json:"degraded"`
	Reason   string `json:"reason,omitempty"`
}

// Report carries the per-task provenance for one Analyze call.
type Report struct {
	Summary    TaskStatus `json:"summary"`
	Priority   TaskStatus `json:"priority"`
	Sentiment  TaskStatus `json:"sentiment"`
	Category   TaskStatus `json:"category"`
	Extraction TaskStatus `json:"extraction"`
}

// Analyzer runs the enrichment pipeline against a chat backend.
type Analyzer struct {
	backend models.ChatBackend
	logger  *slog.Logger
}

func New(backend models.ChatBackend, logger *slog.Logger) *Analyzer {
	return &Analyzer{backend: backend, logger: logger}
}

// Analyze derives summary, priority, sentiment, category and extracted
// entities for one email. The five tasks run concurrently and fail
// independently; a task that cannot use the backend degrades to its
// heuristic fallback instead of erroring. Analyze itself never fails.
func (a *Analyzer) Analyze(ctx context.Context, subject, body string) (models.Analysis, Report) {
	text := strings.TrimSpace(body)
	if text == "" {
		text = strings.TrimSpace(subject)
	}

	var (
		result models.Analysis
		report Report
		wg     sync.WaitGroup
	)
	result.Subject = subject

	start := time.Now()
	wg.Add(5)
	go func() {
		defer wg.Done()
		result.Summary, report.Summary = a.summarize(ctx, text)
	}()
	go func() {
		defer wg.Done()
		result.Priority, report.Priority = a.prioritize(ctx, text)
	}()
	go func() {
		defer wg.Done()
		result.Sentiment, result.SentimentScore, report.Sentiment = a.sentiment(ctx, text)
	}()
	go func() {
		defer wg.Done()
		result.Category, report.Category = a.categorize(ctx, subject, text)
	}()
	go func() {
		defer wg.Done()
		result.ExtractedInfo, report.Extraction = a.extract(ctx, text)
	}()
	wg.Wait()

	result.ProcessedAt = time.Now().UTC()
	a.logger.Debug("analysis complete",
		"duration_ms", time.Since(start).Milliseconds(),
		"priority", result.Priority,
		"category", result.Category,
		"degraded_summary", report.Summary.Degraded)

	return result, report
}

// DraftReply generates a reply body in the requested tone. Falls back to a
// generic acknowledgement template when the backend is unavailable.
func (a *Analyzer) DraftReply(ctx context.Context, body, tone, instructions string) (string, TaskStatus) {
	if tone == "" {
		tone = "professional"
	}
	out, err := a.backend.Chat(ctx, replyPrompt(body, tone, instructions), models.ChatOptions{MaxTokens: 400, Temperature: 0.7})
	if err != nil {
		a.logger.Warn("reply draft degraded", "error", err)
		return heuristic.FallbackReply(), TaskStatus{Degraded: true, Reason: degradeReason(err)}
	}
	out = strings.TrimSpace(ollama.StripFences(out))
	if out == "" {
		return heuristic.FallbackReply(), TaskStatus{Degraded: true, Reason: "empty model output"}
	}
	return out, TaskStatus{}
}

func (a *Analyzer) summarize(ctx context.Context, text string) (string, TaskStatus) {
	if text == "" {
		return "No email content available to summarize.", TaskStatus{}
	}
	out, err := a.backend.Chat(ctx, summaryPrompt(text), models.ChatOptions{MaxTokens: 200, Temperature: 0.2})
	if err != nil {
		return heuristic.FallbackSummary(len(text)), TaskStatus{Degraded: true, Reason: degradeReason(err)}
	}
	out = strings.TrimSpace(ollama.StripFences(out))
	if out == "" {
		return heuristic.FallbackSummary(len(text)), TaskStatus{Degraded: true, Reason: "empty model output"}
	}
	return out, TaskStatus{}
}

func (a *Analyzer) prioritize(ctx context.Context, text string) (string, TaskStatus) {
	if len(text) < 10 {
		return models.PriorityMedium, TaskStatus{}
	}
	// An urgency keyword hit skips the model call.
	if heuristic.Priority(text) == models.PriorityHigh {
		return models.PriorityHigh, TaskStatus{}
	}
	out, err := a.backend.Chat(ctx, priorityPrompt(text), models.ChatOptions{MaxTokens: 10, Temperature: 0})
	if err != nil {
		return models.PriorityMedium, TaskStatus{Degraded: true, Reason: degradeReason(err)}
	}
	label := coercePriority(out)
	if label == "" {
		return models.PriorityMedium, TaskStatus{Degraded: true, Reason: "unparseable model output"}
	}
	return label, TaskStatus{}
}

func (a *Analyzer) sentiment(ctx context.Context, text string) (string, float64, TaskStatus) {
	out, err := a.backend.Chat(ctx, sentimentPrompt(text), models.ChatOptions{MaxTokens: 60, Temperature: 0})
	if err != nil {
		label, score := heuristic.Sentiment(text)
		return label, score, TaskStatus{Degraded: true, Reason: degradeReason(err)}
	}

	out = strings.TrimSpace(ollama.StripFences(out))
	var parsed struct {
		Sentiment string  `json:"sentiment"`
		Score     float64 `json:"score"`
	}
	if jerr := json.Unmarshal([]byte(out), &parsed); jerr == nil && models.ValidSentiment(strings.ToLower(parsed.Sentiment)) {
		return strings.ToLower(parsed.Sentiment), clampScore(parsed.Score), TaskStatus{}
	}

	// Malformed JSON: salvage a bare label from the raw text before giving
	// up on the model output entirely.
	lower := strings.ToLower(out)
	switch {
	case strings.Contains(lower, models.SentimentPositive):
		return models.SentimentPositive, 0.7, TaskStatus{Degraded: true, Reason: "label recovered from malformed output"}
	case strings.Contains(lower, models.SentimentNegative):
		return models.SentimentNegative, 0.3, TaskStatus{Degraded: true, Reason: "label recovered from malformed output"}
	}

	label, score := heuristic.Sentiment(text)
	return label, score, TaskStatus{Degraded: true, Reason: "unparseable model output"}
}

func (a *Analyzer) categorize(ctx context.Context, subject, text string) (string, TaskStatus) {
	// A keyword rule hit skips the model call.
	if cat := heuristic.Categorize(subject, text); cat != models.CategoryGeneral {
		return cat, TaskStatus{}
	}
	out, err := a.backend.Chat(ctx, categoryPrompt(subject, text), models.ChatOptions{MaxTokens: 15, Temperature: 0})
	if err != nil {
		return models.CategoryGeneral, TaskStatus{Degraded: true, Reason: degradeReason(err)}
	}
	if cat := coerceCategory(out); cat != "" {
		return cat, TaskStatus{}
	}
	return models.CategoryGeneral, TaskStatus{Degraded: true, Reason: "unparseable model output"}
}

func (a *Analyzer) extract(ctx context.Context, text string) (models.ExtractedInfo, TaskStatus) {
	info := models.ExtractedInfo{
		Emails:      heuristic.ExtractEmails(text),
		Phones:      heuristic.ExtractPhones(text),
		Dates:       []string{},
		ActionItems: []string{},
	}

	out, err := a.backend.Chat(ctx, extractionPrompt(text), models.ChatOptions{MaxTokens: 200, Temperature: 0})
	if err != nil {
		return info, TaskStatus{Degraded: true, Reason: degradeReason(err)}
	}

	out = strings.TrimSpace(ollama.StripFences(out))
	var parsed struct {
		ActionItems []string `json:"action_items"`
		Dates       []string `json:"dates"`
	}
	if jerr := json.Unmarshal([]byte(out), &parsed); jerr == nil {
		info.ActionItems = cleanList(parsed.ActionItems)
		info.Dates = cleanList(parsed.Dates)
		return info, TaskStatus{}
	}

	// Malformed JSON: treat bullet-style lines as action items rather than
	// discarding the whole response.
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if item, ok := strings.CutPrefix(line, "- "); ok {
			info.ActionItems = append(info.ActionItems, strings.TrimSpace(item))
		} else if item, ok := strings.CutPrefix(line, "* "); ok {
			info.ActionItems = append(info.ActionItems, strings.TrimSpace(item))
		}
	}
	return info, TaskStatus{Degraded: true, Reason: "action items recovered from malformed output"}
}

// coercePriority extracts a priority label from free-form model output.
// Order matters: HIGH before MEDIUM before LOW, matching severity.
func coercePriority(out string) string {
	upper := strings.ToUpper(out)
	for _, label := range []string{models.PriorityHigh, models.PriorityMedium, models.PriorityLow} {
		if strings.Contains(upper, label) {
			return label
		}
	}
	return ""
}

// coerceCategory matches model output against the known category set,
// tolerating extra prose around the label.
func coerceCategory(out string) string {
	lower := strings.ToLower(strings.TrimSpace(out))
	if lower == "" {
		return ""
	}
	for _, cat := range models.Categories {
		cl := strings.ToLower(cat)
		if strings.Contains(lower, cl) || strings.Contains(cl, lower) {
			return cat
		}
	}
	return ""
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func degradeReason(err error) string {
	if errors.Is(err, ollama.ErrBackendUnavailable) {
		return "backend unavailable"
	}
	return err.Error()
}
