package analyzer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahanas/mailsense/internal/ollama"
	"github.com/sahanas/mailsense/pkg/models"
)

// mockBackend satisfies models.ChatBackend for testing. ChatFunc receives the
// full prompt so tests can dispatch per task.
type mockBackend struct {
	ChatFunc      func(ctx context.Context, msgs []models.ChatMessage, opts models.ChatOptions) (string, error)
	AvailableFunc func(ctx context.Context) bool
}

func (m *mockBackend) Chat(ctx context.Context, msgs []models.ChatMessage, opts models.ChatOptions) (string, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, msgs, opts)
	}
	return "", nil
}

func (m *mockBackend) Available(ctx context.Context) bool {
	if m.AvailableFunc != nil {
		return m.AvailableFunc(ctx)
	}
	return true
}

func (m *mockBackend) Name() string { return "mock" }

// taskOf identifies which pipeline task a prompt belongs to by its system
// message.
func taskOf(msgs []models.ChatMessage) string {
	if len(msgs) == 0 {
		return ""
	}
	system := msgs[0].Content
	switch {
	case strings.Contains(system, "summarizes"):
		return "summary"
	case strings.Contains(system, "priority"):
		return "priority"
	case strings.Contains(system, "sentiment"):
		return "sentiment"
	case strings.Contains(system, "Categorize"):
		return "category"
	case strings.Contains(system, "action items"):
		return "extraction"
	case strings.Contains(system, "drafts email replies"):
		return "reply"
	}
	return ""
}

func newTestAnalyzer(backend models.ChatBackend) *Analyzer {
	return New(backend, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func routingBackend(t *testing.T, responses map[string]string) *mockBackend {
	t.Helper()
	return &mockBackend{
		ChatFunc: func(_ context.Context, msgs []models.ChatMessage, _ models.ChatOptions) (string, error) {
			task := taskOf(msgs)
			resp, ok := responses[task]
			if !ok {
				return "", fmt.Errorf("no canned response for task %q", task)
			}
			return resp, nil
		},
	}
}

func TestAnalyze_AllTasksSucceed(t *testing.T) {
	backend := routingBackend(t, map[string]string{
		"summary":    "- Client asks about invoice status\n- Needs response this week",
		"priority":   "LOW",
		"sentiment":  `{"sentiment": "positive", "score": 0.8}`,
		"category":   "Work/Business",
		"extraction": `{"action_items": ["Send invoice"], "dates": ["next Monday"]}`,
	})
	a := newTestAnalyzer(backend)

	result, report := a.Analyze(context.Background(), "Invoice question", "Could you share the invoice status? Thanks, it has been great working together.")

	assert.Equal(t, "- Client asks about invoice status\n- Needs response this week", result.Summary)
	assert.Equal(t, models.PriorityLow, result.Priority)
	assert.Equal(t, models.SentimentPositive, result.Sentiment)
	assert.InDelta(t, 0.8, result.SentimentScore, 0.001)
	assert.Equal(t, models.CategoryWork, result.Category)
	assert.Equal(t, []string{"Send invoice"}, result.ExtractedInfo.ActionItems)
	assert.Equal(t, []string{"next Monday"}, result.ExtractedInfo.Dates)
	assert.False(t, result.ProcessedAt.IsZero())

	assert.False(t, report.Summary.Degraded)
	assert.False(t, report.Priority.Degraded)
	assert.False(t, report.Sentiment.Degraded)
	assert.False(t, report.Category.Degraded)
	assert.False(t, report.Extraction.Degraded)
}

func TestAnalyze_PartialFailure(t *testing.T) {
	// Sentiment returns garbage while summary succeeds: the record keeps the
	// real summary and degrades only sentiment.
	backend := routingBackend(t, map[string]string{
		"summary":    "Real summary from the model.",
		"priority":   "MEDIUM",
		"sentiment":  "I think this email reads fine overall",
		"category":   "General",
		"extraction": `{"action_items": [], "dates": []}`,
	})
	a := newTestAnalyzer(backend)

	result, report := a.Analyze(context.Background(), "Update", "Here is the weekly status update for the team.")

	assert.Equal(t, "Real summary from the model.", result.Summary)
	assert.False(t, report.Summary.Degraded)
	assert.True(t, report.Sentiment.Degraded)
	assert.Equal(t, models.SentimentNeutral, result.Sentiment)
	assert.InDelta(t, 0.5, result.SentimentScore, 0.001)
}

func TestAnalyze_BackendUnavailable(t *testing.T) {
	backend := &mockBackend{
		ChatFunc: func(context.Context, []models.ChatMessage, models.ChatOptions) (string, error) {
			return "", fmt.Errorf("chat: %w", ollama.ErrBackendUnavailable)
		},
		AvailableFunc: func(context.Context) bool { return false },
	}
	a := newTestAnalyzer(backend)

	result, report := a.Analyze(context.Background(), "Project deadline", "Please review by Friday, urgent.")

	// Urgency keywords fire before the model, so priority is HIGH and not
	// degraded even with the backend down.
	assert.Equal(t, models.PriorityHigh, result.Priority)
	assert.False(t, report.Priority.Degraded)

	assert.Equal(t, models.CategoryUrgentSupport, result.Category)
	assert.False(t, report.Category.Degraded)

	assert.True(t, report.Summary.Degraded)
	assert.Equal(t, "backend unavailable", report.Summary.Reason)
	assert.Contains(t, result.Summary, "AI analysis unavailable")

	assert.True(t, report.Sentiment.Degraded)
	assert.Equal(t, models.SentimentNegative, result.Sentiment)

	assert.True(t, report.Extraction.Degraded)
	assert.Equal(t, []string{}, result.ExtractedInfo.Emails)
	assert.Equal(t, []string{}, result.ExtractedInfo.ActionItems)
}

func TestAnalyze_EnumMembership(t *testing.T) {
	// Whatever nonsense the model emits, the stored labels stay inside the
	// closed sets.
	backend := routingBackend(t, map[string]string{
		"summary":    "ok",
		"priority":   "CRITICAL!!!",
		"sentiment":  `{"sentiment": "ecstatic", "score": 9.5}`,
		"category":   "Quarterly Financials",
		"extraction": "not json at all",
	})
	a := newTestAnalyzer(backend)

	result, report := a.Analyze(context.Background(), "Subject line", "Some ordinary body text without keywords.")

	assert.True(t, models.ValidPriority(result.Priority))
	assert.True(t, models.ValidSentiment(result.Sentiment))
	assert.True(t, models.ValidCategory(result.Category))
	assert.GreaterOrEqual(t, result.SentimentScore, 0.0)
	assert.LessOrEqual(t, result.SentimentScore, 1.0)
	assert.True(t, report.Priority.Degraded)
	assert.True(t, report.Category.Degraded)
}

func TestAnalyze_EmptyBody(t *testing.T) {
	backend := routingBackend(t, map[string]string{
		"priority":   "MEDIUM",
		"sentiment":  `{"sentiment": "neutral", "score": 0.5}`,
		"category":   "General",
		"extraction": `{"action_items": [], "dates": []}`,
	})
	a := newTestAnalyzer(backend)

	result, report := a.Analyze(context.Background(), "", "   ")

	assert.Equal(t, "No email content available to summarize.", result.Summary)
	assert.False(t, report.Summary.Degraded)
	assert.Equal(t, models.PriorityMedium, result.Priority)
}

func TestAnalyze_SentimentLabelRecovery(t *testing.T) {
	backend := routingBackend(t, map[string]string{
		"summary":    "ok",
		"priority":   "LOW",
		"sentiment":  "The sentiment here is clearly negative.",
		"category":   "General",
		"extraction": `{"action_items": [], "dates": []}`,
	})
	a := newTestAnalyzer(backend)

	result, report := a.Analyze(context.Background(), "Note", "Just following up on the earlier discussion.")

	assert.Equal(t, models.SentimentNegative, result.Sentiment)
	assert.InDelta(t, 0.3, result.SentimentScore, 0.001)
	assert.True(t, report.Sentiment.Degraded)
}

func TestAnalyze_ExtractionBulletRecovery(t *testing.T) {
	backend := routingBackend(t, map[string]string{
		"summary":    "ok",
		"priority":   "LOW",
		"sentiment":  `{"sentiment": "neutral", "score": 0.5}`,
		"category":   "General",
		"extraction": "Here are the items:\n- Book the venue\n* Confirm attendees\nnoise line",
	})
	a := newTestAnalyzer(backend)

	result, report := a.Analyze(context.Background(), "Planning", "Contact alice@example.com about the offsite plans.")

	assert.Equal(t, []string{"Book the venue", "Confirm attendees"}, result.ExtractedInfo.ActionItems)
	assert.Equal(t, []string{"alice@example.com"}, result.ExtractedInfo.Emails)
	assert.True(t, report.Extraction.Degraded)
}

func TestAnalyze_FencedJSONAccepted(t *testing.T) {
	backend := routingBackend(t, map[string]string{
		"summary":    "ok",
		"priority":   "LOW",
		"sentiment":  "```json\n{\"sentiment\": \"positive\", \"score\": 0.9}\n```",
		"category":   "General",
		"extraction": "```json\n{\"action_items\": [\"Reply today\"], \"dates\": []}\n```",
	})
	a := newTestAnalyzer(backend)

	result, report := a.Analyze(context.Background(), "Hi", "A perfectly ordinary message to a colleague.")

	require.False(t, report.Sentiment.Degraded)
	assert.Equal(t, models.SentimentPositive, result.Sentiment)
	assert.Equal(t, []string{"Reply today"}, result.ExtractedInfo.ActionItems)
}

func TestDraftReply(t *testing.T) {
	var gotSystem string
	backend := &mockBackend{
		ChatFunc: func(_ context.Context, msgs []models.ChatMessage, _ models.ChatOptions) (string, error) {
			gotSystem = msgs[0].Content
			return "Thanks for reaching out. I will review and respond by Friday.", nil
		},
	}
	a := newTestAnalyzer(backend)

	reply, status := a.DraftReply(context.Background(), "Can you review the attached doc?", "friendly", "mention Friday")
	require.False(t, status.Degraded)
	assert.Contains(t, reply, "Friday")
	assert.Contains(t, gotSystem, "friendly tone")
}

func TestDraftReply_Fallback(t *testing.T) {
	backend := &mockBackend{
		ChatFunc: func(context.Context, []models.ChatMessage, models.ChatOptions) (string, error) {
			return "", ollama.ErrBackendUnavailable
		},
	}
	a := newTestAnalyzer(backend)

	reply, status := a.DraftReply(context.Background(), "Hello there", "", "")
	assert.True(t, status.Degraded)
	assert.Contains(t, reply, "Thank you for your email")
}

func TestTruncate_UTF8Safe(t *testing.T) {
	s := strings.Repeat("é", 100)
	got := truncate(s, 101)
	assert.Equal(t, 100, len(got))
	assert.True(t, strings.HasSuffix(got, "é"))
	assert.Equal(t, s, truncate(s, 500))
}
