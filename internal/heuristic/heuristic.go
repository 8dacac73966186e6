// Package heuristic provides deterministic text classifiers used when the
// model backend is unreachable or returns unusable output. Everything here
// is a pure function over the input text: no network calls, no state.
package heuristic

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sahanas/mailsense/pkg/models"
)

// Keyword lexicons. Matching is case-insensitive substring containment.
var (
	urgentKeywords = []string{"urgent", "asap", "immediately", "critical", "emergency", "deadline", "important"}

	positiveKeywords = []string{"thank", "appreciate", "great", "excellent", "good", "pleased", "happy", "excited"}
	negativeKeywords = []string{"disappointed", "problem", "issue", "error", "failed", "urgent", "concern", "sorry"}
)

// categoryRules are checked in order; the first matching rule wins.
// "urgent" in a work email must land in Urgent Support, and newsletter
// markers outrank promo markers.
var categoryRules = []struct {
	category string
	keywords []string
}{
	{models.CategoryUrgentSupport, []string{"urgent", "support", "help", "issue", "problem", "critical"}},
	{models.CategoryNewsletter, []string{"newsletter", "subscribe", "unsubscribe", "promo", "discount"}},
	{models.CategorySpamPromo, []string{"spam", "promotional", "offer", "deal", "sale"}},
	{models.CategoryWork, []string{"meeting", "project", "deadline", "work", "business", "team"}},
	{models.CategoryPersonal, []string{"family", "friend", "personal", "birthday", "wedding"}},
}

// Entity extraction patterns compiled once at package init.
var (
	reEmail = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	rePhone = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b|\(\d{3}\)\s*\d{3}[-.]?\d{4}`)
)

// Priority classifies text as HIGH when any urgency keyword is present,
// MEDIUM otherwise. Never returns LOW: absence of urgency markers is not
// evidence of low priority.
func Priority(text string) string {
	lower := strings.ToLower(text)
	if containsAny(lower, urgentKeywords) {
		return models.PriorityHigh
	}
	return models.PriorityMedium
}

// Sentiment counts positive vs negative keyword hits. The majority decides
// the label; ties are neutral. Scores are fixed per outcome rather than a
// continuous signal.
func Sentiment(text string) (string, float64) {
	lower := strings.ToLower(text)

	var positive, negative int
	for _, w := range positiveKeywords {
		if strings.Contains(lower, w) {
			positive++
		}
	}
	for _, w := range negativeKeywords {
		if strings.Contains(lower, w) {
			negative++
		}
	}

	switch {
	case positive > negative:
		return models.SentimentPositive, 0.6
	case negative > positive:
		return models.SentimentNegative, 0.4
	default:
		return models.SentimentNeutral, 0.5
	}
}

// Categorize runs the ordered keyword rules against subject+body combined.
// First match wins; no match falls through to General.
func Categorize(subject, body string) string {
	combined := strings.ToLower(subject + " " + body)
	for _, rule := range categoryRules {
		if containsAny(combined, rule.keywords) {
			return rule.category
		}
	}
	return models.CategoryGeneral
}

// ExtractEmails returns the deduplicated email addresses found in text,
// sorted for deterministic output. Returns empty slice, never nil.
func ExtractEmails(text string) []string {
	return dedupe(reEmail.FindAllString(text, -1))
}

// ExtractPhones returns the deduplicated phone numbers found in text,
// sorted for deterministic output. Returns empty slice, never nil.
func ExtractPhones(text string) []string {
	return dedupe(rePhone.FindAllString(text, -1))
}

// FallbackSummary is the templated summary used when the backend cannot
// produce one. It cites the content length so the reader knows something
// was there.
func FallbackSummary(textLen int) string {
	return fmt.Sprintf("Email summary:\n- Contains %d characters\n- Review required\n\nAI analysis unavailable. Ensure the model backend is running.", textLen)
}

// FallbackReply is the generic courteous reply template used when the
// backend cannot draft one.
func FallbackReply() string {
	return "Thank you for your email.\n\nI have reviewed your message and will respond accordingly.\n\nBest regards"
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
