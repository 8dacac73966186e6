// Package models contains shared data models used across the MailSense codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Priority labels. Every stored record carries exactly one of these; raw
// model output is coerced before it reaches an Analysis value.
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Categories form a closed set. CategoryGeneral is the default when the
// backend and the keyword fallback both fail to produce a match.
const (
	CategoryUrgentSupport = "Urgent Support"
	CategoryWork          = "Work/Business"
	CategoryPersonal      = "Personal"
	CategoryNewsletter    = "Newsletter"
	CategorySpamPromo     = "Spam/Promotional"
	CategoryGeneral       = "General"
)

// Categories lists the closed category set in fallback precedence order.
var Categories = []string{
	CategoryUrgentSupport,
	CategoryWork,
	CategoryPersonal,
	CategoryNewsletter,
	CategorySpamPromo,
	CategoryGeneral,
}

// ValidPriority reports whether p is a member of the priority enum.
func ValidPriority(p string) bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// ValidSentiment reports whether s is a member of the sentiment enum.
func ValidSentiment(s string) bool {
	return s == SentimentPositive || s == SentimentNegative || s == SentimentNeutral
}

// ValidCategory reports whether c is a member of the category set.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ExtractedInfo holds structured entities pulled out of a message body.
// Emails and Phones never contain duplicates.
type ExtractedInfo struct {
	Emails      []string `json:"emails"`
	Phones      []string `json:"phones"`
	Dates       []string `json:"dates"`
	ActionItems []string `json:"action_items"`
}

// Analysis is the per-message analysis record: provider-supplied fields
// plus AI-derived metadata. Records are written once per message ID and
// treated as immutable afterwards; repeated lookups return the cached row.
type Analysis struct {
	ID             string        `db:"id"              json:"id"`
	UserID         uuid.UUID     `db:"user_id"         json:"user_id"`
	Subject        string        `db:"subject"         json:"subject"`
	Sender         string        `db:"sender"          json:"sender"`
	Date           string        `db:"date"            json:"date"`
	Snippet        string        `db:"snippet"         json:"snippet"`
	Body           string        `db:"body"            json:"body"`
	Summary        string        `db:"summary"         json:"summary"`
	Priority       string        `db:"priority"        json:"priority"`
	Sentiment      string        `db:"sentiment"       json:"sentiment"`
	SentimentScore float64       `db:"sentiment_score" json:"sentiment_score"`
	Category       string        `db:"category"        json:"category"`
	ExtractedInfo  ExtractedInfo `db:"-"               json:"extracted_info"`
	ProcessedAt    time.Time     `db:"processed_at"    json:"processed_at"`
}

// AnalyticsSummary is the aggregate view served to the dashboard.
type AnalyticsSummary struct {
	TotalEmails           int              `json:"total_emails"`
	PriorityDistribution  map[string]int   `json:"priority_distribution"`
	SentimentDistribution map[string]int   `json:"sentiment_distribution"`
	CategoryDistribution  map[string]int   `json:"category_distribution"`
	RecentEmails          []RecentAnalysis `json:"recent_emails"`
}

// RecentAnalysis is the trimmed record shape used in analytics listings.
type RecentAnalysis struct {
	ID          string    `db:"id"           json:"id"`
	Subject     string    `db:"subject"      json:"subject"`
	Sender      string    `db:"sender"       json:"sender"`
	Priority    string    `db:"priority"     json:"priority"`
	Sentiment   string    `db:"sentiment"    json:"sentiment"`
	Category    string    `db:"category"     json:"category"`
	ProcessedAt time.Time `db:"processed_at" json:"processed_at"`
}
