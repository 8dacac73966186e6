package analyzer

import (
	"fmt"
	"unicode/utf8"

	"github.com/sahanas/mailsense/pkg/models"
)

// Per-task input caps, in bytes. Truncation is a silent prefix cut to bound
// prompt size and latency, never an error.
const (
	summaryInputCap    = 2000
	priorityInputCap   = 1000
	sentimentInputCap  = 1000
	categorySubjectCap = 200
	categoryBodyCap    = 800
	extractionInputCap = 2000
	replyInputCap      = 1500
)

func summaryPrompt(text string) []models.ChatMessage {
	return []models.ChatMessage{
		{Role: "system", Content: "You are an assistant that summarizes emails concisely. Always provide a summary."},
		{Role: "user", Content: fmt.Sprintf("Summarize the following email in 2-4 concise bullet points and give an actionable next-step.\n\nEMAIL:\n%s", truncate(text, summaryInputCap))},
	}
}

func priorityPrompt(text string) []models.ChatMessage {
	return []models.ChatMessage{
		{Role: "system", Content: "You are an assistant that classifies email priority. Respond with ONLY one word: HIGH, MEDIUM, or LOW. Do not include any other text."},
		{Role: "user", Content: fmt.Sprintf("Classify the priority of this email:\n\n%s", truncate(text, priorityInputCap))},
	}
}

func sentimentPrompt(text string) []models.ChatMessage {
	return []models.ChatMessage{
		{Role: "system", Content: `Analyze the sentiment of the email. Respond ONLY with valid JSON in this exact format: {"sentiment": "positive" or "negative" or "neutral", "score": number between 0 and 1}. No other text.`},
		{Role: "user", Content: fmt.Sprintf("Email text:\n%s", truncate(text, sentimentInputCap))},
	}
}

func categoryPrompt(subject, body string) []models.ChatMessage {
	return []models.ChatMessage{
		{Role: "system", Content: "Categorize this email into ONE of these categories: Urgent Support, Work/Business, Personal, Newsletter, Spam/Promotional, General. Respond with ONLY the category name. No other text."},
		{Role: "user", Content: fmt.Sprintf("Subject: %s\n\nBody: %s", truncate(subject, categorySubjectCap), truncate(body, categoryBodyCap))},
	}
}

func extractionPrompt(text string) []models.ChatMessage {
	return []models.ChatMessage{
		{Role: "system", Content: `Extract action items and important dates from the email. Respond ONLY with valid JSON: {"action_items": ["item1", "item2"], "dates": ["date1", "date2"]}. If none found, use empty arrays.`},
		{Role: "user", Content: truncate(text, extractionInputCap)},
	}
}

func replyPrompt(text, tone, instructions string) []models.ChatMessage {
	system := fmt.Sprintf("You are an assistant that drafts email replies in a %s tone. Do not include signatures. If the email asks questions, answer succinctly. Include 2-3 short paragraphs when needed. Always generate a complete reply.", tone)

	extra := ""
	if instructions != "" {
		extra = fmt.Sprintf("\n\nAdditional instructions: %s", instructions)
	}
	user := fmt.Sprintf("Original email:\n%s%s\n\nDraft a reply:", truncate(text, replyInputCap), extra)

	return []models.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}

// truncate cuts s to maxBytes without splitting UTF-8 runes.
func truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
