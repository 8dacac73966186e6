package models

import "context"

// ChatMessage is one role-tagged turn in a chat-style prompt.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions bound a single backend invocation.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}

// ChatBackend is the interface the analysis pipeline talks to. Never call
// the Ollama client directly from handlers — always inject this interface.
type ChatBackend interface {
	// Chat sends the prompt turns and returns the raw text completion.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)
	// Available runs a cheap liveness probe against the backend.
	Available(ctx context.Context) bool
	// Name returns the backend identifier (e.g., "ollama").
	Name() string
}

// Message is a mailbox message as fetched from the provider. Header fields
// are immutable once fetched.
type Message struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Sender  string `json:"from"`
	Date    string `json:"date"`
	Snippet string `json:"snippet"`
	Body    string `json:"body"`
}

// Mailbox is the mailbox-provider contract: list recent message metadata
// and fetch a full message by ID.
type Mailbox interface {
	ListRecent(ctx context.Context, max int) ([]Message, error)
	Get(ctx context.Context, id string) (*Message, error)
	SendReply(ctx context.Context, originalID, replyText string) (string, error)
}
