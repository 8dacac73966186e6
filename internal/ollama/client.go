// Package ollama implements the model backend adapter over Ollama's
// JSON-over-HTTP chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sahanas/mailsense/internal/config"
	"github.com/sahanas/mailsense/pkg/models"
)

// defaultModel is the known-good free model every candidate list ends with.
const defaultModel = "llama3.1:8b"

// Sentinel errors for backend failures.
var (
	// ErrBackendUnavailable means the liveness probe failed or every
	// candidate model was exhausted. Callers recover via fallback; this is
	// never surfaced to the end user.
	ErrBackendUnavailable = errors.New("model backend unavailable")
	// ErrModelNotFound corresponds to HTTP 404 for a specific model.
	ErrModelNotFound = errors.New("model not found")
	// ErrPaymentRequired corresponds to HTTP 402 for cloud models.
	ErrPaymentRequired = errors.New("model requires payment")
)

// Client talks to an Ollama-compatible backend. It holds its configuration
// explicitly; nothing is read from ambient globals.
type Client struct {
	baseURL      string
	models       []string
	probeTimeout time.Duration
	localTimeout time.Duration
	cloudTimeout time.Duration
	httpClient   *http.Client
}

// NewClient creates a backend adapter from config. The candidate model list
// is the configured model followed by the free default when they differ.
func NewClient(cfg config.OllamaConfig) *Client {
	candidates := []string{cfg.Model}
	if cfg.Model != defaultModel {
		candidates = append(candidates, defaultModel)
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		models:       candidates,
		probeTimeout: cfg.ProbeTimeout,
		localTimeout: cfg.LocalTimeout,
		cloudTimeout: cfg.CloudTimeout,
		// Per-request timeouts are applied via context; the shared client
		// stays unbounded so cloud and local budgets can differ.
		httpClient: &http.Client{},
	}
}

func (c *Client) Name() string { return "ollama" }

// Available probes GET /api/tags with a short timeout. A false result means
// the backend is unreachable and callers should take their fallback path
// without blocking.
func (c *Client) Available(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Chat sends the prompt turns to the first candidate model that succeeds.
// A 402 or 404 from the backend, an error field in the body, or an empty
// completion advances to the next candidate; a connection failure aborts
// immediately since no candidate can do better. Exhausting the list returns
// ErrBackendUnavailable. One attempt per candidate, no backoff.
func (c *Client) Chat(ctx context.Context, messages []models.ChatMessage, opts models.ChatOptions) (string, error) {
	if !c.Available(ctx) {
		return "", ErrBackendUnavailable
	}

	var lastErr error
	for _, model := range c.models {
		content, err := c.chatOnce(ctx, model, messages, opts)
		if err == nil {
			return content, nil
		}
		if errors.Is(err, ErrBackendUnavailable) {
			return "", err
		}
		slog.Debug("model candidate failed, trying next", "model", model, "error", err)
		lastErr = err
	}

	return "", fmt.Errorf("%w: all models failed: %v", ErrBackendUnavailable, lastErr)
}

func (c *Client) chatOnce(ctx context.Context, model string, messages []models.ChatMessage, opts models.ChatOptions) (string, error) {
	payload := chatRequest{
		Model:    model,
		Messages: messages,
		Options: chatRequestOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
		Stream: false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	// Cloud-tagged models get a longer budget: remote cold starts are slow.
	timeout := c.localTimeout
	if strings.Contains(strings.ToLower(model), "cloud") {
		timeout = c.cloudTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyError(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusPaymentRequired:
		return "", fmt.Errorf("%w: %s", ErrPaymentRequired, model)
	case http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrModelNotFound, model)
	default:
		return "", fmt.Errorf("chat request failed: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading chat response: %w", err)
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("backend error for %s: %s", model, decoded.Error)
	}

	content := strings.TrimSpace(decoded.Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty completion from %s", model)
	}
	return content, nil
}

// StripFences removes Markdown code-fence wrappers so minor formatting
// noise from the model does not break JSON parsing downstream.
func StripFences(s string) string {
	cleaned := strings.TrimSpace(s)
	if idx := strings.Index(cleaned, "```json"); idx != -1 {
		cleaned = cleaned[idx+len("```json"):]
		if end := strings.Index(cleaned, "```"); end != -1 {
			cleaned = cleaned[:end]
		}
		return strings.TrimSpace(cleaned)
	}
	if idx := strings.Index(cleaned, "```"); idx != -1 {
		cleaned = cleaned[idx+len("```"):]
		if end := strings.Index(cleaned, "```"); end != -1 {
			cleaned = cleaned[:end]
		}
		return strings.TrimSpace(cleaned)
	}
	return cleaned
}

// classifyError separates per-model timeouts (the next candidate may still
// answer) from connection failures (no candidate can, so the loop aborts
// with ErrBackendUnavailable).
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("model timed out: %v", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("model timed out: %v", err)
	}

	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}

// --- Ollama wire types ---

type chatRequest struct {
	Model    string               `json:"model"`
	Messages []models.ChatMessage `json:"messages"`
	Options  chatRequestOptions   `json:"options"`
	Stream   bool                 `json:"stream"`
}

type chatRequestOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error,omitempty"`
}

// Compile-time check that Client implements ChatBackend.
var _ models.ChatBackend = (*Client)(nil)
