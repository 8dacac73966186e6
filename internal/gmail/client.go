// Package gmail implements the Gmail mailbox provider.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/sahanas/mailsense/internal/config"
	"github.com/sahanas/mailsense/pkg/models"
)

// Scopes requested during OAuth consent. Readonly is not enough because
// reply sending goes through the same client.
var Scopes = []string{
	gmailapi.GmailReadonlyScope,
	gmailapi.GmailSendScope,
}

// OAuthConfig builds the oauth2 config for the Google consent flow.
func OAuthConfig(cfg config.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       Scopes,
		Endpoint:     googleoauth.Endpoint,
	}
}

// Client wraps the Gmail Users service for one authenticated mailbox.
type Client struct {
	svc *gmailapi.UsersService
}

var _ models.Mailbox = (*Client)(nil)

// NewClient creates a Gmail client from a previously obtained OAuth token.
func NewClient(ctx context.Context, cfg config.GoogleConfig, token *oauth2.Token) (*Client, error) {
	httpClient := OAuthConfig(cfg).Client(ctx, token)
	svc, err := gmailapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Client{svc: svc.Users}, nil
}

// ListRecent returns metadata for the newest max inbox messages. Bodies are
// not fetched here; Get retrieves the full payload on demand.
func (c *Client) ListRecent(ctx context.Context, max int) ([]models.Message, error) {
	if max <= 0 {
		max = 10
	}
	list, err := c.svc.Messages.List("me").
		LabelIds("INBOX").
		MaxResults(int64(max)).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	messages := make([]models.Message, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := c.svc.Messages.Get("me", ref.Id).
			Format("metadata").
			MetadataHeaders("Subject", "From", "Date").
			Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("get message %s: %w", ref.Id, err)
		}
		messages = append(messages, models.Message{
			ID:      msg.Id,
			Subject: headerValue(msg.Payload, "Subject"),
			Sender:  headerValue(msg.Payload, "From"),
			Date:    headerValue(msg.Payload, "Date"),
			Snippet: msg.Snippet,
		})
	}
	return messages, nil
}

// Get fetches one message with its full payload and extracts the text body.
func (c *Client) Get(ctx context.Context, id string) (*models.Message, error) {
	msg, err := c.svc.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return &models.Message{
		ID:      msg.Id,
		Subject: headerValue(msg.Payload, "Subject"),
		Sender:  headerValue(msg.Payload, "From"),
		Date:    headerValue(msg.Payload, "Date"),
		Snippet: msg.Snippet,
		Body:    extractBody(msg.Payload),
	}, nil
}

// SendReply sends replyText as a threaded reply to the given message and
// returns the sent message ID.
func (c *Client) SendReply(ctx context.Context, originalID, replyText string) (string, error) {
	if replyText == "" {
		return "", fmt.Errorf("reply body is required")
	}

	original, err := c.svc.Messages.Get("me", originalID).Format("metadata").
		MetadataHeaders("Subject", "From", "Message-ID", "References").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get original message %s: %w", originalID, err)
	}

	to := headerValue(original.Payload, "From")
	if to == "" {
		return "", fmt.Errorf("original message %s has no From header", originalID)
	}
	subject := headerValue(original.Payload, "Subject")
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}
	messageID := headerValue(original.Payload, "Message-ID")
	references := strings.TrimSpace(headerValue(original.Payload, "References") + " " + messageID)

	var b strings.Builder
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	if messageID != "" {
		b.WriteString("In-Reply-To: " + messageID + "\r\n")
	}
	if references != "" {
		b.WriteString("References: " + references + "\r\n")
	}
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("\r\n")
	b.WriteString(replyText)

	sent, err := c.svc.Messages.Send("me", &gmailapi.Message{
		Raw:      base64.URLEncoding.EncodeToString([]byte(b.String())),
		ThreadId: original.ThreadId,
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("send reply: %w", err)
	}
	return sent.Id, nil
}
