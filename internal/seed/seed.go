// Package seed implements a demo mailbox backed by a CSV file so the
// service can run without Google credentials.
package seed

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/sahanas/mailsense/internal/store"
	"github.com/sahanas/mailsense/pkg/models"
)

// Mailbox serves messages loaded from a CSV file. Rows are kept in file
// order; ListRecent returns them from the top.
type Mailbox struct {
	mu     sync.RWMutex
	emails []models.Message
	sent   []string
}

var _ models.Mailbox = (*Mailbox)(nil)

// Load reads the CSV at path. Expected header columns: id, subject, sender,
// date, snippet, body. Unknown columns are ignored.
func Load(path string) (*Mailbox, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	if len(records) == 0 {
		return &Mailbox{}, nil
	}

	col := map[string]int{}
	for i, name := range records[0] {
		col[name] = i
	}
	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	mb := &Mailbox{}
	for _, row := range records[1:] {
		msg := models.Message{
			ID:      field(row, "id"),
			Subject: field(row, "subject"),
			Sender:  field(row, "sender"),
			Date:    field(row, "date"),
			Snippet: field(row, "snippet"),
			Body:    field(row, "body"),
		}
		if msg.ID == "" {
			continue
		}
		mb.emails = append(mb.emails, msg)
	}
	return mb, nil
}

func (m *Mailbox) ListRecent(_ context.Context, max int) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if max <= 0 || max > len(m.emails) {
		max = len(m.emails)
	}
	out := make([]models.Message, max)
	for i, e := range m.emails[:max] {
		e.Body = "" // list view carries metadata only
		out[i] = e
	}
	return out, nil
}

func (m *Mailbox) Get(_ context.Context, id string) (*models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.emails {
		if e.ID == id {
			msg := e
			return &msg, nil
		}
	}
	return nil, store.ErrNotFound
}

// SendReply records the reply locally and returns a synthetic message ID.
// The demo mailbox never talks to a real mail server.
func (m *Mailbox) SendReply(_ context.Context, originalID, replyText string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	found := false
	for _, e := range m.emails {
		if e.ID == originalID {
			found = true
			break
		}
	}
	if !found {
		return "", store.ErrNotFound
	}
	id := "seed-reply-" + uuid.NewString()
	m.sent = append(m.sent, id)
	return id, nil
}

// SentCount reports how many replies have been recorded.
func (m *Mailbox) SentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sent)
}
