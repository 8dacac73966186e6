package seed_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahanas/mailsense/internal/seed"
	"github.com/sahanas/mailsense/internal/store"
)

const sampleCSV = `id,subject,sender,date,snippet,body
msg-1,Welcome aboard,hr@corp.io,"Mon, 24 Aug 2026 10:00:00 +0000",Welcome to the team,"Welcome to the team! Your first day is Monday."
msg-2,Server alert,ops@corp.io,"Mon, 24 Aug 2026 11:30:00 +0000",Disk usage critical,"Disk usage on db-1 is critical. Please act immediately."
msg-3,Lunch?,sam@corp.io,"Mon, 24 Aug 2026 12:00:00 +0000",Lunch today,"Want to grab lunch today?"
`

func writeSeedFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emails.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))
	return path
}

func TestLoad_AndListRecent(t *testing.T) {
	mb, err := seed.Load(writeSeedFile(t))
	require.NoError(t, err)

	msgs, err := mb.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "msg-1", msgs[0].ID)
	assert.Equal(t, "Welcome aboard", msgs[0].Subject)
	assert.Equal(t, "hr@corp.io", msgs[0].Sender)
	// List view omits bodies
	assert.Empty(t, msgs[0].Body)
}

func TestListRecent_MaxLargerThanMailbox(t *testing.T) {
	mb, err := seed.Load(writeSeedFile(t))
	require.NoError(t, err)

	msgs, err := mb.ListRecent(context.Background(), 50)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}

func TestGet(t *testing.T) {
	mb, err := seed.Load(writeSeedFile(t))
	require.NoError(t, err)

	msg, err := mb.Get(context.Background(), "msg-2")
	require.NoError(t, err)
	assert.Equal(t, "Server alert", msg.Subject)
	assert.Contains(t, msg.Body, "critical")

	_, err = mb.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSendReply(t *testing.T) {
	mb, err := seed.Load(writeSeedFile(t))
	require.NoError(t, err)
	ctx := context.Background()

	id, err := mb.SendReply(ctx, "msg-3", "Sure, see you at noon.")
	require.NoError(t, err)
	assert.Contains(t, id, "seed-reply-")
	assert.Equal(t, 1, mb.SentCount())

	_, err = mb.SendReply(ctx, "missing", "hello")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := seed.Load(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
