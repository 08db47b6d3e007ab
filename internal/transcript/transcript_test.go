package transcript

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PrettyChat/internal/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := Open(filepath.Join(t.TempDir(), "transcript.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func exchange(prompt, answer string) []session.Message {
	now := time.Now()
	return []session.Message{
		{Role: session.RoleUser, Content: prompt, Timestamp: now},
		{Role: session.RoleAssistant, Content: answer, Timestamp: now},
	}
}

func TestRecord(t *testing.T) {
	store := openTestStore(t)

	store.Record("s1", exchange("hi", "hello there")...)

	n, err := store.MessageCount("s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecord_MultipleExchangesAccumulate(t *testing.T) {
	store := openTestStore(t)

	store.Record("s1", exchange("first", "one")...)
	store.Record("s1", exchange("second", "two")...)

	n, err := store.MessageCount("s1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestRecord_SessionsAreSeparate(t *testing.T) {
	store := openTestStore(t)

	store.Record("s1", exchange("hi", "hello")...)
	store.Record("s2", exchange("hey", "howdy")...)

	n, err := store.MessageCount("s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.MessageCount("s2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMessageCount_UnknownSession(t *testing.T) {
	store := openTestStore(t)

	n, err := store.MessageCount("never-seen")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
