package conversation

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "chatlytics-server/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSnapshotJSON = `{
	"messages": [
		{"sender_id": "u-alice", "timestamp": "2025-04-07T09:00:00Z", "content": "hello", "kind": "text"},
		{"sender_id": "u-bob", "timestamp": "2025-04-07T09:01:00Z", "content": "hi there", "kind": "text"}
	],
	"participants": [
		{"id": "u-alice", "display_name": "Alice"},
		{"id": "u-bob", "display_name": "Bob"}
	]
}`

func TestDirectorySourceGet(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conv-1.json"), []byte(sampleSnapshotJSON), 0o644))

	source := NewDirectorySource(dir)
	snap, err := source.Get(context.Background(), "conv-1")
	require.NoError(t, err)

	assert.Equal(t, "conv-1", snap.ID)
	assert.Len(t, snap.Messages, 2)
	assert.Equal(t, "Alice", snap.DisplayName("u-alice"))
	assert.Equal(t, time.Date(2025, 4, 7, 9, 0, 0, 0, time.UTC), snap.FirstMessageAt)
	assert.Equal(t, time.Date(2025, 4, 7, 9, 1, 0, 0, time.UTC), snap.LastMessageAt)
}

func TestDirectorySourceMissingFile(t *testing.T) {
	source := NewDirectorySource(t.TempDir())

	_, err := source.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConversationNotFound))
}

func TestDirectorySourceRejectsPathTraversal(t *testing.T) {
	source := NewDirectorySource(t.TempDir())

	for _, id := range []string{"", "../etc/passwd", "a/b", `a\b`} {
		_, err := source.Get(context.Background(), id)
		require.Error(t, err, "id %q", id)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput), "id %q", id)
	}
}

func TestParseSnapshotPrefersEmbeddedID(t *testing.T) {
	raw := []byte(`{"id": "embedded", "messages": [], "participants": []}`)
	snap, err := ParseSnapshot("fallback", raw)
	require.NoError(t, err)
	assert.Equal(t, "embedded", snap.ID)

	snap, err = ParseSnapshot("fallback", []byte(`{"messages": []}`))
	require.NoError(t, err)
	assert.Equal(t, "fallback", snap.ID)
}

func TestParseSnapshotRejectsGarbage(t *testing.T) {
	_, err := ParseSnapshot("x", []byte("not json"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}
