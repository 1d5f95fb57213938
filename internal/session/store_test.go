package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextlive/nextlive/internal/log"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "chats"), log.NewNop())
	require.NoError(t, err)
	return store
}

func TestStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	turns := []Turn{UserTurn("hi"), ModelTurn("hello")}
	require.NoError(t, store.Save(ctx, "gemini-2-0-flash_2026-01-02T03-04-05Z", "gemini-2.0-flash", turns))

	chat, err := store.Get(ctx, "gemini-2-0-flash_2026-01-02T03-04-05Z")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", chat.Model)
	require.Len(t, chat.Messages, 2)
	assert.Equal(t, "hi", chat.Messages[0].Text())
	assert.WithinDuration(t, time.Now().UTC(), chat.Timestamp, time.Minute)
}

func TestStoreSavedDocumentShape(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	turns := []Turn{ToolResultTurn("getFile", "content")}
	require.NoError(t, store.Save(ctx, "c1", "m", turns))

	raw, err := os.ReadFile(filepath.Join(store.Dir(), "c1.json"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "c1", doc["id"])
	assert.Equal(t, "m", doc["model"])
	msgs, ok := doc["messages"].([]any)
	require.True(t, ok)
	first, ok := msgs[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "getFile", first["name"])
}

func TestStoreGetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreInvalidID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, id := range []string{"", "../escape", "a/b", ".."} {
		assert.ErrorIs(t, store.Save(ctx, id, "m", nil), ErrInvalidID, "id %q", id)
		_, err := store.Get(ctx, id)
		assert.ErrorIs(t, err, ErrInvalidID, "id %q", id)
	}
}

func TestStoreListSortedByTimestampDescending(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// Write documents directly so timestamps are controlled.
	write := func(id string, ts time.Time) {
		chat := SavedChat{ID: id, Model: "m", Timestamp: ts}
		data, err := json.Marshal(chat)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), id+".json"), data, 0o600))
	}
	base := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	write("old", base.Add(-time.Hour))
	write("new", base.Add(time.Hour))
	write("mid_a", base)
	write("mid_b", base) // tie with mid_a

	chats, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 4)
	assert.Equal(t, "new", chats[0].ID)
	// Ties keep directory order (filename-sorted, stable).
	assert.Equal(t, "mid_a", chats[1].ID)
	assert.Equal(t, "mid_b", chats[2].ID)
	assert.Equal(t, "old", chats[3].ID)
}

func TestStoreListSkipsCorruptDocuments(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Save(ctx, "good", "m", nil))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "bad.json"), []byte("{not json"), 0o600))

	chats, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "good", chats[0].ID)
}

func TestStoreRemove(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Save(ctx, "gone", "m", nil))
	require.NoError(t, store.Remove(ctx, "gone"))

	_, err := store.Get(ctx, "gone")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Remove(ctx, "gone"), ErrNotFound)
}

func TestStoreSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Save(ctx, "c", "m", []Turn{UserTurn("v1")}))
	require.NoError(t, store.Save(ctx, "c", "m", []Turn{UserTurn("v1"), ModelTurn("v2")}))

	chat, err := store.Get(ctx, "c")
	require.NoError(t, err)
	assert.Len(t, chat.Messages, 2)
}
