package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/personachat/backend/internal/model/chat"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := Open(filepath.Join(t.TempDir(), "chat.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestLoadEmptyDatabase(t *testing.T) {
	h := openTestHistory(t)

	messages := h.Load()
	require.NotNil(t, messages)
	assert.Empty(t, messages)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	h := openTestHistory(t)

	saved := []chat.Message{
		{ID: "m1", SessionID: "s1", Title: "Hello", Role: chat.RoleUser, Content: "Hello", Persona: "Calm"},
		{ID: "m2", SessionID: "s1", Title: "Hello", Role: chat.RoleAssistant, Content: "Hi there", Persona: "Calm"},
	}
	require.NoError(t, h.Save(saved))

	loaded := h.Load()
	require.Equal(t, saved, loaded)

	// Persisting exactly what was loaded must not change what comes back.
	require.NoError(t, h.Save(loaded))
	assert.Equal(t, loaded, h.Load())
}

func TestSaveNilSnapshotStoresEmptySequence(t *testing.T) {
	h := openTestHistory(t)

	require.NoError(t, h.Save(nil))
	messages := h.Load()
	require.NotNil(t, messages)
	assert.Empty(t, messages)
}

func TestLoadMalformedPayloadRecoversToEmpty(t *testing.T) {
	h := openTestHistory(t)

	require.NoError(t, h.putRaw([]byte("{not json")))
	messages := h.Load()
	require.NotNil(t, messages)
	assert.Empty(t, messages)
}

func TestLoadNonSequencePayloadRecoversToEmpty(t *testing.T) {
	h := openTestHistory(t)

	require.NoError(t, h.putRaw([]byte(`{"title":"not a sequence"}`)))
	assert.Empty(t, h.Load())
}

func TestLoadLegacyRecordsWithoutIDs(t *testing.T) {
	h := openTestHistory(t)

	legacy := []byte(`[{"title":"Hi","role":"user","content":"Hi","persona":"Smart"}]`)
	require.NoError(t, h.putRaw(legacy))

	messages := h.Load()
	require.Len(t, messages, 1)
	assert.Equal(t, "Hi", messages[0].Title)
	assert.Equal(t, chat.RoleUser, messages[0].Role)
	assert.Equal(t, "Smart", messages[0].Persona)
	assert.Empty(t, messages[0].ID)
}
