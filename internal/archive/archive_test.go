package archive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Ramjan-Shaikh/trustaudit/internal/api"
)

func msg(id, session, role, content string) api.Message {
	return api.Message{
		ID:        api.MessageID(id),
		SessionID: session,
		Role:      role,
		Content:   content,
		Timestamp: api.Time{Time: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)},
	}
}

func TestStore_SaveAndList(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "archive.db"))
	defer s.Close()

	s.Save(msg("1", "sess-a", api.RoleUser, "hello"))
	s.Save(msg("2", "sess-a", api.RoleAssistant, "hi there"))
	s.Save(msg("3", "sess-b", api.RoleUser, "other session"))

	got := s.List("sess-a")
	require.Len(t, got, 2)
	require.Equal(t, api.MessageID("1"), got[0].ID)
	require.Equal(t, "hello", got[0].Content)
	require.Equal(t, api.MessageID("2"), got[1].ID)

	require.Empty(t, s.List("sess-missing"))
}

func TestStore_SkipsOptimisticPlaceholders(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "archive.db"))
	defer s.Close()

	s.Save(msg(api.LocalIDPrefix+"abc", "sess-a", api.RoleUser, "pending"))
	s.Save(msg("10", "sess-a", api.RoleUser, "confirmed"))

	got := s.List("sess-a")
	require.Len(t, got, 1)
	require.Equal(t, api.MessageID("10"), got[0].ID)
}

func TestStore_PreservesMetadata(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "archive.db"))
	defer s.Close()

	m := msg("7", "sess-a", api.RoleAssistant, "answer")
	m.Metadata = `{"audit": {"verdict": "pass"}, "result_id": "r7"}`
	s.Save(m)

	got := s.List("sess-a")
	require.Len(t, got, 1)
	require.Equal(t, m.Metadata, got[0].Metadata)
}

func TestStore_FallsBackToMemory(t *testing.T) {
	// A path inside a missing directory makes table creation fail, which
	// must degrade to the in-memory copy rather than losing messages.
	s := New(filepath.Join(t.TempDir(), "missing", "deep", "archive.db"))
	defer s.Close()

	s.Save(msg("1", "sess-a", api.RoleUser, "kept in memory"))

	got := s.List("sess-a")
	require.Len(t, got, 1)
	require.Equal(t, "kept in memory", got[0].Content)
}
