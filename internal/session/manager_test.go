package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/steerrt/agentrt/internal/apperror"
	"github.com/steerrt/agentrt/internal/persist"
	"github.com/steerrt/agentrt/pkg/types"
)

func newTestManager(t *testing.T, maxResident int) *Manager {
	t.Helper()
	store, err := persist.Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("persist.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewManager(Deps{Persist: store}, store, maxResident)
}

func TestManager_CreateSessionPersistsHeaderImmediately(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 0)

	s, err := m.CreateSession(ctx, types.SessionConfig{}, "My Session", nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	defer s.Close()

	headers, err := m.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(headers) != 1 || headers[0].ID != s.ID() || headers[0].Title != "My Session" {
		t.Fatalf("unexpected headers: %+v", headers)
	}
}

func TestManager_ResumeSessionReturnsResidentWithoutStorageHit(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 0)

	s, err := m.CreateSession(ctx, types.SessionConfig{}, "", nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	defer s.Close()

	resumed, err := m.ResumeSession(ctx, s.ID(), types.SessionConfig{})
	if err != nil {
		t.Fatalf("ResumeSession: %v", err)
	}
	if resumed != s {
		t.Fatal("expected ResumeSession to return the same resident *Session pointer")
	}
}

func TestManager_ResumeSessionUnknownIDFails(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 0)

	_, err := m.ResumeSession(ctx, "does-not-exist", types.SessionConfig{})
	if !apperror.Is(err, apperror.KindSessionNotFound) {
		t.Fatalf("expected SessionNotFound, got %v", err)
	}
}

func TestManager_ResumeSessionRebuildsFromStorageAfterEviction(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 0)

	s, err := m.CreateSession(ctx, types.SessionConfig{}, "Resumed", nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	id := s.ID()

	m.mu.Lock()
	entry := m.resident[id]
	m.lru.Remove(entry.elem)
	delete(m.resident, id)
	m.mu.Unlock()
	s.Close()

	resumed, err := m.ResumeSession(ctx, id, types.SessionConfig{})
	if err != nil {
		t.Fatalf("ResumeSession after eviction: %v", err)
	}
	defer resumed.Close()
	if resumed.Title() != "Resumed" {
		t.Fatalf("expected title %q to survive a storage round-trip, got %q", "Resumed", resumed.Title())
	}
}

func TestManager_DeleteSessionRemovesHeaderAndResident(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 0)

	s, err := m.CreateSession(ctx, types.SessionConfig{}, "", nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	id := s.ID()

	if err := m.DeleteSession(ctx, id); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}

	if _, err := m.ResumeSession(ctx, id, types.SessionConfig{}); !apperror.Is(err, apperror.KindSessionNotFound) {
		t.Fatalf("expected SessionNotFound after delete, got %v", err)
	}
}

func TestManager_EvictionSkipsBusySessions(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 1)

	idle, err := m.CreateSession(ctx, types.SessionConfig{}, "idle", nil)
	if err != nil {
		t.Fatalf("CreateSession idle: %v", err)
	}
	defer idle.Close()

	idle.mu.Lock()
	idle.busy = true
	idle.mu.Unlock()

	busySession := idle

	second, err := m.CreateSession(ctx, types.SessionConfig{}, "second", nil)
	if err != nil {
		t.Fatalf("CreateSession second: %v", err)
	}
	defer second.Close()

	m.mu.Lock()
	_, stillResident := m.resident[busySession.ID()]
	residentCount := len(m.resident)
	m.mu.Unlock()

	if !stillResident {
		t.Fatal("expected the busy session to remain resident despite exceeding maxResident")
	}
	if residentCount != 2 {
		t.Fatalf("expected resident set to transiently exceed maxResident while a session is busy, got %d", residentCount)
	}
}

func TestManager_ListSessionsOrdersNewestUpdatedFirst(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 0)

	first, err := m.CreateSession(ctx, types.SessionConfig{}, "first", nil)
	if err != nil {
		t.Fatalf("CreateSession first: %v", err)
	}
	defer first.Close()

	second, err := m.CreateSession(ctx, types.SessionConfig{}, "second", nil)
	if err != nil {
		t.Fatalf("CreateSession second: %v", err)
	}
	defer second.Close()
	second.persistSession()

	headers, err := m.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(headers) != 2 {
		t.Fatalf("expected 2 headers, got %d", len(headers))
	}
	if headers[0].ID != second.ID() {
		t.Fatalf("expected most recently updated session first, got %+v", headers)
	}
}
