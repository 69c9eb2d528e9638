package session

import (
	"container/list"
	"context"
	"sync"

	"github.com/steerrt/agentrt/internal/apperror"
	"github.com/steerrt/agentrt/internal/persist"
	"github.com/steerrt/agentrt/pkg/types"
)

// DefaultMaxResident bounds how many Session actors the Manager keeps alive
// in memory at once; the rest live only as persisted headers/messages until
// ResumeSession brings them back.
const DefaultMaxResident = 64

// Manager owns every resident Session actor for a process: it creates new
// sessions, lazily resumes ones that have fallen out of memory, and evicts
// the least-recently-used idle session when the resident set grows past
// MaxResident. It never itself becomes the state authority — that's the
// Session actor and the store it persists through; the Manager is purely
// routing and lifecycle.
type Manager struct {
	deps        Deps
	store       *persist.DB
	maxResident int

	mu       sync.Mutex
	resident map[string]*residentEntry
	lru      *list.List // of *residentEntry, most-recently-used at Front
}

type residentEntry struct {
	session *Session
	elem    *list.Element
}

// NewManager returns a Manager with an empty resident set. maxResident <= 0
// uses DefaultMaxResident.
func NewManager(deps Deps, store *persist.DB, maxResident int) *Manager {
	if maxResident <= 0 {
		maxResident = DefaultMaxResident
	}
	return &Manager{
		deps:        deps,
		store:       store,
		maxResident: maxResident,
		resident:    make(map[string]*residentEntry),
		lru:         list.New(),
	}
}

// CreateSession starts a brand-new Session actor under a fresh id, persists
// its header immediately, and makes it the most-recently-used resident.
func (m *Manager) CreateSession(ctx context.Context, config types.SessionConfig, title string, grants []types.ApprovalGrant) (*Session, error) {
	id := types.NewID()
	s, err := New(id, config, m.deps, grants, nil, title, 0)
	if err != nil {
		return nil, err
	}
	s.PersistHeader()
	m.touch(s)
	return s, nil
}

// ResumeSession returns the resident Session for id, reconstructing it from
// storage (header + message log) if it has been evicted or the process just
// started. It fails with apperror.SessionNotFound if no header exists.
func (m *Manager) ResumeSession(ctx context.Context, id string, config types.SessionConfig) (*Session, error) {
	m.mu.Lock()
	if entry, ok := m.resident[id]; ok {
		m.lru.MoveToFront(entry.elem)
		m.mu.Unlock()
		return entry.session, nil
	}
	m.mu.Unlock()

	if m.store == nil {
		return nil, apperror.SessionNotFound(id)
	}

	header, err := m.store.GetSession(ctx, id)
	if err != nil {
		if err == persist.ErrNotFound {
			return nil, apperror.SessionNotFound(id)
		}
		return nil, apperror.StorageBackend(err)
	}

	history, err := m.store.ListMessages(ctx, id)
	if err != nil {
		return nil, apperror.StorageBackend(err)
	}

	s, err := New(id, config, m.deps, nil, history, header.Title, header.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.touch(s)
	return s, nil
}

// ListSessions returns every persisted session header, newest-updated first.
func (m *Manager) ListSessions(ctx context.Context) ([]types.SessionHeader, error) {
	if m.store == nil {
		return nil, nil
	}
	headers, err := m.store.ListSessions(ctx)
	if err != nil {
		return nil, apperror.StorageBackend(err)
	}
	return headers, nil
}

// DispatchAction resolves the session (resuming it if necessary) and routes
// action to its mailbox.
func (m *Manager) DispatchAction(ctx context.Context, id string, config types.SessionConfig, action *Action) (any, error) {
	s, err := m.ResumeSession(ctx, id, config)
	if err != nil {
		return nil, err
	}
	return s.Dispatch(ctx, action)
}

// SubscribeEvents resolves the session and subscribes to its journal from
// fromSeq, matching the semantics of Journal.Subscribe.
func (m *Manager) SubscribeEvents(ctx context.Context, id string, config types.SessionConfig, fromSeq uint64) ([]types.SessionEvent, <-chan types.SessionEvent, func(), error) {
	s, err := m.ResumeSession(ctx, id, config)
	if err != nil {
		return nil, nil, nil, err
	}
	return s.Journal().Subscribe(fromSeq)
}

// DeleteSession evicts the session from the resident set (closing its actor
// if live) and removes its header and message log from storage.
func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	if entry, ok := m.resident[id]; ok {
		m.lru.Remove(entry.elem)
		delete(m.resident, id)
		m.mu.Unlock()
		entry.session.Close()
	} else {
		m.mu.Unlock()
	}

	if m.store == nil {
		return nil
	}
	if err := m.store.DeleteSession(ctx, id); err != nil {
		return apperror.StorageBackend(err)
	}
	return nil
}

// touch makes s the most-recently-used resident, registering it if new and
// evicting the least-recently-used idle session if the resident set is now
// over capacity.
func (m *Manager) touch(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.resident[s.ID()]; ok {
		m.lru.MoveToFront(entry.elem)
		return
	}

	entry := &residentEntry{session: s}
	entry.elem = m.lru.PushFront(entry)
	m.resident[s.ID()] = entry

	for m.lru.Len() > m.maxResident {
		m.evictOldest()
	}
}

// evictOldest drops the least-recently-used resident session that isn't
// currently mid-turn, so an evicted session's in-flight work is never
// interrupted. Caller holds m.mu.
func (m *Manager) evictOldest() {
	for e := m.lru.Back(); e != nil; e = e.Prev() {
		entry := e.Value.(*residentEntry)
		if entry.session.Busy() {
			continue
		}
		m.lru.Remove(e)
		delete(m.resident, entry.session.ID())
		entry.session.Close()
		return
	}
}
