package triage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps live sessions. Implementations hand out copies; changes
// go through Update, which runs fn with exclusive access to one session.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, id uuid.UUID, fn func(*Session) error) (*Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Session, int, error)
	Sweep(ctx context.Context, idleBefore time.Time) (int, error)
}

type sessionEntry struct {
	mu sync.Mutex
	s  *Session
}

// MemoryStore is a process-local SessionStore. Sessions do not survive a
// restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*sessionEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]*sessionEntry)}
}

func (m *MemoryStore) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = &sessionEntry{s: s.Clone()}
	return nil
}

func (m *MemoryStore) entry(id uuid.UUID) (*sessionEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	return e, ok
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Session, error) {
	e, ok := m.entry(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Clone(), nil
}

// Update applies fn to a working copy of the session and stores the copy only
// if fn succeeds. Calls for the same session are serialized.
func (m *MemoryStore) Update(ctx context.Context, id uuid.UUID, fn func(*Session) error) (*Session, error) {
	e, ok := m.entry(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.s == nil {
		return nil, ErrSessionNotFound
	}
	work := e.s.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}
	e.s = work
	return work.Clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	// An Update already waiting on this entry must see it as gone.
	e.mu.Lock()
	e.s = nil
	e.mu.Unlock()
	return nil
}

// List returns sessions ordered by most recent activity.
func (m *MemoryStore) List(_ context.Context, limit, offset int) ([]*Session, int, error) {
	m.mu.RLock()
	entries := make([]*sessionEntry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	all := make([]*Session, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if e.s != nil {
			all = append(all, e.s.Clone())
		}
		e.mu.Unlock()
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })

	total := len(all)
	if offset >= total {
		return []*Session{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

// Sweep removes sessions with no activity since idleBefore and reports how
// many were removed. A session touched after the scan is kept.
func (m *MemoryStore) Sweep(ctx context.Context, idleBefore time.Time) (int, error) {
	removed := 0
	for _, id := range m.idleIDs(idleBefore) {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if m.removeIfIdle(id, idleBefore) {
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) idleIDs(idleBefore time.Time) []uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stale []uuid.UUID
	for id, e := range m.sessions {
		e.mu.Lock()
		if e.s != nil && e.s.UpdatedAt.Before(idleBefore) {
			stale = append(stale, id)
		}
		e.mu.Unlock()
	}
	return stale
}

// removeIfIdle deletes id only if it is still idle under both locks.
func (m *MemoryStore) removeIfIdle(id uuid.UUID, idleBefore time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.s == nil || !e.s.UpdatedAt.Before(idleBefore) {
		return false
	}
	delete(m.sessions, id)
	e.s = nil
	return true
}
