package session

import (
	"sync"

	"github.com/google/uuid"

	"topaz-backend/internal/models"
)

// Manager owns all live sessions. At most one per user and test; a session is
// evicted the moment it emits its attempt, so it never outlives it.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	byOwner  map[ownerKey]uuid.UUID

	clock      Clock
	onComplete func(models.Test, models.TestAttempt)
}

type ownerKey struct {
	userID uuid.UUID
	testID uuid.UUID
}

// NewManager builds a registry. onComplete runs once per emitted attempt,
// after the session has been evicted; persistence hangs off it.
func NewManager(clock Clock, onComplete func(models.Test, models.TestAttempt)) *Manager {
	return &Manager{
		sessions:   make(map[uuid.UUID]*Session),
		byOwner:    make(map[ownerKey]uuid.UUID),
		clock:      clock,
		onComplete: onComplete,
	}
}

// Start creates and starts a session for userID on test. If the user already
// has a live session on that test, it is returned instead of a new one.
func (m *Manager) Start(test models.Test, userID uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := ownerKey{userID: userID, testID: test.ID}
	if id, ok := m.byOwner[key]; ok {
		return m.sessions[id], nil
	}

	s, err := New(test, userID, m.clock)
	if err != nil {
		return nil, err
	}

	s.OnComplete(func(t models.Test, attempt models.TestAttempt) {
		m.evict(s.ID)
		if m.onComplete != nil {
			m.onComplete(t, attempt)
		}
	})

	if err := s.Start(); err != nil {
		return nil, err
	}

	m.sessions[s.ID] = s
	m.byOwner[key] = s.ID
	return s, nil
}

// Get returns the live session with the given id.
func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Abandon tears down a live session without emitting an attempt.
func (m *Manager) Abandon(id uuid.UUID) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		delete(m.byOwner, ownerKey{userID: s.userID, testID: s.test.ID})
	}
	m.mu.Unlock()

	if ok {
		s.Close()
	}
}

// Shutdown stops the countdown of every live session. In-memory attempts in
// progress are discarded, matching single-process session lifetime.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.sessions = make(map[uuid.UUID]*Session)
	m.byOwner = make(map[ownerKey]uuid.UUID)
	m.mu.Unlock()

	for _, s := range live {
		s.Close()
	}
}

func (m *Manager) evict(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return
	}
	delete(m.sessions, id)
	delete(m.byOwner, ownerKey{userID: s.userID, testID: s.test.ID})
}
