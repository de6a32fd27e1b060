package ussd

import (
	"context"
	"sync"
	"time"

	"github.com/translearn/translearn/internal/domain"
)

// SessionTTL is how long an idle USSD session is kept before the sweeper
// removes it. Gateway sessions themselves rarely outlive two minutes.
const SessionTTL = 5 * time.Minute

// sweepInterval is how often expired sessions are purged.
const sweepInterval = time.Minute

// Session holds the navigation state for one USSD dialog. The gateway
// serializes callbacks per session, but the admin snapshot endpoint reads
// sessions concurrently, so the navigation fields are guarded by mu. When
// both locks are needed, the store's mutex is taken first.
type Session struct {
	mu sync.Mutex

	ID          string             `json:"id"`
	PhoneNumber string             `json:"phone_number"`
	State       State              `json:"state"`
	Subject     string             `json:"subject,omitempty"`
	Grade       string             `json:"grade,omitempty"`
	Resources   []*domain.Resource `json:"-"`
	LastActive  time.Time          `json:"last_active"`
}

// Lock takes the session for mutation. The state machine holds it across a
// whole callback step.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// SessionStore keeps USSD sessions in memory. Gateway callbacks for one
// session always hit the same instance, so process-local state is enough.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for the given ID, creating a fresh one at
// the main menu if none exists or the existing one has expired. The second
// return reports whether a new session was created.
func (s *SessionStore) GetOrCreate(id, phoneNumber string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if sess, ok := s.sessions[id]; ok {
		sess.mu.Lock()
		live := now.Sub(sess.LastActive) < SessionTTL
		if live {
			sess.LastActive = now
		}
		sess.mu.Unlock()
		if live {
			return sess, false
		}
	}

	sess := &Session{
		ID:          id,
		PhoneNumber: phoneNumber,
		State:       StateMain,
		LastActive:  now,
	}
	s.sessions[id] = sess
	return sess, true
}

// Delete removes a session. Idempotent; returns whether it existed.
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Snapshot returns a copy of all live sessions, for the admin debug
// endpoint. Each session is locked while its fields are copied, so a
// snapshot taken mid-callback sees a consistent state.
func (s *SessionStore) Snapshot() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sess.mu.Lock()
		out = append(out, &Session{
			ID:          sess.ID,
			PhoneNumber: sess.PhoneNumber,
			State:       sess.State,
			Subject:     sess.Subject,
			Grade:       sess.Grade,
			LastActive:  sess.LastActive,
		})
		sess.mu.Unlock()
	}
	return out
}

// Count returns the number of live sessions.
func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// StartSweeper purges expired sessions until ctx is canceled.
func (s *SessionStore) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *SessionStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-SessionTTL)
	for id, sess := range s.sessions {
		if sess.LastActive.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
