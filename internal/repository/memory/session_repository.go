package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"patient-sim-be/pkg/cases"
)

// Session is the mutable per-conversation state: the assigned case, the
// evidence tokens disclosed so far, and the turn count. All mutation goes
// through the methods below, which hold the per-session mutex so that
// concurrent requests on the same session id never lose updates. Sessions
// of different ids share nothing and never block each other.
type Session struct {
	Id   string
	Case *cases.Case

	mu       sync.Mutex
	revealed map[string]bool
	turns    int
}

// Reveal records a disclosed token. Idempotent set-insert.
func (s *Session) Reveal(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revealed[token] = true
}

// IncrementTurn counts one more student question.
func (s *Session) IncrementTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns++
}

// RevealedTokens returns a sorted snapshot of the revealed set.
func (s *Session) RevealedTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := make([]string, 0, len(s.revealed))
	for tok := range s.revealed {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return tokens
}

// RevealedSet returns a copy of the revealed set for scoring.
func (s *Session) RevealedSet() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := make(map[string]bool, len(s.revealed))
	for tok := range s.revealed {
		set[tok] = true
	}
	return set
}

// Turns returns the current turn count.
func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns
}

// SessionRepository keeps active simulation sessions in memory with TTL
// eviction, so abandoned sessions do not accumulate for the life of the
// process.
type SessionRepository struct {
	cache   *cache.Cache
	catalog *cases.Catalog
}

// NewSessionRepository creates the registry. Sessions idle longer than ttl
// are purged on the given interval.
func NewSessionRepository(catalog *cases.Catalog, ttl, cleanupInterval time.Duration) *SessionRepository {
	return &SessionRepository{
		cache:   cache.New(ttl, cleanupInterval),
		catalog: catalog,
	}
}

// Start creates (or recreates) the session: a uniformly random case is
// assigned, the revealed set is seeded with the case's initial evidence,
// and the turn count resets. Restarting an existing id discards all prior
// state.
func (r *SessionRepository) Start(sessionID string) *Session {
	c := r.catalog.Random()
	session := &Session{
		Id:       sessionID,
		Case:     c,
		revealed: map[string]bool{c.InitialEvidence: true},
	}
	r.cache.Set(sessionID, session, cache.DefaultExpiration)
	return session
}

// Get looks up an active session.
func (r *SessionRepository) Get(sessionID string) (*Session, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*Session), true
	}
	return nil, false
}

// Delete removes a session explicitly (mainly for tests).
func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
