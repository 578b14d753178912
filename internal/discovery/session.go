package discovery

import (
	"sync"
	"sync/atomic"
)

// Session is the per-connection discovery state. Field access goes through mu;
// advanceMu additionally serializes batch advances so at most one window is
// streaming per session. The two are never held together across a network
// call: advance copies what it needs under mu, releases it, then works.
type Session struct {
	ConnID string

	mu          sync.Mutex
	userID      int64
	isAdmin     bool
	library     []LibraryItem
	libraryKeys map[string]struct{}
	seeds       []string
	seedKeys    map[string]struct{}
	candidates  []Candidate
	cursor      int
	initialSent bool
	running     bool
	stopped     bool
	batchSize   int
	results     []Card
	resultKeys  map[string]struct{}

	advanceMu sync.Mutex
	cancelled atomic.Bool
}

func newSession(connID string) *Session {
	s := &Session{
		ConnID:      connID,
		libraryKeys: make(map[string]struct{}),
		seedKeys:    make(map[string]struct{}),
		resultKeys:  make(map[string]struct{}),
	}
	// A fresh session has no run in flight.
	s.cancelled.Store(true)
	return s
}

// SetUser records the authenticated identity behind this connection.
func (s *Session) SetUser(userID int64, isAdmin bool) {
	s.mu.Lock()
	s.userID = userID
	s.isAdmin = isAdmin
	s.mu.Unlock()
}

// User returns the identity recorded at connect time.
func (s *Session) User() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.isAdmin
}

// Cancelled reports whether the current run has been stopped.
func (s *Session) Cancelled() bool {
	return s.cancelled.Load()
}

// Stop requests cancellation of the in-flight run. In-flight advances observe
// it between items and exit without emitting a completion event. Unlike
// natural exhaustion, an explicit stop also silences later request_more calls.
func (s *Session) Stop() {
	s.cancelled.Store(true)
	s.mu.Lock()
	s.running = false
	s.stopped = true
	s.mu.Unlock()
}

// Stopped reports whether the run ended by explicit stop rather than by
// running out of candidates.
func (s *Session) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// prepareForSearch resets result state for a new run and arms cancellation
// flags. The previous run's results and candidate list are discarded.
func (s *Session) prepareForSearch(batchSize int) {
	s.mu.Lock()
	s.seeds = nil
	s.seedKeys = make(map[string]struct{})
	s.candidates = nil
	s.cursor = 0
	s.initialSent = false
	s.running = true
	s.stopped = false
	s.batchSize = batchSize
	s.results = nil
	s.resultKeys = make(map[string]struct{})
	s.mu.Unlock()
	s.cancelled.Store(false)
}

func (s *Session) markStopped() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.cancelled.Store(true)
}

// libraryUpdate builds the sidebar payload from the session's snapshot.
func (s *Session) libraryUpdate() LibraryUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]LibraryItem, len(s.library))
	copy(items, s.library)
	return LibraryUpdate{Status: "success", Artists: items, Running: s.running}
}

// appendResult records a streamed card, refusing duplicates by key.
func (s *Session) appendResult(key string, card Card) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.resultKeys[key]; dup {
		return false
	}
	s.resultKeys[key] = struct{}{}
	s.results = append(s.results, card)
	return true
}

// Results returns a copy of the cards streamed so far, for replay on
// reconnect.
func (s *Session) Results() []Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Card, len(s.results))
	copy(out, s.results)
	return out
}

// Store is the registry of live sessions, keyed by connection ID. Its lock
// covers only the map; per-session state has its own locks.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty session registry.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for connID, creating it on first use.
func (st *Store) GetOrCreate(connID string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[connID]
	if !ok {
		s = newSession(connID)
		st.sessions[connID] = s
	}
	return s
}

// Get returns the session for connID if one exists.
func (st *Store) Get(connID string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[connID]
	return s, ok
}

// Remove stops and forgets the session for connID. Safe to call for unknown
// IDs.
func (st *Store) Remove(connID string) {
	st.mu.Lock()
	s, ok := st.sessions[connID]
	delete(st.sessions, connID)
	st.mu.Unlock()
	if ok {
		s.Stop()
	}
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
