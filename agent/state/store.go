package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionBusy = errors.New("session has a turn in flight")

// Store is the persistence contract used by the orchestrator. It guarantees
// at most one live state object per session id and serializes turns for the
// same session: Acquire either grants exclusive access or fails with
// ErrSessionBusy. Turns for different sessions proceed fully in parallel.
// The store applies no TTL or eviction; expiry is an operational concern.
type Store interface {
	Create(ctx context.Context, lead Lead, now time.Time) (*ConversationState, error)
	Load(ctx context.Context, sessionID string) (*ConversationState, error)
	Save(ctx context.Context, st *ConversationState) error
	// Snapshot returns a frozen deep copy safe to read concurrently with
	// the next turn's write.
	Snapshot(ctx context.Context, sessionID string) (*ConversationState, error)
	// Acquire takes the per-session turn lock. The second caller for the
	// same live session is rejected, never interleaved.
	Acquire(sessionID string) (release func(), err error)
}

type sessionEntry struct {
	turnMu sync.Mutex // serializes turns for this session
	st     *ConversationState
}

// MemoryStore is the in-process Store. Sessions are never deleted during the
// process lifetime; a done session stays readable for snapshots.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	newID    func() string
}

// MemoryStoreOption customizes MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithIDGenerator overrides session id generation, mainly for tests.
func WithIDGenerator(fn func() string) MemoryStoreOption {
	return func(s *MemoryStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*sessionEntry, 16),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Create(ctx context.Context, lead Lead, now time.Time) (*ConversationState, error) {
	if strings.TrimSpace(lead.ID) == "" {
		lead.ID = s.newID()
	}

	st := NewConversationState(s.newID(), lead, now)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Session ids are never reused; uuid collisions are not a practical
	// concern, but a duplicate would violate the one-live-state guarantee.
	if _, exists := s.sessions[st.SessionID]; exists {
		return nil, ErrInvalidSession
	}
	s.sessions[st.SessionID] = &sessionEntry{st: st.Clone()}
	return st, nil
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*ConversationState, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entry.st.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, st *ConversationState) error {
	if st == nil {
		return ErrNilSessionState
	}
	if err := st.Validate(); err != nil {
		return err
	}
	entry, err := s.entry(st.SessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.st != nil && entry.st.Done && !st.Done {
		return ErrSessionDone
	}
	if entry.st != nil && len(st.History) < len(entry.st.History) {
		// History length is monotonically non-decreasing.
		return errors.New("history shrank on save")
	}
	entry.st = st.Clone()
	return nil
}

func (s *MemoryStore) Snapshot(ctx context.Context, sessionID string) (*ConversationState, error) {
	return s.Load(ctx, sessionID)
}

func (s *MemoryStore) Acquire(sessionID string) (func(), error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	if !entry.turnMu.TryLock() {
		return nil, ErrSessionBusy
	}
	return entry.turnMu.Unlock, nil
}

func (s *MemoryStore) entry(sessionID string) (*sessionEntry, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrStateNotFound
	}
	return entry, nil
}
