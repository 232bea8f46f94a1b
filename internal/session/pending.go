// Package session owns the in-process, per-session state of the
// authorization subsystem: pending actions awaiting confirmation and the
// conversational voice sessions themselves. Nothing here survives a process
// restart, and nothing here is shared across processes.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/bcharris9/th-26/internal/action"
)

// ErrNotFound is returned when no pending action exists for a key. A missing
// record, a wrong session, and an already-consumed token are deliberately
// indistinguishable: lookups are session-scoped.
var ErrNotFound = errors.New("pending action not found")

// PendingStatus is the lifecycle status of a pending action.
type PendingStatus string

const (
	StatusAwaitingConfirmation PendingStatus = "AWAITING_CONFIRMATION"
	StatusCompleted            PendingStatus = "COMPLETED"
)

// PendingAction is a server-held record of a proposal awaiting confirmation,
// keyed by (sessionID, proposalID). At most one live record exists per key;
// the only permitted mutation is the status transition to COMPLETED followed
// by deletion.
type PendingAction struct {
	ProposalID string
	SessionID  string
	ActionKind action.Kind
	TargetID   string
	Amount     float64
	CreatedAt  time.Time
	Status     PendingStatus
}

// PendingStore is a mutex-guarded keyed store of pending actions. A single
// lock covers all sessions; per-session contention is expected to be near
// zero, but duplicate network retries can make turns overlap.
type PendingStore struct {
	mu       sync.Mutex
	sessions map[string]map[string]PendingAction
}

// NewPendingStore creates an empty PendingStore.
func NewPendingStore() *PendingStore {
	return &PendingStore{sessions: make(map[string]map[string]PendingAction)}
}

// Put stores a pending action, replacing any record under the same key.
func (s *PendingStore) Put(rec PendingAction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	perSession, ok := s.sessions[rec.SessionID]
	if !ok {
		perSession = make(map[string]PendingAction)
		s.sessions[rec.SessionID] = perSession
	}
	perSession[rec.ProposalID] = rec
}

// Get returns a copy of the pending action for the key, if present.
func (s *PendingStore) Get(sessionID, proposalID string) (PendingAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID][proposalID]
	return rec, ok
}

// Remove deletes the record for the key. Removing an absent key is a no-op.
func (s *PendingStore) Remove(sessionID, proposalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions[sessionID], proposalID)
}

// ConsumeMatching atomically looks up the record, runs check against a copy,
// and — only when check returns nil — marks it COMPLETED and deletes it.
// The lock is held for the whole step so two concurrent consumptions of the
// same token cannot both succeed. check must not block.
func (s *PendingStore) ConsumeMatching(sessionID, proposalID string, check func(rec PendingAction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID][proposalID]
	if !ok {
		return ErrNotFound
	}
	if err := check(rec); err != nil {
		return err
	}

	rec.Status = StatusCompleted
	s.sessions[sessionID][proposalID] = rec
	delete(s.sessions[sessionID], proposalID)
	return nil
}

// SweepExpired removes records whose CreatedAt is older than maxAge relative
// to now, returning how many were removed. Unconsumed records otherwise
// accumulate for the life of the process; token validation never depends on
// this sweep, only on CreatedAt.
func (s *PendingStore) SweepExpired(now time.Time, maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for sessionID, perSession := range s.sessions {
		for proposalID, rec := range perSession {
			if now.Sub(rec.CreatedAt) > maxAge {
				delete(perSession, proposalID)
				removed++
			}
		}
		if len(perSession) == 0 {
			delete(s.sessions, sessionID)
		}
	}
	return removed
}
