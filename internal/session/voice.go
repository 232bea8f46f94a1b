package session

import (
	"sync"
	"time"

	"github.com/bcharris9/th-26/internal/action"
	"github.com/bcharris9/th-26/internal/guard"
)

// PendingVoiceAction mirrors the most recent proposal of a conversation:
// its id, risk assessment, the validated proposal itself, and — once minted —
// the confirmation token the next affirmative utterance will consume.
type PendingVoiceAction struct {
	ProposalID string
	Proposal   action.Proposal
	Tier       guard.Tier
	Score      int
	Reasons    []string
	Token      string
}

// VoiceSession is the per-conversation state. Created lazily on the first
// turn; the pending action is cleared on cancellation or execution.
type VoiceSession struct {
	LastTranscript string
	LastAction     action.Proposal
	Pending        *PendingVoiceAction
	touchedAt      time.Time
}

// VoiceStore holds voice sessions keyed by session id.
type VoiceStore struct {
	mu       sync.Mutex
	sessions map[string]*VoiceSession
	now      func() time.Time
}

// NewVoiceStore creates an empty VoiceStore. now is injectable for tests;
// nil means time.Now.
func NewVoiceStore(now func() time.Time) *VoiceStore {
	if now == nil {
		now = time.Now
	}
	return &VoiceStore{sessions: make(map[string]*VoiceSession), now: now}
}

// Snapshot returns a copy of the session state, creating the session if it
// does not exist yet.
func (s *VoiceStore) Snapshot(sessionID string) VoiceSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	return *s.touch(sessionID)
}

// RecordTurn stores the latest transcript and extracted action.
func (s *VoiceStore) RecordTurn(sessionID, transcript string, act action.Proposal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.touch(sessionID)
	sess.LastTranscript = transcript
	sess.LastAction = act
}

// SetPending attaches a pending voice action to the session.
func (s *VoiceStore) SetPending(sessionID string, pending PendingVoiceAction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.touch(sessionID)
	sess.Pending = &pending
}

// ClearPending removes any pending voice action from the session.
func (s *VoiceStore) ClearPending(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch(sessionID).Pending = nil
}

// SweepIdle removes sessions not touched within maxIdle of now, returning
// how many were removed. Abandoned sessions otherwise live for the process
// lifetime.
func (s *VoiceStore) SweepIdle(now time.Time, maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.touchedAt) > maxIdle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// touch returns the session, creating it if needed. Caller holds the lock.
func (s *VoiceStore) touch(sessionID string) *VoiceSession {
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &VoiceSession{}
		s.sessions[sessionID] = sess
	}
	sess.touchedAt = s.now()
	return sess
}
