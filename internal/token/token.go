// Package token issues and validates the one-time confirmation tokens that
// bind a user's "yes" to the exact action that was risk-scored. A token is
// `proposalId.signature` where the signature is an HMAC-SHA256 over the
// canonical binding string; validity depends entirely on the still-existing
// pending action plus the shared secret.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bcharris9/th-26/internal/action"
	"github.com/bcharris9/th-26/internal/session"
)

// Separator splits the proposal id from the hex signature in the wire form.
const Separator = "."

// DefaultExpiry is the validity window measured from the pending action's
// original CreatedAt.
const DefaultExpiry = 10 * time.Minute

// ErrMissingSecret is returned when a Service is constructed without a
// signing secret. This is fatal configuration, not a validation outcome.
var ErrMissingSecret = errors.New("confirmation signing secret is required")

// Reason enumerates validation failure outcomes. These are recoverable,
// structured results the caller uses to choose the next spoken response.
type Reason string

const (
	ReasonInvalidFormat     Reason = "invalid_format"
	ReasonMissingOrMismatch Reason = "missing_or_session_mismatch"
	ReasonAlreadyConfirmed  Reason = "already_confirmed"
	ReasonKindMismatch      Reason = "action_kind_mismatch"
	ReasonTargetMismatch    Reason = "target_mismatch"
	ReasonAmountMismatch    Reason = "amount_mismatch"
	ReasonExpired           Reason = "expired"
	ReasonSignatureMismatch Reason = "signature_mismatch"
)

// Result is the outcome of a validate or consume call.
type Result struct {
	Valid      bool
	Reason     Reason
	ProposalID string
}

// Config holds the externally overridable knobs of the service.
type Config struct {
	Secret string
	Expiry time.Duration    // zero means DefaultExpiry
	Now    func() time.Time // zero means time.Now
}

// Service signs and checks confirmation tokens against the pending store.
type Service struct {
	store  *session.PendingStore
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewService creates a token Service. A missing secret is a fatal
// configuration error.
func NewService(store *session.PendingStore, cfg Config) (*Service, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	expiry := cfg.Expiry
	if expiry == 0 {
		expiry = DefaultExpiry
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:  store,
		secret: []byte(cfg.Secret),
		expiry: expiry,
		now:    now,
	}, nil
}

// IssueInput identifies the proposal a new token will be bound to.
type IssueInput struct {
	ProposalID string
	SessionID  string
	ActionKind action.Kind
	TargetID   string
	Amount     float64
	Timestamp  time.Time // zero means the service clock
}

// Issue stores a new AWAITING_CONFIRMATION pending action and returns the
// signed token bound to it. Exactly one pending action is created per call.
func (s *Service) Issue(in IssueInput) string {
	createdAt := in.Timestamp
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	rec := session.PendingAction{
		ProposalID: in.ProposalID,
		SessionID:  in.SessionID,
		ActionKind: in.ActionKind,
		TargetID:   in.TargetID,
		Amount:     in.Amount,
		CreatedAt:  createdAt,
		Status:     session.StatusAwaitingConfirmation,
	}

	signature := s.sign(bindingString(rec))
	s.store.Put(rec)
	return in.ProposalID + Separator + signature
}

// ValidateInput carries the caller-supplied action parameters a token must
// exactly match.
type ValidateInput struct {
	Token      string
	SessionID  string
	ActionKind action.Kind
	TargetID   string
	Amount     float64
	Now        time.Time // zero means the service clock
}

// Validate checks a token without mutating the store. The check order is
// fixed: format, existence, status, action kind, target, amount, expiry,
// signature.
func (s *Service) Validate(in ValidateInput) Result {
	proposalID, signature, ok := parseToken(in.Token)
	if !ok {
		return Result{Reason: ReasonInvalidFormat}
	}

	rec, found := s.store.Get(in.SessionID, proposalID)
	if !found {
		return Result{Reason: ReasonMissingOrMismatch}
	}

	if reason := s.checkRecord(rec, signature, in); reason != "" {
		return Result{Reason: reason}
	}
	return Result{Valid: true, ProposalID: proposalID}
}

// Consume validates the token and, on success, marks the pending action
// COMPLETED and deletes it in one indivisible step. A second consume of the
// same token fails with missing_or_session_mismatch — the record is gone,
// which is the replay-prevention mechanism.
func (s *Service) Consume(in ValidateInput) Result {
	proposalID, signature, ok := parseToken(in.Token)
	if !ok {
		return Result{Reason: ReasonInvalidFormat}
	}

	var failure Reason
	err := s.store.ConsumeMatching(in.SessionID, proposalID, func(rec session.PendingAction) error {
		if reason := s.checkRecord(rec, signature, in); reason != "" {
			failure = reason
			return errCheckFailed
		}
		return nil
	})
	switch {
	case errors.Is(err, session.ErrNotFound):
		return Result{Reason: ReasonMissingOrMismatch}
	case err != nil:
		return Result{Reason: failure}
	}
	return Result{Valid: true, ProposalID: proposalID}
}

var errCheckFailed = errors.New("token check failed")

// checkRecord applies the status, field, expiry, and signature checks in
// order against a stored record.
func (s *Service) checkRecord(rec session.PendingAction, signature string, in ValidateInput) Reason {
	if rec.Status != session.StatusAwaitingConfirmation {
		return ReasonAlreadyConfirmed
	}
	if rec.ActionKind != in.ActionKind {
		return ReasonKindMismatch
	}
	if rec.TargetID != in.TargetID {
		return ReasonTargetMismatch
	}
	if rec.Amount != in.Amount {
		return ReasonAmountMismatch
	}

	now := in.Now
	if now.IsZero() {
		now = s.now()
	}
	// Expiry always compares against the record's original CreatedAt.
	if now.Sub(rec.CreatedAt) > s.expiry {
		return ReasonExpired
	}

	expected := s.sign(bindingString(rec))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ReasonSignatureMismatch
	}
	return ""
}

func (s *Service) sign(binding string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(binding))
	return hex.EncodeToString(mac.Sum(nil))
}

// bindingString canonicalizes the fields a signature covers. Field order is
// fixed and the delimiter may not appear inside any field.
func bindingString(rec session.PendingAction) string {
	return strings.Join([]string{
		rec.SessionID,
		string(rec.ActionKind),
		rec.TargetID,
		formatAmount(rec.Amount),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}, "|")
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

func parseToken(tok string) (proposalID, signature string, ok bool) {
	proposalID, signature, found := strings.Cut(tok, Separator)
	if !found || proposalID == "" || signature == "" {
		return "", "", false
	}
	return proposalID, signature, true
}
