package token

import (
	"strings"
	"testing"
	"time"

	"github.com/bcharris9/th-26/internal/action"
	"github.com/bcharris9/th-26/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, now func() time.Time) (*Service, *session.PendingStore) {
	t.Helper()
	store := session.NewPendingStore()
	svc, err := NewService(store, Config{Secret: "test-secret", Now: now})
	require.NoError(t, err)
	return svc, store
}

func issueInput() IssueInput {
	return IssueInput{
		ProposalID: "prop-1",
		SessionID:  "sess-1",
		ActionKind: action.KindProposeTransfer,
		TargetID:   "payee-1",
		Amount:     45,
	}
}

func validateInput(tok string) ValidateInput {
	return ValidateInput{
		Token:      tok,
		SessionID:  "sess-1",
		ActionKind: action.KindProposeTransfer,
		TargetID:   "payee-1",
		Amount:     45,
	}
}

func TestNewService_RequiresSecret(t *testing.T) {
	_, err := NewService(session.NewPendingStore(), Config{})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestIssueThenValidate_RoundTrip(t *testing.T) {
	svc, store := newTestService(t, nil)

	tok := svc.Issue(issueInput())
	assert.True(t, strings.HasPrefix(tok, "prop-1"+Separator))

	rec, ok := store.Get("sess-1", "prop-1")
	require.True(t, ok)
	assert.Equal(t, session.StatusAwaitingConfirmation, rec.Status)

	result := svc.Validate(validateInput(tok))
	assert.True(t, result.Valid)
	assert.Equal(t, "prop-1", result.ProposalID)

	// Validate is read-only.
	_, ok = store.Get("sess-1", "prop-1")
	assert.True(t, ok)
}

func TestValidate_InvalidFormat(t *testing.T) {
	svc, _ := newTestService(t, nil)

	for _, tok := range []string{"", "no-separator", ".sigonly", "proponly."} {
		result := svc.Validate(validateInput(tok))
		assert.False(t, result.Valid)
		assert.Equal(t, ReasonInvalidFormat, result.Reason, "token %q", tok)
	}
}

func TestValidate_FieldMismatches(t *testing.T) {
	svc, _ := newTestService(t, nil)
	tok := svc.Issue(issueInput())

	wrongSession := validateInput(tok)
	wrongSession.SessionID = "sess-2"
	assert.Equal(t, ReasonMissingOrMismatch, svc.Validate(wrongSession).Reason)

	wrongKind := validateInput(tok)
	wrongKind.ActionKind = action.KindProposeBillPay
	assert.Equal(t, ReasonKindMismatch, svc.Validate(wrongKind).Reason)

	wrongTarget := validateInput(tok)
	wrongTarget.TargetID = "payee-2"
	assert.Equal(t, ReasonTargetMismatch, svc.Validate(wrongTarget).Reason)

	wrongAmount := validateInput(tok)
	wrongAmount.Amount = 46
	assert.Equal(t, ReasonAmountMismatch, svc.Validate(wrongAmount).Reason)
}

func TestValidate_CheckOrderKindBeforeTargetBeforeAmount(t *testing.T) {
	svc, _ := newTestService(t, nil)
	tok := svc.Issue(issueInput())

	// Everything wrong at once: kind mismatch is reported first.
	in := validateInput(tok)
	in.ActionKind = action.KindProposeBillPay
	in.TargetID = "payee-2"
	in.Amount = 99
	assert.Equal(t, ReasonKindMismatch, svc.Validate(in).Reason)

	// Kind right, target and amount wrong: target wins.
	in = validateInput(tok)
	in.TargetID = "payee-2"
	in.Amount = 99
	assert.Equal(t, ReasonTargetMismatch, svc.Validate(in).Reason)
}

func TestValidate_Expiry(t *testing.T) {
	issued := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	current := issued
	svc, _ := newTestService(t, func() time.Time { return current })

	tok := svc.Issue(issueInput())

	current = issued.Add(10 * time.Minute)
	assert.True(t, svc.Validate(validateInput(tok)).Valid, "valid at exactly the window edge")

	current = issued.Add(10*time.Minute + time.Second)
	result := svc.Validate(validateInput(tok))
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonExpired, result.Reason)

	// The explicit Now override takes precedence over the clock.
	in := validateInput(tok)
	in.Now = issued.Add(time.Minute)
	assert.True(t, svc.Validate(in).Valid)
}

func TestValidate_SignatureMismatch(t *testing.T) {
	svc, _ := newTestService(t, nil)
	tok := svc.Issue(issueInput())

	tampered := strings.TrimSuffix(tok, tok[len(tok)-1:]) + "0"
	if tampered == tok {
		tampered = strings.TrimSuffix(tok, tok[len(tok)-1:]) + "1"
	}

	result := svc.Validate(validateInput(tampered))
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonSignatureMismatch, result.Reason)
}

func TestValidate_TokenFromDifferentSecret(t *testing.T) {
	store := session.NewPendingStore()
	svcA, err := NewService(store, Config{Secret: "secret-a"})
	require.NoError(t, err)
	svcB, err := NewService(store, Config{Secret: "secret-b"})
	require.NoError(t, err)

	tok := svcA.Issue(issueInput())

	// Same store, different secret: record exists but signature fails.
	result := svcB.Validate(validateInput(tok))
	assert.Equal(t, ReasonSignatureMismatch, result.Reason)
}

func TestConsume_SucceedsOnceThenMissing(t *testing.T) {
	svc, store := newTestService(t, nil)
	tok := svc.Issue(issueInput())

	first := svc.Consume(validateInput(tok))
	assert.True(t, first.Valid)
	assert.Equal(t, "prop-1", first.ProposalID)

	_, ok := store.Get("sess-1", "prop-1")
	assert.False(t, ok, "consumption deletes the record")

	second := svc.Consume(validateInput(tok))
	assert.False(t, second.Valid)
	assert.Equal(t, ReasonMissingOrMismatch, second.Reason,
		"replay reports missing, not already_confirmed, because the record is deleted")
}

func TestConsume_FailedCheckLeavesRecordIntact(t *testing.T) {
	svc, store := newTestService(t, nil)
	tok := svc.Issue(issueInput())

	in := validateInput(tok)
	in.Amount = 450
	result := svc.Consume(in)
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonAmountMismatch, result.Reason)

	_, ok := store.Get("sess-1", "prop-1")
	assert.True(t, ok)

	// The token is still consumable with the correct parameters.
	assert.True(t, svc.Consume(validateInput(tok)).Valid)
}

func TestIssue_ExplicitTimestampDrivesExpiry(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, func() time.Time { return now })

	in := issueInput()
	in.Timestamp = now.Add(-20 * time.Minute)
	tok := svc.Issue(in)

	result := svc.Validate(validateInput(tok))
	assert.Equal(t, ReasonExpired, result.Reason)
}
