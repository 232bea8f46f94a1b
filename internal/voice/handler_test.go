package voice

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bcharris9/th-26/internal/action"
	"github.com/bcharris9/th-26/internal/bank"
	"github.com/bcharris9/th-26/internal/guard"
	"github.com/bcharris9/th-26/internal/intent"
	"github.com/bcharris9/th-26/internal/policy"
	"github.com/bcharris9/th-26/internal/session"
	"github.com/bcharris9/th-26/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	records []TurnResult
}

func (s *recordingSink) Record(_ context.Context, _ string, result TurnResult) error {
	s.records = append(s.records, result)
	return nil
}

type failingExtractor struct{}

func (failingExtractor) Propose(context.Context, string, string) (action.Proposal, error) {
	return nil, errors.New("extraction unavailable")
}

func newTestHandler(t *testing.T) (*Handler, *recordingSink) {
	t.Helper()

	store := session.NewPendingStore()
	tokens, err := token.NewService(store, token.Config{Secret: "test-secret"})
	require.NoError(t, err)

	seq := 0
	newID := func() string {
		seq++
		return fmt.Sprintf("prop-%d", seq)
	}
	pol := policy.New(guard.NewScorer(guard.DefaultWeights()), tokens, bank.NewDemoBank(nil), newID)

	sink := &recordingSink{}
	h := NewHandler(Config{
		AccountID: bank.DemoAccountID,
		DemoMode:  true,
		Sessions:  session.NewVoiceStore(nil),
		Policy:    pol,
		Intents:   intent.NewScriptedExtractor(intent.Options{}),
		Bank:      bank.NewDemoBank(nil),
		Sink:      sink,
	})
	return h, sink
}

func TestHandleTurn_EmptyTranscript(t *testing.T) {
	h, _ := newTestHandler(t)

	result := h.HandleTurn(context.Background(), "sess-1", "   ")

	assert.Equal(t, []string{noTranscriptLine}, result.AssistantLines)
	assert.Equal(t, "NONE", result.Trace.Tool)
	assert.Equal(t, OutcomeNoTranscript, result.Trace.Outcome)
}

func TestHandleTurn_SpendQueryDemoAnswer(t *testing.T) {
	h, _ := newTestHandler(t)

	result := h.HandleTurn(context.Background(), "sess-1", "How much did I spend at Whole Foods this month?")

	require.Len(t, result.AssistantLines, 1)
	assert.Contains(t, result.AssistantLines[0], "$450")
	assert.Contains(t, result.AssistantLines[0], "Whole Foods")
	assert.Equal(t, string(action.KindQuerySpend), result.Trace.Tool)
	assert.False(t, result.Trace.Executed)
	assert.Equal(t, OutcomeOK, result.Trace.Outcome)
	assert.Equal(t, result.AssistantLines[0], result.AssistantText)
}

func TestHandleTurn_TransferThenImplicitConfirm(t *testing.T) {
	h, _ := newTestHandler(t)

	first := h.HandleTurn(context.Background(), "sess-1", "Send $45 to Alice")
	assert.Equal(t, OutcomePending, first.Trace.Outcome)
	assert.Equal(t, string(guard.TierMedium), first.Trace.RiskLevel)
	assert.True(t, first.Trace.RequiresConfirmation)
	assert.Contains(t, first.AssistantLines[0], "Alice")

	second := h.HandleTurn(context.Background(), "sess-1", "Yes, send it")
	assert.Equal(t, OutcomeExecuted, second.Trace.Outcome)
	assert.True(t, second.Trace.Executed)
	assert.Equal(t, []string{paymentCompleteLine}, second.AssistantLines)

	// Pending state is gone: the same words start a new proposal.
	third := h.HandleTurn(context.Background(), "sess-1", "Send $45 to Alice")
	assert.Equal(t, OutcomePending, third.Trace.Outcome)
}

func TestHandleTurn_HighRiskFlow(t *testing.T) {
	h, _ := newTestHandler(t)

	first := h.HandleTurn(context.Background(), "sess-1", "Wire $2500 to Uncle Bob")
	assert.Equal(t, string(guard.TierHigh), first.Trace.RiskLevel)
	assert.Equal(t, OutcomePending, first.Trace.Outcome)
	assert.Equal(t, "Wait.", first.AssistantLines[0])
	assert.NotEmpty(t, first.Trace.Reasons)

	// A weak yes is blocked and re-reads the warning.
	weak := h.HandleTurn(context.Background(), "sess-1", "yes do it")
	assert.Equal(t, OutcomeBlocked, weak.Trace.Outcome)
	assert.Equal(t, ConfirmStateNeedsStrong, weak.Trace.ConfirmationState)
	assert.False(t, weak.Trace.Executed)

	// The literal phrase mints the token and executes in the same turn.
	confirmed := h.HandleTurn(context.Background(), "sess-1", "I confirm this payment")
	assert.Equal(t, OutcomeExecuted, confirmed.Trace.Outcome)
	assert.True(t, confirmed.Trace.Executed)
	assert.Equal(t, []string{paymentCompleteLine}, confirmed.AssistantLines)
}

func TestHandleTurn_CancelClearsPending(t *testing.T) {
	h, _ := newTestHandler(t)

	h.HandleTurn(context.Background(), "sess-1", "Wire $2500 to Uncle Bob")
	cancelled := h.HandleTurn(context.Background(), "sess-1", "cancel that")

	assert.Equal(t, OutcomeCancelled, cancelled.Trace.Outcome)
	assert.Contains(t, cancelled.AssistantLines[0], "No money was moved")
	assert.False(t, cancelled.Trace.Executed)

	// The strong phrase afterwards starts over instead of confirming.
	after := h.HandleTurn(context.Background(), "sess-1", "I confirm this payment")
	assert.NotEqual(t, OutcomeExecuted, after.Trace.Outcome)
}

func TestHandleTurn_CoercionKeywordEscalatesSmallTransfer(t *testing.T) {
	h, _ := newTestHandler(t)

	// $45 is harmless on its own; the "irs" keyword drives the demo risk
	// inputs and the coercion rule to HIGH.
	first := h.HandleTurn(context.Background(), "sess-1", "Send $45 to Alice for the irs")
	assert.Equal(t, string(guard.TierHigh), first.Trace.RiskLevel)
	assert.Equal(t, "Wait.", first.AssistantLines[0])

	confirmed := h.HandleTurn(context.Background(), "sess-1", "I confirm this payment")
	assert.Equal(t, OutcomeExecuted, confirmed.Trace.Outcome)
}

func TestHandleTurn_BankErrorSurfacesAsFailure(t *testing.T) {
	store := session.NewPendingStore()
	tokens, err := token.NewService(store, token.Config{Secret: "test-secret"})
	require.NoError(t, err)
	pol := policy.New(guard.NewScorer(guard.DefaultWeights()), tokens, bank.NewDemoBank(nil), nil)

	h := NewHandler(Config{
		AccountID: bank.DemoAccountID,
		DemoMode:  true,
		Sessions:  session.NewVoiceStore(nil),
		Policy:    pol,
		Intents:   intent.NewScriptedExtractor(intent.Options{}),
		Bank:      bank.NewDemoBank(nil),
	})

	// Demo guard: amounts over the demo balance are declined by the bank
	// after the token is consumed.
	first := h.HandleTurn(context.Background(), "sess-1", "Wire $20000 to Uncle Bob")
	require.Equal(t, OutcomePending, first.Trace.Outcome)
	require.Equal(t, string(guard.TierHigh), first.Trace.RiskLevel)

	failed := h.HandleTurn(context.Background(), "sess-1", "I confirm this payment")
	assert.Equal(t, OutcomeFailed, failed.Trace.Outcome)
	assert.Equal(t, ConfirmStateFailed, failed.Trace.ConfirmationState)
	assert.Equal(t, []string{executionFailedLine}, failed.AssistantLines)
	assert.False(t, failed.Trace.Executed)
}

func TestHandleTurn_ExtractionFailureRejected(t *testing.T) {
	h, _ := newTestHandler(t)
	h.cfg.Intents = failingExtractor{}

	result := h.HandleTurn(context.Background(), "sess-1", "do the thing")

	assert.Equal(t, OutcomeRejected, result.Trace.Outcome)
	assert.Equal(t, []string{notUnderstoodLine}, result.AssistantLines)
}

func TestHandleTurn_SinkReceivesEveryTurn(t *testing.T) {
	h, sink := newTestHandler(t)

	h.HandleTurn(context.Background(), "sess-1", "How much did I spend this month?")
	h.HandleTurn(context.Background(), "sess-1", "Send $45 to Alice")

	require.Len(t, sink.records, 2)
	assert.Equal(t, OutcomeOK, sink.records[0].Trace.Outcome)
	assert.Equal(t, OutcomePending, sink.records[1].Trace.Outcome)
}

func TestHandleTurn_BillPaymentUsesDemoBill(t *testing.T) {
	h, _ := newTestHandler(t)

	result := h.HandleTurn(context.Background(), "sess-1", "Pay my electric bill")

	assert.Equal(t, string(action.KindProposeBillPay), result.Trace.Tool)
	assert.Equal(t, OutcomePending, result.Trace.Outcome)
	assert.Contains(t, result.AssistantLines[0], bank.DemoBillDueDate)
}
