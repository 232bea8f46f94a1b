package policy

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bcharris9/th-26/internal/bank"
	"github.com/bcharris9/th-26/internal/guard"
	"github.com/bcharris9/th-26/internal/session"
	"github.com/bcharris9/th-26/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBank records calls and returns canned receipts.
type fakeBank struct {
	transfers    int
	billPayments int
	err          error
}

func (f *fakeBank) CreateTransfer(_ context.Context, accountID, payeeID string, amount float64, memo string) (*bank.Transfer, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.transfers++
	return &bank.Transfer{ID: "t-1", PayerID: accountID, PayeeID: payeeID, Amount: amount, Status: "completed"}, nil
}

func (f *fakeBank) CreateBillPayment(_ context.Context, _, billID string, amount float64, _ string) (*bank.BillPayment, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.billPayments++
	return &bank.BillPayment{ID: "bp-1", BillID: billID, Amount: amount, Status: "completed"}, nil
}

func (f *fakeBank) GetPurchases(context.Context, string) ([]bank.Purchase, error) {
	return nil, nil
}

func newTestPolicy(t *testing.T) (*Policy, *fakeBank, *session.PendingStore) {
	t.Helper()
	store := session.NewPendingStore()
	tokens, err := token.NewService(store, token.Config{Secret: "test-secret"})
	require.NoError(t, err)

	fb := &fakeBank{}
	seq := 0
	newID := func() string {
		seq++
		return fmt.Sprintf("prop-%d", seq)
	}
	return New(guard.NewScorer(guard.DefaultWeights()), tokens, fb, newID), fb, store
}

func lowRiskContext() RiskContext {
	return RiskContext{AvgAmount30d: 100, RecentOutgoingCount: 1, ProjectedBalance: 500}
}

func highRiskContext() RiskContext {
	return RiskContext{IsNewTarget: true, AvgAmount30d: 125, RecentOutgoingCount: 4, ProjectedBalance: 20}
}

func transferInput(risk RiskContext) TransferInput {
	return TransferInput{
		SessionID: "sess-1",
		AccountID: "acct-1",
		PayeeID:   "payee-1",
		PayeeName: "Alice",
		Amount:    45,
		Risk:      risk,
	}
}

func TestProposeTransfer_LowRiskMintsTokenWithSingleConfirm(t *testing.T) {
	p, _, store := newTestPolicy(t)

	result := p.ProposeTransfer(transferInput(lowRiskContext()))

	assert.Equal(t, guard.TierLow, result.Tier)
	assert.Equal(t, guard.ConfirmSingle, result.Confirmation)
	assert.NotEmpty(t, result.Token)
	assert.Contains(t, result.AssistantLines[0], "$45.00")
	assert.Contains(t, result.AssistantLines[0], "Alice")
	assert.NotContains(t, result.AssistantLines, guard.ReasonLiquidityRisk,
		"low tier surfaces no reasons")

	_, ok := store.Get("sess-1", result.ProposalID)
	assert.True(t, ok, "token issuance creates the pending action")
}

func TestProposeTransfer_MediumRiskSurfacesReasons(t *testing.T) {
	p, _, _ := newTestPolicy(t)

	in := transferInput(RiskContext{IsNewTarget: true, AvgAmount30d: 100, RecentOutgoingCount: 1, ProjectedBalance: 500})
	result := p.ProposeTransfer(in)

	assert.Equal(t, guard.TierMedium, result.Tier)
	assert.Equal(t, guard.ConfirmTwoStep, result.Confirmation)
	assert.NotEmpty(t, result.Token)
	assert.Contains(t, result.AssistantLines, guard.ReasonNewRelationship)
	assert.Equal(t, "Would you like me to send it now?", result.AssistantLines[len(result.AssistantLines)-1])
}

func TestProposeTransfer_HighRiskWithholdsToken(t *testing.T) {
	p, _, store := newTestPolicy(t)

	in := transferInput(highRiskContext())
	in.Amount = 2500
	result := p.ProposeTransfer(in)

	assert.Equal(t, guard.TierHigh, result.Tier)
	assert.Empty(t, result.Token, "no token before strong confirmation")
	assert.Equal(t, "Wait.", result.AssistantLines[0])

	_, ok := store.Get("sess-1", result.ProposalID)
	assert.False(t, ok, "no pending action exists until a token is minted")
}

func TestProposeBillPayment_Script(t *testing.T) {
	p, _, _ := newTestPolicy(t)

	result := p.ProposeBillPayment(BillPaymentInput{
		SessionID:   "sess-1",
		AccountID:   "acct-1",
		BillerID:    "bill-1",
		BillerName:  "Reliant Energy",
		Amount:      145.20,
		DueDate:     "October 30th",
		AccountName: "Checking",
		Risk:        RiskContext{AvgAmount30d: 120, RecentOutgoingCount: 1, ProjectedBalance: 450},
	})

	assert.Equal(t, guard.TierLow, result.Tier)
	assert.Contains(t, result.AssistantLines[0], "Reliant Energy")
	assert.Contains(t, result.AssistantLines[0], "October 30th")
	assert.Contains(t, result.AssistantLines[1], "Checking")
}

func TestHandleSpokenConfirmation_Flow(t *testing.T) {
	p, _, _ := newTestPolicy(t)

	in := transferInput(highRiskContext())
	in.Amount = 2500
	proposed := p.ProposeTransfer(in)
	require.Equal(t, guard.TierHigh, proposed.Tier)

	// A weak "yes" re-issues the warning and mints nothing.
	weak := p.HandleSpokenConfirmation("sess-1", proposed.ProposalID, "yes do it")
	assert.Equal(t, StatusNeedsStrongConfirm, weak.Status)
	assert.Empty(t, weak.Token)
	assert.Equal(t, highRiskScript, weak.AssistantLines)

	// Unknown proposal id is inert.
	ignored := p.HandleSpokenConfirmation("sess-1", "prop-unknown", "I confirm this payment")
	assert.Equal(t, StatusIgnored, ignored.Status)

	// Wrong session is inert too.
	foreign := p.HandleSpokenConfirmation("sess-2", proposed.ProposalID, "I confirm this payment")
	assert.Equal(t, StatusIgnored, foreign.Status)

	// The literal phrase mints the token and releases the record.
	confirmed := p.HandleSpokenConfirmation("sess-1", proposed.ProposalID, "I confirm this payment")
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.NotEmpty(t, confirmed.Token)

	// The record is gone; repeating the phrase is ignored.
	repeat := p.HandleSpokenConfirmation("sess-1", proposed.ProposalID, "I confirm this payment")
	assert.Equal(t, StatusIgnored, repeat.Status)
}

func TestHandleSpokenConfirmation_CancelAlwaysCancels(t *testing.T) {
	p, _, _ := newTestPolicy(t)

	in := transferInput(highRiskContext())
	in.Amount = 2500
	proposed := p.ProposeTransfer(in)

	result := p.HandleSpokenConfirmation("sess-1", proposed.ProposalID, "no, stop")
	assert.Equal(t, StatusCancelled, result.Status)
	assert.Equal(t, cancelScript, result.AssistantLines)

	// Record was deleted: the strong phrase no longer mints anything.
	after := p.HandleSpokenConfirmation("sess-1", proposed.ProposalID, "I confirm this payment")
	assert.Equal(t, StatusIgnored, after.Status)

	// Cancel with no record at all still reads the cancel script.
	stray := p.HandleSpokenConfirmation("sess-1", "prop-unknown", "cancel")
	assert.Equal(t, StatusCancelled, stray.Status)
}

func TestExecuteTransfer_ConsumesTokenExactlyOnce(t *testing.T) {
	p, fb, _ := newTestPolicy(t)

	proposed := p.ProposeTransfer(transferInput(lowRiskContext()))
	require.NotEmpty(t, proposed.Token)

	in := ExecuteInput{
		SessionID: "sess-1",
		Token:     proposed.Token,
		AccountID: "acct-1",
		TargetID:  "payee-1",
		Amount:    45,
	}

	receipt, validation, err := p.ExecuteTransfer(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, validation.Valid)
	assert.Equal(t, "completed", receipt.Status)
	assert.Equal(t, 1, fb.transfers)

	// Replay: the token is gone, execution must not happen again.
	_, validation, err = p.ExecuteTransfer(context.Background(), in)
	require.Error(t, err)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, token.ReasonMissingOrMismatch, execErr.Reason)
	assert.Equal(t, 1, fb.transfers)
}

func TestExecuteTransfer_TamperedAmountNeverExecutes(t *testing.T) {
	p, fb, _ := newTestPolicy(t)

	proposed := p.ProposeTransfer(transferInput(lowRiskContext()))

	in := ExecuteInput{
		SessionID: "sess-1",
		Token:     proposed.Token,
		AccountID: "acct-1",
		TargetID:  "payee-1",
		Amount:    4500, // inflated after confirmation
	}

	_, _, err := p.ExecuteTransfer(context.Background(), in)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, token.ReasonAmountMismatch, execErr.Reason)
	assert.Equal(t, 0, fb.transfers)
}

func TestExecuteBillPayment_BankFailureAfterConsume(t *testing.T) {
	p, fb, store := newTestPolicy(t)
	fb.err = errors.New("bank is down")

	proposed := p.ProposeBillPayment(BillPaymentInput{
		SessionID:   "sess-1",
		AccountID:   "acct-1",
		BillerID:    "bill-1",
		BillerName:  "Reliant Energy",
		Amount:      145.20,
		DueDate:     "October 30th",
		AccountName: "Checking",
		Risk:        lowRiskContext(),
	})

	_, validation, err := p.ExecuteBillPayment(context.Background(), ExecuteInput{
		SessionID: "sess-1",
		Token:     proposed.Token,
		AccountID: "acct-1",
		TargetID:  "bill-1",
		Amount:    145.20,
	})
	require.Error(t, err)
	assert.True(t, validation.Valid, "token was consumed before the bank call")

	var execErr *ExecutionError
	assert.False(t, errors.As(err, &execErr), "bank failures are not token failures")

	_, ok := store.Get("sess-1", proposed.ProposalID)
	assert.False(t, ok, "the one-time token stays consumed")
}
