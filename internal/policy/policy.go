// Package policy turns proposed money-movement actions into confirmation
// requirements. It sequences the risk scorer and the token service: LOW and
// MEDIUM proposals get a token immediately, HIGH proposals are held back
// until the caller speaks the strong-confirmation phrase, and execution
// always consumes a token first.
package policy

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bcharris9/th-26/internal/action"
	"github.com/bcharris9/th-26/internal/bank"
	"github.com/bcharris9/th-26/internal/guard"
	"github.com/bcharris9/th-26/internal/token"
	"github.com/google/uuid"
)

// ConfirmStatus describes the outcome of resolving a spoken confirmation.
type ConfirmStatus string

const (
	StatusConfirmed          ConfirmStatus = "confirmed"
	StatusNeedsStrongConfirm ConfirmStatus = "needs_strong_confirm"
	StatusCancelled          ConfirmStatus = "cancelled"
	StatusIgnored            ConfirmStatus = "ignored"
)

// highRiskPending is the record held while a HIGH-risk proposal awaits the
// strong-confirmation phrase. No token exists yet at this point.
type highRiskPending struct {
	proposalID string
	sessionID  string
	actionKind action.Kind
	targetID   string
	amount     float64
}

// Policy orchestrates scoring, token issuance, and execution.
type Policy struct {
	scorer *guard.Scorer
	tokens *token.Service
	bank   bank.Service

	mu       sync.Mutex
	highRisk map[string]highRiskPending // keyed by proposal id
	newID    func() string
}

// New creates a Policy. newID is injectable for tests; nil means a fresh
// "prop_<uuid>" per proposal.
func New(scorer *guard.Scorer, tokens *token.Service, bankSvc bank.Service, newID func() string) *Policy {
	if newID == nil {
		newID = func() string { return "prop_" + uuid.NewString() }
	}
	return &Policy{
		scorer:   scorer,
		tokens:   tokens,
		bank:     bankSvc,
		highRisk: make(map[string]highRiskPending),
		newID:    newID,
	}
}

// RiskContext carries the account history inputs the scorer needs. It is
// supplied by the caller because deriving it (transaction history lookups)
// lives outside the authorization subsystem.
type RiskContext struct {
	IsNewTarget         bool
	AvgAmount30d        float64
	RecentOutgoingCount int
	ProjectedBalance    float64
}

// TransferInput is a proposed transfer plus its risk context.
type TransferInput struct {
	SessionID string
	AccountID string
	PayeeID   string
	PayeeName string
	Amount    float64
	Memo      string
	Risk      RiskContext
}

// BillPaymentInput is a proposed bill payment plus its risk context.
type BillPaymentInput struct {
	SessionID   string
	AccountID   string
	BillerID    string
	BillerName  string
	Amount      float64
	DueDate     string
	AccountName string
	Memo        string
	Risk        RiskContext
}

// ProposeResult is the decision for a new proposal: the script to speak and,
// below the top tier, the confirmation token the next "yes" will consume.
type ProposeResult struct {
	ProposalID     string
	Tier           guard.Tier
	Score          int
	Reasons        []string
	Confirmation   guard.Confirmation
	AssistantLines []string
	Token          string // empty for HIGH until strong confirmation
}

// ProposeTransfer scores a transfer and either mints a token (LOW/MEDIUM)
// or parks it behind the strong-confirmation protocol (HIGH).
func (p *Policy) ProposeTransfer(in TransferInput) ProposeResult {
	assessment := p.scorer.Score(guard.Input{
		AccountID:           in.AccountID,
		TargetID:            in.PayeeID,
		IsNewTarget:         in.Risk.IsNewTarget,
		Amount:              in.Amount,
		AvgAmount30d:        in.Risk.AvgAmount30d,
		RecentOutgoingCount: in.Risk.RecentOutgoingCount,
		ProjectedBalance:    in.Risk.ProjectedBalance,
		Memo:                in.Memo,
	})

	proposalID := p.newID()
	if assessment.Tier == guard.TierHigh {
		p.parkHighRisk(proposalID, in.SessionID, action.KindProposeTransfer, in.PayeeID, in.Amount)
		return proposeResult(proposalID, assessment, highRiskScript, "")
	}

	tok := p.tokens.Issue(token.IssueInput{
		ProposalID: proposalID,
		SessionID:  in.SessionID,
		ActionKind: action.KindProposeTransfer,
		TargetID:   in.PayeeID,
		Amount:     in.Amount,
	})
	script := transferScript(in.Amount, in.PayeeName, surfacedReasons(assessment))
	return proposeResult(proposalID, assessment, script, tok)
}

// ProposeBillPayment scores a bill payment; same tier branching as
// ProposeTransfer.
func (p *Policy) ProposeBillPayment(in BillPaymentInput) ProposeResult {
	assessment := p.scorer.Score(guard.Input{
		AccountID:           in.AccountID,
		TargetID:            in.BillerID,
		IsNewTarget:         in.Risk.IsNewTarget,
		Amount:              in.Amount,
		AvgAmount30d:        in.Risk.AvgAmount30d,
		RecentOutgoingCount: in.Risk.RecentOutgoingCount,
		ProjectedBalance:    in.Risk.ProjectedBalance,
		Memo:                in.Memo,
	})

	proposalID := p.newID()
	if assessment.Tier == guard.TierHigh {
		p.parkHighRisk(proposalID, in.SessionID, action.KindProposeBillPay, in.BillerID, in.Amount)
		return proposeResult(proposalID, assessment, highRiskScript, "")
	}

	tok := p.tokens.Issue(token.IssueInput{
		ProposalID: proposalID,
		SessionID:  in.SessionID,
		ActionKind: action.KindProposeBillPay,
		TargetID:   in.BillerID,
		Amount:     in.Amount,
	})
	script := billPaymentScript(in.BillerName, in.DueDate, in.Amount, in.AccountName, surfacedReasons(assessment))
	return proposeResult(proposalID, assessment, script, tok)
}

// ConfirmResult is the resolution of an utterance against a HIGH-risk
// pending record.
type ConfirmResult struct {
	Status         ConfirmStatus
	AssistantLines []string
	Token          string // set only on StatusConfirmed
}

// HandleSpokenConfirmation resolves a follow-up utterance for a HIGH-risk
// proposal. Cancel words always cancel, whether or not a record exists; an
// unknown or wrong-session proposal id is ignored; anything short of the
// strong-confirmation phrase re-issues the warning; the phrase itself mints
// the token and releases the record.
func (p *Policy) HandleSpokenConfirmation(sessionID, proposalID, utterance string) ConfirmResult {
	if utteranceCancels(utterance) {
		p.dropHighRisk(sessionID, proposalID)
		return ConfirmResult{Status: StatusCancelled, AssistantLines: cancelScript}
	}

	pending, ok := p.lookupHighRisk(sessionID, proposalID)
	if !ok {
		return ConfirmResult{Status: StatusIgnored, AssistantLines: []string{}}
	}

	if !strings.Contains(normalize(utterance), StrongConfirmPhrase) {
		return ConfirmResult{Status: StatusNeedsStrongConfirm, AssistantLines: highRiskScript}
	}

	tok := p.tokens.Issue(token.IssueInput{
		ProposalID: pending.proposalID,
		SessionID:  pending.sessionID,
		ActionKind: pending.actionKind,
		TargetID:   pending.targetID,
		Amount:     pending.amount,
	})
	p.dropHighRisk(sessionID, proposalID)
	return ConfirmResult{Status: StatusConfirmed, AssistantLines: []string{}, Token: tok}
}

// ExecutionError aborts a turn when a token fails to consume. Execution
// must never proceed without a valid, single-use token.
type ExecutionError struct {
	Reason token.Reason
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("confirmation token invalid: %s", e.Reason)
}

// ExecuteInput identifies the confirmed proposal to execute.
type ExecuteInput struct {
	SessionID string
	Token     string
	AccountID string
	TargetID  string // payee id for transfers, bill id for bill payments
	Amount    float64
	Memo      string
}

// ExecuteTransfer consumes the token and, only then, moves the money.
func (p *Policy) ExecuteTransfer(ctx context.Context, in ExecuteInput) (*bank.Transfer, token.Result, error) {
	validation, err := p.consume(in, action.KindProposeTransfer)
	if err != nil {
		return nil, validation, err
	}
	receipt, err := p.bank.CreateTransfer(ctx, in.AccountID, in.TargetID, in.Amount, in.Memo)
	if err != nil {
		return nil, validation, fmt.Errorf("executing transfer: %w", err)
	}
	return receipt, validation, nil
}

// ExecuteBillPayment consumes the token and, only then, pays the bill.
func (p *Policy) ExecuteBillPayment(ctx context.Context, in ExecuteInput) (*bank.BillPayment, token.Result, error) {
	validation, err := p.consume(in, action.KindProposeBillPay)
	if err != nil {
		return nil, validation, err
	}
	receipt, err := p.bank.CreateBillPayment(ctx, in.AccountID, in.TargetID, in.Amount, in.Memo)
	if err != nil {
		return nil, validation, fmt.Errorf("executing bill payment: %w", err)
	}
	return receipt, validation, nil
}

func (p *Policy) consume(in ExecuteInput, kind action.Kind) (token.Result, error) {
	validation := p.tokens.Consume(token.ValidateInput{
		Token:      in.Token,
		SessionID:  in.SessionID,
		ActionKind: kind,
		TargetID:   in.TargetID,
		Amount:     in.Amount,
	})
	if !validation.Valid {
		return validation, &ExecutionError{Reason: validation.Reason}
	}
	return validation, nil
}

func (p *Policy) parkHighRisk(proposalID, sessionID string, kind action.Kind, targetID string, amount float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.highRisk[proposalID] = highRiskPending{
		proposalID: proposalID,
		sessionID:  sessionID,
		actionKind: kind,
		targetID:   targetID,
		amount:     amount,
	}
}

func (p *Policy) lookupHighRisk(sessionID, proposalID string) (highRiskPending, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pending, ok := p.highRisk[proposalID]
	if !ok || pending.sessionID != sessionID {
		return highRiskPending{}, false
	}
	return pending, true
}

// dropHighRisk removes the record only for its owning session, so a cancel
// word in one conversation cannot clear another session's pending action.
func (p *Policy) dropHighRisk(sessionID, proposalID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pending, ok := p.highRisk[proposalID]; ok && pending.sessionID == sessionID {
		delete(p.highRisk, proposalID)
	}
}

func proposeResult(proposalID string, a guard.Assessment, lines []string, tok string) ProposeResult {
	return ProposeResult{
		ProposalID:     proposalID,
		Tier:           a.Tier,
		Score:          a.Score,
		Reasons:        a.Reasons,
		Confirmation:   a.Confirmation,
		AssistantLines: lines,
		Token:          tok,
	}
}

// surfacedReasons returns the reasons to read aloud: MEDIUM scripts surface
// every triggered reason, LOW scripts surface none.
func surfacedReasons(a guard.Assessment) []string {
	if a.Tier == guard.TierLow {
		return nil
	}
	return a.Reasons
}

func normalize(utterance string) string {
	return strings.ToLower(strings.TrimSpace(utterance))
}

func utteranceCancels(utterance string) bool {
	normalized := normalize(utterance)
	for _, word := range cancelWords {
		if strings.Contains(normalized, word) {
			return true
		}
	}
	return false
}
