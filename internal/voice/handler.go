// Package voice is the per-turn state machine of the assistant. Each
// incoming utterance is interpreted against the session's pending action:
// cancellations clear it, confirmations execute it, and anything else is
// treated as a brand-new proposal run through intent extraction and the
// money-movement policy.
package voice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bcharris9/th-26/internal/action"
	"github.com/bcharris9/th-26/internal/bank"
	"github.com/bcharris9/th-26/internal/guard"
	"github.com/bcharris9/th-26/internal/intent"
	"github.com/bcharris9/th-26/internal/policy"
	"github.com/bcharris9/th-26/internal/session"
)

// Fixed assistant lines for turn-level outcomes. Execution failures never
// leak internal reasons into the spoken response.
const (
	noTranscriptLine    = "I didn't catch that. Please try again."
	executionFailedLine = "Sorry, something went wrong while executing that request."
	notUnderstoodLine   = "Sorry, I couldn't understand that request. Could you rephrase?"
	paymentCompleteLine = "Confirmed. The payment is now complete."
)

var cancelPhrases = []string{"cancel", "stop", "no", "never mind"}

// TraceSink receives every completed turn for the audit trail.
type TraceSink interface {
	Record(ctx context.Context, sessionID string, result TurnResult) error
}

// Config wires a Handler. Sessions, Policy, Intents, and Bank are required;
// Sink and Observer are optional.
type Config struct {
	AccountID string
	DemoMode  bool
	Sessions  *session.VoiceStore
	Policy    *policy.Policy
	Intents   intent.Extractor
	Bank      bank.Service
	Sink      TraceSink
	Observer  Observer
}

// Handler drives one conversation turn at a time.
type Handler struct {
	cfg Config
}

// NewHandler creates a turn handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Observer == nil {
		cfg.Observer = NoopObserver{}
	}
	return &Handler{cfg: cfg}
}

// HandleTurn interprets one utterance and returns the spoken response plus
// the decision trace. It never returns an error: failures become apologetic
// scripts with outcome "failed" or "rejected" in the trace.
func (h *Handler) HandleTurn(ctx context.Context, sessionID, transcript string) TurnResult {
	start := time.Now()
	result := h.handle(ctx, sessionID, strings.TrimSpace(transcript))
	result.AssistantText = strings.Join(result.AssistantLines, " ")

	if h.cfg.Sink != nil {
		// Audit persistence is observability, not authorization: a sink
		// failure must not fail the turn.
		_ = h.cfg.Sink.Record(ctx, sessionID, result)
	}
	h.cfg.Observer.OnTurnComplete(TurnEvent{
		SessionID: sessionID,
		Tool:      result.Trace.Tool,
		Outcome:   result.Trace.Outcome,
		Executed:  result.Trace.Executed,
		LatencyMs: time.Since(start).Milliseconds(),
	})
	return result
}

func (h *Handler) handle(ctx context.Context, sessionID, transcript string) TurnResult {
	if transcript == "" {
		return TurnResult{
			AssistantLines: []string{noTranscriptLine},
			Trace:          Trace{Tool: "NONE", Args: map[string]any{}, Outcome: OutcomeNoTranscript},
		}
	}

	sess := h.cfg.Sessions.Snapshot(sessionID)
	if sess.Pending != nil {
		if utteranceCancels(transcript) {
			return h.cancelPending(transcript, sessionID, sess)
		}
		if sess.Pending.Tier == guard.TierHigh {
			result, handled := h.resolveHighRisk(ctx, transcript, sessionID, sess)
			if handled {
				return result
			}
			// No matching policy record: fall through to a fresh proposal.
		} else if sess.Pending.Token != "" {
			return h.executePending(ctx, transcript, sessionID, *sess.Pending, sess.Pending.Token)
		}
	}

	return h.proposeNew(ctx, transcript, sessionID)
}

// cancelPending clears session and policy state and reads the cancel
// script, regardless of risk tier.
func (h *Handler) cancelPending(transcript, sessionID string, sess session.VoiceSession) TurnResult {
	confirmation := h.cfg.Policy.HandleSpokenConfirmation(sessionID, sess.Pending.ProposalID, transcript)
	h.cfg.Sessions.ClearPending(sessionID)

	return TurnResult{
		Transcript:     transcript,
		AssistantLines: confirmation.AssistantLines,
		Trace: Trace{
			Tool:              traceTool(sess.LastAction),
			Args:              proposalArgs(sess.LastAction),
			ConfirmationState: ConfirmStateCancelled,
			Outcome:           OutcomeCancelled,
		},
	}
}

// resolveHighRisk runs the spoken-confirmation protocol for a HIGH pending
// action. Returns handled=false when the policy no longer knows the
// proposal, in which case the utterance is treated as a new request.
func (h *Handler) resolveHighRisk(ctx context.Context, transcript, sessionID string, sess session.VoiceSession) (TurnResult, bool) {
	pending := *sess.Pending
	confirmation := h.cfg.Policy.HandleSpokenConfirmation(sessionID, pending.ProposalID, transcript)

	switch confirmation.Status {
	case policy.StatusNeedsStrongConfirm:
		return TurnResult{
			Transcript:     transcript,
			AssistantLines: confirmation.AssistantLines,
			Trace: Trace{
				Tool:                 traceTool(pending.Proposal),
				Args:                 proposalArgs(pending.Proposal),
				RiskLevel:            string(pending.Tier),
				RiskScore:            pending.Score,
				Reasons:              pending.Reasons,
				RequiresConfirmation: true,
				ConfirmationState:    ConfirmStateNeedsStrong,
				Outcome:              OutcomeBlocked,
			},
		}, true

	case policy.StatusConfirmed:
		return h.executePending(ctx, transcript, sessionID, pending, confirmation.Token), true
	}

	h.cfg.Sessions.ClearPending(sessionID)
	return TurnResult{}, false
}

// executePending consumes the token and moves the money. Both token
// failures and bank failures surface as the same generic apology.
func (h *Handler) executePending(ctx context.Context, transcript, sessionID string, pending session.PendingVoiceAction, tok string) TurnResult {
	in := policy.ExecuteInput{
		SessionID: sessionID,
		Token:     tok,
		AccountID: pending.Proposal.Account(),
		TargetID:  action.TargetID(pending.Proposal),
		Amount:    action.Amount(pending.Proposal),
		Memo:      action.Memo(pending.Proposal),
	}

	var err error
	switch pending.Proposal.Kind() {
	case action.KindProposeTransfer:
		_, _, err = h.cfg.Policy.ExecuteTransfer(ctx, in)
	case action.KindProposeBillPay:
		_, _, err = h.cfg.Policy.ExecuteBillPayment(ctx, in)
	default:
		err = fmt.Errorf("pending action %s is not executable", pending.Proposal.Kind())
	}

	trace := Trace{
		Tool:                 traceTool(pending.Proposal),
		Args:                 proposalArgs(pending.Proposal),
		RiskLevel:            string(pending.Tier),
		RiskScore:            pending.Score,
		Reasons:              pending.Reasons,
		RequiresConfirmation: true,
	}

	if err != nil {
		trace.ConfirmationState = ConfirmStateFailed
		trace.Outcome = OutcomeFailed
		return TurnResult{
			Transcript:     transcript,
			AssistantLines: []string{executionFailedLine},
			Trace:          trace,
		}
	}

	h.cfg.Sessions.ClearPending(sessionID)
	trace.Executed = true
	trace.ConfirmationState = ConfirmStateConfirmed
	trace.Outcome = OutcomeExecuted
	return TurnResult{
		Transcript:     transcript,
		AssistantLines: []string{paymentCompleteLine},
		Trace:          trace,
	}
}

// proposeNew extracts an intent from the transcript and either answers a
// query or runs the proposal through the policy.
func (h *Handler) proposeNew(ctx context.Context, transcript, sessionID string) TurnResult {
	proposal, err := h.cfg.Intents.Propose(ctx, transcript, h.cfg.AccountID)
	if err != nil {
		return TurnResult{
			Transcript:     transcript,
			AssistantLines: []string{notUnderstoodLine},
			Trace:          Trace{Tool: "UNKNOWN", Args: map[string]any{}, Outcome: OutcomeRejected},
		}
	}

	h.cfg.Sessions.RecordTurn(sessionID, transcript, proposal)

	switch v := proposal.(type) {
	case action.SpendQuery:
		return h.answerSpendQuery(ctx, transcript, v)
	case action.Transfer:
		return h.proposeTransfer(transcript, sessionID, v)
	case action.BillPay:
		return h.proposeBillPayment(transcript, sessionID, v)
	}

	return TurnResult{
		Transcript:     transcript,
		AssistantLines: []string{notUnderstoodLine},
		Trace:          Trace{Tool: traceTool(proposal), Args: proposalArgs(proposal), Outcome: OutcomeRejected},
	}
}

func (h *Handler) answerSpendQuery(ctx context.Context, transcript string, query action.SpendQuery) TurnResult {
	trace := Trace{
		Tool:              traceTool(query),
		Args:              proposalArgs(query),
		RiskLevel:         string(guard.TierLow),
		Reasons:           []string{},
		ConfirmationState: ConfirmStateNone,
		Outcome:           OutcomeOK,
	}

	if h.cfg.DemoMode {
		line := fmt.Sprintf("You spent about $%.0f on groceries this month.", bank.DemoGroceryTotal)
		if query.Filters.Merchant != "" {
			line = fmt.Sprintf("You spent about $%.0f at %s this month across 5 purchases.",
				bank.DemoGroceryTotal, query.Filters.Merchant)
		}
		return TurnResult{Transcript: transcript, AssistantLines: []string{line}, Trace: trace}
	}

	purchases, err := h.cfg.Bank.GetPurchases(ctx, query.AccountID)
	if err != nil {
		trace.Outcome = OutcomeFailed
		return TurnResult{
			Transcript:     transcript,
			AssistantLines: []string{executionFailedLine},
			Trace:          trace,
		}
	}

	total := 0.0
	count := 0
	for _, p := range purchases {
		if query.Filters.Merchant != "" &&
			!strings.Contains(strings.ToLower(p.Description), strings.ToLower(query.Filters.Merchant)) {
			continue
		}
		total += p.Amount
		count++
	}

	line := fmt.Sprintf("You spent $%.2f across %d purchases.", total, count)
	if query.Filters.Merchant != "" {
		line = fmt.Sprintf("You spent $%.2f at %s across %d purchases.", total, query.Filters.Merchant, count)
	}
	return TurnResult{Transcript: transcript, AssistantLines: []string{line}, Trace: trace}
}

func (h *Handler) proposeTransfer(transcript, sessionID string, transfer action.Transfer) TurnResult {
	if transfer.PayeeName == "" {
		transfer.PayeeName = intent.DerivePayeeName(transcript)
	}

	risk := h.riskContext(transfer, transcript)
	proposed := h.cfg.Policy.ProposeTransfer(policy.TransferInput{
		SessionID: sessionID,
		AccountID: transfer.AccountID,
		PayeeID:   transfer.PayeeID,
		PayeeName: transfer.PayeeName,
		Amount:    transfer.Amount,
		Memo:      transfer.Memo,
		Risk:      risk,
	})

	return h.recordProposal(transcript, sessionID, transfer, proposed)
}

func (h *Handler) proposeBillPayment(transcript, sessionID string, bill action.BillPay) TurnResult {
	if bill.BillerName == "" {
		bill.BillerName = bank.DemoBillerName
	}

	risk := h.riskContext(bill, transcript)
	proposed := h.cfg.Policy.ProposeBillPayment(policy.BillPaymentInput{
		SessionID:   sessionID,
		AccountID:   bill.AccountID,
		BillerID:    bill.BillerID,
		BillerName:  bill.BillerName,
		Amount:      bill.Amount,
		DueDate:     bank.DemoBillDueDate,
		AccountName: "Checking",
		Memo:        bill.Memo,
		Risk:        risk,
	})

	return h.recordProposal(transcript, sessionID, bill, proposed)
}

func (h *Handler) recordProposal(transcript, sessionID string, proposal action.Proposal, proposed policy.ProposeResult) TurnResult {
	h.cfg.Sessions.SetPending(sessionID, session.PendingVoiceAction{
		ProposalID: proposed.ProposalID,
		Proposal:   proposal,
		Tier:       proposed.Tier,
		Score:      proposed.Score,
		Reasons:    proposed.Reasons,
		Token:      proposed.Token,
	})

	return TurnResult{
		Transcript:     transcript,
		AssistantLines: proposed.AssistantLines,
		Trace: Trace{
			Tool:                 traceTool(proposal),
			Args:                 proposalArgs(proposal),
			RiskLevel:            string(proposed.Tier),
			RiskScore:            proposed.Score,
			Reasons:              proposed.Reasons,
			RequiresConfirmation: true,
			ConfirmationState:    ConfirmStatePending,
			Outcome:              OutcomePending,
		},
	}
}

// riskContext derives the scorer inputs. Demo mode uses the canned history
// that makes the scripted scenarios reproduce; live mode uses neutral
// defaults until a real history source exists.
func (h *Handler) riskContext(proposal action.Proposal, transcript string) policy.RiskContext {
	if h.cfg.DemoMode && proposal.Kind() == action.KindProposeTransfer {
		highRisk := action.Amount(proposal) >= bank.DemoScamAmount ||
			strings.Contains(strings.ToLower(transcript), bank.DemoScamKeyword)
		if highRisk {
			return policy.RiskContext{IsNewTarget: true, AvgAmount30d: 125, RecentOutgoingCount: 4, ProjectedBalance: 20}
		}
		return policy.RiskContext{IsNewTarget: true, AvgAmount30d: 40, RecentOutgoingCount: 1, ProjectedBalance: 800}
	}
	if h.cfg.DemoMode && proposal.Kind() == action.KindProposeBillPay {
		return policy.RiskContext{IsNewTarget: false, AvgAmount30d: 120, RecentOutgoingCount: 1, ProjectedBalance: 450}
	}
	return policy.RiskContext{IsNewTarget: true, AvgAmount30d: 100, RecentOutgoingCount: 1, ProjectedBalance: 500}
}

func utteranceCancels(transcript string) bool {
	normalized := strings.ToLower(strings.TrimSpace(transcript))
	for _, phrase := range cancelPhrases {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}
