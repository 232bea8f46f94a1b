package voice

import (
	"github.com/bcharris9/th-26/internal/action"
)

// Trace outcomes. Every turn ends in exactly one of these.
const (
	OutcomeNoTranscript = "no_transcript"
	OutcomeOK           = "ok"
	OutcomePending      = "pending_confirmation"
	OutcomeBlocked      = "blocked"
	OutcomeCancelled    = "cancelled"
	OutcomeExecuted     = "executed"
	OutcomeFailed       = "failed"
	OutcomeRejected     = "rejected"
)

// Confirmation states surfaced in the trace.
const (
	ConfirmStateNone        = "none"
	ConfirmStatePending     = "pending"
	ConfirmStateNeedsStrong = "needs_strong_confirm"
	ConfirmStateConfirmed   = "confirmed"
	ConfirmStateCancelled   = "cancelled"
	ConfirmStateFailed      = "failed"
)

// Trace is the structured decision record for one turn: which tool the turn
// resolved to, whether money moved, and why. It is what the audit trail and
// the demo "judge" panel consume.
type Trace struct {
	Tool                 string         `json:"tool"`
	Args                 map[string]any `json:"args"`
	Executed             bool           `json:"executed"`
	RiskLevel            string         `json:"riskLevel,omitempty"`
	RiskScore            int            `json:"riskScore"`
	Reasons              []string       `json:"reasons,omitempty"`
	RequiresConfirmation bool           `json:"requiresConfirmation"`
	ConfirmationState    string         `json:"confirmationState,omitempty"`
	Outcome              string         `json:"outcome,omitempty"`
}

// TurnResult is the full outcome of one voice turn.
type TurnResult struct {
	Transcript     string   `json:"transcript"`
	AssistantLines []string `json:"assistantLines"`
	AssistantText  string   `json:"assistantText"`
	Trace          Trace    `json:"judge"`
}

// proposalArgs flattens a proposal into the trace args map.
func proposalArgs(p action.Proposal) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	switch v := p.(type) {
	case action.SpendQuery:
		args := map[string]any{"accountId": v.AccountID}
		if v.Filters.Merchant != "" {
			args["merchant"] = v.Filters.Merchant
		}
		if v.Filters.Since != "" {
			args["since"] = v.Filters.Since
		}
		return args
	case action.Transfer:
		return moneyArgs(v.AccountID, v.PayeeID, v.Amount, v.Memo)
	case action.BillPay:
		return moneyArgs(v.AccountID, v.BillerID, v.Amount, v.Memo)
	}
	return map[string]any{}
}

func moneyArgs(accountID, targetID string, amount float64, memo string) map[string]any {
	args := map[string]any{
		"accountId": accountID,
		"targetId":  targetID,
		"amount":    amount,
	}
	if memo != "" {
		args["memo"] = memo
	}
	return args
}

func traceTool(p action.Proposal) string {
	if p == nil {
		return "UNKNOWN"
	}
	return string(p.Kind())
}
