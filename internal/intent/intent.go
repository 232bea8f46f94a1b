// Package intent turns a raw voice transcript into a validated action
// proposal. The model-backed extractor asks a tool-calling LLM to pick one
// of the declared banking tools; the scripted extractor serves the same
// interface from keyword rules when no model is configured.
package intent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bcharris9/th-26/internal/action"
	"github.com/bcharris9/th-26/internal/llm"
)

// Tool names exposed to the model. These map one-to-one onto action kinds.
const (
	ToolQuerySpend      = "query_spend"
	ToolProposeTransfer = "propose_transfer"
	ToolProposeBillPay  = "propose_bill_pay"
)

// Defaults used when extraction leaves a field empty.
const (
	DefaultPayeeID        = "demo-payee"
	DefaultBillID         = "demo-bill"
	fallbackTransferValue = 25.0
	fallbackBillValue     = 50.0
)

// Extractor produces a validated proposal from a transcript.
type Extractor interface {
	Propose(ctx context.Context, transcript, accountID string) (action.Proposal, error)
}

// Options configures target-id defaults shared by the extractors.
type Options struct {
	SafePayeeID string // target for transfers when the model names none
	SafeBillID  string // target for bill payments when the model names none
}

func (o Options) payeeID() string {
	if o.SafePayeeID != "" {
		return o.SafePayeeID
	}
	return DefaultPayeeID
}

func (o Options) billID() string {
	if o.SafeBillID != "" {
		return o.SafeBillID
	}
	return DefaultBillID
}

// ModelExtractor asks an LLM to choose exactly one tool per turn.
type ModelExtractor struct {
	client   llm.Client
	opts     Options
	fallback Extractor // consulted when the model yields no usable call; may be nil
}

// NewModelExtractor creates a model-backed extractor. fallback may be nil,
// in which case an unusable model response is an error.
func NewModelExtractor(client llm.Client, opts Options, fallback Extractor) *ModelExtractor {
	return &ModelExtractor{client: client, opts: opts, fallback: fallback}
}

func systemPrompt() string {
	return "You are SpendScribe, a voice banking assistant.\n" +
		"Choose exactly one tool to call based on the user request.\n" +
		"Only call tools that are defined. Do not answer with free text."
}

func userPrompt(transcript, accountID string) string {
	return fmt.Sprintf("User transcript: %s\nDefault accountId: %s", transcript, accountID)
}

func toolDeclarations() []llm.FunctionDecl {
	return []llm.FunctionDecl{
		{
			Name:        ToolQuerySpend,
			Description: "Look up spend history for the account, optionally filtered by merchant or date.",
			Parameters: &llm.Schema{
				Type: "object",
				Properties: map[string]*llm.Schema{
					"accountId": {Type: "string"},
					"merchant":  {Type: "string"},
					"since":     {Type: "string", Description: "ISO date or natural language timeframe."},
				},
				Required: []string{"accountId"},
			},
		},
		{
			Name:        ToolProposeTransfer,
			Description: "Propose a transfer to a payee. Requires explicit confirmation before executing.",
			Parameters: &llm.Schema{
				Type: "object",
				Properties: map[string]*llm.Schema{
					"accountId": {Type: "string"},
					"payeeName": {Type: "string"},
					"payeeId":   {Type: "string"},
					"amount":    {Type: "number"},
					"memo":      {Type: "string"},
				},
				Required: []string{"accountId", "amount"},
			},
		},
		{
			Name:        ToolProposeBillPay,
			Description: "Propose paying a bill. Requires explicit confirmation before executing.",
			Parameters: &llm.Schema{
				Type: "object",
				Properties: map[string]*llm.Schema{
					"accountId":  {Type: "string"},
					"billerName": {Type: "string"},
					"billerId":   {Type: "string"},
					"amount":     {Type: "number"},
					"memo":       {Type: "string"},
				},
				Required: []string{"accountId", "amount"},
			},
		},
	}
}

// Propose sends the transcript to the model and maps its tool call onto a
// proposal. Models occasionally ignore the tool instruction and answer with
// JSON text instead; that text is parsed as a last attempt before falling
// back.
func (m *ModelExtractor) Propose(ctx context.Context, transcript, accountID string) (action.Proposal, error) {
	resp, err := m.client.Generate(ctx, llm.GenerateRequest{
		SystemPrompt: systemPrompt(),
		UserPrompt:   userPrompt(transcript, accountID),
		Tools:        toolDeclarations(),
	})
	if err != nil {
		return m.fallBack(ctx, transcript, accountID, err)
	}

	call := resp.FunctionCall
	if call == nil && resp.Text != "" {
		call = textToolCall(resp.Text)
	}
	if call == nil {
		return m.fallBack(ctx, transcript, accountID,
			fmt.Errorf("%w: response contains no tool call", llm.ErrInvalidOutput))
	}

	proposal, err := m.mapCall(call, accountID)
	if err != nil {
		return nil, err
	}
	if err := proposal.Validate(); err != nil {
		return nil, err
	}
	return proposal, nil
}

func (m *ModelExtractor) fallBack(ctx context.Context, transcript, accountID string, cause error) (action.Proposal, error) {
	if m.fallback == nil {
		return nil, cause
	}
	return m.fallback.Propose(ctx, transcript, accountID)
}

// textToolCall salvages a tool call from a free-text answer that happens to
// contain JSON of the form {"name": ..., "args": {...}}.
func textToolCall(text string) *llm.FunctionCall {
	type embedded struct {
		Name string          `json:"name"`
		Args json.RawMessage `json:"args"`
	}
	parsed, err := llm.ExtractJSON[embedded](text, func(e embedded) error {
		if e.Name == "" {
			return fmt.Errorf("missing tool name")
		}
		return nil
	})
	if err != nil {
		return nil
	}
	return &llm.FunctionCall{Name: parsed.Name, Args: parsed.Args}
}

type spendArgs struct {
	AccountID string `json:"accountId"`
	Merchant  string `json:"merchant"`
	Since     string `json:"since"`
}

type transferArgs struct {
	AccountID string  `json:"accountId"`
	PayeeName string  `json:"payeeName"`
	PayeeID   string  `json:"payeeId"`
	Amount    float64 `json:"amount"`
	Memo      string  `json:"memo"`
}

type billPayArgs struct {
	AccountID  string  `json:"accountId"`
	BillerName string  `json:"billerName"`
	BillerID   string  `json:"billerId"`
	Amount     float64 `json:"amount"`
	Memo       string  `json:"memo"`
}

// mapCall converts a tool call into a proposal. The caller-supplied account
// id always wins over whatever the model echoed back; missing targets get
// the configured safe defaults.
func (m *ModelExtractor) mapCall(call *llm.FunctionCall, accountID string) (action.Proposal, error) {
	switch call.Name {
	case ToolQuerySpend:
		var args spendArgs
		decodeArgs(call.Args, &args)
		return action.SpendQuery{
			AccountID: accountID,
			Filters:   action.QueryFilters{Merchant: args.Merchant, Since: args.Since},
		}, nil

	case ToolProposeTransfer:
		var args transferArgs
		decodeArgs(call.Args, &args)
		if args.PayeeID == "" {
			args.PayeeID = m.opts.payeeID()
		}
		if args.Amount <= 0 {
			args.Amount = fallbackTransferValue
		}
		return action.Transfer{
			AccountID: accountID,
			PayeeID:   args.PayeeID,
			PayeeName: args.PayeeName,
			Amount:    args.Amount,
			Memo:      args.Memo,
		}, nil

	case ToolProposeBillPay:
		var args billPayArgs
		decodeArgs(call.Args, &args)
		if args.BillerID == "" {
			args.BillerID = m.opts.billID()
		}
		if args.Amount <= 0 {
			args.Amount = fallbackBillValue
		}
		return action.BillPay{
			AccountID:  accountID,
			BillerID:   args.BillerID,
			BillerName: args.BillerName,
			Amount:     args.Amount,
			Memo:       args.Memo,
		}, nil
	}

	return nil, action.UnknownKindError(call.Name)
}

// decodeArgs tolerates args arriving either as an object or as a JSON
// string wrapping one. Unknown fields are dropped.
func decodeArgs(raw json.RawMessage, out any) {
	if len(raw) == 0 {
		return
	}
	if err := json.Unmarshal(raw, out); err == nil {
		return
	}
	var nested string
	if err := json.Unmarshal(raw, &nested); err == nil {
		_ = json.Unmarshal([]byte(nested), out)
	}
}
