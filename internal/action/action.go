// Package action defines the structured money-movement proposals that enter
// the authorization subsystem. Untrusted structured data (the output of
// intent extraction) is converted into a tagged variant and validated here,
// before it can reach the policy layer.
package action

import "fmt"

// Kind discriminates the proposal variants.
type Kind string

const (
	KindQuerySpend      Kind = "QUERY_SPEND"
	KindProposeTransfer Kind = "PROPOSE_TRANSFER"
	KindProposeBillPay  Kind = "PROPOSE_BILL_PAY"
)

// IsValidKind returns true if the given kind is known.
func IsValidKind(k Kind) bool {
	switch k {
	case KindQuerySpend, KindProposeTransfer, KindProposeBillPay:
		return true
	}
	return false
}

// IsMoneyMovement returns true for variants that move money and therefore
// require confirmation before execution.
func IsMoneyMovement(k Kind) bool {
	return k == KindProposeTransfer || k == KindProposeBillPay
}

// Proposal is the sealed set of action variants. Each variant carries only
// the fields valid for it; query filters exist only on the spend query.
type Proposal interface {
	Kind() Kind
	Account() string
	Validate() error
}

// QueryFilters narrows a spend query.
type QueryFilters struct {
	Merchant string
	Since    string
}

// SpendQuery is a read-only spend-history lookup.
type SpendQuery struct {
	AccountID string
	Filters   QueryFilters
}

func (q SpendQuery) Kind() Kind      { return KindQuerySpend }
func (q SpendQuery) Account() string { return q.AccountID }

func (q SpendQuery) Validate() error {
	if q.AccountID == "" {
		return schemaError("spend query requires accountId")
	}
	return nil
}

// Transfer proposes moving money to a payee.
type Transfer struct {
	AccountID string
	PayeeID   string
	PayeeName string
	Amount    float64
	Memo      string
}

func (t Transfer) Kind() Kind      { return KindProposeTransfer }
func (t Transfer) Account() string { return t.AccountID }

func (t Transfer) Validate() error {
	if t.AccountID == "" {
		return schemaError("transfer requires accountId")
	}
	if t.PayeeID == "" {
		return schemaError("transfer requires a payee")
	}
	if t.Amount <= 0 {
		return schemaError(fmt.Sprintf("transfer amount must be positive, got %v", t.Amount))
	}
	return nil
}

// BillPay proposes paying a bill.
type BillPay struct {
	AccountID  string
	BillerID   string
	BillerName string
	Amount     float64
	Memo       string
}

func (b BillPay) Kind() Kind      { return KindProposeBillPay }
func (b BillPay) Account() string { return b.AccountID }

func (b BillPay) Validate() error {
	if b.AccountID == "" {
		return schemaError("bill payment requires accountId")
	}
	if b.BillerID == "" {
		return schemaError("bill payment requires a biller")
	}
	if b.Amount <= 0 {
		return schemaError(fmt.Sprintf("bill payment amount must be positive, got %v", b.Amount))
	}
	return nil
}

// TargetID returns the payee or biller id for money-movement variants,
// or "" for queries.
func TargetID(p Proposal) string {
	switch v := p.(type) {
	case Transfer:
		return v.PayeeID
	case BillPay:
		return v.BillerID
	}
	return ""
}

// Amount returns the proposed amount for money-movement variants, or 0.
func Amount(p Proposal) float64 {
	switch v := p.(type) {
	case Transfer:
		return v.Amount
	case BillPay:
		return v.Amount
	}
	return 0
}

// Memo returns the free-text memo for money-movement variants, or "".
func Memo(p Proposal) string {
	switch v := p.(type) {
	case Transfer:
		return v.Memo
	case BillPay:
		return v.Memo
	}
	return ""
}

// ErrorCode enumerates proposal rejection reasons.
type ErrorCode string

const (
	ErrCodeSchemaMismatch ErrorCode = "SCHEMA_MISMATCH"
	ErrCodeUnknownKind    ErrorCode = "UNKNOWN_KIND"
)

// Error is a structured rejection produced at the validation boundary.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func schemaError(msg string) *Error {
	return &Error{Code: ErrCodeSchemaMismatch, Message: msg}
}

// UnknownKindError reports an unrecognized action kind from extraction.
func UnknownKindError(kind string) *Error {
	return &Error{Code: ErrCodeUnknownKind, Message: "unknown action kind: " + kind}
}
