// Package bank is the client for the external banking API that actually
// moves money. The authorization subsystem only ever reaches it through the
// Service interface, after a confirmation token has been consumed.
package bank

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned when the HTTP client is constructed without
// an API key.
var ErrMissingAPIKey = errors.New("bank API key is required")

// Purchase is one spend record on an account. Dates stay in the API's
// string form; nothing in this subsystem does date arithmetic on them.
type Purchase struct {
	ID           string  `json:"_id"`
	MerchantID   string  `json:"merchant_id"`
	PayerID      string  `json:"payer_id"`
	PurchaseDate string  `json:"purchase_date"`
	Amount       float64 `json:"amount"`
	Status       string  `json:"status"`
	Description  string  `json:"description"`
}

// Transfer is the receipt of an executed peer-to-peer transfer.
type Transfer struct {
	ID              string  `json:"_id"`
	TransactionDate string  `json:"transaction_date"`
	Status          string  `json:"status"`
	PayerID         string  `json:"payer_id"`
	PayeeID         string  `json:"payee_id"`
	Amount          float64 `json:"amount"`
	Description     string  `json:"description,omitempty"`
}

// BillPayment is the receipt of an executed bill payment.
type BillPayment struct {
	ID          string  `json:"_id"`
	BillID      string  `json:"bill_id"`
	PaymentDate string  `json:"payment_date"`
	Amount      float64 `json:"amount"`
	Status      string  `json:"status"`
}

// Service is the narrow banking surface the policy layer executes against.
type Service interface {
	CreateTransfer(ctx context.Context, accountID, payeeID string, amount float64, memo string) (*Transfer, error)
	CreateBillPayment(ctx context.Context, accountID, billID string, amount float64, memo string) (*BillPayment, error)
	GetPurchases(ctx context.Context, accountID string) ([]Purchase, error)
}
