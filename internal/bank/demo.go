package bank

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Demo scenario constants. These mirror the canned dataset used when the
// service runs without live banking credentials.
const (
	DemoAccountID    = "demo-account-001"
	DemoGroceryTotal = 450.0
	DemoBillerName   = "Reliant Energy"
	DemoBillAmount   = 145.20
	DemoBillDueDate  = "October 30th"
	DemoScamAmount   = 2500.0
	DemoScamKeyword  = "irs"
	demoInsufficient = 10000.0
)

// ErrDemoInsufficientFunds simulates a declined transfer in demo mode.
var ErrDemoInsufficientFunds = errors.New("insufficient funds")

// ErrDemoServiceUnavailable simulates a provider outage; triggered by the
// word "fail" in a memo so failure paths can be demonstrated on demand.
var ErrDemoServiceUnavailable = errors.New("bank service unavailable")

// demoGroceryPurchases is the fixed spend history for the demo account.
var demoGroceryPurchases = []Purchase{
	{ID: "demo-purchase-1", PurchaseDate: "2025-12-05", Amount: 120.00, Status: "completed", Description: "Whole Foods"},
	{ID: "demo-purchase-2", PurchaseDate: "2025-12-12", Amount: 72.50, Status: "completed", Description: "Kroger"},
	{ID: "demo-purchase-3", PurchaseDate: "2025-12-19", Amount: 98.75, Status: "completed", Description: "Whole Foods"},
	{ID: "demo-purchase-4", PurchaseDate: "2025-12-26", Amount: 84.25, Status: "completed", Description: "Kroger"},
	{ID: "demo-purchase-5", PurchaseDate: "2025-12-29", Amount: 74.50, Status: "completed", Description: "Whole Foods"},
}

// DemoBank implements Service entirely in memory. It is selected at
// construction time when no banking API key is configured, so business
// logic never branches on demo mode.
type DemoBank struct {
	now func() time.Time
}

// NewDemoBank creates a demo bank. now is injectable for tests; nil means
// time.Now.
func NewDemoBank(now func() time.Time) *DemoBank {
	if now == nil {
		now = time.Now
	}
	return &DemoBank{now: now}
}

func (d *DemoBank) CreateTransfer(_ context.Context, accountID, payeeID string, amount float64, memo string) (*Transfer, error) {
	if err := demoGuards(amount, memo); err != nil {
		return nil, err
	}
	return &Transfer{
		ID:              "demo-transfer-" + uuid.NewString(),
		TransactionDate: d.now().UTC().Format(time.RFC3339),
		Status:          "completed",
		PayerID:         accountID,
		PayeeID:         payeeID,
		Amount:          amount,
		Description:     memo,
	}, nil
}

func (d *DemoBank) CreateBillPayment(_ context.Context, _, billID string, amount float64, memo string) (*BillPayment, error) {
	if err := demoGuards(amount, memo); err != nil {
		return nil, err
	}
	return &BillPayment{
		ID:          "demo-bill-payment-" + uuid.NewString(),
		BillID:      billID,
		PaymentDate: d.now().UTC().Format(time.RFC3339),
		Amount:      amount,
		Status:      "completed",
	}, nil
}

func (d *DemoBank) GetPurchases(_ context.Context, accountID string) ([]Purchase, error) {
	purchases := make([]Purchase, len(demoGroceryPurchases))
	copy(purchases, demoGroceryPurchases)
	for i := range purchases {
		purchases[i].PayerID = accountID
	}
	return purchases, nil
}

func demoGuards(amount float64, memo string) error {
	if amount > demoInsufficient {
		return fmt.Errorf("%w: amount %.2f exceeds demo balance", ErrDemoInsufficientFunds, amount)
	}
	if strings.Contains(strings.ToLower(memo), "fail") {
		return ErrDemoServiceUnavailable
	}
	return nil
}
