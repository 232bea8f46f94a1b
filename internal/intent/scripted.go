package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/bcharris9/th-26/internal/action"
)

// knownPayees maps transcript keywords to spoken payee names for the
// scripted path. First match wins.
var knownPayees = []struct {
	keyword string
	name    string
}{
	{"alice", "Alice"},
	{"uncle bob", "Uncle Bob"},
}

// DerivePayeeName guesses a displayable payee name from the transcript,
// falling back to a generic label.
func DerivePayeeName(transcript string) string {
	normalized := strings.ToLower(transcript)
	for _, p := range knownPayees {
		if strings.Contains(normalized, p.keyword) {
			return p.name
		}
	}
	return "Payee"
}

var amountPattern = regexp.MustCompile(`\$?(\d+(?:\.\d{1,2})?)`)

// parseAmount pulls the first dollar amount out of a transcript. Returns 0
// when no number is present.
func parseAmount(transcript string) float64 {
	match := amountPattern.FindStringSubmatch(transcript)
	if match == nil {
		return 0
	}
	amount, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}
	return amount
}

// ScriptedExtractor maps transcripts to proposals with keyword rules. It
// backs demo deployments and serves as the fallback when the model yields
// nothing usable.
type ScriptedExtractor struct {
	opts Options
}

// NewScriptedExtractor creates a scripted extractor.
func NewScriptedExtractor(opts Options) *ScriptedExtractor {
	return &ScriptedExtractor{opts: opts}
}

func (s *ScriptedExtractor) Propose(_ context.Context, transcript, accountID string) (action.Proposal, error) {
	normalized := strings.ToLower(transcript)

	if strings.Contains(normalized, "whole foods") ||
		strings.Contains(normalized, "kroger") ||
		strings.Contains(normalized, "spend") {
		filters := action.QueryFilters{}
		switch {
		case strings.Contains(normalized, "whole foods"):
			filters.Merchant = "Whole Foods"
		case strings.Contains(normalized, "kroger"):
			filters.Merchant = "Kroger"
		}
		if strings.Contains(normalized, "month") {
			filters.Since = "this month"
		}
		proposal := action.SpendQuery{AccountID: accountID, Filters: filters}
		return proposal, proposal.Validate()
	}

	if strings.Contains(normalized, "bill") {
		amount := parseAmount(normalized)
		if amount <= 0 {
			amount = 145.20
		}
		billerName := "Bill Payment"
		if strings.Contains(normalized, "electric") {
			billerName = "Electric Bill"
		}
		proposal := action.BillPay{
			AccountID:  accountID,
			BillerID:   s.opts.billID(),
			BillerName: billerName,
			Amount:     amount,
		}
		return proposal, proposal.Validate()
	}

	amount := parseAmount(normalized)
	if amount <= 0 {
		amount = fallbackTransferValue
	}
	memo := ""
	if strings.Contains(normalized, "irs") {
		memo = "IRS"
	}
	proposal := action.Transfer{
		AccountID: accountID,
		PayeeID:   s.opts.payeeID(),
		PayeeName: DerivePayeeName(transcript),
		Amount:    amount,
		Memo:      memo,
	}
	return proposal, proposal.Validate()
}
