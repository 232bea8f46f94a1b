package policy

import "fmt"

// StrongConfirmPhrase is the literal acknowledgment a HIGH-risk action
// requires before any token is minted.
const StrongConfirmPhrase = "i confirm this payment"

// cancelWords are matched as case-insensitive substrings of an utterance.
var cancelWords = []string{"cancel", "no", "stop", "wait"}

// highRiskScript is the fixed warning read for every HIGH-tier proposal.
var highRiskScript = []string{
	"Wait.",
	"I've flagged this transaction as High Risk.",
	"It's an unusually large amount for a new recipient.",
	"I've paused the transfer.",
	"Please review the red warning on your screen.",
	"To proceed, you must explicitly say: 'I confirm this payment'.",
}

// cancelScript confirms that nothing was executed.
var cancelScript = []string{
	"Understood. I've cancelled that request. No money was moved.",
	"Is there anything else I can help you with?",
}

func formatCurrency(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// transferScript explains the proposed transfer, surfaces any triggered risk
// reasons in natural language, and asks for a yes/no. LOW-tier proposals use
// the same script with no reasons to surface.
func transferScript(amount float64, payeeName string, reasons []string) []string {
	lines := []string{
		fmt.Sprintf("I've set up a transfer of %s to %s.", formatCurrency(amount), payeeName),
	}
	lines = append(lines, reasons...)
	lines = append(lines, "Would you like me to send it now?")
	return lines
}

// billPaymentScript explains the pending bill and asks for a yes/no.
func billPaymentScript(billerName, dueDate string, amount float64, accountName string, reasons []string) []string {
	lines := []string{
		fmt.Sprintf("I found a pending bill for %s due on %s for %s.", billerName, dueDate, formatCurrency(amount)),
		fmt.Sprintf("I can pay that from your %s account.", accountName),
	}
	lines = append(lines, reasons...)
	lines = append(lines, "Shall I schedule that payment?")
	return lines
}
