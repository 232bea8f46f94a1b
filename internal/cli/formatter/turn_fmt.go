package formatter

import (
	"fmt"
	"strings"

	"github.com/bcharris9/th-26/internal/audit"
	"github.com/bcharris9/th-26/internal/voice"
)

// FormatTurn renders one completed turn: the assistant's lines followed by
// a dim one-line trace summary.
func FormatTurn(result voice.TurnResult) string {
	var b strings.Builder

	for _, line := range result.AssistantLines {
		style := StyleFg
		if result.Trace.Outcome == voice.OutcomeBlocked ||
			(result.Trace.Outcome == voice.OutcomePending && result.Trace.RiskLevel == "HIGH") {
			style = StyleRed
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	b.WriteString(traceSummary(result.Trace))
	return strings.TrimRight(b.String(), "\n")
}

func traceSummary(trace voice.Trace) string {
	parts := []string{fmt.Sprintf("tool=%s", trace.Tool)}
	if trace.RiskLevel != "" {
		parts = append(parts, fmt.Sprintf("risk=%s(%d)", trace.RiskLevel, trace.RiskScore))
	}
	if trace.ConfirmationState != "" {
		parts = append(parts, fmt.Sprintf("confirmation=%s", trace.ConfirmationState))
	}
	parts = append(parts, fmt.Sprintf("outcome=%s", trace.Outcome))

	summary := Dim("· " + strings.Join(parts, " "))
	if trace.RiskLevel != "" {
		summary += " " + TierIndicator(trace.RiskLevel)
	}
	return summary
}

// FormatAuditEntry renders one persisted trace for the audit listing.
func FormatAuditEntry(e audit.Entry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n",
		Dim(e.CreatedAt.Format("2006-01-02 15:04:05")),
		Bold(e.SessionID))
	fmt.Fprintf(&b, "  %s %s\n", Dim("user:"), e.Transcript)
	fmt.Fprintf(&b, "  %s %s\n", Dim("assistant:"), e.AssistantText)

	line := fmt.Sprintf("  %s tool=%s outcome=%s", Dim("trace:"), e.Trace.Tool, e.Trace.Outcome)
	if e.Trace.RiskLevel != "" {
		line += fmt.Sprintf(" %s score=%d", TierIndicator(e.Trace.RiskLevel), e.Trace.RiskScore)
	}
	if e.Trace.Executed {
		line += " " + StyleGreen.Render("executed")
	}
	b.WriteString(line)

	for _, reason := range e.Trace.Reasons {
		b.WriteString("\n    " + StyleYellow.Render("• "+reason))
	}
	return b.String()
}

// FormatConsoleWelcome renders the console greeting.
func FormatConsoleWelcome(sessionID string) string {
	var b strings.Builder
	b.WriteString(Header("SpendScribe Console"))
	b.WriteString("\n")
	b.WriteString(Dim(fmt.Sprintf("session %s — type an utterance, 'exit' to quit", sessionID)))
	return b.String()
}
