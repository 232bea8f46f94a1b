// Package cli wires the spendscribe command tree: an HTTP server, an
// interactive console, one-shot turns, and the audit listing.
package cli

import (
	"github.com/bcharris9/th-26/internal/audit"
	"github.com/bcharris9/th-26/internal/config"
	"github.com/bcharris9/th-26/internal/session"
	"github.com/bcharris9/th-26/internal/voice"
	"github.com/spf13/cobra"
)

// App holds the wired services the CLI commands run against.
type App struct {
	Cfg      config.Config
	Turns    *voice.Handler
	Traces   *audit.Store
	Pending  *session.PendingStore
	Sessions *session.VoiceStore

	// IsInteractive reports whether stdin is a terminal.
	IsInteractive func() bool
}

// NewRootCmd creates the top-level "spendscribe" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "spendscribe",
		Short: "Voice banking assistant with risk-scored confirmation",
	}

	root.AddCommand(
		newServeCmd(app),
		newConsoleCmd(app),
		newTurnCmd(app),
		newAuditCmd(app),
	)

	return root
}
