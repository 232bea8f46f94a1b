package cli

import (
	"fmt"
	"strings"

	"github.com/bcharris9/th-26/internal/cli/formatter"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func newTurnCmd(app *App) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "turn [utterance]",
		Short: "Run a single conversation turn",
		Long: `Run one utterance through the assistant and print the response
plus its decision trace. Pass --session to continue an earlier
conversation, e.g. to confirm a pending payment.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			utterance := ""
			if len(args) > 0 {
				utterance = strings.TrimSpace(args[0])
			}

			if utterance == "" {
				if app.IsInteractive == nil || !app.IsInteractive() {
					return fmt.Errorf("utterance required: spendscribe turn \"send $40 to alice\"")
				}
				var err error
				utterance, err = promptForUtterance()
				if err != nil {
					return err
				}
			}

			result := app.Turns.HandleTurn(cmd.Context(), sessionID, utterance)
			fmt.Println(formatter.FormatTurn(result))
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "sess_cli", "session ID (reuse to continue a conversation)")
	return cmd
}

func promptForUtterance() (string, error) {
	var utterance string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("What would you like to do?").
				Placeholder("send $40 to alice").
				Value(&utterance).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("say something")
					}
					return nil
				}),
		),
	).WithShowHelp(false)

	if err := form.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(utterance), nil
}
