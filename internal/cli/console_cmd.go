package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/bcharris9/th-26/internal/cli/formatter"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newConsoleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive conversation REPL",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.IsInteractive != nil && !app.IsInteractive() {
				return fmt.Errorf("console requires an interactive terminal; use 'spendscribe turn' instead")
			}
			p := tea.NewProgram(newConsoleModel(app))
			_, err := p.Run()
			return err
		},
	}
}

// consoleModel is the bubbletea Model for the conversation REPL. One program
// run is one session: every utterance goes through the same session ID so
// pending confirmations carry across prompts.
type consoleModel struct {
	input     textinput.Model
	app       *App
	sessionID string
	quitting  bool
}

func newConsoleModel(app *App) consoleModel {
	ti := textinput.New()
	ti.Focus()
	ti.Prompt = ""
	ti.CharLimit = 500

	return consoleModel{
		input:     ti,
		app:       app,
		sessionID: "sess_" + uuid.NewString(),
	}
}

func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tea.Println(formatter.FormatConsoleWelcome(m.sessionID)),
	)
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - len(promptPrefix()) - 1
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case tea.KeyEnter:
			utterance := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if utterance == "" {
				return m, nil
			}
			if utterance == "exit" || utterance == "quit" {
				m.quitting = true
				return m, tea.Quit
			}

			result := m.app.Turns.HandleTurn(context.Background(), m.sessionID, utterance)
			return m, tea.Println(
				promptPrefix() + utterance + "\n" + formatter.FormatTurn(result),
			)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m consoleModel) View() string {
	if m.quitting {
		return formatter.Dim("Goodbye.") + "\n"
	}
	return promptPrefix() + m.input.View()
}

func promptPrefix() string {
	return formatter.StyleBlue.Render("you") + " " + formatter.Dim("❯") + " "
}
