package main

import (
	"fmt"
	"os"

	"github.com/bcharris9/th-26/internal/audit"
	"github.com/bcharris9/th-26/internal/bank"
	"github.com/bcharris9/th-26/internal/cli"
	"github.com/bcharris9/th-26/internal/config"
	"github.com/bcharris9/th-26/internal/guard"
	"github.com/bcharris9/th-26/internal/intent"
	"github.com/bcharris9/th-26/internal/llm"
	"github.com/bcharris9/th-26/internal/policy"
	"github.com/bcharris9/th-26/internal/session"
	"github.com/bcharris9/th-26/internal/token"
	"github.com/bcharris9/th-26/internal/voice"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	database, err := audit.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening audit database: %w", err)
	}
	defer database.Close()
	traces := audit.NewStore(database, nil)

	pending := session.NewPendingStore()
	sessions := session.NewVoiceStore(nil)

	tokens, err := token.NewService(pending, token.Config{
		Secret: cfg.ConfirmationSecret,
		Expiry: cfg.TokenExpiry,
	})
	if err != nil {
		return err
	}

	bankSvc, demoMode, err := buildBank(cfg)
	if err != nil {
		return err
	}
	accountID := cfg.DemoAccountID
	if accountID == "" && demoMode {
		accountID = bank.DemoAccountID
	}

	pol := policy.New(
		guard.NewScorer(guard.DefaultWeights()),
		tokens,
		bankSvc,
		func() string { return "prop_" + uuid.NewString() },
	)

	var turnObserver voice.Observer
	if cfg.LogCalls {
		turnObserver = voice.NewLogObserver(os.Stderr)
	}
	handler := voice.NewHandler(voice.Config{
		AccountID: accountID,
		DemoMode:  demoMode,
		Sessions:  sessions,
		Policy:    pol,
		Intents:   buildExtractor(cfg, demoMode),
		Bank:      bankSvc,
		Sink:      traces,
		Observer:  turnObserver,
	})

	app := &cli.App{
		Cfg:      cfg,
		Turns:    handler,
		Traces:   traces,
		Pending:  pending,
		Sessions: sessions,
	}
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	return cli.NewRootCmd(app).Execute()
}

// buildBank selects the banking backend. Demo mode, or a missing API key,
// gets the deterministic in-memory bank; otherwise the hosted sandbox API.
func buildBank(cfg config.Config) (bank.Service, bool, error) {
	if cfg.DemoMode || cfg.BankAPIKey == "" {
		return bank.NewDemoBank(nil), true, nil
	}
	client, err := bank.NewClient(bank.ClientConfig{
		BaseURL: cfg.BankAPIBase,
		APIKey:  cfg.BankAPIKey,
	})
	if err != nil {
		return nil, false, err
	}
	return client, false, nil
}

// buildExtractor selects the intent provider. Without a model API key the
// scripted extractor serves alone; with one, the model extractor runs with
// the scripted rules as its fallback.
func buildExtractor(cfg config.Config, demoMode bool) intent.Extractor {
	opts := intent.Options{
		SafePayeeID: cfg.SafeTransferPayeeID,
		SafeBillID:  cfg.SafeBillID,
	}
	scripted := intent.NewScriptedExtractor(opts)

	llmCfg := llm.LoadConfig()
	if demoMode || llmCfg.APIKey == "" {
		return scripted
	}

	var observer llm.Observer
	if cfg.LogCalls {
		observer = llm.NewLogObserver(os.Stderr)
	}
	client, err := llm.NewGeminiClient(llmCfg, observer)
	if err != nil {
		return scripted
	}
	return intent.NewModelExtractor(client, opts, scripted)
}
