package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bcharris9/th-26/internal/httpapi"
	"github.com/spf13/cobra"
)

// sweepInterval is how often expired pending actions and idle sessions are
// reaped in serve mode.
const sweepInterval = time.Minute

// maxSessionIdle is how long an untouched conversation survives.
const maxSessionIdle = 30 * time.Minute

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = app.Cfg.Addr
			}
			return runServe(cmd.Context(), app, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from SPENDSCRIBE_ADDR)")
	return cmd
}

func runServe(ctx context.Context, app *App, addr string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := &httpapi.Server{Turns: app.Turns, Traces: app.Traces}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go sweepLoop(ctx, app)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	fmt.Printf("spendscribe listening on %s\n", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// sweepLoop periodically evicts expired pending actions and idle sessions.
// Token validation stays purely time-based; the sweep only bounds memory.
func sweepLoop(ctx context.Context, app *App) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			app.Pending.SweepExpired(now, app.Cfg.TokenExpiry)
			app.Sessions.SweepIdle(now, maxSessionIdle)
		}
	}
}
