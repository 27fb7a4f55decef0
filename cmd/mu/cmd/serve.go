package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/whunmr/mu/internal/api"
	"github.com/whunmr/mu/internal/indexer"
	"github.com/whunmr/mu/internal/query"
	"github.com/whunmr/mu/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the search API with scheduled re-indexing",
	Long: `Run mu as a long-running daemon serving the HTTP search API.

When [schedule] is enabled the maildir root is re-indexed on that schedule:
  [schedule]
  cron = "*/15 * * * *"
  enabled = true

Cron format: minute hour day-of-month month day-of-week

Use Ctrl+C to stop the daemon gracefully.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Server.ValidateSecure(); err != nil {
		return err
	}

	s, err := openIndexForWrite()
	if err != nil {
		return err
	}
	defer s.Close()

	engine, err := query.New(s, query.WithLogger(logger))
	if err != nil {
		return err
	}

	root := cfg.Maildir.Root
	ix := indexer.New(s, indexerOptions())
	sched := scheduler.New(func(ctx context.Context) (*indexer.Stats, error) {
		return ix.Run(ctx, root)
	}).WithLogger(logger)

	if cfg.Schedule.Enabled {
		if err := sched.SetSchedule(cfg.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule: %w", err)
		}
	}
	sched.Start()

	apiServer := api.NewServer(cfg, engine, s, sched, logger)
	serverErr := make(chan error, 1)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	out := cmd.OutOrStdout()
	bindAddr := cfg.Server.BindAddr
	if bindAddr == "" {
		bindAddr = "127.0.0.1"
	}
	fmt.Fprintf(out, "mu daemon started\n")
	fmt.Fprintf(out, "  API server:   http://%s\n", net.JoinHostPort(bindAddr, strconv.Itoa(cfg.Server.APIPort)))
	fmt.Fprintf(out, "  Maildir root: %s\n", root)
	fmt.Fprintf(out, "  Index:        %s\n", s.Path())
	if st := sched.Status(); st.Schedule != "" {
		fmt.Fprintf(out, "  Next index:   %s (%s)\n", st.NextRun.Local().Format("2006-01-02 15:04:05"), st.Schedule)
	}
	fmt.Fprintln(out, "Press Ctrl+C to stop.")

	ctx := cmd.Context()
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-serverErr:
		logger.Error("API server error", "error", err)
		runErr = err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown error", "error", err)
	}

	select {
	case <-sched.Stop().Done():
	case <-time.After(30 * time.Second):
		logger.Warn("shutdown timed out waiting for the index run")
	}
	return runErr
}
