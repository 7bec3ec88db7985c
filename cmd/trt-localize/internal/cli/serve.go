package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/faultloc/cmd/trt-localize/internal/session"
	"github.com/example/faultloc/cmd/trt-localize/internal/ui"
	"github.com/example/faultloc/internal/observability"
	"github.com/example/faultloc/internal/storage/sqlite"
	"github.com/example/faultloc/internal/web"
)

var (
	serveAddr string
	serveDB   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recorded runs over HTTP",
	Long: `Serve the runs recorded in a result database as a JSON API.

ENDPOINTS:
  GET /api/runs/              recorded runs, newest first
  GET /api/runs/{id}          a run with its combinations
  GET /api/runs/{id}/results  inputs executed by a run
  GET /metrics                process metrics

EXAMPLES:
  # Serve the session database
  trt-localize serve

  # Serve a shared database on another port
  trt-localize serve --db /var/lib/faultloc.db --addr :9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:8080", "listen address")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "result database (default: the session database)")
}

func runServe(cmd *cobra.Command, args []string) error {
	dbPath := serveDB
	if dbPath == "" {
		if sess, err := session.Load(workDir); err == nil {
			dbPath = sess.DatabasePath
		} else {
			dbPath = session.DefaultDatabasePath(workDir)
		}
	}
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("no result database at %s", dbPath)
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate storage: %w", err)
	}

	server := web.NewServer(serveAddr, store,
		web.WithLogger(logger),
		web.WithMetrics(observability.NewMetrics()))

	ui.PrintSuccess(fmt.Sprintf("Serving %s on http://%s", dbPath, serveAddr))
	ui.PrintInfo("Press Ctrl+C to stop")
	return server.Serve(ctx)
}
