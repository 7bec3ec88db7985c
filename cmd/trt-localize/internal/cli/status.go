package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/faultloc/cmd/trt-localize/internal/session"
	"github.com/example/faultloc/cmd/trt-localize/internal/ui"
	"github.com/example/faultloc/internal/storage"
	"github.com/example/faultloc/internal/storage/sqlite"
)

var historyLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of the current session",
	Long: `Display the current localization session and its results.

Also lists the most recent runs recorded in the session database.

EXAMPLES:
  # Show status
  trt-localize status

  # Show the last 20 runs
  trt-localize status --history 20`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&historyLimit, "history", 5, "number of recorded runs to list")
}

func runStatus(cmd *cobra.Command, args []string) error {
	sess, err := session.Load(workDir)
	if err != nil {
		return err
	}

	ui.PrintHeader("Fault Localization Status")

	ui.PrintInfo(fmt.Sprintf("Run ID: %s", sess.ID))
	ui.PrintInfo(fmt.Sprintf("Created: %s", sess.CreatedAt.Format("2006-01-02 15:04:05")))
	ui.PrintInfo(fmt.Sprintf("Updated: %s", sess.UpdatedAt.Format("2006-01-02 15:04:05")))
	ui.PrintInfo("")
	ui.PrintInfo(fmt.Sprintf("Model: %s (%s)", sess.ModelName, sess.ModelPath))
	ui.PrintInfo(fmt.Sprintf("Test command: %s", sess.Command))
	ui.PrintInfo(fmt.Sprintf("Test timeout: %s", sess.Timeout))
	if sess.ExceptionExitCode != 0 {
		ui.PrintInfo(fmt.Sprintf("Exception exit code: %d", sess.ExceptionExitCode))
	}

	ui.PrintSummary(sess.Executions, sess.CacheHits, sess.Rounds, sess.UpdatedAt.Sub(sess.CreatedAt), sess.Status)

	switch sess.Status {
	case session.StatusCompleted:
		ui.PrintHeader("Results")
		printFindings(sess)
	case session.StatusFailed:
		ui.PrintError(fmt.Sprintf("Localization failed: %s", sess.Error))
	}

	if err := printHistory(cmd.Context(), sess); err != nil {
		ui.PrintWarning(fmt.Sprintf("Warning: could not read run history: %v", err))
	}

	ui.PrintInfo("")
	ui.PrintHeader("Next Steps")
	switch sess.Status {
	case session.StatusRunning, session.StatusFailed:
		ui.PrintInfo("Run the same 'trt-localize run' command again to resume")
		ui.PrintInfo("Cached results are reused, nothing is executed twice")
	case session.StatusCompleted:
		ui.PrintInfo("Review the combinations above")
		ui.PrintInfo("Run 'trt-localize reset' to start over")
	}
	return nil
}

// printHistory lists the latest runs recorded in the session database.
func printHistory(ctx context.Context, sess *session.Session) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := os.Stat(sess.DatabasePath); err != nil {
		return nil
	}

	store, err := sqlite.New(sess.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	uow, err := store.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Rollback()

	runs, err := uow.Runs().List(ctx, storage.ListOptions{Limit: historyLimit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		combos, err := uow.Combinations().List(ctx, run.ID)
		if err != nil {
			return err
		}
		confirmed := 0
		for _, c := range combos {
			if c.Confirmed {
				confirmed++
			}
		}
		rows = append(rows, []string{
			run.ID,
			run.ModelName,
			run.Phase.String(),
			fmt.Sprintf("%d", run.Executions),
			fmt.Sprintf("%d", confirmed),
			run.UpdatedAt.Local().Format(time.DateTime),
		})
	}

	ui.PrintHeader("Recent Runs")
	ui.PrintTable([]string{"RUN", "MODEL", "PHASE", "EXECUTED", "CONFIRMED", "UPDATED"}, rows)
	return nil
}
