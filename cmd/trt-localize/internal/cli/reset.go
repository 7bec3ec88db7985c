package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/faultloc/cmd/trt-localize/internal/session"
	"github.com/example/faultloc/cmd/trt-localize/internal/ui"
	"github.com/example/faultloc/internal/storage/sqlite"
)

var (
	force bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset and clean up the current session",
	Long: `Reset the current localization session and clean up all data.

This command removes the session state and the cached results of the
session's model, so that every input is executed again next time.

WARNING: This cannot be undone! All cached results will be lost.

EXAMPLES:
  # Reset with confirmation prompt
  trt-localize reset

  # Force reset without confirmation
  trt-localize reset --force`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
}

func runReset(cmd *cobra.Command, args []string) error {
	if !session.Exists(workDir) {
		ui.PrintInfo("No active session found")
		return nil
	}

	sess, err := session.Load(workDir)
	if err != nil {
		ui.PrintWarning("Warning: could not load session details")
	} else {
		ui.PrintInfo(fmt.Sprintf("Run: %s", sess.ID))
		ui.PrintInfo(fmt.Sprintf("Model: %s", sess.ModelName))
		ui.PrintInfo(fmt.Sprintf("Status: %s", sess.Status))
		ui.PrintInfo("")
	}

	if !force {
		if !ui.Confirm("Are you sure you want to reset? All cached results will be lost.") {
			ui.PrintInfo("Reset cancelled")
			return nil
		}
	}

	// A database outside the session directory may be shared; only drop
	// this model's results from it.
	if sess != nil && !inDir(sess.DatabasePath, session.GetSessionDir(workDir)) {
		ui.PrintStep("Dropping cached results")
		n, err := dropResults(sess)
		if err != nil {
			return err
		}
		ui.PrintInfo(fmt.Sprintf("%d cached result(s) removed", n))
	}

	ui.PrintStep("Removing session data")
	if err := session.Delete(workDir); err != nil {
		return err
	}

	ui.PrintSuccess("Session reset complete")
	return nil
}

func dropResults(sess *session.Session) (int64, error) {
	ctx := context.Background()
	store, err := sqlite.New(sess.DatabasePath)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	uow, err := store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer uow.Rollback()

	n, err := uow.Results().DeleteByModel(ctx, sess.ModelName)
	if err != nil {
		return 0, err
	}
	if err := uow.Runs().Delete(ctx, sess.ID); err != nil {
		return 0, err
	}
	return n, uow.Commit()
}

func inDir(path, dir string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
