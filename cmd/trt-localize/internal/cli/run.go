package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/faultloc/cmd/trt-localize/internal/session"
	"github.com/example/faultloc/cmd/trt-localize/internal/ui"
	"github.com/example/faultloc/internal/observability"
	"github.com/example/faultloc/internal/storage/sqlite"
	"github.com/example/faultloc/localize/domain"
	"github.com/example/faultloc/localize/modelfile"
	"github.com/example/faultloc/localize/runner"
)

var (
	modelPath         string
	databasePath      string
	exceptionExitCode int
	testTimeout       time.Duration
	randomSeed        int64
	showMetrics       bool
)

var runCmd = &cobra.Command{
	Use:   "run --model <model.yaml> -- <test-command>",
	Short: "Localize the failure-inducing combinations of a model",
	Long: `Run a localization session for the given model and test command.

The test command runs through /bin/sh once per parameter assignment, with
every value exported as FAULTLOC_<PARAM>. Exit code 0 is a pass; the exit
code given by --exception-exit-code marks a declared constraint violation;
any other exit code or a timeout is a failure.

Results are cached in the session database, so an interrupted run can be
repeated without executing any assignment twice.

EXAMPLES:
  # Run the suite of a model
  trt-localize run --model model.yaml -- ./test.sh

  # Custom database, timeout and seed
  trt-localize run --model model.yaml --db /tmp/cache.db --timeout 2m --seed 7 -- make test`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&modelPath, "model", "m", "", "model file (YAML)")
	runCmd.Flags().StringVar(&databasePath, "db", "", "result cache database (default .trt-localize/faultloc.db)")
	runCmd.Flags().IntVar(&exceptionExitCode, "exception-exit-code", 0, "exit code of a declared constraint violation (0 = none)")
	runCmd.Flags().DurationVar(&testTimeout, "timeout", 10*time.Minute, "timeout for a single test execution")
	runCmd.Flags().Int64Var(&randomSeed, "seed", 0, "random seed for input synthesis (0 = model file or random)")
	runCmd.Flags().BoolVar(&showMetrics, "metrics", false, "print execution metrics when done")
	_ = runCmd.MarkFlagRequired("model")
}

// loadModel reads a model file and resolves its model and configuration.
func loadModel(path string) (*modelfile.File, *domain.TestModel, domain.Config, error) {
	file, err := modelfile.Load(path)
	if err != nil {
		return nil, nil, domain.Config{}, err
	}
	model, err := file.Model()
	if err != nil {
		return nil, nil, domain.Config{}, err
	}
	config := file.Apply(domain.DefaultConfig())
	if err := config.Validate(); err != nil {
		return nil, nil, domain.Config{}, err
	}
	return file, model, config, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			ui.PrintWarning("\nInterrupted! Results so far are cached.")
			ui.PrintInfo("Run the same command again to resume without re-executing.")
			cancel()
		case <-ctx.Done():
		}
	}()

	file, model, config, err := loadModel(modelPath)
	if err != nil {
		return err
	}
	if randomSeed != 0 {
		config.RandomSeed = randomSeed
	}
	forbidden, err := file.ForbiddenTuples(model)
	if err != nil {
		return err
	}
	suite, err := file.SuiteInputs(model)
	if err != nil {
		return err
	}

	dbPath := databasePath
	if dbPath == "" {
		dbPath = session.DefaultDatabasePath(workDir)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	ui.PrintHeader("Running Fault Localization")
	ui.PrintInfo(fmt.Sprintf("Model: %s (%d parameters, strength %d)",
		model.Name, model.NumParameters(), model.EffectiveStrength()))
	ui.PrintInfo(fmt.Sprintf("Suite: %d inputs, %d forbidden tuples", len(suite), len(forbidden)))
	ui.PrintInfo(fmt.Sprintf("Test command: %s", strings.Join(args, " ")))
	ui.PrintInfo("")

	ui.PrintStep("Initializing database")
	store, err := sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate storage: %w", err)
	}
	ui.PrintSuccess("Database ready")

	ui.PrintStep("Building identification lattice")
	metrics := observability.NewMetrics()
	manager, err := runner.NewDefault(ctx, model, suite, forbidden, config,
		runner.WithLogger(logger),
		runner.WithMetrics(metrics),
		runner.WithRecorder(runner.NewStoreRecorder(store)))
	if err != nil {
		return fmt.Errorf("failed to prepare localization: %w", err)
	}
	ui.PrintSuccess(fmt.Sprintf("Lattice ready (%s)",
		ui.FormatDuration(metrics.LatticeBuildDuration().Snapshot().Max)))

	command := strings.Join(args, " ")
	sess := session.New(manager.RunID(), modelPath, model.Name, command, dbPath, testTimeout, exceptionExitCode)
	sess.Status = session.StatusRunning
	if err := sess.Save(workDir); err != nil {
		return err
	}

	executor := runner.NewCommandExecutor(model, runner.ExecConfig{
		Command:           command,
		Timeout:           testTimeout,
		ExceptionExitCode: exceptionExitCode,
	})
	cache := runner.NewStoreCache(store, model.Name, manager.RunID())

	ui.PrintHeader("Executing Tests")
	start := time.Now()
	report, err := manager.Run(ctx, executor, cache)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		sess.Status = session.StatusFailed
		sess.Error = err.Error()
		if saveErr := sess.Save(workDir); saveErr != nil {
			logger.Warn("failed to save session", zap.Error(saveErr))
		}
		return fmt.Errorf("localization failed: %w", err)
	}
	elapsed := time.Since(start)

	sess.Status = session.StatusCompleted
	sess.Executions = report.Executions
	sess.CacheHits = report.CacheHits
	sess.Rounds = report.Rounds
	sess.Discarded = len(report.Discarded)
	sess.Confirmed = findings(model, report)
	if err := sess.Save(workDir); err != nil {
		ui.PrintWarning(fmt.Sprintf("Warning: failed to save results: %v", err))
	}

	ui.PrintSuccess("Localization complete!")
	ui.PrintHeader("Results")
	ui.PrintSummary(report.Executions, report.CacheHits, report.Rounds, elapsed, sess.Status)
	printFindings(sess)

	if showMetrics {
		ui.PrintHeader("Metrics")
		metrics.WriteText(os.Stdout)
	}

	ui.PrintInfo("")
	ui.PrintInfo("Use 'trt-localize reset' to clean up and start over")
	return nil
}

// findings converts the confirmed combinations of a report for display.
func findings(model *domain.TestModel, report *domain.Report) []ui.Finding {
	var out []ui.Finding
	for _, ic := range report.Confirmed.Sorted() {
		f := ui.Finding{
			Key:         ic.Combination.Key(),
			Description: model.Describe(ic.Combination),
			Kind:        ic.Kind.String(),
		}
		if class, ok := report.ExceptionClasses[f.Key]; ok {
			f.Exception = fmt.Sprintf("%s (%d/%d checks)", class.Type, class.Votes, class.Checks)
		}
		out = append(out, f)
	}
	return out
}

func printFindings(sess *session.Session) {
	ui.PrintInfo("")
	if len(sess.Confirmed) == 0 {
		ui.PrintWarning("No inducing combinations identified!")
		ui.PrintInfo("")
		ui.PrintInfo("Possible reasons:")
		ui.PrintInfo("  - Every input in the suite passed")
		ui.PrintInfo("  - Failures were flaky and every candidate was discarded")
		ui.PrintInfo("  - The test command does not read the FAULTLOC_* variables")
		return
	}
	ui.PrintSuccess(fmt.Sprintf("Found %d inducing combination(s):", len(sess.Confirmed)))
	for i, f := range sess.Confirmed {
		ui.PrintFinding(f, i+1)
	}
	if sess.Discarded > 0 {
		ui.PrintInfo("")
		ui.PrintInfo(fmt.Sprintf("%d candidate(s) discarded as false positives", sess.Discarded))
	}
}
