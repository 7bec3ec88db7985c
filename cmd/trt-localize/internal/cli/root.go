package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose bool
	workDir string
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "trt-localize",
	Short: "Find the parameter combinations that make a test fail",
	Long: `trt-localize identifies failure-inducing combinations of test parameters.

It executes a test command once per parameter assignment, passing the values
in FAULTLOC_<PARAM> environment variables. When an assignment fails, it
searches the lattice of its sub-combinations to find the minimal ones that
cause the failure, verifies them in dissimilar assignments, and excludes
them from further testing.

Every assignment is executed at most once: results are cached in a local
database and reused across runs of the same model.

WORKFLOW:
  1. Describe the parameters in a model file (YAML)
  2. trt-localize run --model model.yaml -- <test-command>
  3. trt-localize status  (review results)
  4. trt-localize reset   (cleanup)

EXAMPLES:
  # Localize failures of a browser matrix
  trt-localize run --model browsers.yaml -- ./e2e.sh

  # Treat exit code 42 as a declared constraint violation
  trt-localize run --model api.yaml --exception-exit-code 42 -- make check

  # Show how large the search lattice is for 20 parameters
  trt-localize inspect --params 20`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var config zap.Config
		if verbose {
			config = zap.NewDevelopmentConfig()
		} else {
			config = zap.NewProductionConfig()
			config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		}
		l, err := config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&workDir, "dir", ".", "directory holding the session state")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
