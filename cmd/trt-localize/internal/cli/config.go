package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/example/faultloc/cmd/trt-localize/internal/ui"
	"github.com/example/faultloc/localize/domain"
)

var configModelPath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective localization configuration",
	Long: `Show the configuration a run would use.

Without --model the built-in defaults are shown. With --model the config
block of the model file is applied on top of them.

EXAMPLES:
  # Show defaults
  trt-localize config

  # Show the configuration of a model file
  trt-localize config --model model.yaml`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().StringVarP(&configModelPath, "model", "m", "", "model file (YAML)")
}

func runConfig(cmd *cobra.Command, args []string) error {
	config := domain.DefaultConfig()
	source := "defaults"
	if configModelPath != "" {
		_, model, c, err := loadModel(configModelPath)
		if err != nil {
			return err
		}
		config = c
		source = fmt.Sprintf("%s (%s)", configModelPath, model.Name)
	}

	ui.PrintHeader("Configuration")
	ui.PrintInfo(fmt.Sprintf("Source: %s", source))
	ui.PrintInfo("")
	ui.PrintTable([]string{"SETTING", "VALUE"}, configRows(config))
	return nil
}

func configRows(c domain.Config) [][]string {
	workers := strconv.Itoa(c.Workers)
	if c.Workers == 0 {
		workers = "0 (one per CPU)"
	}
	seed := strconv.FormatInt(c.RandomSeed, 10)
	if c.RandomSeed == 0 {
		seed = "0 (random)"
	}
	return [][]string{
		{"max_iterations", strconv.Itoa(c.MaxIterations)},
		{"large_model_threshold", strconv.Itoa(c.LargeModelThreshold)},
		{"layer_ceiling", strconv.Itoa(c.LayerCeiling)},
		{"build_timeout", c.BuildTimeout.String()},
		{"search_timeout", c.SearchTimeout.String()},
		{"workers", workers},
		{"synthesis_attempts", strconv.Itoa(c.SynthesisAttempts)},
		{"verification_threshold", strconv.Itoa(c.VerificationThreshold)},
		{"empty_combination_threshold", strconv.Itoa(c.EmptyCombinationThreshold)},
		{"classification_checks", strconv.Itoa(c.ClassificationChecks)},
		{"max_restarts", strconv.Itoa(c.MaxRestarts)},
		{"enable_classification", strconv.FormatBool(c.EnableClassification)},
		{"random_seed", seed},
	}
}
