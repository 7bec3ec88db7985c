package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/faultloc/cmd/trt-localize/internal/ui"
	"github.com/example/faultloc/localize/domain"
	"github.com/example/faultloc/localize/lattice"
)

var (
	inspectParams    int
	inspectThreshold int
	inspectCeiling   int
	inspectTimeout   time.Duration
)

var inspectCmd = &cobra.Command{
	Use:   "inspect --params N",
	Short: "Build the identification lattice for N parameters and describe it",
	Long: `Build the lattice of sub-combinations searched for a model with N
parameters and print its shape.

Models with more parameters than the large-model threshold only get the
layers whose size stays within the layer ceiling.

EXAMPLES:
  # Describe the lattice of a 10-parameter model
  trt-localize inspect --params 10

  # Check how a tighter ceiling shapes a 40-parameter lattice
  trt-localize inspect --params 40 --ceiling 10000`,
	RunE: runInspect,
}

func init() {
	defaults := domain.DefaultConfig()
	inspectCmd.Flags().IntVarP(&inspectParams, "params", "n", 0, "number of model parameters")
	inspectCmd.Flags().IntVar(&inspectThreshold, "threshold", defaults.LargeModelThreshold, "parameter count above which layers are bounded")
	inspectCmd.Flags().IntVar(&inspectCeiling, "ceiling", defaults.LayerCeiling, "maximum subsets per layer for large models")
	inspectCmd.Flags().DurationVar(&inspectTimeout, "timeout", defaults.BuildTimeout, "lattice build timeout")
	_ = inspectCmd.MarkFlagRequired("params")
}

func runInspect(cmd *cobra.Command, args []string) error {
	config := domain.DefaultConfig()
	config.LargeModelThreshold = inspectThreshold
	config.LayerCeiling = inspectCeiling
	config.BuildTimeout = inspectTimeout
	if err := config.Validate(); err != nil {
		return err
	}

	ui.PrintHeader("Lattice")
	ui.PrintInfo(fmt.Sprintf("Parameters: %d", inspectParams))
	ui.PrintInfo(fmt.Sprintf("Largest subset size: %d",
		lattice.MaxSubsetSize(inspectParams, config.LargeModelThreshold, config.LayerCeiling)))
	ui.PrintInfo("")

	ui.PrintStep("Building lattice")
	start := time.Now()
	l, err := lattice.NewBuilder(config, lattice.WithLogger(logger)).Build(context.Background(), inspectParams)
	if err != nil {
		return fmt.Errorf("failed to build lattice: %w", err)
	}
	ui.PrintSuccess(fmt.Sprintf("Built in %s", ui.FormatDuration(time.Since(start))))
	ui.PrintInfo("")

	rows := make([][]string, 0, l.NumLayers())
	for i := 0; i < l.NumLayers(); i++ {
		layer := l.Layer(i)
		size := "-"
		if len(layer) > 0 {
			size = strconv.Itoa(l.Node(layer[0]).Subset.Len())
		}
		rows = append(rows, []string{strconv.Itoa(i), size, strconv.Itoa(len(layer))})
	}
	ui.PrintTable([]string{"LAYER", "SUBSET SIZE", "NODES"}, rows)

	ui.PrintInfo("")
	ui.PrintInfo(fmt.Sprintf("Nodes: %d", l.Len()))
	ui.PrintInfo(fmt.Sprintf("Longest path: %d nodes", l.MaxPathLength()))
	return nil
}
