package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/faultloc/cmd/trt-localize/internal/ui"
)

const (
	version = "0.3.0"
	banner  = `
  _        _     _                 _ _
 | |_ _ __| |_  | | ___   ___ __ _| (_)_______
 | __| '__| __| | |/ _ \ / __/ _' | | |_  / _ \
 | |_| |  | |_  | | (_) | (_| (_| | | |/ /  __/
  \__|_|   \__| |_|\___/ \___\__,_|_|_/___\___|
`
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the version of trt-localize.`,
	Run:   runVersion,
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Print(banner, "\n")
	ui.PrintInfo(fmt.Sprintf("Version: %s", version))
	ui.PrintInfo("Tuple-relationship-tree fault localization for combinatorial tests")
	ui.PrintInfo("")
	ui.PrintInfo("For help: trt-localize --help")
}
