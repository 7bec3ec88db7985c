// Command trt-localize finds the parameter combinations that make a test
// fail.
package main

import (
	"os"

	"github.com/example/faultloc/cmd/trt-localize/internal/cli"
	"github.com/example/faultloc/cmd/trt-localize/internal/ui"
)

func main() {
	if err := cli.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
