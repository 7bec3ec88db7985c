// Command trt-lint runs static analysis on faultloc API usage.
//
// Usage:
//
//	trt-lint ./...
//
// This tool detects common mistakes when building subsets and
// combinations by hand:
//   - Negative or duplicate literal indices passed to lattice.SubsetOf()
//   - Non-positive literal sizes passed to domain.NewCombination()
//   - Empty keys passed to domain.ParseCombination()
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/example/faultloc/pkg/lint"
)

func main() {
	singlechecker.Main(lint.Analyzer)
}
