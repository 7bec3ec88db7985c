// Package lint provides static analysis checks for the faultloc API.
//
// This analyzer detects common mistakes when building lattice subsets and
// combinations by hand:
//   - Negative literal indices passed to lattice.SubsetOf(), which are
//     silently ignored
//   - Duplicate literal indices passed to lattice.SubsetOf()
//   - Non-positive literal sizes passed to domain.NewCombination() and
//     lattice.FullSubset()
//   - Empty string literals passed to domain.ParseCombination()
//
// Usage:
//
//	go install github.com/example/faultloc/cmd/trt-lint@latest
//	trt-lint ./...
package lint

import (
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer is the trt lint analyzer.
var Analyzer = &analysis.Analyzer{
	Name:     "trtlint",
	Doc:      "checks for common lattice and combination construction mistakes",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{(*ast.CallExpr)(nil)}
	inspect.Preorder(nodeFilter, func(n ast.Node) {
		call := n.(*ast.CallExpr)
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return
		}

		switch importedFrom(pass, sel) {
		case "lattice":
			switch sel.Sel.Name {
			case "SubsetOf":
				checkSubsetIndices(pass, call)
			case "FullSubset":
				checkPositiveSize(pass, call, "FullSubset")
			}
		case "domain":
			switch sel.Sel.Name {
			case "NewCombination":
				checkPositiveSize(pass, call, "NewCombination")
			case "ParseCombination":
				checkEmptyStringArg(pass, call, "ParseCombination")
			}
		}
	})

	return nil, nil
}

// importedFrom returns the last path element of the package a qualified
// call refers to, or "" for method calls and local functions.
func importedFrom(pass *analysis.Pass, sel *ast.SelectorExpr) string {
	pkg, ok := sel.X.(*ast.Ident)
	if !ok {
		return ""
	}
	name, ok := pass.TypesInfo.Uses[pkg].(*types.PkgName)
	if !ok {
		return ""
	}
	path := name.Imported().Path()
	return path[strings.LastIndex(path, "/")+1:]
}

// checkSubsetIndices reports negative and duplicate literal indices.
func checkSubsetIndices(pass *analysis.Pass, call *ast.CallExpr) {
	if call.Ellipsis.IsValid() {
		return
	}
	seen := make(map[int64]token.Pos)
	for _, arg := range call.Args {
		v, ok := intConstant(pass, arg)
		if !ok {
			continue
		}
		if v < 0 {
			pass.Reportf(arg.Pos(), "SubsetOf called with negative index %d - it will be ignored", v)
			continue
		}
		if prev, exists := seen[v]; exists {
			pass.Reportf(arg.Pos(), "duplicate index %d in SubsetOf (first seen at %v)", v, pass.Fset.Position(prev))
			continue
		}
		seen[v] = arg.Pos()
	}
}

// checkPositiveSize reports a constant first argument below one.
func checkPositiveSize(pass *analysis.Pass, call *ast.CallExpr, funcName string) {
	if len(call.Args) == 0 {
		return
	}
	if v, ok := intConstant(pass, call.Args[0]); ok && v < 1 {
		pass.Reportf(call.Args[0].Pos(), "%s called with non-positive size %d", funcName, v)
	}
}

// checkEmptyStringArg reports if the first argument is an empty string literal.
func checkEmptyStringArg(pass *analysis.Pass, call *ast.CallExpr, funcName string) {
	if len(call.Args) == 0 {
		return
	}
	if lit, ok := call.Args[0].(*ast.BasicLit); ok && lit.Kind == token.STRING {
		if lit.Value == `""` || lit.Value == "``" {
			pass.Reportf(lit.Pos(), "%s called with empty string literal - always fails", funcName)
		}
	}
}

// intConstant returns the value of a constant integer expression.
func intConstant(pass *analysis.Pass, expr ast.Expr) (int64, bool) {
	tv, ok := pass.TypesInfo.Types[expr]
	if !ok || tv.Value == nil || tv.Value.Kind() != constant.Int {
		return 0, false
	}
	return constant.Int64Val(tv.Value)
}
