// Package errwrap detects fmt.Errorf calls that format an error without %w.
//
// Store and engine errors are matched with errors.Is against sentinels such
// as ErrNotFound, so formatting one with %v or %s breaks the chain.
package errwrap

import (
	"go/ast"
	"go/constant"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
	"golang.org/x/tools/go/types/typeutil"
)

// Analyzer detects fmt.Errorf calls that drop the error chain.
var Analyzer = &analysis.Analyzer{
	Name:     "errwrap",
	Doc:      "detects fmt.Errorf calls that format an error argument without %w",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

var errorType = types.Universe.Lookup("error").Type().Underlying().(*types.Interface)

func run(pass *analysis.Pass) (any, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.CallExpr)(nil),
	}

	inspect.Preorder(nodeFilter, func(n ast.Node) {
		call := n.(*ast.CallExpr)
		fn, ok := typeutil.Callee(pass.TypesInfo, call).(*types.Func)
		if !ok || fn.FullName() != "fmt.Errorf" || len(call.Args) < 2 {
			return
		}

		format := pass.TypesInfo.Types[call.Args[0]].Value
		if format == nil || format.Kind() != constant.String {
			return
		}
		verbs := strings.Count(constant.StringVal(format), "%w")

		errArgs := 0
		for _, arg := range call.Args[1:] {
			t := pass.TypesInfo.TypeOf(arg)
			if t != nil && types.Implements(t, errorType) {
				errArgs++
			}
		}

		if errArgs > verbs {
			pass.Reportf(call.Pos(),
				"error formatted without %%w - errors.Is will not see it")
		}
	})

	return nil, nil
}
