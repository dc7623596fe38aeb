// Package loopcall detects per-item store lookups inside loops.
package loopcall

import (
	"go/ast"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer detects store lookups inside loops that should be a single query.
var Analyzer = &analysis.Analyzer{
	Name:     "loopcall",
	Doc:      "detects store lookups inside loops that should be a single query",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

// lookupMethods are store reads keyed by a single id.
var lookupMethods = map[string]bool{
	"FindRelationship":         true,
	"FindRelationshipByTriple": true,
	"RelationshipExists":       true,
	"FindMembership":           true,
	"FindCollective":           true,
	"FindRelationshipsFrom":    true,
	"FindMembershipsByContact": true,
}

func run(pass *analysis.Pass) (any, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.RangeStmt)(nil),
		(*ast.ForStmt)(nil),
	}

	inspect.Preorder(nodeFilter, func(n ast.Node) {
		var body *ast.BlockStmt
		switch stmt := n.(type) {
		case *ast.RangeStmt:
			body = stmt.Body
		case *ast.ForStmt:
			body = stmt.Body
		}
		if body == nil {
			return
		}

		ast.Inspect(body, func(n ast.Node) bool {
			// Closures handed to a worker group run concurrently, not per iteration
			if _, ok := n.(*ast.FuncLit); ok {
				return false
			}

			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}

			if name := sel.Sel.Name; lookupMethods[name] {
				pass.Reportf(call.Pos(),
					"potential N+1: %s called inside loop - query the set once",
					name)
			}

			return true
		})
	})

	return nil, nil
}
