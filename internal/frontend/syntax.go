package frontend

import (
	"fmt"
	"go/ast"
	"strconv"
	"strings"
)

// exprOf unwraps a bare expression statement, the form every recognized
// scope header and the reserved Pow call take.
func exprOf(stmt ast.Stmt) (ast.Expr, bool) {
	es, ok := stmt.(*ast.ExprStmt)
	if !ok {
		return nil, false
	}
	return es.X, true
}

// asScopeSlice recognizes `Ident[lo:hi]`, the shape shared by the innermost
// subscript of both Vertical[lo:hi] and Horizontal[lo_i:hi_i][lo_j:hi_j].
func asScopeSlice(e ast.Expr) (slice *ast.SliceExpr, ident *ast.Ident, ok bool) {
	slice, ok = e.(*ast.SliceExpr)
	if !ok {
		return nil, nil, false
	}
	ident, ok = slice.X.(*ast.Ident)
	return slice, ident, ok
}

// describe renders a short, human-readable label for a syntax node that
// didn't match the recognized sub-language, for use in diagnostics.
func describe(n ast.Node) string {
	name := fmt.Sprintf("%T", n)
	name = strings.TrimPrefix(name, "*ast.")
	return name
}

func parseIntLit(s string) (int, error) {
	n, err := strconv.ParseInt(s, 0, 64)
	return int(n), err
}
