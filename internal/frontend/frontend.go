// Package frontend lifts an already-parsed Go syntax tree for a single
// kernel function into an ir.IR, recognizing only the sub-language
// described in §4.1: vertical and horizontal domain scopes, field-access
// expressions with integer neighbor offsets, and binary arithmetic.
//
// Acquiring that syntax tree (running go/parser over the kernel's source
// text) is the host's job, not the core's — see driver.Register, which owns
// the *token.FileSet and hands the parsed *ast.FuncDecl to Build.
package frontend

import (
	"go/ast"
	"go/token"

	"dslgen/internal/ir"
)

// Build walks fn — the syntax tree of a single kernel definition — and
// produces the IR described in §3. fset must be the FileSet fn was parsed
// with; it is only consulted to render human-readable positions in errors.
func Build(fset *token.FileSet, fn *ast.FuncDecl) (*ir.IR, error) {
	b := &builder{fset: fset, params: map[string]bool{}}
	return b.build(fn)
}

type builder struct {
	fset   *token.FileSet
	params map[string]bool
}

func (b *builder) build(fn *ast.FuncDecl) (*ir.IR, error) {
	root := &ir.IR{Name: fn.Name.Name}

	if fn.Type.Params != nil {
		for _, field := range fn.Type.Params.List {
			for _, name := range field.Names {
				root.Parameters = append(root.Parameters, name.Name)
				b.params[name.Name] = true
			}
		}
	}

	if fn.Body == nil {
		return nil, b.errorf(UnsupportedConstruct, fn.Pos(), "kernel %q has no body", fn.Name.Name)
	}

	body, err := b.buildVerticals(fn.Body.List)
	if err != nil {
		return nil, err
	}
	root.Body = body
	return root, nil
}

// buildVerticals recognizes a run of `Vertical[lo:hi]` / `{ ... }` statement
// pairs, concatenating successive vertical scopes in source order.
func (b *builder) buildVerticals(stmts []ast.Stmt) ([]*ir.VerticalDomain, error) {
	var verticals []*ir.VerticalDomain

	for i := 0; i < len(stmts); {
		expr, ok := exprOf(stmts[i])
		if !ok {
			return nil, b.errorf(UnsupportedConstruct, stmts[i].Pos(),
				"expected a Vertical[lo:hi] scope, found %s", describe(stmts[i]))
		}
		slice, ident, ok := asScopeSlice(expr)
		if !ok || ident.Name != "Vertical" {
			return nil, b.errorf(UnsupportedConstruct, stmts[i].Pos(),
				"expected a Vertical[lo:hi] scope, found %s", describe(stmts[i]))
		}

		interval, err := b.buildAxisInterval(slice)
		if err != nil {
			return nil, err
		}

		block, consumed, err := b.expectBlock(stmts, i)
		if err != nil {
			return nil, err
		}

		horizontals, err := b.buildHorizontals(block.List)
		if err != nil {
			return nil, err
		}

		verticals = append(verticals, &ir.VerticalDomain{ExtentsK: interval, Body: horizontals})
		i += consumed
	}

	return verticals, nil
}

// buildHorizontals recognizes a run of `Horizontal[lo_i:hi_i][lo_j:hi_j]` /
// `{ ... }` statement pairs inside a vertical scope.
func (b *builder) buildHorizontals(stmts []ast.Stmt) ([]*ir.HorizontalDomain, error) {
	var horizontals []*ir.HorizontalDomain

	for i := 0; i < len(stmts); {
		expr, ok := exprOf(stmts[i])
		if !ok {
			return nil, b.errorf(UnsupportedConstruct, stmts[i].Pos(),
				"expected a Horizontal[lo_i:hi_i][lo_j:hi_j] scope, found %s", describe(stmts[i]))
		}
		outerSlice, ok := expr.(*ast.SliceExpr)
		if !ok {
			return nil, b.errorf(UnsupportedConstruct, stmts[i].Pos(),
				"expected a Horizontal[lo_i:hi_i][lo_j:hi_j] scope, found %s", describe(stmts[i]))
		}
		innerSlice, ident, ok := asScopeSlice(outerSlice.X)
		if !ok || ident.Name != "Horizontal" {
			return nil, b.errorf(UnsupportedConstruct, stmts[i].Pos(), "unrecognized horizontal scope head")
		}

		extentsI, err := b.buildAxisInterval(innerSlice)
		if err != nil {
			return nil, err
		}
		extentsJ, err := b.buildAxisInterval(outerSlice)
		if err != nil {
			return nil, err
		}

		block, consumed, err := b.expectBlock(stmts, i)
		if err != nil {
			return nil, err
		}

		assignments, err := b.buildAssignments(block.List)
		if err != nil {
			return nil, err
		}

		horizontals = append(horizontals, &ir.HorizontalDomain{
			ExtentsI: extentsI,
			ExtentsJ: extentsJ,
			Body:     assignments,
		})
		i += consumed
	}

	return horizontals, nil
}

// buildAssignments recognizes a run of `field[di,dj,dk] = expr` statements.
func (b *builder) buildAssignments(stmts []ast.Stmt) ([]*ir.Assignment, error) {
	assignments := make([]*ir.Assignment, 0, len(stmts))
	for _, stmt := range stmts {
		assign, ok := stmt.(*ast.AssignStmt)
		if !ok || assign.Tok != token.ASSIGN || len(assign.Lhs) != 1 || len(assign.Rhs) != 1 {
			return nil, b.errorf(UnsupportedConstruct, stmt.Pos(),
				"expected a field[di,dj,dk] = expr assignment, found %s", describe(stmt))
		}

		lhs, err := b.buildFieldAccess(assign.Lhs[0])
		if err != nil {
			return nil, err
		}
		rhs, err := b.buildExpr(assign.Rhs[0])
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, &ir.Assignment{LHS: lhs, RHS: rhs})
	}
	return assignments, nil
}

// buildExpr lowers a Go expression node into an ir.Expression, rejecting
// anything outside literals, field reads, Pow calls, and binary arithmetic.
func (b *builder) buildExpr(e ast.Expr) (ir.Expression, error) {
	switch t := e.(type) {
	case *ast.ParenExpr:
		return b.buildExpr(t.X)

	case *ast.BasicLit:
		if t.Kind != token.INT && t.Kind != token.FLOAT {
			return nil, b.errorf(UnsupportedConstruct, t.Pos(), "unsupported literal kind %v", t.Kind)
		}
		return ir.NewLiteral(t.Value), nil

	case *ast.Ident:
		if !b.params[t.Name] {
			return nil, b.errorf(UnknownField, t.Pos(), "%q is not a kernel parameter", t.Name)
		}
		// A bare identifier denotes field[0,0,0].
		return ir.NewFieldAccess(t.Name, ir.AccessOffset{}), nil

	case *ast.IndexListExpr:
		return b.buildFieldAccess(t)

	case *ast.BinaryExpr:
		return b.buildBinaryOp(t)

	case *ast.CallExpr:
		return b.buildPow(t)

	default:
		return nil, b.errorf(UnsupportedConstruct, e.Pos(), "unsupported expression %s", describe(e))
	}
}

func (b *builder) buildBinaryOp(t *ast.BinaryExpr) (ir.Expression, error) {
	op, ok := binaryOps[t.Op]
	if !ok {
		return nil, b.errorf(UnsupportedConstruct, t.OpPos, "unsupported operator %q", t.Op)
	}
	left, err := b.buildExpr(t.X)
	if err != nil {
		return nil, err
	}
	right, err := b.buildExpr(t.Y)
	if err != nil {
		return nil, err
	}
	return ir.NewBinaryOp(op, left, right), nil
}

var binaryOps = map[token.Token]string{
	token.ADD: "+",
	token.SUB: "-",
	token.MUL: "*",
	token.QUO: "/",
	token.REM: "%",
}

// buildPow recognizes Pow(lhs, rhs), the only call form the sub-language
// allows; it lowers to a BinaryOp with operator "**" (§4.1, §4.5).
func (b *builder) buildPow(call *ast.CallExpr) (ir.Expression, error) {
	ident, ok := call.Fun.(*ast.Ident)
	if !ok || ident.Name != "Pow" || len(call.Args) != 2 {
		return nil, b.errorf(UnsupportedConstruct, call.Pos(), "unsupported call %s", describe(call))
	}
	left, err := b.buildExpr(call.Args[0])
	if err != nil {
		return nil, err
	}
	right, err := b.buildExpr(call.Args[1])
	if err != nil {
		return nil, err
	}
	return ir.NewBinaryOp("**", left, right), nil
}

// buildFieldAccess lowers `field[di,dj,dk]` into an ir.FieldAccess.
func (b *builder) buildFieldAccess(e ast.Expr) (*ir.FieldAccess, error) {
	list, ok := e.(*ast.IndexListExpr)
	if !ok || len(list.Indices) != 3 {
		return nil, b.errorf(UnsupportedConstruct, e.Pos(), "expected field[di,dj,dk], found %s", describe(e))
	}
	ident, ok := list.X.(*ast.Ident)
	if !ok {
		return nil, b.errorf(UnsupportedConstruct, list.X.Pos(), "field access target must be a plain identifier")
	}
	if !b.params[ident.Name] {
		return nil, b.errorf(UnknownField, ident.Pos(), "%q is not a kernel parameter", ident.Name)
	}

	di, err := b.intConst(list.Indices[0])
	if err != nil {
		return nil, err
	}
	dj, err := b.intConst(list.Indices[1])
	if err != nil {
		return nil, err
	}
	dk, err := b.intConst(list.Indices[2])
	if err != nil {
		return nil, err
	}

	return ir.NewFieldAccess(ident.Name, ir.AccessOffset{DI: di, DJ: dj, DK: dk}), nil
}

// buildAxisInterval lowers a `[lo:hi]` slice into an ir.AxisInterval.
func (b *builder) buildAxisInterval(slice *ast.SliceExpr) (ir.AxisInterval, error) {
	if slice.Max != nil || slice.Slice3 {
		return ir.AxisInterval{}, b.errorf(MalformedExtent, slice.Pos(), "three-index slices are not supported")
	}
	if slice.Low == nil || slice.High == nil {
		return ir.AxisInterval{}, b.errorf(MalformedExtent, slice.Pos(), "both bounds of an extent must be given")
	}
	lo, err := b.buildOffset(slice.Low)
	if err != nil {
		return ir.AxisInterval{}, err
	}
	hi, err := b.buildOffset(slice.High)
	if err != nil {
		return ir.AxisInterval{}, err
	}
	return ir.AxisInterval{Start: lo, End: hi}, nil
}

// buildOffset reduces a bound expression to level±constant, recursing
// through nested +/- of non-negative integer literals the way a real
// compiler's constant folder would (§4.1 edge cases).
func (b *builder) buildOffset(e ast.Expr) (ir.Offset, error) {
	switch t := e.(type) {
	case *ast.Ident:
		switch t.Name {
		case "Start":
			return ir.Offset{Level: ir.Start}, nil
		case "End":
			return ir.Offset{Level: ir.End}, nil
		default:
			return ir.Offset{}, b.errorf(MalformedExtent, t.Pos(), "bound must reduce to Start or End, found %q", t.Name)
		}

	case *ast.BinaryExpr:
		var sign int
		switch t.Op {
		case token.ADD:
			sign = 1
		case token.SUB:
			sign = -1
		default:
			return ir.Offset{}, b.errorf(MalformedExtent, t.OpPos, "bound operator must be + or -, found %q", t.Op)
		}

		off, err := b.buildOffset(t.X)
		if err != nil {
			return ir.Offset{}, err
		}
		c, err := b.nonNegativeConst(t.Y)
		if err != nil {
			return ir.Offset{}, err
		}
		off.Shift += sign * c
		return off, nil

	default:
		return ir.Offset{}, b.errorf(MalformedExtent, e.Pos(), "bound must reduce to level ± constant")
	}
}

func (b *builder) nonNegativeConst(e ast.Expr) (int, error) {
	lit, ok := e.(*ast.BasicLit)
	if !ok || lit.Kind != token.INT {
		return 0, b.errorf(MalformedExtent, e.Pos(), "bound constant must be a non-negative integer literal")
	}
	n, err := parseIntLit(lit.Value)
	if err != nil || n < 0 {
		return 0, b.errorf(MalformedExtent, e.Pos(), "bound constant must be a non-negative integer literal")
	}
	return n, nil
}

// intConst parses an AccessOffset component, which unlike a bound constant
// is allowed to carry its own leading sign (`field[-1,0,0]`).
func (b *builder) intConst(e ast.Expr) (int, error) {
	if u, ok := e.(*ast.UnaryExpr); ok && u.Op == token.SUB {
		n, err := b.intConst(u.X)
		if err != nil {
			return 0, err
		}
		return -n, nil
	}
	lit, ok := e.(*ast.BasicLit)
	if !ok || lit.Kind != token.INT {
		return 0, b.errorf(UnsupportedConstruct, e.Pos(), "neighbor offsets must be integer literals")
	}
	return parseIntLit(lit.Value)
}

// expectBlock requires stmts[i+1] to be a bare block statement, which is
// how a recognized scope header's body is delimited.
func (b *builder) expectBlock(stmts []ast.Stmt, i int) (*ast.BlockStmt, int, error) {
	if i+1 >= len(stmts) {
		return nil, 0, b.errorf(UnsupportedConstruct, stmts[i].End(), "scope header is missing its { ... } body")
	}
	block, ok := stmts[i+1].(*ast.BlockStmt)
	if !ok {
		return nil, 0, b.errorf(UnsupportedConstruct, stmts[i+1].Pos(), "expected a { ... } block, found %s", describe(stmts[i+1]))
	}
	return block, 2, nil
}
