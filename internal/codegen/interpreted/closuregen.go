package interpreted

import (
	"fmt"
	"math"

	"dslgen/internal/ir"
)

// evalFn reads one expression's value at the current iteration point.
type evalFn func(fields []*Field, i, j, k int) float64

// stmtFn executes one assignment at the current iteration point.
type stmtFn func(fields []*Field, i, j, k int)

// axisRangeFn resolves a symbolic AxisInterval against the runtime Bounds
// the kernel is called with, returning the half-open [lo, hi) it denotes.
type axisRangeFn func(b Bounds) (lo, hi int)

// horizontalFn runs one HorizontalDomain's assignments over its (i, j)
// region at a fixed k.
type horizontalFn func(fields []*Field, boundsI, boundsJ Bounds, k int)

// verticalFn runs one VerticalDomain's horizontal scopes over its k region.
type verticalFn func(fields []*Field, boundsI, boundsJ, boundsK Bounds)

// closureVisitor lowers an ir.IR into the actual in-process Kernel callable:
// every node becomes a Go closure over its children's closures, so running
// the kernel later costs one function-pointer chain per cell, not a second
// pass over the IR tree.
type closureVisitor struct {
	ir.BaseVisitor
	params map[string]int
}

func newClosureVisitor(params []string) *closureVisitor {
	idx := make(map[string]int, len(params))
	for i, p := range params {
		idx[p] = i
	}
	return &closureVisitor{params: idx}
}

func (c *closureVisitor) fieldIndex(name string, n ir.Node) (int, error) {
	idx, ok := c.params[name]
	if !ok {
		return 0, &ir.GenError{Kind: ir.InvalidIRNode, Node: n}
	}
	return idx, nil
}

func (c *closureVisitor) VisitLiteral(n *ir.Literal) (any, error) {
	var v float64
	if _, err := fmt.Sscanf(n.Value, "%g", &v); err != nil {
		return nil, fmt.Errorf("interpreted: literal %q: %w", n.Value, err)
	}
	return evalFn(func(fields []*Field, i, j, k int) float64 { return v }), nil
}

func (c *closureVisitor) VisitFieldAccess(n *ir.FieldAccess) (any, error) {
	idx, err := c.fieldIndex(n.Name, n)
	if err != nil {
		return nil, err
	}
	off := n.Offset
	return evalFn(func(fields []*Field, i, j, k int) float64 {
		return fields[idx].At(i+off.DI, j+off.DJ, k+off.DK)
	}), nil
}

func (c *closureVisitor) VisitBinaryOp(n *ir.BinaryOp) (any, error) {
	leftAny, err := n.Left.Accept(c)
	if err != nil {
		return nil, err
	}
	rightAny, err := n.Right.Accept(c)
	if err != nil {
		return nil, err
	}
	left, right := leftAny.(evalFn), rightAny.(evalFn)
	op, err := binaryFn(n.Op)
	if err != nil {
		return nil, err
	}
	return evalFn(func(fields []*Field, i, j, k int) float64 {
		return op(left(fields, i, j, k), right(fields, i, j, k))
	}), nil
}

func binaryFn(op string) (func(a, b float64) float64, error) {
	switch op {
	case "+":
		return func(a, b float64) float64 { return a + b }, nil
	case "-":
		return func(a, b float64) float64 { return a - b }, nil
	case "*":
		return func(a, b float64) float64 { return a * b }, nil
	case "/":
		return func(a, b float64) float64 { return a / b }, nil
	case "%":
		return math.Mod, nil
	case "**":
		return math.Pow, nil
	default:
		return nil, fmt.Errorf("interpreted: unknown operator %q", op)
	}
}

func (c *closureVisitor) VisitAssignment(n *ir.Assignment) (any, error) {
	rhsAny, err := n.RHS.Accept(c)
	if err != nil {
		return nil, err
	}
	rhs := rhsAny.(evalFn)
	idx, err := c.fieldIndex(n.LHS.Name, n.LHS)
	if err != nil {
		return nil, err
	}
	off := n.LHS.Offset
	return stmtFn(func(fields []*Field, i, j, k int) {
		fields[idx].Set(i+off.DI, j+off.DJ, k+off.DK, rhs(fields, i, j, k))
	}), nil
}

// axisRange turns a symbolic AxisInterval into a concrete resolver of both
// its ends against the runtime Bounds they are measured from.
func axisRange(iv ir.AxisInterval) axisRangeFn {
	lo, hi := iv.Start, iv.End
	resolve := func(off ir.Offset, b Bounds) int {
		base := b.Start
		if off.Level == ir.End {
			base = b.End
		}
		return base + off.Shift
	}
	return func(b Bounds) (int, int) {
		return resolve(lo, b), resolve(hi, b)
	}
}

func (c *closureVisitor) VisitHorizontalDomain(n *ir.HorizontalDomain) (any, error) {
	body := make([]stmtFn, 0, len(n.Body))
	for _, a := range n.Body {
		fnAny, err := a.Accept(c)
		if err != nil {
			return nil, err
		}
		body = append(body, fnAny.(stmtFn))
	}
	iRange, jRange := axisRange(n.ExtentsI), axisRange(n.ExtentsJ)
	return horizontalFn(func(fields []*Field, boundsI, boundsJ Bounds, k int) {
		iLo, iHi := iRange(boundsI)
		jLo, jHi := jRange(boundsJ)
		for i := iLo; i < iHi; i++ {
			for j := jLo; j < jHi; j++ {
				for _, stmt := range body {
					stmt(fields, i, j, k)
				}
			}
		}
	}), nil
}

func (c *closureVisitor) VisitVerticalDomain(n *ir.VerticalDomain) (any, error) {
	body := make([]horizontalFn, 0, len(n.Body))
	for _, h := range n.Body {
		fnAny, err := h.Accept(c)
		if err != nil {
			return nil, err
		}
		body = append(body, fnAny.(horizontalFn))
	}
	kRange := axisRange(n.ExtentsK)
	return verticalFn(func(fields []*Field, boundsI, boundsJ, boundsK Bounds) {
		kLo, kHi := kRange(boundsK)
		for k := kLo; k < kHi; k++ {
			for _, h := range body {
				h(fields, boundsI, boundsJ, k)
			}
		}
	}), nil
}

func (c *closureVisitor) VisitIR(n *ir.IR) (any, error) {
	verticals := make([]verticalFn, 0, len(n.Body))
	for _, vd := range n.Body {
		fnAny, err := vd.Accept(c)
		if err != nil {
			return nil, err
		}
		verticals = append(verticals, fnAny.(verticalFn))
	}
	kernel := Kernel(func(fields []*Field, boundsI, boundsJ, boundsK Bounds) error {
		if len(fields) != len(n.Parameters) {
			return fmt.Errorf("interpreted: kernel %q wants %d fields, got %d", n.Name, len(n.Parameters), len(fields))
		}
		for _, v := range verticals {
			v(fields, boundsI, boundsJ, boundsK)
		}
		return nil
	})
	return kernel, nil
}
