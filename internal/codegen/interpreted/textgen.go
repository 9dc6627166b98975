package interpreted

import (
	"fmt"

	"dslgen/internal/ir"
)

// textVisitor walks an ir.IR and renders it as readable Go source: a single
// Run function over *Field arguments, matching the on-disk cache layout
// (§6). It never executes anything; closureVisitor builds the callable.
type textVisitor struct {
	ir.BaseVisitor
	b       *textBlock
	usesPow bool
}

func newTextVisitor() *textVisitor {
	return &textVisitor{b: newTextBlock()}
}

func (t *textVisitor) VisitLiteral(n *ir.Literal) (any, error) {
	return n.Value, nil
}

func (t *textVisitor) VisitFieldAccess(n *ir.FieldAccess) (any, error) {
	return fmt.Sprintf("%s.At(i%+d, j%+d, k%+d)", n.Name, n.Offset.DI, n.Offset.DJ, n.Offset.DK), nil
}

func (t *textVisitor) VisitBinaryOp(n *ir.BinaryOp) (any, error) {
	left, err := n.Left.Accept(t)
	if err != nil {
		return nil, err
	}
	right, err := n.Right.Accept(t)
	if err != nil {
		return nil, err
	}
	if n.Op == "**" {
		t.usesPow = true
		return fmt.Sprintf("math.Pow(%s, %s)", left, right), nil
	}
	return fmt.Sprintf("(%s %s %s)", left, n.Op, right), nil
}

func (t *textVisitor) VisitAssignment(n *ir.Assignment) (any, error) {
	rhs, err := n.RHS.Accept(t)
	if err != nil {
		return nil, err
	}
	off := n.LHS.Offset
	t.b.push(fmt.Sprintf("%s.Set(i%+d, j%+d, k%+d, %s)", n.LHS.Name, off.DI, off.DJ, off.DK, rhs))
	return nil, nil
}

func (t *textVisitor) VisitHorizontalDomain(n *ir.HorizontalDomain) (any, error) {
	t.b.push(fmt.Sprintf("for i := %s; i < %s; i++ {", axisBound(n.ExtentsI.Start, "boundsI"), axisBound(n.ExtentsI.End, "boundsI")))
	t.b.in()
	t.b.push(fmt.Sprintf("for j := %s; j < %s; j++ {", axisBound(n.ExtentsJ.Start, "boundsJ"), axisBound(n.ExtentsJ.End, "boundsJ")))
	t.b.in()
	for _, a := range n.Body {
		if _, err := a.Accept(t); err != nil {
			return nil, err
		}
	}
	t.b.out()
	t.b.push("}")
	t.b.out()
	t.b.push("}")
	return nil, nil
}

func (t *textVisitor) VisitVerticalDomain(n *ir.VerticalDomain) (any, error) {
	t.b.push(fmt.Sprintf("for k := %s; k < %s; k++ {", axisBound(n.ExtentsK.Start, "boundsK"), axisBound(n.ExtentsK.End, "boundsK")))
	t.b.in()
	for _, h := range n.Body {
		if _, err := h.Accept(t); err != nil {
			return nil, err
		}
	}
	t.b.out()
	t.b.push("}")
	return nil, nil
}

func (t *textVisitor) VisitIR(n *ir.IR) (any, error) {
	body := newTextBlock()
	body.push(fmt.Sprintf("// Run is the generated body of kernel %q.", n.Name))
	body.push("func Run(fields []*Field, boundsI, boundsJ, boundsK Bounds) error {")
	body.in()
	for i, p := range n.Parameters {
		body.push(fmt.Sprintf("%s := fields[%d]", p, i))
	}
	t.b = body
	for _, vd := range n.Body {
		if _, err := vd.Accept(t); err != nil {
			return nil, err
		}
	}
	t.b.push("return nil")
	t.b.out()
	t.b.push("}")

	header := newTextBlock()
	header.push("package generated")
	header.push("")
	if t.usesPow {
		header.push(`import "math"`)
		header.push("")
	}
	return header.String() + t.b.String(), nil
}

// axisBound renders a symbolic Offset against the named Bounds variable,
// e.g. AxisInterval{Start+1} on "boundsI" becomes "boundsI.Start+1".
func axisBound(off ir.Offset, boundsVar string) string {
	field := "Start"
	if off.Level == ir.End {
		field = "End"
	}
	if off.Shift == 0 {
		return fmt.Sprintf("%s.%s", boundsVar, field)
	}
	return fmt.Sprintf("%s.%s+%d", boundsVar, field, off.Shift)
}
