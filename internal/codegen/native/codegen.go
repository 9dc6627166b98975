// Package native is the unrolled-loop C++ backend (§4.5): it lowers an
// ir.IR into a standalone C++ translation unit with a fixed extern "C" ABI,
// builds it with cmake, and loads the resulting shared object back into the
// process with purego. The source shape and the unroll strategy follow the
// reference compiler's codegen_cpp.py visitor closely; the ABI and build
// wiring are new, since this backend targets a dlopen'd .so rather than a
// Python extension module.
package native

import (
	"fmt"
	"strings"

	"dslgen/internal/ir"
)

// unrollFactor is the fixed stride the innermost loop is unrolled by. The
// reference implementation takes this as a parameter to the horizontal
// visitor; this backend fixes it, since nothing in the design calls for
// tuning it per kernel.
const unrollFactor = 4

// cppVisitor renders one ir.IR as C++ source lines. repetitions and
// unrollOffset mirror the reference generator's mutable per-subtree state:
// a HorizontalDomain multiplies repetitions by unrollFactor around its
// inner loop, and visitAssignments (the counterpart of visit_list_of_Stmt)
// replays the body that many times, each pass biased by a distinct
// unrollOffset into the flattened array index.
type cppVisitor struct {
	ir.BaseVisitor
	repetitions int
	unrollOffset int
}

func newCppVisitor() *cppVisitor {
	return &cppVisitor{repetitions: 1}
}

func (c *cppVisitor) VisitLiteral(n *ir.Literal) (any, error) {
	return n.Value, nil
}

func (c *cppVisitor) VisitFieldAccess(n *ir.FieldAccess) (any, error) {
	return n.Name + offsetToString(n.Offset, c.unrollOffset), nil
}

// offsetToString renders a FieldAccess offset as a flattened row-major
// index against the call's bounds-derived strides (dim2, dim3), biased by
// unrollOffset lanes along i — the same role the reference's
// offset_to_string plays.
func offsetToString(off ir.AccessOffset, unrollOffset int) string {
	return fmt.Sprintf("[(idx_i + %d + %d) + (idx_j + %d)*%s + (idx_k + %d)*%s]",
		off.DI, unrollOffset, off.DJ, "dim2", off.DK, "dim3")
}

func (c *cppVisitor) VisitBinaryOp(n *ir.BinaryOp) (any, error) {
	left, err := n.Left.Accept(c)
	if err != nil {
		return nil, err
	}
	right, err := n.Right.Accept(c)
	if err != nil {
		return nil, err
	}
	if n.Op == "**" {
		return fmt.Sprintf("pow(%s, %s)", left, right), nil
	}
	return fmt.Sprintf("(%s %s %s)", left, n.Op, right), nil
}

func (c *cppVisitor) VisitAssignment(n *ir.Assignment) (any, error) {
	leftAny, err := n.LHS.Accept(c)
	if err != nil {
		return nil, err
	}
	rightAny, err := n.RHS.Accept(c)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("%s = %s;", leftAny, rightAny), nil
}

// visitAssignments is the counterpart of the reference's
// visit_list_of_Stmt: it replays body's statements once per unrolled lane,
// biasing each pass's field accesses by a distinct unrollOffset.
func (c *cppVisitor) visitAssignments(body []*ir.Assignment) ([]string, error) {
	var lines []string
	reps := c.repetitions
	prevOffset := c.unrollOffset
	c.repetitions = 1
	for lane := 0; lane < reps; lane++ {
		c.unrollOffset = lane
		for _, a := range body {
			lineAny, err := a.Accept(c)
			if err != nil {
				return nil, err
			}
			lines = append(lines, lineAny.(string))
		}
	}
	c.repetitions = reps
	c.unrollOffset = prevOffset
	return lines, nil
}

func loopHeader(loopVar string, extents [2]string, stride int) string {
	return fmt.Sprintf("for (long idx_%s = %s; idx_%s <= %s - %d; idx_%s += %d) {",
		loopVar, extents[0], loopVar, extents[1], stride, loopVar, stride)
}

func axisExtents(iv ir.AxisInterval, axis string) [2]string {
	render := func(off ir.Offset) string {
		side := "start"
		if off.Level == ir.End {
			side = "end"
		}
		if off.Shift == 0 {
			return fmt.Sprintf("%s_%s", side, axis)
		}
		return fmt.Sprintf("%s_%s + (%d)", side, axis, off.Shift)
	}
	return [2]string{render(iv.Start), render(iv.End)}
}

func (c *cppVisitor) VisitHorizontalDomain(n *ir.HorizontalDomain) (any, error) {
	var lines []string

	inner := axisExtents(n.ExtentsI, "i")
	c.repetitions *= unrollFactor
	lines = append(lines, loopHeader("i", inner, c.repetitions))
	body, err := c.visitAssignments(n.Body)
	if err != nil {
		return nil, err
	}
	lines = append(lines, body...)
	lines = append(lines, "}")
	c.repetitions /= unrollFactor

	// Epilogue: the remainder of the i range that unrollFactor didn't
	// cover, executed one lane at a time.
	remStart := fmt.Sprintf("(%s) - ((%s) - (%s)) %% %d", inner[1], inner[1], inner[0], unrollFactor)
	lines = append(lines, loopHeader("i", [2]string{remStart, inner[1]}, 1))
	body, err = c.visitAssignments(n.Body)
	if err != nil {
		return nil, err
	}
	lines = append(lines, body...)
	lines = append(lines, "}")

	outer := axisExtents(n.ExtentsJ, "j")
	wrapped := []string{loopHeader("j", outer, 1)}
	wrapped = append(wrapped, lines...)
	wrapped = append(wrapped, "}")
	return wrapped, nil
}

func (c *cppVisitor) VisitVerticalDomain(n *ir.VerticalDomain) (any, error) {
	extents := axisExtents(n.ExtentsK, "k")
	lines := []string{loopHeader("k", extents, 1)}
	for _, h := range n.Body {
		linesAny, err := h.Accept(c)
		if err != nil {
			return nil, err
		}
		lines = append(lines, linesAny.([]string)...)
	}
	lines = append(lines, "}")
	return lines, nil
}

func (c *cppVisitor) VisitIR(n *ir.IR) (any, error) {
	var body []string
	for _, vd := range n.Body {
		linesAny, err := vd.Accept(c)
		if err != nil {
			return nil, err
		}
		body = append(body, linesAny.([]string)...)
	}
	return renderTranslationUnit(n, body), nil
}

// renderTranslationUnit wraps the visited loop-nest body in the fixed
// extern "C" entrypoint every generated kernel exposes, so a single Go-side
// purego binding (loader.go) works regardless of the kernel's own arity.
func renderTranslationUnit(n *ir.IR, body []string) string {
	var b strings.Builder
	b.WriteString("#include <cmath>\n#include <cstddef>\n\n")
	b.WriteString(fmt.Sprintf("// Generated kernel %q: fields in declared parameter order,\n", n.Name))
	b.WriteString("// shapes flattened 3 longs per field, bounds as 6 longs\n")
	b.WriteString("// (start_i, end_i, start_j, end_j, start_k, end_k).\n")
	b.WriteString(`extern "C" void Run(double** fields, const long* shapes, const long* bounds) {` + "\n")
	for i, p := range n.Parameters {
		b.WriteString(fmt.Sprintf("\tdouble* %s = fields[%d];\n", p, i))
	}
	b.WriteString("\tconst long start_i = bounds[0], end_i = bounds[1];\n")
	b.WriteString("\tconst long start_j = bounds[2], end_j = bounds[3];\n")
	b.WriteString("\tconst long start_k = bounds[4], end_k = bounds[5];\n")
	b.WriteString("\tconst long dim2 = end_i - start_i;\n")
	b.WriteString("\tconst long dim3 = dim2 * (end_j - start_j);\n")
	for _, line := range body {
		b.WriteString("\t")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	return b.String()
}

// Generate lowers node into the C++ source text for its translation unit.
func Generate(node *ir.IR) (string, error) {
	srcAny, err := node.Accept(newCppVisitor())
	if err != nil {
		return "", err
	}
	return srcAny.(string), nil
}
