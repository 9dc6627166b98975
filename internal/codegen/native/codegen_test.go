package native

import (
	"strings"
	"testing"

	"dslgen/internal/ir"
)

func fullAxis() ir.AxisInterval {
	return ir.AxisInterval{Start: ir.Offset{Level: ir.Start}, End: ir.Offset{Level: ir.End}}
}

func TestGenerateEmitsFixedABIEntrypoint(t *testing.T) {
	assign := &ir.Assignment{
		LHS: ir.NewFieldAccess("out", ir.AccessOffset{}),
		RHS: ir.NewFieldAccess("in", ir.AccessOffset{}),
	}
	horiz := &ir.HorizontalDomain{ExtentsI: fullAxis(), ExtentsJ: fullAxis(), Body: []*ir.Assignment{assign}}
	vert := &ir.VerticalDomain{ExtentsK: fullAxis(), Body: []*ir.HorizontalDomain{horiz}}
	node := &ir.IR{Name: "Copy", Parameters: []string{"out", "in"}, Body: []*ir.VerticalDomain{vert}}

	src, err := Generate(node)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(src, `extern "C" void Run(double** fields, const long* shapes, const long* bounds)`) {
		t.Errorf("missing fixed ABI entrypoint:\n%s", src)
	}
	if !strings.Contains(src, "double* out = fields[0];") || !strings.Contains(src, "double* in = fields[1];") {
		t.Errorf("missing field pointer setup:\n%s", src)
	}
	if !strings.Contains(src, "idx_i") || !strings.Contains(src, "idx_j") || !strings.Contains(src, "idx_k") {
		t.Errorf("missing loop-nest indices:\n%s", src)
	}
}

func TestGenerateUnrollsInnerLoopWithEpilogue(t *testing.T) {
	assign := &ir.Assignment{
		LHS: ir.NewFieldAccess("out", ir.AccessOffset{}),
		RHS: ir.NewLiteral("1"),
	}
	horiz := &ir.HorizontalDomain{ExtentsI: fullAxis(), ExtentsJ: fullAxis(), Body: []*ir.Assignment{assign}}
	vert := &ir.VerticalDomain{ExtentsK: fullAxis(), Body: []*ir.HorizontalDomain{horiz}}
	node := &ir.IR{Name: "Fill", Parameters: []string{"out"}, Body: []*ir.VerticalDomain{vert}}

	src, err := Generate(node)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := strings.Count(src, "] = 1;"); got != unrollFactor+1 {
		t.Errorf("out[...] = 1; appears %d times, want %d (unroll factor + epilogue lane)", got, unrollFactor+1)
	}
	if !strings.Contains(src, "idx_i += 4") {
		t.Errorf("missing strided unrolled loop header:\n%s", src)
	}
}

func TestGeneratePowLowersToCMathPow(t *testing.T) {
	assign := &ir.Assignment{
		LHS: ir.NewFieldAccess("out", ir.AccessOffset{}),
		RHS: ir.NewBinaryOp("**", ir.NewFieldAccess("in", ir.AccessOffset{}), ir.NewLiteral("2")),
	}
	horiz := &ir.HorizontalDomain{ExtentsI: fullAxis(), ExtentsJ: fullAxis(), Body: []*ir.Assignment{assign}}
	vert := &ir.VerticalDomain{ExtentsK: fullAxis(), Body: []*ir.HorizontalDomain{horiz}}
	node := &ir.IR{Name: "Square", Parameters: []string{"out", "in"}, Body: []*ir.VerticalDomain{vert}}

	src, err := Generate(node)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(src, "pow(") {
		t.Errorf("** did not lower to pow():\n%s", src)
	}
}
