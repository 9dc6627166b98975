package interpreted

import (
	"math"
	"strings"
	"testing"

	"dslgen/internal/ir"
)

func newField(shape [3]int, fill float64) *Field {
	f := &Field{Shape: shape, Data: make([]float64, shape[0]*shape[1]*shape[2])}
	for i := range f.Data {
		f.Data[i] = fill
	}
	return f
}

// copyIR builds the IR for `out[0,0,0] = in[0,0,0]` over the full [0,5) cube
// on every axis, matching the copy scenario.
func copyIR() *ir.IR {
	full := ir.AxisInterval{Start: ir.Offset{Level: ir.Start}, End: ir.Offset{Level: ir.End}}
	assign := &ir.Assignment{
		LHS: ir.NewFieldAccess("out", ir.AccessOffset{}),
		RHS: ir.NewFieldAccess("in", ir.AccessOffset{}),
	}
	horiz := &ir.HorizontalDomain{ExtentsI: full, ExtentsJ: full, Body: []*ir.Assignment{assign}}
	vert := &ir.VerticalDomain{ExtentsK: full, Body: []*ir.HorizontalDomain{horiz}}
	return &ir.IR{Name: "Copy", Parameters: []string{"out", "in"}, Body: []*ir.VerticalDomain{vert}}
}

func TestGenerateCopy(t *testing.T) {
	source, kernel, err := Generate(copyIR())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(source, "func Run(") {
		t.Errorf("generated source missing Run function:\n%s", source)
	}

	shape := [3]int{5, 5, 5}
	out, in := newField(shape, 0), newField(shape, 1)
	b := Bounds{Start: 0, End: 5}
	if err := kernel([]*Field{out, in}, b, b, b); err != nil {
		t.Fatalf("kernel: %v", err)
	}
	for idx := range out.Data {
		if out.Data[idx] != 1 {
			t.Fatalf("out.Data[%d] = %v, want 1", idx, out.Data[idx])
		}
	}
}

// blurIR builds the IR for the vertical-blur scenario: averages in[k-1],
// in[k], in[k+1] into out over the interior k range only.
func blurIR() *ir.IR {
	full := ir.AxisInterval{Start: ir.Offset{Level: ir.Start}, End: ir.Offset{Level: ir.End}}
	interior := ir.AxisInterval{Start: ir.Offset{Level: ir.Start, Shift: 1}, End: ir.Offset{Level: ir.End, Shift: -1}}
	sum := ir.NewBinaryOp("+",
		ir.NewBinaryOp("+",
			ir.NewFieldAccess("in", ir.AccessOffset{DK: 1}),
			ir.NewFieldAccess("in", ir.AccessOffset{})),
		ir.NewFieldAccess("in", ir.AccessOffset{DK: -1}))
	rhs := ir.NewBinaryOp("/", sum, ir.NewLiteral("3"))
	assign := &ir.Assignment{LHS: ir.NewFieldAccess("out", ir.AccessOffset{}), RHS: rhs}
	horiz := &ir.HorizontalDomain{ExtentsI: full, ExtentsJ: full, Body: []*ir.Assignment{assign}}
	vert := &ir.VerticalDomain{ExtentsK: interior, Body: []*ir.HorizontalDomain{horiz}}
	return &ir.IR{Name: "Blur", Parameters: []string{"out", "in"}, Body: []*ir.VerticalDomain{vert}}
}

func TestGenerateVerticalBlurLeavesBoundaryPlanesUntouched(t *testing.T) {
	_, kernel, err := Generate(blurIR())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	shape := [3]int{5, 5, 5}
	out, in := newField(shape, 0), newField(shape, 1)
	b := Bounds{Start: 0, End: 5}
	if err := kernel([]*Field{out, in}, b, b, b); err != nil {
		t.Fatalf("kernel: %v", err)
	}
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			if got := out.At(i, j, 0); got != 0 {
				t.Errorf("out.At(%d,%d,0) = %v, want 0 (untouched boundary plane)", i, j, got)
			}
			if got := out.At(i, j, 4); got != 0 {
				t.Errorf("out.At(%d,%d,4) = %v, want 0 (untouched boundary plane)", i, j, got)
			}
			for k := 1; k < 4; k++ {
				if got := out.At(i, j, k); got != 1 {
					t.Errorf("out.At(%d,%d,%d) = %v, want 1", i, j, k, got)
				}
			}
		}
	}
}

// laplacianOfLaplacianIR builds the two-pass kernel: tmp1 holds the
// horizontal Laplacian of in, and out is in corrected by 0.03 times the
// Laplacian of tmp1, both restricted to the interior ring (excluding a
// one-cell horizontal border) over the full k range.
func laplacianOfLaplacianIR() *ir.IR {
	full := ir.AxisInterval{Start: ir.Offset{Level: ir.Start}, End: ir.Offset{Level: ir.End}}
	interior := ir.AxisInterval{Start: ir.Offset{Level: ir.Start, Shift: 1}, End: ir.Offset{Level: ir.End, Shift: -1}}

	lap := func(field string) ir.Expression {
		center := ir.NewBinaryOp("*", ir.NewLiteral("-4.0"), ir.NewFieldAccess(field, ir.AccessOffset{}))
		sum := ir.NewBinaryOp("+", center, ir.NewFieldAccess(field, ir.AccessOffset{DI: -1}))
		sum = ir.NewBinaryOp("+", sum, ir.NewFieldAccess(field, ir.AccessOffset{DI: 1}))
		sum = ir.NewBinaryOp("+", sum, ir.NewFieldAccess(field, ir.AccessOffset{DJ: -1}))
		sum = ir.NewBinaryOp("+", sum, ir.NewFieldAccess(field, ir.AccessOffset{DJ: 1}))
		return sum
	}

	tmp1Assign := &ir.Assignment{LHS: ir.NewFieldAccess("tmp1", ir.AccessOffset{}), RHS: lap("in")}
	firstPass := &ir.HorizontalDomain{ExtentsI: interior, ExtentsJ: interior, Body: []*ir.Assignment{tmp1Assign}}

	correction := ir.NewBinaryOp("*", ir.NewLiteral("0.03"), lap("tmp1"))
	outRHS := ir.NewBinaryOp("-", ir.NewFieldAccess("in", ir.AccessOffset{}), correction)
	outAssign := &ir.Assignment{LHS: ir.NewFieldAccess("out", ir.AccessOffset{}), RHS: outRHS}
	secondPass := &ir.HorizontalDomain{ExtentsI: interior, ExtentsJ: interior, Body: []*ir.Assignment{outAssign}}

	vert := &ir.VerticalDomain{ExtentsK: full, Body: []*ir.HorizontalDomain{firstPass, secondPass}}
	return &ir.IR{Name: "LaplacianOfLaplacian", Parameters: []string{"out", "in", "tmp1"}, Body: []*ir.VerticalDomain{vert}}
}

func TestGenerateLaplacianOfLaplacianPreservesSignAndZerosFarField(t *testing.T) {
	_, kernel, err := Generate(laplacianOfLaplacianIR())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	shape := [3]int{9, 9, 9}
	out, in, tmp1 := newField(shape, 0), newField(shape, 0), newField(shape, 0)
	in.Set(4, 4, 4, 1) // a unit spike, centered away from every boundary
	b := Bounds{Start: 0, End: 9}
	if err := kernel([]*Field{out, in, tmp1}, b, b, b); err != nil {
		t.Fatalf("kernel: %v", err)
	}

	if got, want := out.At(4, 4, 4), 0.4; math.Abs(got-want) > 1e-9 {
		t.Errorf("out.At(4,4,4) = %v, want %v", got, want)
	}
	if got := out.At(4, 4, 4); got <= 0 {
		t.Errorf("out.At(4,4,4) = %v, want positive (sign preserved from input spike)", got)
	}
	for _, p := range [][3]int{{0, 0, 0}, {8, 8, 8}, {1, 1, 1}, {4, 4, 0}, {4, 4, 8}} {
		if got := out.At(p[0], p[1], p[2]); got != 0 {
			t.Errorf("out.At%v = %v, want 0 (far field)", p, got)
		}
	}
}

func TestGenerateLaplacianOfLaplacianStaysBoundedOverRepeatedApplication(t *testing.T) {
	_, kernel, err := Generate(laplacianOfLaplacianIR())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	shape := [3]int{9, 9, 9}
	b := Bounds{Start: 0, End: 9}
	cur := newField(shape, 0)
	cur.Set(4, 4, 4, 1)

	for iter := 0; iter < 20; iter++ {
		out, tmp1 := newField(shape, 0), newField(shape, 0)
		if err := kernel([]*Field{out, cur, tmp1}, b, b, b); err != nil {
			t.Fatalf("kernel iteration %d: %v", iter, err)
		}
		for idx, v := range out.Data {
			if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > 1e6 {
				t.Fatalf("iteration %d: out.Data[%d] = %v, unbounded", iter, idx, v)
			}
		}
		cur = out
	}
}

// constantWriteIR builds `in[1,0,0] = 2` over an interior horizontal and
// vertical region: the assignment's offset is relative to the current
// iteration point like every other FieldAccess, so the touched absolute
// range is shifted by one cell along i from the iterated range.
func constantWriteIR() *ir.IR {
	interior := ir.AxisInterval{Start: ir.Offset{Level: ir.Start}, End: ir.Offset{Level: ir.End, Shift: -1}}
	assign := &ir.Assignment{LHS: ir.NewFieldAccess("in", ir.AccessOffset{DI: 1}), RHS: ir.NewLiteral("2")}
	horiz := &ir.HorizontalDomain{ExtentsI: interior, ExtentsJ: interior, Body: []*ir.Assignment{assign}}
	vert := &ir.VerticalDomain{ExtentsK: interior, Body: []*ir.HorizontalDomain{horiz}}
	return &ir.IR{Name: "ConstantWrite", Parameters: []string{"in"}, Body: []*ir.VerticalDomain{vert}}
}

func TestGenerateConstantWriteTouchesOnlyTheShiftedRange(t *testing.T) {
	_, kernel, err := Generate(constantWriteIR())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	shape := [3]int{5, 5, 5}
	in := newField(shape, 1)
	b := Bounds{Start: 0, End: 5}
	if err := kernel([]*Field{in}, b, b, b); err != nil {
		t.Fatalf("kernel: %v", err)
	}

	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			for k := 0; k < 5; k++ {
				inRange := j < 4 && k < 4
				want := 1.0
				if inRange && i >= 1 && i <= 4 {
					want = 2
				}
				if got := in.At(i, j, k); got != want {
					t.Errorf("in.At(%d,%d,%d) = %v, want %v", i, j, k, got, want)
				}
			}
		}
	}
}

func TestGenerateRejectsMismatchedFieldCount(t *testing.T) {
	_, kernel, err := Generate(copyIR())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b := Bounds{Start: 0, End: 5}
	err = kernel([]*Field{newField([3]int{5, 5, 5}, 0)}, b, b, b)
	if err == nil {
		t.Fatal("kernel with wrong field count succeeded, want error")
	}
}
