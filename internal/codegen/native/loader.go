package native

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"

	"dslgen/internal/codegen/interpreted"
)

// LoadError reports a failure to dlopen/dlsym the compiled shared library.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("native: load %s: %v", e.Path, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// runFunc is the Go-side shape purego binds against the generated
// extern "C" Run(double**, const long*, const long*) symbol. Go has no
// plugin loader for arbitrary C/C++ shared objects — purego's dlopen/dlsym
// wrapper is what lets a .so built outside the Go toolchain be called
// in-process without cgo.
type runFunc func(fields uintptr, shapes uintptr, bounds uintptr)

// Load dlopens the shared library at path and returns it wrapped as an
// interpreted.Kernel, so the driver can hand out a uniform callable
// regardless of which backend produced it.
func Load(path string, numFields int) (interpreted.Kernel, error) {
	lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	sym, err := purego.Dlsym(lib, "Run")
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	var run runFunc
	purego.RegisterFunc(&run, sym)

	kernel := interpreted.Kernel(func(fields []*interpreted.Field, boundsI, boundsJ, boundsK interpreted.Bounds) error {
		if len(fields) != numFields {
			return fmt.Errorf("native: kernel wants %d fields, got %d", numFields, len(fields))
		}

		fieldPtrs := make([]uintptr, len(fields))
		shapes := make([]int64, 0, 3*len(fields))
		for i, f := range fields {
			fieldPtrs[i] = uintptr(unsafe.Pointer(&f.Data[0]))
			shapes = append(shapes, int64(f.Shape[0]), int64(f.Shape[1]), int64(f.Shape[2]))
		}
		bounds := []int64{
			int64(boundsI.Start), int64(boundsI.End),
			int64(boundsJ.Start), int64(boundsJ.End),
			int64(boundsK.Start), int64(boundsK.End),
		}

		run(
			uintptr(unsafe.Pointer(&fieldPtrs[0])),
			uintptr(unsafe.Pointer(&shapes[0])),
			uintptr(unsafe.Pointer(&bounds[0])),
		)
		return nil
	})
	return kernel, nil
}
