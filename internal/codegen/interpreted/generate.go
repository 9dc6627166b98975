package interpreted

import (
	"dslgen/internal/ir"

	"golang.org/x/tools/imports"
)

// Generate lowers a frontend-produced IR into both the interpreted
// backend's artifacts: the readable Go source that the cache stores on
// disk, and the callable the driver hands back to the caller. The two are
// built by separate visitor passes over the same IR so that a future
// change to one's rendering can't silently desync it from the other's
// semantics; both read-only walk the same tree the frontend built.
func Generate(node *ir.IR) (source string, kernel Kernel, err error) {
	textAny, err := node.Accept(newTextVisitor())
	if err != nil {
		return "", nil, err
	}

	fnAny, err := node.Accept(newClosureVisitor(node.Parameters))
	if err != nil {
		return "", nil, err
	}

	src := textAny.(string)
	if formatted, fmtErr := imports.Process("generated.go", []byte(src), nil); fmtErr == nil {
		src = string(formatted)
	}

	return src, fnAny.(Kernel), nil
}
