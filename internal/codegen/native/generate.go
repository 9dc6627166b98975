package native

import (
	"path/filepath"

	"dslgen/internal/codegen/interpreted"
	"dslgen/internal/ir"
)

// GenerateAndLoad renders node to C++ under codeDir, builds it in place,
// and loads the resulting shared library as a Kernel. codeDir is treated
// as final here; the driver, which needs the cache's stage-then-commit
// atomicity, calls Generate/Build/Load directly instead.
func GenerateAndLoad(node *ir.IR, codeDir, artifactName string) (source string, kernel interpreted.Kernel, err error) {
	source, err = Generate(node)
	if err != nil {
		return "", nil, err
	}

	libName, err := Build(codeDir, source, artifactName)
	if err != nil {
		return "", nil, err
	}

	kernel, err = Load(filepath.Join(codeDir, "build", libName), len(node.Parameters))
	if err != nil {
		return "", nil, err
	}
	return source, kernel, nil
}
