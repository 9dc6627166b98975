package native

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// BuildError reports a failure in the external build toolchain, as
// distinguished from a GenError (a bug in this package's own visitor).
type BuildError struct {
	Stage string // "configure" or "compile"
	Err   error
}

func (e *BuildError) Error() string { return fmt.Sprintf("native: %s failed: %v", e.Stage, e.Err) }
func (e *BuildError) Unwrap() error { return e.Err }

// Build writes source into codeDir as kernel.cpp plus its CMake project,
// formats it with clang-format if available, and compiles it with cmake +
// make. artifactName names the produced shared library (without platform
// extension). It returns the built library's path relative to codeDir's
// build/ subdirectory; codeDir itself may still move (the cache commits it
// into place with a rename after a successful build), so callers should
// join LibraryName(artifactName) against wherever codeDir ends up living
// rather than trust an absolute path returned here.
//
// Mirrors the reference implementation's format_cpp/compile_cpp pair:
// clang-format is best-effort and its absence is not an error, while a
// nonzero cmake or make exit code is.
func Build(codeDir, source, artifactName string) (string, error) {
	if err := os.MkdirAll(codeDir, 0o755); err != nil {
		return "", &BuildError{Stage: "configure", Err: err}
	}

	cppPath := filepath.Join(codeDir, "kernel.cpp")
	if err := os.WriteFile(cppPath, []byte(source), 0o644); err != nil {
		return "", &BuildError{Stage: "configure", Err: err}
	}
	cmakeLists := fmt.Sprintf(cmakeListsTemplate, artifactName)
	if err := os.WriteFile(filepath.Join(codeDir, "CMakeLists.txt"), []byte(cmakeLists), 0o644); err != nil {
		return "", &BuildError{Stage: "configure", Err: err}
	}
	if err := os.WriteFile(filepath.Join(codeDir, ".clang-format"), []byte(clangFormatTemplate), 0o644); err != nil {
		return "", &BuildError{Stage: "configure", Err: err}
	}

	formatSource(cppPath, codeDir)

	buildDir := filepath.Join(codeDir, "build")
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return "", &BuildError{Stage: "configure", Err: err}
	}

	configure := exec.Command("cmake", codeDir, "-DCMAKE_BUILD_TYPE=Release", "-B"+buildDir)
	configure.Dir = buildDir
	if out, err := configure.CombinedOutput(); err != nil {
		return "", &BuildError{Stage: "configure", Err: errors.Wrapf(err, "cmake output: %s", out)}
	}

	start := time.Now()
	build := exec.Command("make", "-j")
	build.Dir = buildDir
	if out, err := build.CombinedOutput(); err != nil {
		return "", &BuildError{Stage: "compile", Err: errors.Wrapf(err, "make output: %s", out)}
	}

	log.Printf("native: built %s (%s source) in %s", artifactName, humanize.Bytes(uint64(len(source))), time.Since(start).Round(time.Millisecond))
	return LibraryName(artifactName), nil
}

// LibraryName is the platform-specific shared library file name Build
// produces inside codeDir/build for artifactName.
func LibraryName(artifactName string) string {
	return artifactName + sharedLibSuffix()
}

// formatSource runs clang-format over cppPath if it's on PATH. A missing
// formatter never fails the build; it only makes the cached source less
// pleasant to read.
func formatSource(cppPath, cwd string) {
	if _, err := exec.LookPath("clang-format"); err != nil {
		return
	}
	cmd := exec.Command("clang-format", "-i", cppPath)
	cmd.Dir = cwd
	_ = cmd.Run()
}

func sharedLibSuffix() string {
	if runtime.GOOS == "darwin" {
		return ".dylib"
	}
	return ".so"
}
