package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// defaultRoot is used when CODE_CACHE_ROOT is unset, relative to the
// process's working directory.
const defaultRoot = ".codecache"

// Root returns the cache directory, honoring the CODE_CACHE_ROOT override.
func Root() string {
	if root := os.Getenv("CODE_CACHE_ROOT"); root != "" {
		return root
	}
	return defaultRoot
}

// InterpretedArtifactPath is where the interpreted backend's generated
// source for fingerprint lives (§6: "generated_<hash>.ext").
func InterpretedArtifactPath(fingerprint string) string {
	return filepath.Join(Root(), fmt.Sprintf("generated_%s.go", fingerprint))
}

// NativeArtifactDir is where the native backend's source, build
// descriptor, and compiled library for fingerprint live (§6: "cpp_<hash>/").
func NativeArtifactDir(fingerprint string) string {
	return filepath.Join(Root(), fmt.Sprintf("cpp_%s", fingerprint))
}

// Exists reports whether path (an interpreted artifact file or a native
// artifact directory) has already been committed.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Staging is a scratch directory a builder writes a kernel's artifacts
// into before they're known-good. CommitDir moves it into place as target
// atomically; Discard removes it on any build failure.
type Staging struct {
	Dir string
}

// Stage allocates a fresh, uuid-named scratch directory under the cache
// root. Using a random name (rather than building directly under the
// entry's real path) means two concurrent builds of different kernels
// never collide, and a crashed build never leaves a half-written entry
// where a later Exists check would find it.
func Stage() (*Staging, error) {
	root := Root()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create root %s: %w", root, err)
	}
	dir := filepath.Join(root, ".staging-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create staging dir: %w", err)
	}
	return &Staging{Dir: dir}, nil
}

// CommitDir atomically publishes the staging directory itself as target
// (used by the native backend, whose artifact is a directory).
func (s *Staging) CommitDir(target string) error {
	if err := os.Rename(s.Dir, target); err != nil {
		s.Discard()
		return fmt.Errorf("cache: commit %s: %w", target, err)
	}
	return nil
}

// CommitFile atomically publishes name (a file within the staging
// directory) as target (used by the interpreted backend, whose artifact
// is a single source file).
func (s *Staging) CommitFile(name, target string) error {
	defer s.Discard()
	if err := os.Rename(filepath.Join(s.Dir, name), target); err != nil {
		return fmt.Errorf("cache: commit %s: %w", target, err)
	}
	return nil
}

// Discard removes the staging directory without publishing it.
func (s *Staging) Discard() {
	_ = os.RemoveAll(s.Dir)
}
