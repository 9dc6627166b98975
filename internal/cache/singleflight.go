package cache

import "golang.org/x/sync/singleflight"

// BuildGroup deduplicates concurrent builds of the same fingerprint within
// one process: two goroutines racing to compile the same kernel source
// block on a single underlying build instead of racing each other into the
// cache directory.
type BuildGroup struct {
	g singleflight.Group
}

// Do runs fn for fingerprint if no build for it is already in flight, or
// waits for and shares the result of the in-flight one.
func (b *BuildGroup) Do(fingerprint string, fn func() (any, error)) (any, error, bool) {
	return b.g.Do(fingerprint, fn)
}
