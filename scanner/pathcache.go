package scanner

import (
	"sync/atomic"
	"time"

	"github.com/defistate/defistate-arb-go/engine"
)

// DefaultCacheTTL is how long a ranked path set is reused before a rebuild.
const DefaultCacheTTL = 5 * time.Minute

type pathSnapshot struct {
	paths   []engine.Path
	builtAt time.Time
}

// PathCache holds the ranked candidate paths and when they were built.
// Readers always see a complete snapshot.
type PathCache struct {
	ttl  time.Duration
	now  func() time.Time
	snap atomic.Pointer[pathSnapshot]
}

// NewPathCache creates an empty cache. now defaults to time.Now.
func NewPathCache(ttl time.Duration, now func() time.Time) *PathCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &PathCache{ttl: ttl, now: now}
}

// Fresh reports whether a snapshot exists and is no older than the TTL.
func (c *PathCache) Fresh() bool {
	s := c.snap.Load()
	return s != nil && c.now().Sub(s.builtAt) <= c.ttl
}

// Store replaces the snapshot, stamping it with the current time.
func (c *PathCache) Store(paths []engine.Path) {
	c.snap.Store(&pathSnapshot{paths: paths, builtAt: c.now()})
}

// Paths returns the cached paths. The slice must not be modified.
func (c *PathCache) Paths() []engine.Path {
	if s := c.snap.Load(); s != nil {
		return s.paths
	}
	return nil
}

// BuiltAt returns when the snapshot was stored, zero if never.
func (c *PathCache) BuiltAt() time.Time {
	if s := c.snap.Load(); s != nil {
		return s.builtAt
	}
	return time.Time{}
}

// Len returns the number of cached paths.
func (c *PathCache) Len() int {
	return len(c.Paths())
}
