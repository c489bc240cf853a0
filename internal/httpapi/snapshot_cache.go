package httpapi

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/haldane/mlfqkernel/internal/kernel"
)

// snapshotCache coalesces concurrent GET /api/processes callers into one
// Kernel.Snapshot() table walk, the same shape as the teacher's
// SummaryService.Get: a short-TTL cache guarded by singleflight so a burst
// of pollers hitting the admin API during a demo doesn't each take the
// table lock independently.
type snapshotCache struct {
	k   *kernel.Kernel
	ttl time.Duration

	mu      sync.RWMutex
	cache   []kernel.ProcSnapshot
	expires time.Time

	sg singleflight.Group
}

func newSnapshotCache(k *kernel.Kernel, ttl time.Duration) *snapshotCache {
	if ttl <= 0 {
		ttl = 50 * time.Millisecond
	}
	return &snapshotCache{k: k, ttl: ttl}
}

func (s *snapshotCache) get() []kernel.ProcSnapshot {
	s.mu.RLock()
	if s.cache != nil && time.Now().Before(s.expires) {
		out := s.cache
		s.mu.RUnlock()
		return out
	}
	s.mu.RUnlock()

	v, _, _ := s.sg.Do("snapshot", func() (any, error) {
		s.mu.RLock()
		if s.cache != nil && time.Now().Before(s.expires) {
			out := s.cache
			s.mu.RUnlock()
			return out, nil
		}
		s.mu.RUnlock()

		snap := s.k.Snapshot()

		s.mu.Lock()
		s.cache = snap
		s.expires = time.Now().Add(s.ttl)
		s.mu.Unlock()

		return snap, nil
	})
	return v.([]kernel.ProcSnapshot)
}
