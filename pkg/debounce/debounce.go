// Package debounce coalesces bursts of requests into a single execution.
// One Scheduler serves one logical input stream (the search box, the
// autocomplete line): each Schedule call supersedes the previous one, and
// only the callback of the last call within the quiet window runs.
package debounce

import (
	"sync"
	"time"
)

// Scheduler debounces callbacks for a single input stream.
// The zero value is ready to use.
type Scheduler struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewScheduler returns an idle scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Schedule cancels any pending callback and arms fn to run after the quiet
// interval. If Schedule is called again before the interval elapses, fn is
// discarded in favor of the newer callback.
func (s *Scheduler) Schedule(after time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen

	s.timer = time.AfterFunc(after, func() {
		// The timer may have fired concurrently with a newer Schedule call
		// that lost the Stop race; the generation check makes the stale
		// callback a no-op.
		if !s.current(gen) {
			return
		}
		fn()
	})
}

// Stop cancels any pending callback.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Scheduler) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}
