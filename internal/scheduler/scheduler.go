// Package scheduler provides the named recurring jobs the enforcement loops
// run on. Jobs are keyed by name: scheduling a name that already exists
// replaces the old job, and cancelling an unknown name is a no-op, so callers
// can manage job lifecycles without tracking handles.
//
// A single goroutine dispatches due jobs one at a time in deterministic name
// order. That serialization is load-bearing for callers whose callbacks do
// check-then-act sequences on shared state.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultResolution is how often the dispatch loop wakes to look for due
// jobs. Job intervals are multiples of seconds in practice, so one second is
// plenty.
const DefaultResolution = time.Second

type job struct {
	name  string
	next  time.Time
	every time.Duration
	fn    func(ctx context.Context)
}

// Scheduler runs named recurring jobs.
type Scheduler struct {
	// Resolution is the dispatch loop's wake interval. Zero means
	// DefaultResolution.
	Resolution time.Duration

	log zerolog.Logger
	now func() time.Time

	mu   sync.Mutex
	jobs map[string]*job
}

// New constructs a Scheduler. The clock is the wall clock; tests substitute
// their own via the now field.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		log:  log.With().Str("component", "scheduler").Logger(),
		now:  time.Now,
		jobs: make(map[string]*job),
	}
}

// Schedule registers fn to run after first, then every interval thereafter.
// An existing job with the same name is replaced, counter and schedule
// included.
func (s *Scheduler) Schedule(name string, first, every time.Duration, fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[name] = &job{
		name:  name,
		next:  s.now().Add(first),
		every: every,
		fn:    fn,
	}
}

// Cancel removes the named job. Unknown names are a no-op; a job may cancel
// itself from inside its own callback.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, name)
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Run dispatches jobs until ctx is done. It owns the only goroutine that
// ever invokes job callbacks.
func (s *Scheduler) Run(ctx context.Context) {
	res := s.Resolution
	if res <= 0 {
		res = DefaultResolution
	}
	ticker := time.NewTicker(res)
	defer ticker.Stop()

	s.log.Info().Dur("resolution", res).Msg("scheduler running")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.dispatchDue(ctx, s.now())
		}
	}
}

// dispatchDue runs every job whose deadline has passed, in name order, and
// advances their deadlines. Callbacks run outside the registry lock so they
// can reschedule or cancel jobs, themselves included.
func (s *Scheduler) dispatchDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	var due []*job
	for _, j := range s.jobs {
		if !j.next.After(now) {
			j.next = now.Add(j.every)
			due = append(due, j)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, k int) bool { return due[i].name < due[k].name })
	for _, j := range due {
		s.runJob(ctx, j)
	}
}

func (s *Scheduler) runJob(ctx context.Context, j *job) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("job", j.name).Msg("job panicked")
		}
	}()
	j.fn(ctx)
}
