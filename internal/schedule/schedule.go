// Package schedule runs named jobs on wall-clock specs and fixed intervals.
// Every firing runs in its own goroutine with panic recovery, so a slow or
// crashing job never stalls or terminates the scheduler.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/rileyhilliard/nekowatch/internal/logger"
	"golang.org/x/sync/errgroup"
)

// Any matches every value of a Spec field.
const Any = -1

// Spec is a wall-clock trigger. Each field is either Any or the exact value
// the time must have. Date is the day of the month.
type Spec struct {
	Second int
	Minute int
	Hour   int
	Date   int
}

// Validate checks the field ranges.
func (s Spec) Validate() error {
	check := func(name string, v, lo, hi int) error {
		if v == Any || (v >= lo && v <= hi) {
			return nil
		}
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("schedule %s %d out of range %d-%d", name, v, lo, hi), "")
	}
	if err := check("second", s.Second, 0, 59); err != nil {
		return err
	}
	if err := check("minute", s.Minute, 0, 59); err != nil {
		return err
	}
	if err := check("hour", s.Hour, 0, 23); err != nil {
		return err
	}
	return check("date", s.Date, 1, 31)
}

func (s Spec) String() string {
	f := func(v int) string {
		if v == Any {
			return "*"
		}
		return fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("date=%s hour=%s minute=%s second=%s", f(s.Date), f(s.Hour), f(s.Minute), f(s.Second))
}

// maxSteps bounds Next for specs that never match (date 31 is still found
// within two months).
const maxSteps = 10000

// Next returns the first whole second strictly after t that matches the spec,
// in t's location. It returns the zero time if nothing matches.
func (s Spec) Next(t time.Time) time.Time {
	loc := t.Location()
	t = t.Truncate(time.Second).Add(time.Second)

	for i := 0; i < maxSteps; i++ {
		y, mo, d := t.Date()
		h, mi, sec := t.Clock()

		switch {
		case s.Date != Any && d != s.Date:
			t = time.Date(y, mo, d+1, 0, 0, 0, 0, loc)
		case s.Hour != Any && h != s.Hour:
			t = time.Date(y, mo, d, h+1, 0, 0, 0, loc)
		case s.Minute != Any && mi != s.Minute:
			t = time.Date(y, mo, d, h, mi+1, 0, 0, loc)
		case s.Second != Any && sec != s.Second:
			t = time.Date(y, mo, d, h, mi, sec+1, 0, loc)
		default:
			return t
		}
	}
	return time.Time{}
}

// Job is the unit of scheduled work.
type Job func(ctx context.Context)

// Registrar accepts job registrations. Collectors and aggregators register
// against it without knowing how jobs are driven.
type Registrar interface {
	At(name string, spec Spec, job Job)
	Every(name string, interval time.Duration, job Job)
}

// Observer is told about every finished job run.
type Observer interface {
	JobFinished(name string, elapsed time.Duration, panicked bool)
}

type entry struct {
	name     string
	spec     Spec
	interval time.Duration
	job      Job
}

// Scheduler drives registered jobs until its context is canceled.
type Scheduler struct {
	loc      *time.Location
	log      logger.Logger
	observer Observer
	now      func() time.Time

	mu      sync.Mutex
	entries []entry
	running sync.WaitGroup
}

var _ Registrar = (*Scheduler)(nil)

// New creates a scheduler evaluating wall-clock specs in loc.
func New(loc *time.Location, log logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Scheduler{loc: loc, log: log, now: time.Now}
}

// SetObserver installs o to receive job run reports. Call before Run.
func (s *Scheduler) SetObserver(o Observer) {
	s.observer = o
}

// At registers job to run whenever the wall clock matches spec.
func (s *Scheduler) At(name string, spec Spec, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry{name: name, spec: spec, job: job})
}

// Every registers job to run every interval. Runs are launched without
// waiting for the previous one to finish.
func (s *Scheduler) Every(name string, interval time.Duration, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry{name: name, interval: interval, job: job})
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Run drives every registered job until ctx is canceled, then waits for the
// runs still in progress. It fails fast on an invalid registration.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	entries := make([]entry, len(s.entries))
	copy(entries, s.entries)
	s.mu.Unlock()

	for _, e := range entries {
		if e.interval == 0 {
			if err := e.spec.Validate(); err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig, "Invalid schedule for job "+e.name, "")
			}
		} else if e.interval < 0 {
			return errors.New(errors.ErrConfig, "Invalid interval for job "+e.name, "")
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range entries {
		e := e
		if e.interval > 0 {
			g.Go(func() error { s.loopEvery(gctx, e); return nil })
		} else {
			g.Go(func() error { s.loopAt(gctx, e); return nil })
		}
	}
	err := g.Wait()
	s.running.Wait()
	return err
}

func (s *Scheduler) loopEvery(ctx context.Context, e entry) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	s.log.Debug("job %s every %s", e.name, e.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(ctx, e)
		}
	}
}

func (s *Scheduler) loopAt(ctx context.Context, e entry) {
	for {
		now := s.now().In(s.loc)
		next := e.spec.Next(now)
		if next.IsZero() {
			s.log.Warn("job %s never fires (%s)", e.name, e.spec)
			return
		}
		s.log.Debug("job %s next run at %s", e.name, next.Format(time.RFC3339))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.fire(ctx, e)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, e entry) {
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		start := time.Now()
		panicked := true
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("job %s panicked: %v", e.name, r)
			}
			if s.observer != nil {
				s.observer.JobFinished(e.name, time.Since(start), panicked)
			}
		}()
		e.job(ctx)
		panicked = false
	}()
}
