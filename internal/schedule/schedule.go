// Package schedule re-runs conflict validation in the background.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tourcal/internal/depend"
	appLog "tourcal/internal/log"
	"tourcal/internal/source"
)

// Result is one validation pass.
type Result struct {
	At        time.Time         `json:"at"`
	Conflicts []depend.Conflict `json:"conflicts"`
	Errors    int               `json:"errors"`
	Warnings  int               `json:"warnings"`
}

// reloader is implemented by link stores that can pick up writes made by
// another process.
type reloader interface {
	Reload() error
}

// Revalidator runs depend.ValidateAll over a source and a link repository
// and keeps the latest result.
type Revalidator struct {
	src   source.Source
	links depend.LinkRepository

	mu   sync.RWMutex
	last *Result
	// gen counts Invalidate calls; a Run only stores its result when no
	// Invalidate happened while it was running.
	gen uint64
}

func NewRevalidator(src source.Source, links depend.LinkRepository) *Revalidator {
	return &Revalidator{src: src, links: links}
}

// Run validates now and stores the result.
func (r *Revalidator) Run(ctx context.Context) (Result, error) {
	r.mu.RLock()
	gen := r.gen
	r.mu.RUnlock()

	if rl, ok := r.links.(reloader); ok {
		if err := rl.Reload(); err != nil {
			return Result{}, err
		}
	}
	events, err := r.src.Events(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load events: %w", err)
	}

	conflicts := depend.ValidateAll(events, r.links.List())
	errs, warns := depend.Count(conflicts)
	res := Result{At: time.Now(), Conflicts: conflicts, Errors: errs, Warnings: warns}

	r.mu.Lock()
	if r.gen == gen {
		r.last = &res
	}
	r.mu.Unlock()
	return res, nil
}

// Last returns the most recent result, if any.
func (r *Revalidator) Last() (Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return Result{}, false
	}
	return *r.last, true
}

// Invalidate forgets the stored result so that the next Latest call
// validates again.
func (r *Revalidator) Invalidate() {
	r.mu.Lock()
	r.last = nil
	r.gen++
	r.mu.Unlock()
}

// Latest returns the stored result when it is younger than maxAge and
// otherwise validates again.
func (r *Revalidator) Latest(ctx context.Context, maxAge time.Duration) (Result, error) {
	if res, ok := r.Last(); ok && time.Since(res.At) < maxAge {
		return res, nil
	}
	return r.Run(ctx)
}

// Scheduler runs a Revalidator on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
}

// Start schedules r with a standard five-field cron spec and starts the
// scheduler. Overlapping runs are skipped.
func Start(ctx context.Context, spec string, r *Revalidator) (*Scheduler, error) {
	logger := cronLogger{}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))

	_, err := c.AddFunc(spec, func() {
		res, err := r.Run(ctx)
		if err != nil {
			appLog.Error("revalidation failed", err)
			return
		}
		appLog.Info("revalidated", "conflicts", len(res.Conflicts), "errors", res.Errors, "warnings", res.Warnings)
	})
	if err != nil {
		return nil, fmt.Errorf("revalidate schedule %q: %w", spec, err)
	}

	c.Start()
	appLog.Info("revalidation scheduled", "spec", spec)
	return &Scheduler{cron: c}, nil
}

// Stop stops the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// cronLogger routes cron's own messages to the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
