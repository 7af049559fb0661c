package spinmutex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/yudhasubki/spinmutex/pkg/cas"
	"github.com/yudhasubki/spinmutex/pkg/metric"
	"golang.org/x/exp/constraints"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidConfig   = errors.New("invalid stress config")
	ErrLostUpdate      = errors.New("lost update")
	ErrWorkerFailed    = errors.New("worker failed")
	ErrLivenessTimeout = errors.New("workers did not finish in time")
)

const (
	DefaultWorkers    = 100
	DefaultIterations = 1000
	DefaultTimeout    = time.Minute
)

const (
	logPrefixRun        = "run_id"
	logPrefixErr        = "error"
	logPrefixWorker     = "worker"
	logPrefixWorkers    = "workers"
	logPrefixIterations = "iterations"
)

type Config struct {
	Workers    int
	Iterations int
	Timeout    time.Duration
}

func (c Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidConfig, c.Iterations)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

type Result struct {
	ID         string        `json:"id"`
	Workers    int           `json:"workers"`
	Iterations int           `json:"iterations"`
	Expected   uint64        `json:"expected"`
	Final      uint64        `json:"final"`
	Elapsed    time.Duration `json:"elapsed"`
	StartedAt  time.Time     `json:"started_at"`
	Err        string        `json:"error,omitempty"`
}

// Stress hammers a single spin mutex guarding a counter of type C. C must be
// wide enough to hold Workers*Iterations or the run reports a lost update.
type Stress[C constraints.Integer] struct {
	cfg  Config
	step func(v *C)
	last *cas.Mutex[*Result]
}

func New[C constraints.Integer](cfg Config) *Stress[C] {
	return &Stress[C]{
		cfg:  cfg.withDefaults(),
		step: func(v *C) { *v++ },
		last: cas.New[*Result](nil),
	}
}

// Last returns a copy of the most recent result and false when nothing has run.
func (s *Stress[C]) Last() (Result, bool) {
	last := cas.WithLock(s.last, func(r **Result) *Result { return *r })
	if last == nil {
		return Result{}, false
	}
	return *last, true
}

// Run spawns the workers against a fresh counter, joins them and checks that
// no increment was lost. The counter lives in this frame for the whole run.
func (s *Stress[C]) Run(ctx context.Context) (Result, error) {
	if err := s.cfg.Validate(); err != nil {
		return Result{}, err
	}

	var (
		counter = cas.New[C](0)
		result  = Result{
			ID:         uuid.NewString(),
			Workers:    s.cfg.Workers,
			Iterations: s.cfg.Iterations,
			Expected:   uint64(s.cfg.Workers) * uint64(s.cfg.Iterations),
			StartedAt:  time.Now(),
		}
	)

	slog.Info(
		"starting stress run",
		logPrefixRun, result.ID,
		logPrefixWorkers, result.Workers,
		logPrefixIterations, result.Iterations,
	)

	err := s.join(ctx, counter, result.ID)
	if err == nil {
		result.Final = uint64(cas.WithLock(counter, func(v *C) C { return *v }))
		if result.Final != result.Expected {
			err = fmt.Errorf("%w: expected %d, got %d", ErrLostUpdate, result.Expected, result.Final)
		}
	}
	result.Elapsed = time.Since(result.StartedAt)

	s.record(&result, err)
	return result, err
}

func (s *Stress[C]) join(ctx context.Context, counter *cas.Mutex[C], runID string) error {
	ctx, cancel := context.WithTimeoutCause(ctx, s.cfg.Timeout, ErrLivenessTimeout)
	defer cancel()

	var g errgroup.Group
	for i := 0; i < s.cfg.Workers; i++ {
		no := i
		g.Go(func() error {
			return s.worker(ctx, no, counter)
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		select {
		case err = <-done:
		default:
			err = ctx.Err()
		}
	}

	// only our own deadline is a liveness failure; the caller's is passed through
	if err != nil && errors.Is(context.Cause(ctx), ErrLivenessTimeout) {
		slog.Error("stress run timed out", logPrefixRun, runID, logPrefixErr, err)
		return fmt.Errorf("%w after %s", ErrLivenessTimeout, s.cfg.Timeout)
	}
	return err
}

func (s *Stress[C]) worker(ctx context.Context, no int, counter *cas.Mutex[C]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker panicked", logPrefixWorker, no, logPrefixErr, r)
			err = fmt.Errorf("%w: worker %d: %v", ErrWorkerFailed, no, r)
		}
	}()

	done := 0
	defer func() {
		metric.Acquisitions.Add(float64(done))
	}()

	for ; done < s.cfg.Iterations; done++ {
		// abandoning is only checked between critical sections
		if ctx.Err() != nil {
			return ctx.Err()
		}
		counter.Do(s.step)
	}

	return nil
}

func (s *Stress[C]) record(result *Result, err error) {
	outcome := metric.OutcomeOK
	switch {
	case err == nil:
		slog.Info("stress run finished",
			logPrefixRun, result.ID,
			"final", result.Final,
			"elapsed", result.Elapsed,
		)
	case errors.Is(err, ErrLostUpdate):
		outcome = metric.OutcomeLostUpdate
	case errors.Is(err, ErrLivenessTimeout):
		outcome = metric.OutcomeTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = metric.OutcomeCanceled
	default:
		outcome = metric.OutcomeWorkerFailed
	}
	if err != nil {
		result.Err = err.Error()
		slog.Error("stress run failed", logPrefixRun, result.ID, logPrefixErr, err)
	}

	metric.Runs.WithLabelValues(outcome).Inc()
	metric.RunDuration.Observe(result.Elapsed.Seconds())

	last := *result
	s.last.Do(func(r **Result) { *r = &last })
}
