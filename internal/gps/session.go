// Package gps acquires position fixes for an agent and hands them to a
// publisher. A Session starts with high accuracy, falls back to low
// accuracy once after a timeout and fails on anything else.
package gps

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/pkg/errs"
)

var (
	// ErrGeolocationTimeout is returned when no fix arrives within the wait.
	ErrGeolocationTimeout = errors.New("geolocation timed out")

	// ErrGeolocationUnavailable is returned when the source cannot produce
	// fixes at all.
	ErrGeolocationUnavailable = errors.New("geolocation is unavailable")
)

type State int

const (
	StateIdle State = iota
	StateHighAccuracyWatching
	StateLowAccuracyWatching
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateHighAccuracyWatching:
		return "HighAccuracyWatching"
	case StateLowAccuracyWatching:
		return "LowAccuracyWatching"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Watching reports whether fixes are being acquired.
func (s State) Watching() bool {
	return s == StateHighAccuracyWatching || s == StateLowAccuracyWatching
}

type Accuracy int

const (
	AccuracyHigh Accuracy = iota
	AccuracyLow
)

func (a Accuracy) String() string {
	if a == AccuracyHigh {
		return "high"
	}
	return "low"
}

// Fix is one position reading.
type Fix struct {
	Point    kernel.GeoPoint
	Accuracy Accuracy
	At       time.Time
}

// Source produces fixes. Next blocks until a fix is available or ctx ends;
// a deadline on ctx bounds the wait.
type Source interface {
	Next(ctx context.Context, accuracy Accuracy) (Fix, error)
}

// PublishFunc receives every fix while the session is watching.
type PublishFunc func(ctx context.Context, fix Fix) error

type Options struct {
	// HighAccuracyTimeout bounds the wait for a fix while watching with high
	// accuracy. Defaults to 10s.
	HighAccuracyTimeout time.Duration
	// LowAccuracyTimeout bounds the wait in the fallback mode. Defaults to 30s.
	LowAccuracyTimeout time.Duration
	// Interval is the pause between fixes. Zero samples continuously.
	Interval time.Duration
	// OnStateChange is called after every transition, outside the lock.
	OnStateChange func(from, to State)
}

// Session is one continuous sampling run. Callers must not start a second
// run while one is active.
type Session struct {
	source  Source
	publish PublishFunc
	opts    Options
	logger  *slog.Logger

	mu      sync.Mutex
	state   State
	lastErr error
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewSession(source Source, publish PublishFunc, opts Options, logger *slog.Logger) (*Session, error) {
	if source == nil {
		return nil, errs.NewValueIsRequiredError("source")
	}
	if publish == nil {
		return nil, errs.NewValueIsRequiredError("publish")
	}
	if opts.HighAccuracyTimeout <= 0 {
		opts.HighAccuracyTimeout = 10 * time.Second
	}
	if opts.LowAccuracyTimeout <= 0 {
		opts.LowAccuracyTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	closed := make(chan struct{})
	close(closed)
	return &Session{
		source:  source,
		publish: publish,
		opts:    opts,
		logger:  logger.With("component", "gps_session"),
		state:   StateIdle,
		done:    closed,
	}, nil
}

// Start begins watching with high accuracy. A run that is still active is
// stopped first.
func (s *Session) Start(ctx context.Context) {
	s.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.lastErr = nil
	s.mu.Unlock()

	s.transition(StateHighAccuracyWatching)
	go s.run(runCtx, done)
}

// Stop ends the run and returns once no further fix can be published.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.transition(StateIdle)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure currently surfaced, if any. A later fix clears it.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Done is closed when the current run has ended, by Stop or by failure.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Session) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	accuracy := AccuracyHigh
	for {
		fix, err := s.next(ctx, accuracy)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			if isTimeout(err) && accuracy == AccuracyHigh {
				s.logger.InfoContext(ctx, "High accuracy fix timed out, falling back to low accuracy")
				accuracy = AccuracyLow
				s.setErr(ErrGeolocationTimeout)
				s.transition(StateLowAccuracyWatching)
				continue
			}
			if isTimeout(err) {
				err = ErrGeolocationTimeout
			}
			s.logger.ErrorContext(ctx, "Position acquisition failed", "accuracy", accuracy.String(), "error", err)
			s.setErr(err)
			s.transition(StateFailed)
			return
		}

		s.setErr(nil)
		if err := s.publish(ctx, fix); err != nil && ctx.Err() == nil {
			s.logger.WarnContext(ctx, "Failed to publish fix", "error", err)
		}

		if s.opts.Interval > 0 {
			timer := time.NewTimer(s.opts.Interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

func (s *Session) next(ctx context.Context, accuracy Accuracy) (Fix, error) {
	timeout := s.opts.HighAccuracyTimeout
	if accuracy == AccuracyLow {
		timeout = s.opts.LowAccuracyTimeout
	}
	fixCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.source.Next(fixCtx, accuracy)
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Session) transition(to State) {
	s.mu.Lock()
	from := s.state
	if from == to {
		s.mu.Unlock()
		return
	}
	s.state = to
	s.mu.Unlock()

	s.logger.Debug("GPS state changed", "from", from.String(), "to", to.String())
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(from, to)
	}
}

func isTimeout(err error) bool {
	return errors.Is(err, ErrGeolocationTimeout) || errors.Is(err, context.DeadlineExceeded)
}
