package gps

import (
	"context"
	"sync"
	"time"

	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/pkg/errs"
)

// Simulator is a Source that moves along a straight line between two
// points, one step per fix, and then stays at the destination.
type Simulator struct {
	from, to kernel.GeoPoint
	steps    int
	delay    time.Duration
	now      func() time.Time

	mu   sync.Mutex
	step int
}

// NewSimulator builds a route of steps fixes. delay is how long each fix
// takes to arrive; a delay longer than the session timeout produces
// timeouts.
func NewSimulator(from, to kernel.GeoPoint, steps int, delay time.Duration) (*Simulator, error) {
	if err := from.Validate(); err != nil {
		return nil, errs.NewValueIsRequiredErrorWithCause("from", err)
	}
	if err := to.Validate(); err != nil {
		return nil, errs.NewValueIsRequiredErrorWithCause("to", err)
	}
	if steps < 1 {
		return nil, errs.NewValueIsOutOfRangeError("steps", steps, 1, "unbounded")
	}
	return &Simulator{from: from, to: to, steps: steps, delay: delay, now: time.Now}, nil
}

func (s *Simulator) Next(ctx context.Context, accuracy Accuracy) (Fix, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Fix{}, ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	step := min(s.step, s.steps)
	if s.step < s.steps {
		s.step++
	}
	s.mu.Unlock()

	ratio := float64(step) / float64(s.steps)
	point, err := kernel.NewGeoPoint(
		s.from.Lat()+(s.to.Lat()-s.from.Lat())*ratio,
		s.from.Lng()+(s.to.Lng()-s.from.Lng())*ratio,
	)
	if err != nil {
		return Fix{}, err
	}
	return Fix{Point: point, Accuracy: accuracy, At: s.now()}, nil
}

// Arrived reports whether the destination has been reached.
func (s *Simulator) Arrived() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step >= s.steps
}
