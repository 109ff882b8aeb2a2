package simulation

import (
	"context"
	"time"

	"bikerace/backend/internal/metrics"
)

const (
	DefaultStep            = time.Second / 60
	DefaultMaxCatchUpSteps = 5
)

// Loop drives a Race at a fixed timestep from wall-clock time. When a frame
// falls further behind than maxCatchUp steps the excess is dropped rather
// than simulated.
type Loop struct {
	race       *Race
	step       time.Duration
	maxCatchUp int
	metrics    *metrics.Race

	acc     time.Duration
	dropped int
}

func NewLoop(r *Race, step time.Duration, maxCatchUp int, m *metrics.Race) *Loop {
	if step <= 0 {
		step = DefaultStep
	}
	if maxCatchUp <= 0 {
		maxCatchUp = DefaultMaxCatchUpSteps
	}
	return &Loop{race: r, step: step, maxCatchUp: maxCatchUp, metrics: m}
}

func (l *Loop) Race() *Race { return l.race }

// Step is the fixed timestep.
func (l *Loop) Step() time.Duration { return l.step }

// Dropped is the total number of steps skipped so far.
func (l *Loop) Dropped() int { return l.dropped }

// Advance accounts for elapsed wall time and runs the whole steps it covers,
// at most maxCatchUp of them. The sub-step remainder carries over.
func (l *Loop) Advance(elapsed time.Duration) (steps, dropped int) {
	if elapsed > 0 {
		l.acc += elapsed
	}
	steps = int(l.acc / l.step)
	if steps > l.maxCatchUp {
		dropped = steps - l.maxCatchUp
		steps = l.maxCatchUp
	}
	l.acc -= time.Duration(steps+dropped) * l.step
	l.dropped += dropped

	dt := l.step.Seconds()
	for range steps {
		l.race.Tick(dt)
	}
	l.metrics.Frame(steps, dropped)
	return steps, dropped
}

// Run ticks the race in real time until ctx is cancelled or the race
// finishes. Cancellation is only observed between frames, so a tick is
// never cut short.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.step)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			l.Advance(now.Sub(last))
			last = now
			if l.race.Finished() {
				return nil
			}
		}
	}
}
