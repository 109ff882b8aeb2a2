// Package metrics holds the race loop's OpenTelemetry instruments. They are
// created from the global meter provider, so they are no-ops until a program
// installs a real one.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Race counts what the simulation does each tick.
type Race struct {
	attrs metric.MeasurementOption

	ticks        metric.Int64Counter
	contacts     metric.Int64Counter
	pickups      metric.Int64Counter
	events       metric.Int64Counter
	droppedSteps metric.Int64Counter
	catchUp      metric.Int64Histogram
}

// NewRace creates the instruments for one race, tagged with its ID and track.
func NewRace(raceID, trackName string) (*Race, error) {
	return newRace(meter(), raceID, trackName)
}

func newRace(m metric.Meter, raceID, trackName string) (*Race, error) {
	r := &Race{
		attrs: metric.WithAttributes(
			attribute.String("race", raceID),
			attribute.String("track", trackName),
		),
	}

	var err error

	r.ticks, err = m.Int64Counter(
		"race.ticks",
		metric.WithDescription("Fixed simulation steps executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	r.contacts, err = m.Int64Counter(
		"race.collisions",
		metric.WithDescription("Vehicle-obstacle contacts resolved"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating collisions counter: %w", err)
	}

	r.pickups, err = m.Int64Counter(
		"race.pickups",
		metric.WithDescription("Power-ups collected"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pickups counter: %w", err)
	}

	r.events, err = m.Int64Counter(
		"race.events",
		metric.WithDescription("Gameplay events emitted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events counter: %w", err)
	}

	r.droppedSteps, err = m.Int64Counter(
		"race.steps.dropped",
		metric.WithDescription("Steps skipped because the loop fell behind the catch-up limit"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped steps counter: %w", err)
	}

	r.catchUp, err = m.Int64Histogram(
		"race.steps.per_frame",
		metric.WithDescription("Fixed steps run per wall-clock frame"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating catch-up histogram: %w", err)
	}

	return r, nil
}

// Tick records one step and the contacts it resolved.
func (r *Race) Tick(contacts int) {
	if r == nil {
		return
	}
	ctx := context.Background()
	r.ticks.Add(ctx, 1, r.attrs)
	if contacts > 0 {
		r.contacts.Add(ctx, int64(contacts), r.attrs)
	}
}

func (r *Race) Pickup(kind string) {
	if r == nil {
		return
	}
	r.pickups.Add(context.Background(), 1, r.attrs, metric.WithAttributes(attribute.String("powerup", kind)))
}

func (r *Race) Event(kind string) {
	if r == nil {
		return
	}
	r.events.Add(context.Background(), 1, r.attrs, metric.WithAttributes(attribute.String("type", kind)))
}

// Frame records how many steps one loop iteration ran and how many it gave up on.
func (r *Race) Frame(steps, dropped int) {
	if r == nil {
		return
	}
	ctx := context.Background()
	r.catchUp.Record(ctx, int64(steps), r.attrs)
	if dropped > 0 {
		r.droppedSteps.Add(ctx, int64(dropped), r.attrs)
	}
}
