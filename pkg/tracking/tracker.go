// Package tracking propagates streamlines from seeds through a direction
// field until a stopping criterion halts them.
package tracking

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"localtrack/internal/models"
	"localtrack/pkg/direction"
	"localtrack/pkg/stopping"
)

// Seed is the starting point of one streamline, in voxel coordinates.
// When HasDirection is false the direction getter picks the initial
// direction at the seed.
type Seed struct {
	Position     r3.Vec
	Direction    r3.Vec
	HasDirection bool
}

// Result is the outcome of tracking a single seed
type Result struct {
	// SeedIndex is the position of the seed in the input sequence
	SeedIndex int

	// Streamline holds backward points (reversed), the seed, then forward points
	Streamline models.Streamline

	// SeedState is the classification of the seed position itself
	SeedState stopping.State

	// Forward and Backward are the states that halted each direction
	Forward  stopping.State
	Backward stopping.State

	// Capped is set when either direction was cut by the step cap
	Capped bool

	// Err is set when tracking the seed failed unexpectedly. The states are
	// then left at their zero values.
	Err error
}

// Valid reports whether the streamline started in a trackable position and
// both of its ends reached ENDPOINT or OUTSIDEIMAGE.
func (r Result) Valid() bool {
	return r.Err == nil && r.SeedState == stopping.TrackPoint && r.Forward.Valid() && r.Backward.Valid()
}

// Tracker integrates single streamlines. It holds no per-streamline state,
// so one Tracker can serve any number of goroutines.
type Tracker struct {
	criterion stopping.Criterion
	getter    direction.Getter
	stepSize  float64
	maxSteps  int
}

// NewTracker creates a tracker. params must have been validated.
func NewTracker(criterion stopping.Criterion, getter direction.Getter, params Params) *Tracker {
	return &Tracker{
		criterion: criterion,
		getter:    getter,
		stepSize:  params.StepSize,
		maxSteps:  params.MaxSteps,
	}
}

// TrackDirection follows the direction field from start, beginning with dir
// as the previous direction. It returns the points produced (excluding
// start), the state that halted tracking, and whether the step cap fired.
//
// Points classified TRACKPOINT are appended and tracking continues. The
// first point classified otherwise is appended and ends tracking. When the
// getter has no direction, tracking halts as TRACKPOINT without adding a
// point.
func (t *Tracker) TrackDirection(start, dir r3.Vec) ([]r3.Vec, stopping.State, bool) {
	var points []r3.Vec
	pos, prev := start, dir

	for {
		if len(points) >= t.maxSteps {
			return points, stopping.TrackPoint, true
		}

		next, ok := t.getter.NextDirection(pos, prev)
		if !ok {
			return points, stopping.TrackPoint, false
		}
		next, ok = unit(next)
		if !ok {
			return points, stopping.TrackPoint, false
		}

		pos = r3.Add(pos, r3.Scale(t.stepSize, next))
		state := t.criterion.Classify(pos)
		points = append(points, pos)
		if state != stopping.TrackPoint {
			return points, state, false
		}
		prev = next
	}
}

// Track builds the full streamline for a seed: forward from the seed, then
// backward along the negated initial direction.
func (t *Tracker) Track(seed Seed) Result {
	origin := seed.Position
	res := Result{Streamline: models.Streamline{origin}}

	res.SeedState = t.criterion.Classify(origin)
	if res.SeedState != stopping.TrackPoint {
		// Nothing to propagate from; the seed is reported as it was classified
		res.Forward, res.Backward = res.SeedState, res.SeedState
		return res
	}

	dir, ok := t.initialDirection(seed)
	if !ok {
		res.Forward, res.Backward = stopping.TrackPoint, stopping.TrackPoint
		return res
	}

	forward, fstate, fcap := t.TrackDirection(origin, dir)
	backward, bstate, bcap := t.TrackDirection(origin, r3.Scale(-1, dir))

	line := make(models.Streamline, 0, len(backward)+1+len(forward))
	for i := len(backward) - 1; i >= 0; i-- {
		line = append(line, backward[i])
	}
	line = append(line, origin)
	line = append(line, forward...)

	res.Streamline = line
	res.Forward, res.Backward = fstate, bstate
	res.Capped = fcap || bcap
	return res
}

func (t *Tracker) initialDirection(seed Seed) (r3.Vec, bool) {
	if seed.HasDirection {
		if dir, ok := unit(seed.Direction); ok {
			return dir, true
		}
	}
	dir, ok := t.getter.NextDirection(seed.Position, r3.Vec{})
	if !ok {
		return r3.Vec{}, false
	}
	return unit(dir)
}

// unit normalizes v, rejecting zero and non-finite vectors
func unit(v r3.Vec) (r3.Vec, bool) {
	n := r3.Norm(v)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return r3.Vec{}, false
	}
	return r3.Scale(1/n, v), true
}
