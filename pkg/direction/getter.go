// Package direction provides the sources of local propagation directions
// consumed by the tracker: precomputed peak fields, diffusion tensor fields
// and a constant direction for synthetic data.
package direction

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Getter supplies the next propagation direction at a position. prev is the
// zero vector when there is no previous direction (the first step from a
// seed). The returned direction is a unit vector; ok is false when no
// direction is available.
type Getter interface {
	NextDirection(p, prev r3.Vec) (dir r3.Vec, ok bool)
}

// Fixed always returns the same direction, regardless of position
type Fixed struct {
	dir r3.Vec
	ok  bool
}

// NewFixed returns a getter for the normalized dir. A zero dir yields a
// getter that never has a direction.
func NewFixed(dir r3.Vec) *Fixed {
	u, ok := normalize(dir)
	return &Fixed{dir: u, ok: ok}
}

// NextDirection returns the fixed direction, flipped to agree with prev so
// that backward tracking from a seed keeps moving backwards.
func (f *Fixed) NextDirection(_, prev r3.Vec) (r3.Vec, bool) {
	if !f.ok {
		return r3.Vec{}, false
	}
	if r3.Dot(f.dir, prev) < 0 {
		return r3.Scale(-1, f.dir), true
	}
	return f.dir, true
}

// normalize returns the unit vector of v, or false if v has no usable length
func normalize(v r3.Vec) (r3.Vec, bool) {
	n := r3.Norm(v)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return r3.Vec{}, false
	}
	return r3.Scale(1/n, v), true
}

// isZero reports whether prev carries no direction
func isZero(v r3.Vec) bool {
	return v == r3.Vec{}
}

// cosLimit converts a maximum angle in degrees to the minimum |cos| allowed
// between consecutive directions. Angles outside (0, 90] disable the check.
func cosLimit(maxAngle float64) float64 {
	if maxAngle <= 0 || maxAngle >= 90 {
		return 0
	}
	return math.Cos(maxAngle * math.Pi / 180)
}

// align picks, among the candidate axes, the one most collinear with prev,
// flipping it to point the same way. Axes are treated as sign-free, as
// diffusion peaks are.
func align(candidates []r3.Vec, prev r3.Vec, minCos float64) (r3.Vec, bool) {
	if len(candidates) == 0 {
		return r3.Vec{}, false
	}
	if isZero(prev) {
		return candidates[0], true
	}
	u, ok := normalize(prev)
	if !ok {
		return r3.Vec{}, false
	}

	best, bestCos := r3.Vec{}, -1.0
	for _, c := range candidates {
		cos := r3.Dot(c, u)
		if math.Abs(cos) > bestCos {
			bestCos = math.Abs(cos)
			best = c
			if cos < 0 {
				best = r3.Scale(-1, c)
			}
		}
	}
	if bestCos < minCos {
		return r3.Vec{}, false
	}
	return best, true
}
