package models

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Streamline is an ordered list of 3D points approximating a fiber pathway
type Streamline []r3.Vec

// Length returns the arc length of the streamline in the units of its points
func (s Streamline) Length() float64 {
	total := 0.0
	for i := 1; i < len(s); i++ {
		total += r3.Norm(r3.Sub(s[i], s[i-1]))
	}
	return total
}
