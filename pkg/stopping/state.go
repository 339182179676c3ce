// Package stopping implements the tissue classifiers that decide, at each
// tracking step, whether a streamline keeps propagating and why it stopped.
//
// A classifier only labels positions. Whether a streamline that stopped in a
// given state is kept is decided by the tracking engine.
package stopping

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// State classifies a tracking position
type State int

const (
	// TrackPoint means tracking may continue at this position
	TrackPoint State = iota
	// EndPoint means the streamline reached a target stopping region
	EndPoint
	// InvalidPoint means the streamline reached an anatomically implausible region
	InvalidPoint
	// OutsideImage means the position left the image
	OutsideImage
)

var stateNames = map[State]string{
	TrackPoint:   "TRACKPOINT",
	EndPoint:     "ENDPOINT",
	InvalidPoint: "INVALIDPOINT",
	OutsideImage: "OUTSIDEIMAGE",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Valid reports whether a streamline direction terminating in s counts as a
// successful termination.
func (s State) Valid() bool {
	return s == EndPoint || s == OutsideImage
}

// Criterion classifies positions in voxel space. Implementations are pure
// functions of read-only map data and fixed configuration, so a single
// Criterion may be shared by concurrent trackers.
type Criterion interface {
	Classify(p r3.Vec) State
}

// Kind names a classifier variant in configuration files
type Kind string

const (
	KindThreshold Kind = "threshold"
	KindBinary    Kind = "binary"
	KindACT       Kind = "act"
)

// ParseKind validates a classifier name
func ParseKind(name string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(name))); k {
	case KindThreshold, KindBinary, KindACT:
		return k, nil
	}
	return "", fmt.Errorf("unknown classifier kind %q (must be threshold, binary or act)", name)
}
