// Package landmark turns face-mesh landmarks into the mouth and eye point
// sets used for fatigue detection and computes their openness ratios.
package landmark

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

const (
	MouthPoints = 7
	EyePoints   = 6
)

var (
	ErrSetSize    = errors.New("landmark: wrong number of points")
	ErrIndexRange = errors.New("landmark: index out of range")
)

// Point is a landmark position in frame pixel space.
type Point struct {
	X, Y float64
}

// NormPoint is a landmark as reported by the face-mesh model, normalized to
// the frame size (0-1 on both axes).
type NormPoint struct {
	X, Y float64
}

// Distance returns the Euclidean distance between p and q.
func Distance(p, q Point) float64 {
	return floats.Distance([]float64{p.X, p.Y}, []float64{q.X, q.Y}, 2)
}

// Mouth point roles, in set order.
const (
	MouthLeftCorner = iota
	MouthRightCorner
	MouthUpperOuter
	MouthUpperInner
	MouthLowerInner
	MouthLowerOuter
	MouthInnerCorner
)

// Eye point roles, in set order.
const (
	EyeOuterCorner = iota
	EyeUpperA
	EyeUpperB
	EyeInnerCorner
	EyeLowerB
	EyeLowerA
)

// MouthSet is the ordered mouth landmark set. Order matters: a misordered
// set still produces a ratio, just a wrong one.
type MouthSet [MouthPoints]Point

// EyeSet is the ordered landmark set of one eye.
type EyeSet [EyePoints]Point

func NewMouthSet(pts []Point) (MouthSet, error) {
	var s MouthSet
	if len(pts) != MouthPoints {
		return s, fmt.Errorf("mouth set: got %d, want %d: %w", len(pts), MouthPoints, ErrSetSize)
	}
	copy(s[:], pts)
	return s, nil
}

func NewEyeSet(pts []Point) (EyeSet, error) {
	var s EyeSet
	if len(pts) != EyePoints {
		return s, fmt.Errorf("eye set: got %d, want %d: %w", len(pts), EyePoints, ErrSetSize)
	}
	copy(s[:], pts)
	return s, nil
}

// Scale returns a copy of the set with every coordinate multiplied by k.
func (s MouthSet) Scale(k float64) MouthSet {
	for i := range s {
		s[i] = Point{s[i].X * k, s[i].Y * k}
	}
	return s
}

func (s EyeSet) Scale(k float64) EyeSet {
	for i := range s {
		s[i] = Point{s[i].X * k, s[i].Y * k}
	}
	return s
}

// Face holds the point sets extracted from one detected face.
type Face struct {
	Mouth    MouthSet
	LeftEye  EyeSet
	RightEye EyeSet
}
