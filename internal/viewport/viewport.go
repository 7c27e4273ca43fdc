// Package viewport owns the visible square window of the plot.
package viewport

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	// DefaultHalfExtent is the half-width of the initial window in data units.
	DefaultHalfExtent = 20.0
	// MinHalfExtent is the smallest half-width zooming can reach.
	MinHalfExtent = 1.0
)

// Viewport is a square window [-HalfExtent, +HalfExtent] on both axes.
// It is a pure function of its initial extent and the zoom deltas applied.
type Viewport struct {
	HalfExtent float64
	initial    float64
}

// New returns a viewport starting at halfExtent, or DefaultHalfExtent when
// halfExtent is not positive. The start value is clamped to MinHalfExtent.
func New(halfExtent float64) *Viewport {
	if halfExtent <= 0 {
		halfExtent = DefaultHalfExtent
	}
	halfExtent = math.Max(MinHalfExtent, halfExtent)
	return &Viewport{HalfExtent: halfExtent, initial: halfExtent}
}

// Fit returns a viewport whose window covers box, rounded up to a whole
// data unit so zoom steps stay on integers.
func Fit(box r2.Box) *Viewport {
	h := math.Max(math.Max(math.Abs(box.Min.X), math.Abs(box.Max.X)),
		math.Max(math.Abs(box.Min.Y), math.Abs(box.Max.Y)))
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return New(0)
	}
	return New(math.Max(MinHalfExtent, math.Ceil(h)))
}

// Zoom adds delta to the half extent, never going below MinHalfExtent.
// There is no upper bound.
func (v *Viewport) Zoom(delta int) float64 {
	v.HalfExtent = math.Max(MinHalfExtent, v.HalfExtent+float64(delta))
	return v.HalfExtent
}

// Reset restores the half extent the viewport was created with.
func (v *Viewport) Reset() {
	v.HalfExtent = v.initial
}

// Bounds returns the visible window.
func (v *Viewport) Bounds() r2.Box {
	h := v.HalfExtent
	return r2.Box{Min: r2.Vec{X: -h, Y: -h}, Max: r2.Vec{X: h, Y: h}}
}

// Contains reports whether p lies inside the visible window, edges included.
func (v *Viewport) Contains(p r2.Vec) bool {
	h := v.HalfExtent
	return p.X >= -h && p.X <= h && p.Y >= -h && p.Y <= h
}
