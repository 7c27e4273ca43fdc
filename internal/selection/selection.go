// Package selection turns a pointer drag into a rectangular bulk label
// assignment on the loaded scan.
//
// The engine is a three-state machine: Idle, Dragging and Committing. A
// pointer-down inside the plot axes starts a drag, moves redraw the live
// outline, and the pointer-up commits by labeling every point inside the
// rectangle (bounds inclusive) as LabelObject. Labels are never cleared by a
// selection, so repeated drags only grow the labeled set.
package selection

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/scanlabel/internal/render"
	"github.com/banshee-data/scanlabel/internal/scan"
)

// State of the selection engine.
type State int

const (
	Idle State = iota
	Dragging
	Committing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Committing:
		return "committing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Pointer is a pointer position in data-space coordinates. Defined is false
// when the pointer is outside the plot axes and X, Y carry no meaning.
type Pointer struct {
	X, Y    float64
	Defined bool
}

// At returns a defined pointer position.
func At(x, y float64) Pointer {
	return Pointer{X: x, Y: y, Defined: true}
}

// Outside is the undefined-position sentinel.
var Outside = Pointer{}

func (p Pointer) vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// Result describes a finished drag.
type Result struct {
	Box r2.Box
	// Matched counts every point inside Box, including points that were
	// already labeled.
	Matched int
	// NewlyLabeled counts points that changed from background to object.
	NewlyLabeled int
	// Discarded is set when the drag ended outside the axes and nothing
	// was applied.
	Discarded bool
}

// Engine tracks at most one active drag.
type Engine struct {
	canvas  render.Canvas
	state   State
	origin  r2.Vec
	current r2.Vec
}

// New returns an idle engine that draws outlines on canvas. A nil canvas
// draws nothing.
func New(canvas render.Canvas) *Engine {
	if canvas == nil {
		canvas = render.Discard
	}
	return &Engine{canvas: canvas}
}

// State returns the current state.
func (e *Engine) State() State { return e.state }

// Active reports whether a drag is in progress.
func (e *Engine) Active() bool { return e.state == Dragging }

// Origin returns the drag origin when a drag is active.
func (e *Engine) Origin() (r2.Vec, bool) {
	if e.state != Dragging {
		return r2.Vec{}, false
	}
	return e.origin, true
}

// Box returns the live rectangle, normalised, when a drag is active.
func (e *Engine) Box() (r2.Box, bool) {
	if e.state != Dragging {
		return r2.Box{}, false
	}
	return normalize(e.origin, e.current), true
}

// PointerDown starts a drag when p is inside the axes. It returns whether a
// drag was started. A pointer-down during a drag restarts it from p; the
// release of the earlier drag was lost.
func (e *Engine) PointerDown(p Pointer) bool {
	if e.state == Committing || !p.Defined {
		return false
	}
	if e.state == Dragging {
		e.canvas.ClearOutline()
	}
	e.origin = p.vec()
	e.current = e.origin
	e.state = Dragging
	return true
}

// PointerMove updates the live rectangle and redraws the outline. Moves
// without a drag or without a defined position are ignored.
func (e *Engine) PointerMove(p Pointer) {
	if e.state != Dragging || !p.Defined {
		return
	}
	e.current = p.vec()
	e.canvas.DrawOutline(normalize(e.origin, e.current))
}

// PointerUp ends the drag. With a defined position the rectangle from the
// origin to p is applied to s and the scan is redrawn inside window; with an
// undefined position the drag is discarded. ok is false when no drag was
// active.
func (e *Engine) PointerUp(p Pointer, s *scan.Scan, window r2.Box) (res Result, ok bool) {
	if e.state != Dragging {
		return Result{}, false
	}

	if !p.Defined {
		e.state = Idle
		e.canvas.ClearOutline()
		return Result{Box: normalize(e.origin, e.current), Discarded: true}, true
	}

	e.state = Committing
	box := normalize(e.origin, p.vec())
	res = Apply(s, box)
	e.state = Idle

	e.canvas.ClearOutline()
	e.canvas.DrawScan(s, window)
	return res, true
}

// Cancel drops an in-flight drag without touching any labels.
func (e *Engine) Cancel() {
	if e.state == Dragging {
		e.canvas.ClearOutline()
	}
	e.state = Idle
}

// Apply labels every point of s inside box as LabelObject. Bounds are
// inclusive on both axes. A nil scan matches nothing.
func Apply(s *scan.Scan, box r2.Box) Result {
	res := Result{Box: box}
	if s == nil {
		return res
	}
	for i, r := range s.Records {
		if !Contains(box, r.X, r.Y) {
			continue
		}
		res.Matched++
		if r.Label != scan.LabelObject {
			s.SetLabel(i, scan.LabelObject)
			res.NewlyLabeled++
		}
	}
	return res
}

// Contains reports whether (x, y) lies inside box, edges included.
// NaN coordinates never match.
func Contains(box r2.Box, x, y float64) bool {
	return box.Min.X <= x && x <= box.Max.X && box.Min.Y <= y && y <= box.Max.Y
}

// normalize orders the corners on each axis. r2.NewBox takes the min/max
// per axis, so the drag direction does not matter.
func normalize(a, b r2.Vec) r2.Box {
	return r2.NewBox(a.X, a.Y, b.X, b.Y)
}
