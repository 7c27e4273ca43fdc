// Package render turns scans and selection outlines into pictures.
//
// The interactive core only talks to a Canvas. PlotCanvas rasterises with
// gonum/plot for the HTTP host and the CLI, Chart builds an interactive
// go-echarts page, and Recorder keeps the command stream for tests and for
// the host's state endpoint.
package render

import (
	"sync"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/scanlabel/internal/scan"
)

// Canvas accepts draw commands in data-space coordinates.
type Canvas interface {
	// DrawScan redraws every point of s inside the square window.
	DrawScan(s *scan.Scan, window r2.Box)
	// DrawOutline shows the live selection rectangle.
	DrawOutline(box r2.Box)
	// ClearOutline removes the selection rectangle.
	ClearOutline()
}

// OpKind identifies a recorded draw command.
type OpKind int

const (
	OpDrawScan OpKind = iota
	OpDrawOutline
	OpClearOutline
)

func (k OpKind) String() string {
	switch k {
	case OpDrawScan:
		return "draw_scan"
	case OpDrawOutline:
		return "draw_outline"
	case OpClearOutline:
		return "clear_outline"
	default:
		return "unknown"
	}
}

// Op is one recorded draw command.
type Op struct {
	Kind   OpKind
	Window r2.Box
	Box    r2.Box
	// Labeled is the number of label-1 points at draw time (OpDrawScan only).
	Labeled int
	Points  int
}

// Recorder is a Canvas that remembers what was drawn.
type Recorder struct {
	mu      sync.Mutex
	ops     []Op
	limit   int
	frames  int
	window  r2.Box
	outline *r2.Box
}

// NewRecorder returns a Recorder that keeps at most limit ops (0 keeps all).
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) DrawScan(s *scan.Scan, window r2.Box) {
	r.mu.Lock()
	defer r.mu.Unlock()
	op := Op{Kind: OpDrawScan, Window: window}
	if s != nil {
		op.Points = s.Len()
		op.Labeled = s.Count(scan.LabelObject)
	}
	r.frames++
	r.window = window
	r.appendLocked(op)
}

func (r *Recorder) DrawOutline(box r2.Box) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := box
	r.outline = &b
	r.appendLocked(Op{Kind: OpDrawOutline, Box: box})
}

func (r *Recorder) ClearOutline() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outline = nil
	r.appendLocked(Op{Kind: OpClearOutline})
}

func (r *Recorder) appendLocked(op Op) {
	r.ops = append(r.ops, op)
	if r.limit > 0 && len(r.ops) > r.limit {
		r.ops = append(r.ops[:0], r.ops[len(r.ops)-r.limit:]...)
	}
}

// Ops returns a copy of the recorded commands, oldest first.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// Frames returns the number of full scan redraws seen.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Window returns the window of the most recent scan redraw.
func (r *Recorder) Window() r2.Box {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.window
}

// Outline returns the visible selection rectangle, if any.
func (r *Recorder) Outline() (r2.Box, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outline == nil {
		return r2.Box{}, false
	}
	return *r.outline, true
}

// Reset forgets all recorded commands.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
	r.frames = 0
	r.window = r2.Box{}
	r.outline = nil
}

type multi []Canvas

// Multi returns a Canvas that forwards every command to each of cs in order.
// Nil canvases are skipped.
func Multi(cs ...Canvas) Canvas {
	var m multi
	for _, c := range cs {
		if c != nil {
			m = append(m, c)
		}
	}
	return m
}

func (m multi) DrawScan(s *scan.Scan, window r2.Box) {
	for _, c := range m {
		c.DrawScan(s, window)
	}
}

func (m multi) DrawOutline(box r2.Box) {
	for _, c := range m {
		c.DrawOutline(box)
	}
}

func (m multi) ClearOutline() {
	for _, c := range m {
		c.ClearOutline()
	}
}

// Discard is a Canvas that draws nothing.
var Discard Canvas = discard{}

type discard struct{}

func (discard) DrawScan(*scan.Scan, r2.Box) {}
func (discard) DrawOutline(r2.Box)          {}
func (discard) ClearOutline()               {}
