// Package synth produces scan files the way the upstream scan converter
// does, for demos and tests.
//
// A frame is one sweep of a planar range sensor: ranges sampled at
// AngleMin + i*AngleIncrement. Each frame is written as scan_NNNN.txt with
// label 0 on every point.
package synth

import (
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/scanlabel/internal/fsutil"
	"github.com/banshee-data/scanlabel/internal/monitoring"
	"github.com/banshee-data/scanlabel/internal/scan"
)

var logf = monitoring.Component("synth")

// ScanFileFormat names producer output files by sequence number.
const ScanFileFormat = "scan_%04d.txt"

// Frame is one sensor sweep.
type Frame struct {
	AngleMin       float64
	AngleIncrement float64
	Ranges         []float64
}

// Angle returns the beam angle of index i.
func (f Frame) Angle(i int) float64 {
	return f.AngleMin + float64(i)*f.AngleIncrement
}

// Records converts the frame into unlabeled point records.
func (f Frame) Records() []scan.PointRecord {
	out := make([]scan.PointRecord, len(f.Ranges))
	for i, r := range f.Ranges {
		out[i] = scan.FromPolar(i, r, f.Angle(i))
	}
	return out
}

// Writer writes frames into a run directory with increasing sequence numbers.
type Writer struct {
	fsys fsutil.FileSystem
	dir  string
	seq  int
}

// NewWriter creates dir if needed and returns a Writer starting at sequence 0.
func NewWriter(fsys fsutil.FileSystem, dir string) (*Writer, error) {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory %s: %w", dir, err)
	}
	return &Writer{fsys: fsys, dir: dir}, nil
}

// Dir returns the run directory.
func (w *Writer) Dir() string { return w.dir }

// Write stores f as the next scan file and returns its path. Fields are
// separated by ", " as the upstream converter writes them.
func (w *Writer) Write(f Frame) (string, error) {
	var b strings.Builder
	b.Grow(len(f.Ranges) * 64)
	for _, r := range f.Records() {
		b.WriteString(strconv.Itoa(r.Index))
		for _, v := range [...]float64{r.Range, r.Angle, r.X, r.Y} {
			b.WriteString(", ")
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		b.WriteString(", 0\n")
	}

	path := filepath.Join(w.dir, fmt.Sprintf(ScanFileFormat, w.seq))
	if err := w.fsys.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write scan %d: %w", w.seq, err)
	}
	logf("Saved scan %d to %s", w.seq, path)
	w.seq++
	return path, nil
}

// Object is a round obstacle moving on a circle around Center.
type Object struct {
	Center      [2]float64
	Orbit       float64 // orbit radius, metres
	Radius      float64 // obstacle radius, metres
	AngularRate float64 // radians per frame
	Phase       float64
}

func (o Object) position(frame int) (x, y float64) {
	a := o.Phase + o.AngularRate*float64(frame)
	return o.Center[0] + o.Orbit*math.Cos(a), o.Center[1] + o.Orbit*math.Sin(a)
}

// Generator simulates a planar sensor at the origin of a rectangular room
// with moving round obstacles.
type Generator struct {
	Beams      int
	AngleMin   float64
	AngleMax   float64
	MaxRange   float64 // returns beyond this are reported as +Inf
	RoomHalfX  float64
	RoomHalfY  float64
	NoiseSigma float64
	Objects    []Object

	frame int
	rng   *rand.Rand
}

// NewGenerator returns a 360-beam generator in a 16x10 m room with two
// obstacles. seed makes the noise reproducible.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		Beams:      360,
		AngleMin:   -math.Pi,
		AngleMax:   math.Pi,
		MaxRange:   9,
		RoomHalfX:  8,
		RoomHalfY:  5,
		NoiseSigma: 0.01,
		Objects: []Object{
			{Center: [2]float64{3, 1}, Orbit: 1.5, Radius: 0.4, AngularRate: 0.1},
			{Center: [2]float64{-4, -1}, Orbit: 1, Radius: 0.3, AngularRate: -0.15, Phase: math.Pi / 2},
		},
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Next simulates the next frame.
func (g *Generator) Next() Frame {
	n := g.Beams
	if n < 1 {
		n = 1
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(1))
	}
	f := Frame{
		AngleMin:       g.AngleMin,
		AngleIncrement: (g.AngleMax - g.AngleMin) / float64(n),
		Ranges:         make([]float64, n),
	}

	for i := range f.Ranges {
		t := f.Angle(i)
		dx, dy := math.Cos(t), math.Sin(t)

		d := g.wallDistance(dx, dy)
		for _, o := range g.Objects {
			ox, oy := o.position(g.frame)
			if hit, ok := rayCircle(dx, dy, ox, oy, o.Radius); ok && hit < d {
				d = hit
			}
		}
		if g.NoiseSigma > 0 {
			d += g.rng.NormFloat64() * g.NoiseSigma
		}
		if g.MaxRange > 0 && d > g.MaxRange {
			d = math.Inf(1)
		}
		f.Ranges[i] = d
	}

	g.frame++
	return f
}

// wallDistance is the distance along (dx, dy) to the room boundary.
func (g *Generator) wallDistance(dx, dy float64) float64 {
	d := math.Inf(1)
	if dx != 0 {
		d = math.Min(d, g.RoomHalfX/math.Abs(dx))
	}
	if dy != 0 {
		d = math.Min(d, g.RoomHalfY/math.Abs(dy))
	}
	return d
}

// rayCircle returns the distance from the origin along the unit vector
// (dx, dy) to the first intersection with the circle at (cx, cy).
func rayCircle(dx, dy, cx, cy, r float64) (float64, bool) {
	b := dx*cx + dy*cy
	c := cx*cx + cy*cy - r*r
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	t := b - math.Sqrt(disc)
	if t <= 0 {
		return 0, false
	}
	return t, true
}

// Run writes frames generated by g into dir and returns the paths written.
func Run(fsys fsutil.FileSystem, dir string, g *Generator, frames int) ([]string, error) {
	w, err := NewWriter(fsys, dir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, frames)
	for i := 0; i < frames; i++ {
		path, err := w.Write(g.Next())
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
