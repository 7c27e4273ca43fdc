package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/scanlabel/internal/scan"
	"github.com/banshee-data/scanlabel/internal/viewport"
)

var (
	colorBackground = color.RGBA{G: 160, A: 255}
	colorObject     = color.RGBA{R: 220, A: 255}
	colorOutline    = color.RGBA{B: 230, A: 255}
)

// LabelColor returns the display colour for a label value.
func LabelColor(label int) color.RGBA {
	if label == scan.LabelObject {
		return colorObject
	}
	return colorBackground
}

// Style controls the size of rendered images.
type Style struct {
	Width     vg.Length
	Height    vg.Length
	PointSize vg.Length
	Title     string
}

// DefaultStyle is a square 9in image with 2.5pt markers.
func DefaultStyle() Style {
	return Style{
		Width:     9 * vg.Inch,
		Height:    9 * vg.Inch,
		PointSize: vg.Points(2.5),
	}
}

func (st Style) withDefaults() Style {
	d := DefaultStyle()
	if st.Width <= 0 {
		st.Width = d.Width
	}
	if st.Height <= 0 {
		st.Height = d.Height
	}
	if st.PointSize <= 0 {
		st.PointSize = d.PointSize
	}
	return st
}

// splitByLabel returns the finite points of s grouped by label.
func splitByLabel(s *scan.Scan) (bg, obj plotter.XYs) {
	if s == nil {
		return nil, nil
	}
	for _, r := range s.Records {
		if math.IsNaN(r.X) || math.IsNaN(r.Y) || math.IsInf(r.X, 0) || math.IsInf(r.Y, 0) {
			continue
		}
		pt := plotter.XY{X: r.X, Y: r.Y}
		if r.Label == scan.LabelObject {
			obj = append(obj, pt)
		} else {
			bg = append(bg, pt)
		}
	}
	return bg, obj
}

func outlineXYs(box r2.Box) plotter.XYs {
	return plotter.XYs{
		{X: box.Min.X, Y: box.Min.Y},
		{X: box.Max.X, Y: box.Min.Y},
		{X: box.Max.X, Y: box.Max.Y},
		{X: box.Min.X, Y: box.Max.Y},
		{X: box.Min.X, Y: box.Min.Y},
	}
}

// NewPlot builds a plot of the points with the axes fixed to window.
// Background points are green, labeled points red, and outline, when not
// nil, is drawn as a blue rectangle.
func NewPlot(s *scan.Scan, window r2.Box, outline *r2.Box, st Style) (*plot.Plot, error) {
	st = st.withDefaults()
	bg, obj := splitByLabel(s)
	return buildPlot(bg, obj, window, outline, st)
}

func buildPlot(bg, obj plotter.XYs, window r2.Box, outline *r2.Box, st Style) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = st.Title
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"
	p.Add(plotter.NewGrid())

	for _, series := range []struct {
		pts plotter.XYs
		c   color.Color
	}{
		{bg, colorBackground},
		{obj, colorObject},
	} {
		if len(series.pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(series.pts)
		if err != nil {
			return nil, fmt.Errorf("failed to build scatter: %w", err)
		}
		sc.GlyphStyle.Color = series.c
		sc.GlyphStyle.Radius = st.PointSize
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
	}

	if outline != nil {
		line, err := plotter.NewLine(outlineXYs(*outline))
		if err != nil {
			return nil, fmt.Errorf("failed to build outline: %w", err)
		}
		line.Color = colorOutline
		line.Width = vg.Points(2)
		p.Add(line)
	}

	// Add widens the axes to the data; the window wins.
	if window.Max.X <= window.Min.X || window.Max.Y <= window.Min.Y {
		window = viewport.New(0).Bounds()
	}
	p.X.Min, p.X.Max = window.Min.X, window.Max.X
	p.Y.Min, p.Y.Max = window.Min.Y, window.Max.Y
	return p, nil
}

// PlotCanvas is a Canvas that keeps a snapshot of the last drawn frame and
// rasterises it on demand.
type PlotCanvas struct {
	mu      sync.Mutex
	style   Style
	bg, obj plotter.XYs
	window  r2.Box
	outline *r2.Box
	drawn   bool
	title   string // st.Title, shown when no scan is loaded
}

// NewPlotCanvas returns an empty PlotCanvas.
func NewPlotCanvas(st Style) *PlotCanvas {
	st = st.withDefaults()
	return &PlotCanvas{style: st, title: st.Title}
}

// DrawScan copies the points of s so later label edits do not leak into
// the frame until the next redraw.
func (pc *PlotCanvas) DrawScan(s *scan.Scan, window r2.Box) {
	bg, obj := splitByLabel(s)
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.bg, pc.obj = bg, obj
	pc.window = window
	pc.drawn = true
	pc.style.Title = pc.title
	if s != nil && s.Source != "" {
		pc.style.Title = s.Source
	}
}

func (pc *PlotCanvas) DrawOutline(box r2.Box) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	b := box
	pc.outline = &b
}

func (pc *PlotCanvas) ClearOutline() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.outline = nil
}

// Drawn reports whether a scan has been drawn yet.
func (pc *PlotCanvas) Drawn() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.drawn
}

// Encode writes the current frame in format ("png", "svg", ...) to w.
func (pc *PlotCanvas) Encode(w io.Writer, format string) error {
	pc.mu.Lock()
	p, err := buildPlot(pc.bg, pc.obj, pc.window, pc.outline, pc.style)
	st := pc.style
	pc.mu.Unlock()
	if err != nil {
		return err
	}

	wt, err := p.WriterTo(st.Width, st.Height, format)
	if err != nil {
		return fmt.Errorf("failed to create %s canvas: %w", format, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return nil
}

// SavePlot renders s inside window and writes it to file; the format
// follows the file extension.
func SavePlot(s *scan.Scan, window r2.Box, st Style, file string) error {
	st = st.withDefaults()
	p, err := NewPlot(s, window, nil, st)
	if err != nil {
		return err
	}
	if err := p.Save(st.Width, st.Height, file); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
