package render

import (
	"bytes"
	"image/png"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/scanlabel/internal/scan"
)

func testScan() *scan.Scan {
	s := scan.New([]scan.PointRecord{
		{Index: 0, Range: 1, Angle: 0, X: 1, Y: 0},
		{Index: 1, Range: 1, Angle: 1.57, X: 0, Y: 1, Label: 1},
		{Index: 2, Range: 1, Angle: 3.14, X: -1, Y: 0},
		{Index: 3, Range: math.Inf(1), Angle: 0.2, X: math.Inf(1), Y: math.Inf(1)},
	})
	s.Source = "/data/scan_0000.txt"
	return s
}

var window = r2.Box{Min: r2.Vec{X: -20, Y: -20}, Max: r2.Vec{X: 20, Y: 20}}

func TestRecorder(t *testing.T) {
	rec := NewRecorder(0)
	s := testScan()

	rec.DrawScan(s, window)
	box := r2.Box{Min: r2.Vec{X: -1, Y: -1}, Max: r2.Vec{X: 1, Y: 1}}
	rec.DrawOutline(box)

	got, ok := rec.Outline()
	require.True(t, ok)
	assert.Equal(t, box, got)

	rec.ClearOutline()
	_, ok = rec.Outline()
	assert.False(t, ok)

	ops := rec.Ops()
	require.Len(t, ops, 3)
	assert.Equal(t, OpDrawScan, ops[0].Kind)
	assert.Equal(t, 4, ops[0].Points)
	assert.Equal(t, 1, ops[0].Labeled)
	assert.Equal(t, "clear_outline", ops[2].Kind.String())
	assert.Equal(t, 1, rec.Frames())
	assert.Equal(t, window, rec.Window())

	rec.Reset()
	assert.Empty(t, rec.Ops())
	assert.Zero(t, rec.Frames())
}

func TestRecorder_Limit(t *testing.T) {
	rec := NewRecorder(2)
	for i := 0; i < 5; i++ {
		rec.DrawOutline(r2.Box{Max: r2.Vec{X: float64(i), Y: 1}})
	}
	ops := rec.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, 4.0, ops[1].Box.Max.X)
}

func TestMulti(t *testing.T) {
	a, b := NewRecorder(0), NewRecorder(0)
	c := Multi(a, nil, b)

	c.DrawScan(testScan(), window)
	c.DrawOutline(window)
	c.ClearOutline()

	assert.Len(t, a.Ops(), 3)
	assert.Len(t, b.Ops(), 3)

	Discard.DrawScan(nil, window)
}

func TestPlotCanvas_EncodePNG(t *testing.T) {
	pc := NewPlotCanvas(Style{Width: 200, Height: 200})
	assert.False(t, pc.Drawn())

	pc.DrawScan(testScan(), window)
	pc.DrawOutline(r2.Box{Min: r2.Vec{X: -0.5, Y: -0.5}, Max: r2.Vec{X: 1.5, Y: 1.5}})
	assert.True(t, pc.Drawn())

	var buf bytes.Buffer
	require.NoError(t, pc.Encode(&buf, "png"))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)
}

func TestPlotCanvas_EmptyFrame(t *testing.T) {
	pc := NewPlotCanvas(Style{Width: 100, Height: 100})

	var buf bytes.Buffer
	require.NoError(t, pc.Encode(&buf, "png"))
	assert.NotZero(t, buf.Len())
}

func TestPlotCanvas_TitleFollowsScan(t *testing.T) {
	pc := NewPlotCanvas(Style{Width: 100, Height: 100, Title: "labeler"})
	s := testScan()
	s.Source = "/data/scan_0004.txt"

	pc.DrawScan(s, window)
	assert.Equal(t, "/data/scan_0004.txt", pc.style.Title)

	// A failed load draws no scan; the old file name must not linger.
	pc.DrawScan(nil, window)
	assert.Equal(t, "labeler", pc.style.Title)

	var buf bytes.Buffer
	require.NoError(t, pc.Encode(&buf, "png"))
}

func TestPlotCanvas_UnknownFormat(t *testing.T) {
	pc := NewPlotCanvas(DefaultStyle())
	pc.DrawScan(testScan(), window)

	var buf bytes.Buffer
	err := pc.Encode(&buf, "bmp-ish")
	assert.Error(t, err)
}

func TestNewPlot_AxesFollowWindow(t *testing.T) {
	small := r2.Box{Min: r2.Vec{X: -1, Y: -1}, Max: r2.Vec{X: 1, Y: 1}}
	p, err := NewPlot(testScan(), small, nil, DefaultStyle())
	require.NoError(t, err)

	assert.Equal(t, -1.0, p.X.Min)
	assert.Equal(t, 1.0, p.X.Max)
	assert.Equal(t, -1.0, p.Y.Min)
	assert.Equal(t, 1.0, p.Y.Max)
}

func TestSplitByLabel(t *testing.T) {
	bg, obj := splitByLabel(testScan())
	assert.Len(t, bg, 2)
	assert.Len(t, obj, 1)

	bg, obj = splitByLabel(nil)
	assert.Empty(t, bg)
	assert.Empty(t, obj)
}

func TestSavePlot(t *testing.T) {
	file := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, SavePlot(testScan(), window, Style{Width: 150, Height: 150}, file))
}

func TestRenderChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderChart(&buf, testScan(), window, ChartOptions{}))

	html := buf.String()
	assert.True(t, strings.Contains(html, "Scan Labels"))
	assert.True(t, strings.Contains(html, "scan_0000.txt"))
	assert.True(t, strings.Contains(html, hexColor(LabelColor(scan.LabelObject))))
}

func TestLabelColor(t *testing.T) {
	assert.Equal(t, "#dc0000", hexColor(LabelColor(scan.LabelObject)))
	assert.Equal(t, "#00a000", hexColor(LabelColor(scan.LabelBackground)))
}
