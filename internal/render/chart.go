package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/scanlabel/internal/scan"
)

// ChartOptions configures the HTML scatter view.
type ChartOptions struct {
	Theme      string
	Size       string // CSS size for both width and height, e.g. "900px"
	SymbolSize int
	AssetsHost string
}

func (o ChartOptions) withDefaults() ChartOptions {
	if o.Theme == "" {
		o.Theme = "dark"
	}
	if o.Size == "" {
		o.Size = "900px"
	}
	if o.SymbolSize <= 0 {
		o.SymbolSize = 5
	}
	return o
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// NewChart builds an interactive scatter chart of s with square axes fixed
// to window. Each label gets its own series so the legend can toggle them.
func NewChart(s *scan.Scan, window r2.Box, o ChartOptions) *charts.Scatter {
	o = o.withDefaults()

	var bg, obj []opts.ScatterData
	name := ""
	if s != nil {
		name = filepath.Base(s.Source)
		for _, r := range s.Records {
			if math.IsNaN(r.X) || math.IsNaN(r.Y) || math.IsInf(r.X, 0) || math.IsInf(r.Y, 0) {
				continue
			}
			pt := opts.ScatterData{Value: []interface{}{r.X, r.Y, r.Index}}
			if r.Label == scan.LabelObject {
				obj = append(obj, pt)
			} else {
				bg = append(bg, pt)
			}
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Scan Labels", Theme: o.Theme, Width: o.Size, Height: o.Size, AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Scan Labels", Subtitle: fmt.Sprintf("file=%s background=%d object=%d", name, len(bg), len(obj))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: window.Min.X, Max: window.Max.X, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: window.Min.Y, Max: window.Max.Y, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("background", bg,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: o.SymbolSize}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(LabelColor(scan.LabelBackground))}),
	)
	scatter.AddSeries("object", obj,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: o.SymbolSize}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(LabelColor(scan.LabelObject))}),
	)
	return scatter
}

// RenderChart writes the chart page for s to w.
func RenderChart(w io.Writer, s *scan.Scan, window r2.Box, o ChartOptions) error {
	if err := NewChart(s, window, o).Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
