package scan

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
)

// Stats summarises a scan for display.
type Stats struct {
	Points  int `json:"points"`
	Labeled int `json:"labeled"`
	// Invalid counts records whose X or Y is not finite (no return).
	Invalid  int     `json:"invalid"`
	MinX     float64 `json:"min_x"`
	MaxX     float64 `json:"max_x"`
	MinY     float64 `json:"min_y"`
	MaxY     float64 `json:"max_y"`
	MaxRange float64 `json:"max_range"`
}

// Stats computes point counts and the extent of all finite points.
func (s *Scan) Stats() Stats {
	st := Stats{Points: len(s.Records)}

	xs := make([]float64, 0, len(s.Records))
	ys := make([]float64, 0, len(s.Records))
	ranges := make([]float64, 0, len(s.Records))
	for _, r := range s.Records {
		if r.Label == LabelObject {
			st.Labeled++
		}
		if !finite(r.X) || !finite(r.Y) {
			st.Invalid++
			continue
		}
		xs = append(xs, r.X)
		ys = append(ys, r.Y)
		ranges = append(ranges, r.Range)
	}

	if len(xs) > 0 {
		st.MinX, st.MaxX = floats.Min(xs), floats.Max(xs)
		st.MinY, st.MaxY = floats.Min(ys), floats.Max(ys)
		st.MaxRange = floats.Max(ranges)
	}
	return st
}

// Extent returns the bounding box of all finite points.
func (st Stats) Extent() r2.Box {
	return r2.Box{
		Min: r2.Vec{X: st.MinX, Y: st.MinY},
		Max: r2.Vec{X: st.MaxX, Y: st.MaxY},
	}
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
