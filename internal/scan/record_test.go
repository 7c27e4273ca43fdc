package scan

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want PointRecord
	}{
		{
			name: "compact",
			line: "0,1,0,1,0,0",
			want: PointRecord{Index: 0, Range: 1, Angle: 0, X: 1, Y: 0, Label: 0},
		},
		{
			name: "producer spacing",
			line: "12, 2.5, -0.75, 1.829, -1.704, 0\n",
			want: PointRecord{Index: 12, Range: 2.5, Angle: -0.75, X: 1.829, Y: -1.704, Label: 0},
		},
		{
			name: "labeled",
			line: "2,1,3.14,-1,0,1",
			want: PointRecord{Index: 2, Range: 1, Angle: 3.14, X: -1, Y: 0, Label: 1},
		},
		{
			name: "exponent",
			line: "7,1e-05,1.5707963267948966,6.123233995736766e-22,1e-05,0",
			want: PointRecord{Index: 7, Range: 1e-05, Angle: 1.5707963267948966, X: 6.123233995736766e-22, Y: 1e-05},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_NonFiniteRange(t *testing.T) {
	t.Parallel()

	got, err := Decode("3, inf, 0.1, inf, inf, 0")
	require.NoError(t, err)
	assert.True(t, math.IsInf(got.Range, 1))
	assert.True(t, math.IsInf(got.X, 1))
}

func TestDecode_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		line  string
		field string
	}{
		{"too few fields", "0,1,0,1,0", ""},
		{"too many fields", "0,1,0,1,0,0,9", ""},
		{"empty", "", ""},
		{"float index", "0.5,1,0,1,0,0", "index"},
		{"bad range", "0,abc,0,1,0,0", "range"},
		{"bad y", "0,1,0,1,,0", "y"},
		{"float label", "0,1,0,1,0,1.0", "label"},
		{"label out of domain", "0,1,0,1,0,2", "label"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.line)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedRecord), "expected ErrMalformedRecord, got %v", err)

			var recErr *RecordError
			require.True(t, errors.As(err, &recErr))
			assert.Equal(t, tt.field, recErr.Field)
		})
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	r := PointRecord{Index: 1, Range: 1, Angle: 1.57, X: 0, Y: 1, Label: 1}
	assert.Equal(t, "1,1,1.57,0,1,1\n", Encode(r))
	assert.True(t, strings.HasSuffix(Encode(PointRecord{}), "\n"))
	assert.Equal(t, FieldCount, len(strings.Split(strings.TrimSpace(Encode(r)), ",")))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		angle := (rng.Float64()*2 - 1) * math.Pi
		r := FromPolar(i, rng.ExpFloat64()*10, angle)
		r.Label = rng.Intn(2)

		got, err := Decode(Encode(r))
		require.NoError(t, err)
		require.Equal(t, r, got, "record %d did not round-trip", i)
	}
}

func TestFromPolar(t *testing.T) {
	t.Parallel()

	r := FromPolar(4, 2, math.Pi/2)
	assert.Equal(t, 4, r.Index)
	assert.InDelta(t, 0, r.X, 1e-12)
	assert.InDelta(t, 2, r.Y, 1e-12)
	assert.Equal(t, LabelBackground, r.Label)
}
