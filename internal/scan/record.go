// Package scan holds the point record codec and the in-memory scan store.
//
// A record file is UTF-8 text with one point per line and six
// comma-separated fields in fixed order:
//
//	index,range,angle,x,y,label
//
// index and label are integers, the others floating point. There is no
// header line and every record ends with a newline.
package scan

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Label values.
const (
	LabelBackground = 0
	LabelObject     = 1
)

// FieldCount is the number of fields in a record line.
const FieldCount = 6

var fieldNames = [FieldCount]string{"index", "range", "angle", "x", "y", "label"}

// PointRecord is one beam return of a range scan.
// X and Y are derived from Range and Angle when the record is produced and
// are never recomputed; Label is the only field mutated after creation.
type PointRecord struct {
	Index int
	Range float64
	Angle float64
	X     float64
	Y     float64
	Label int
}

// FromPolar builds an unlabeled record from a polar range/angle pair.
func FromPolar(index int, rng, angle float64) PointRecord {
	return PointRecord{
		Index: index,
		Range: rng,
		Angle: angle,
		X:     rng * math.Cos(angle),
		Y:     rng * math.Sin(angle),
		Label: LabelBackground,
	}
}

// Decode parses one record line. Surrounding whitespace on the line and on
// each field is ignored, so the producer's ", " separator is accepted.
func Decode(line string) (PointRecord, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != FieldCount {
		return PointRecord{}, &RecordError{
			Text: line,
			Err:  fmt.Errorf("expected %d fields, got %d", FieldCount, len(fields)),
		}
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	var (
		r   PointRecord
		err error
	)
	fail := func(field int, err error) (PointRecord, error) {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		return PointRecord{}, &RecordError{Field: fieldNames[field], Text: line, Err: fmt.Errorf("%q: %w", fields[field], err)}
	}

	if r.Index, err = strconv.Atoi(fields[0]); err != nil {
		return fail(0, err)
	}
	dsts := [...]*float64{&r.Range, &r.Angle, &r.X, &r.Y}
	for i, dst := range dsts {
		if *dst, err = strconv.ParseFloat(fields[i+1], 64); err != nil {
			return fail(i+1, err)
		}
	}
	if r.Label, err = strconv.Atoi(fields[5]); err != nil {
		return fail(5, err)
	}
	if r.Label != LabelBackground && r.Label != LabelObject {
		return fail(5, fmt.Errorf("label must be %d or %d", LabelBackground, LabelObject))
	}

	return r, nil
}

// Encode formats a record as one line including the trailing newline.
// Floats use the shortest representation that parses back to the same
// float64, so Decode(Encode(r)) == r for every finite record.
func Encode(r PointRecord) string {
	var b strings.Builder
	b.Grow(64)
	appendRecord(&b, r)
	return b.String()
}

func appendRecord(b *strings.Builder, r PointRecord) {
	var buf [32]byte
	b.Write(strconv.AppendInt(buf[:0], int64(r.Index), 10))
	for _, v := range [...]float64{r.Range, r.Angle, r.X, r.Y} {
		b.WriteByte(',')
		b.Write(strconv.AppendFloat(buf[:0], v, 'g', -1, 64))
	}
	b.WriteByte(',')
	b.Write(strconv.AppendInt(buf[:0], int64(r.Label), 10))
	b.WriteByte('\n')
}
