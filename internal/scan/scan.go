package scan

import (
	"bufio"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/banshee-data/scanlabel/internal/fsutil"
)

// maxLineBytes bounds a single record line. Real lines are well under 100 bytes.
const maxLineBytes = 64 * 1024

// Scan is an ordered sequence of point records, one per beam index.
// Record order is significant and is preserved on save.
type Scan struct {
	// Source is the path the scan was loaded from, empty for scans built in memory.
	Source  string
	Records []PointRecord
}

// New wraps records in a Scan without copying them.
func New(records []PointRecord) *Scan {
	return &Scan{Records: records}
}

// Load reads and decodes a record file. Any malformed line rejects the whole
// file; a partial scan is never returned. Trailing blank lines are ignored.
func Load(fsys fsutil.FileSystem, path string) (*Scan, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	s := &Scan{Source: path}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)

	lineNo := 0
	blankAt := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if blankAt == 0 {
				blankAt = lineNo
			}
			continue
		}
		if blankAt != 0 {
			return nil, &RecordError{Line: blankAt, Err: errors.New("blank line inside record data")}
		}

		rec, err := Decode(line)
		if err != nil {
			var recErr *RecordError
			if errors.As(err, &recErr) {
				recErr.Line = lineNo
			}
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		s.Records = append(s.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("%s: %w", path, &RecordError{Line: lineNo + 1, Err: err})
		}
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}

	return s, nil
}

// Save encodes every record in order and writes it to dir/name. The data is
// written to a hidden temporary file in dir and renamed into place, so a
// reader never observes a partially written label file. It returns the path
// written.
func Save(fsys fsutil.FileSystem, s *Scan, dir, name string) (string, error) {
	if dir == "" {
		return "", ErrNoTargetDirectory
	}

	var b strings.Builder
	b.Grow(len(s.Records) * 64)
	for _, r := range s.Records {
		appendRecord(&b, r)
	}

	target := filepath.Join(dir, name)
	tmp := filepath.Join(dir, "."+name+".tmp")
	if err := fsys.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return "", &IOError{Op: "write", Path: tmp, Err: err}
	}
	if err := fsys.Rename(tmp, target); err != nil {
		_ = fsys.Remove(tmp)
		return "", &IOError{Op: "rename", Path: target, Err: err}
	}

	return target, nil
}

// Len returns the number of records.
func (s *Scan) Len() int { return len(s.Records) }

// SetLabel sets the label of record i. An out-of-range index or a label other
// than LabelBackground/LabelObject is a programming error and panics.
func (s *Scan) SetLabel(i, label int) {
	if i < 0 || i >= len(s.Records) {
		panic(fmt.Sprintf("scan: SetLabel index %d out of range [0,%d)", i, len(s.Records)))
	}
	if label != LabelBackground && label != LabelObject {
		panic(fmt.Sprintf("scan: SetLabel invalid label %d", label))
	}
	s.Records[i].Label = label
}

// Count returns how many records carry label.
func (s *Scan) Count(label int) int {
	n := 0
	for _, r := range s.Records {
		if r.Label == label {
			n++
		}
	}
	return n
}

// Labels returns the label of every record in order.
func (s *Scan) Labels() []int {
	labels := make([]int, len(s.Records))
	for i, r := range s.Records {
		labels[i] = r.Label
	}
	return labels
}

// Clone returns a deep copy of s.
func (s *Scan) Clone() *Scan {
	records := make([]PointRecord, len(s.Records))
	copy(records, s.Records)
	return &Scan{Source: s.Source, Records: records}
}
