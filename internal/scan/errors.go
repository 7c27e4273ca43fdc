package scan

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord reports a record line that cannot be decoded.
	// A file containing one is rejected as a whole.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrIO reports an unreadable or unwritable path.
	ErrIO = errors.New("i/o error")

	// ErrNoTargetDirectory reports a save attempted before a label
	// directory has been configured.
	ErrNoTargetDirectory = errors.New("no label directory configured")
)

// RecordError describes why a record line failed to decode.
type RecordError struct {
	Line  int    // 1-based line number, 0 when decoding a lone line
	Field string // field name, empty for field-count errors
	Text  string
	Err   error
}

func (e *RecordError) Error() string {
	var where string
	if e.Line > 0 {
		where = fmt.Sprintf("line %d: ", e.Line)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %sfield %s: %v", ErrMalformedRecord, where, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %s%v", ErrMalformedRecord, where, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrMalformedRecord) hold for every RecordError.
func (e *RecordError) Is(target error) bool { return target == ErrMalformedRecord }

// IOError wraps a filesystem failure on a scan or label file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrIO) hold for every IOError.
func (e *IOError) Is(target error) bool { return target == ErrIO }
