// Package labeler routes operator events to the selection engine, the
// viewport and the session controller.
//
// A Dispatcher is the single entry point for input. It serialises events
// with a mutex so a networked host can call it from concurrent requests,
// and it turns every failure into an operator notice instead of a crash.
package labeler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/banshee-data/scanlabel/internal/monitoring"
	"github.com/banshee-data/scanlabel/internal/security"
	"github.com/banshee-data/scanlabel/internal/selection"
	"github.com/banshee-data/scanlabel/internal/session"
	"github.com/banshee-data/scanlabel/internal/timeutil"
)

// ErrUnknownEvent is returned for events with an unrecognised Kind.
var ErrUnknownEvent = errors.New("unknown event")

var logf = monitoring.Component("labeler")

// Level is the severity of a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a message for the operator.
type Notice struct {
	Seq     int       `json:"seq"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Outcome reports what an event did.
type Outcome struct {
	Kind Kind `json:"kind"`
	// Handled is false when the event was a no-op, such as a pointer-down
	// outside the axes or navigation with an empty catalog.
	Handled      bool    `json:"handled"`
	CurrentIndex int     `json:"current_index"`
	HalfExtent   float64 `json:"half_extent"`
	Matched      int     `json:"matched,omitempty"`
	NewlyLabeled int     `json:"newly_labeled,omitempty"`
	Discarded    bool    `json:"discarded,omitempty"`
	SavedPath    string  `json:"saved_path,omitempty"`
	Notice       *Notice `json:"notice,omitempty"`
}

const defaultNoticeLimit = 100

// Dispatcher owns a session controller and applies events to it one at a
// time.
type Dispatcher struct {
	mu    sync.Mutex
	ctrl  *session.Controller
	roots []string

	notices     []Notice
	noticeLimit int
	seq         int
	clock       timeutil.Clock
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAllowedRoots restricts directory selection to paths inside roots.
func WithAllowedRoots(roots ...string) Option {
	return func(d *Dispatcher) { d.roots = append(d.roots, roots...) }
}

// WithNoticeLimit bounds the notice log. Older notices are dropped first.
func WithNoticeLimit(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.noticeLimit = n
		}
	}
}

// WithClock sets the clock used to time-stamp notices.
func WithClock(c timeutil.Clock) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.clock = c
		}
	}
}

// New returns a Dispatcher for ctrl.
func New(ctrl *session.Controller, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		ctrl:        ctrl,
		noticeLimit: defaultNoticeLimit,
		clock:       timeutil.RealClock{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// View runs fn with exclusive access to the controller. fn must not keep
// references to mutable session state after it returns.
func (d *Dispatcher) View(fn func(c *session.Controller)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.ctrl)
}

// Notices returns the retained notices with Seq greater than since, oldest
// first.
func (d *Dispatcher) Notices(since int) []Notice {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Notice
	for _, n := range d.notices {
		if n.Seq > since {
			out = append(out, n)
		}
	}
	return out
}

// Dispatch applies ev. Errors are also recorded as notices, so a host may
// ignore the returned error and only show notices.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := Outcome{Kind: ev.Kind}
	err := d.route(ctx, ev, &out)
	if err != nil {
		n := d.noticeLocked(LevelError, err.Error())
		out.Notice = &n
		logf("%s failed: %v", ev.Kind, err)
	}
	out.CurrentIndex = d.ctrl.CurrentIndex()
	out.HalfExtent = d.ctrl.Window().Max.X
	return out, err
}

func pointer(ev Event) selection.Pointer {
	if !ev.InAxes {
		return selection.Outside
	}
	return selection.At(ev.X, ev.Y)
}

func (d *Dispatcher) route(ctx context.Context, ev Event, out *Outcome) error {
	c := d.ctrl

	switch ev.Kind {
	case PointerDown:
		out.Handled = c.PointerDown(pointer(ev))

	case PointerMove:
		p := pointer(ev)
		c.PointerMove(p)
		out.Handled = p.Defined

	case PointerUp:
		res, ok := c.PointerUp(pointer(ev))
		out.Handled = ok
		if !ok {
			return nil
		}
		out.Matched = res.Matched
		out.NewlyLabeled = res.NewlyLabeled
		out.Discarded = res.Discarded
		var n Notice
		if res.Discarded {
			n = d.noticeLocked(LevelInfo, "selection discarded: released outside the plot")
		} else {
			n = d.noticeLocked(LevelInfo, fmt.Sprintf("selected %d points (%d newly labeled)", res.Matched, res.NewlyLabeled))
		}
		out.Notice = &n

	case Scroll:
		c.Zoom(ev.Step)
		out.Handled = true

	case SelectDataDir, SelectLabelDir:
		if err := d.checkDir(ev.Path); err != nil {
			return err
		}
		var err error
		if ev.Kind == SelectDataDir {
			err = c.SetDataDir(ev.Path)
		} else {
			err = c.SetLabelDir(ev.Path)
		}
		if err != nil {
			return err
		}
		out.Handled = true

	case SelectDataFile, SelectLabelFile:
		if err := security.ValidateFileName(ev.Name); err != nil {
			return err
		}
		var err error
		if ev.Kind == SelectDataFile {
			err = c.SelectByName(ev.Name)
		} else {
			err = c.OpenLabel(ev.Name)
		}
		if err != nil {
			return err
		}
		out.Handled = true

	case KeyAdvance, KeyRetreat:
		dir := session.Next
		if ev.Kind == KeyRetreat {
			dir = session.Prev
		}
		if c.DataCatalog().Empty() {
			return nil
		}
		if err := c.Navigate(dir); err != nil {
			return err
		}
		out.Handled = true

	case KeySave:
		res, err := c.CommitAndAdvance(ctx)
		if err != nil {
			return err
		}
		out.Handled = true
		out.SavedPath = res.Path
		var n Notice
		if res.Overwrite != nil {
			n = d.noticeLocked(LevelWarning, "overwrote "+res.Overwrite.String())
		} else {
			n = d.noticeLocked(LevelInfo, fmt.Sprintf("saved %s (%d/%d labeled)", filepath.Base(res.Path), res.Labeled, res.Points))
		}
		out.Notice = &n

	case Refresh:
		if err := c.Refresh(); err != nil {
			return err
		}
		out.Handled = true

	case ClosePreview:
		out.Handled = c.ClosePreview()

	default:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Kind)
	}
	return nil
}

func (d *Dispatcher) checkDir(path string) error {
	if path == "" {
		return errors.New("no directory given")
	}
	if len(d.roots) == 0 {
		return nil
	}
	return security.ValidatePathWithinAllowedDirs(path, d.roots)
}

func (d *Dispatcher) noticeLocked(level Level, msg string) Notice {
	d.seq++
	n := Notice{Seq: d.seq, Level: level, Message: msg, Time: d.clock.Now()}
	d.notices = append(d.notices, n)
	if len(d.notices) > d.noticeLimit {
		d.notices = append(d.notices[:0], d.notices[len(d.notices)-d.noticeLimit:]...)
	}
	return n
}

// Notify records an operator notice from outside the event stream, such as
// a host start-up message.
func (d *Dispatcher) Notify(level Level, msg string) Notice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.noticeLocked(level, msg)
}
