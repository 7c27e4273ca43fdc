// Package session owns the labeling session: the two directory catalogs,
// the current position in the data catalog, the loaded scan, the viewport
// and the active drag.
//
// A loaded scan is replaced wholesale on navigation. Label edits that were
// not saved with CommitAndAdvance are lost when the scan is replaced.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/scanlabel/internal/catalog"
	"github.com/banshee-data/scanlabel/internal/fsutil"
	"github.com/banshee-data/scanlabel/internal/journal"
	"github.com/banshee-data/scanlabel/internal/monitoring"
	"github.com/banshee-data/scanlabel/internal/render"
	"github.com/banshee-data/scanlabel/internal/scan"
	"github.com/banshee-data/scanlabel/internal/selection"
	"github.com/banshee-data/scanlabel/internal/viewport"
)

var (
	// ErrNoDataDirectory is returned by operations that need a data directory.
	ErrNoDataDirectory = errors.New("no data directory selected")
	// ErrNoScanLoaded is returned when saving without a loaded scan.
	ErrNoScanLoaded = errors.New("no scan loaded")
	// ErrNotInCatalog is returned when selecting a name that is not listed.
	ErrNotInCatalog = errors.New("file not in catalog")
	// ErrIndexOutOfRange is returned when selecting a position past the catalog.
	ErrIndexOutOfRange = errors.New("catalog index out of range")
)

var logf = monitoring.Component("session")

// LabelFileFormat names label files by data-catalog position.
const LabelFileFormat = "label_%04d.txt"

// LabelFileName returns the label file name for catalog position index.
func LabelFileName(index int) string {
	return fmt.Sprintf(LabelFileFormat, index)
}

// Direction is a navigation step through the data catalog.
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

// Journal records label saves. *journal.Journal satisfies it.
type Journal interface {
	Record(ctx context.Context, e journal.Entry) (journal.Entry, *journal.Overwrite, error)
}

// Config holds the collaborators of a Controller. Zero values are usable:
// the OS filesystem, a discarding canvas, the default window and the
// default record extension.
type Config struct {
	FS         fsutil.FileSystem
	Canvas     render.Canvas
	HalfExtent float64
	RecordExt  string
	Journal    Journal
}

// SaveResult reports a completed save.
type SaveResult struct {
	Path    string
	Index   int
	Points  int
	Labeled int
	// Overwrite is set when the label file previously held labels for a
	// different source scan.
	Overwrite *journal.Overwrite
}

// Controller coordinates navigation, loading, selection and saving.
// It is not safe for concurrent use; callers serialise access.
type Controller struct {
	fsys    fsutil.FileSystem
	canvas  render.Canvas
	ext     string
	journal Journal

	data   *catalog.Catalog
	labels *catalog.Catalog

	current int
	scan    *scan.Scan
	preview *scan.Scan

	view *viewport.Viewport
	sel  *selection.Engine
}

// New returns a controller with no directories selected.
func New(cfg Config) *Controller {
	if cfg.FS == nil {
		cfg.FS = fsutil.OSFileSystem{}
	}
	if cfg.Canvas == nil {
		cfg.Canvas = render.Discard
	}
	if cfg.RecordExt == "" {
		cfg.RecordExt = catalog.DefaultExt
	}
	return &Controller{
		fsys:    cfg.FS,
		canvas:  cfg.Canvas,
		ext:     cfg.RecordExt,
		journal: cfg.Journal,
		current: -1,
		view:    viewport.New(cfg.HalfExtent),
		sel:     selection.New(cfg.Canvas),
	}
}

// SetDataDir lists dir and makes it the data catalog. The position moves to
// the first entry (or -1 for an empty directory) but nothing is loaded until
// the operator navigates or selects a file.
func (c *Controller) SetDataDir(dir string) error {
	cat, err := catalog.List(c.fsys, dir, c.ext)
	if err != nil {
		return err
	}
	c.data = cat
	c.replaceScan(nil)
	c.preview = nil
	if cat.Empty() {
		c.current = -1
	} else {
		c.current = 0
	}
	logf("data directory %s: %d files", dir, cat.Len())
	return nil
}

// SetLabelDir lists dir and makes it the label catalog and save target.
func (c *Controller) SetLabelDir(dir string) error {
	cat, err := catalog.List(c.fsys, dir, c.ext)
	if err != nil {
		return err
	}
	c.labels = cat
	logf("label directory %s: %d files", dir, cat.Len())
	return nil
}

// Refresh rebuilds both catalogs from their directories.
func (c *Controller) Refresh() error {
	if c.data != nil {
		cat, err := catalog.List(c.fsys, c.data.Dir(), c.ext)
		if err != nil {
			return err
		}
		c.data = cat
		if c.current >= cat.Len() {
			c.current = cat.Len() - 1
		}
	}
	return c.refreshLabels()
}

func (c *Controller) refreshLabels() error {
	if c.labels == nil {
		return nil
	}
	cat, err := catalog.List(c.fsys, c.labels.Dir(), c.ext)
	if err != nil {
		return err
	}
	c.labels = cat
	return nil
}

// Navigate moves one step through the data catalog, wrapping at both ends,
// and loads the new current file. It is a no-op on an empty catalog.
func (c *Controller) Navigate(d Direction) error {
	if c.data.Empty() {
		return nil
	}
	return c.load(catalog.Wrap(c.current, int(d), c.data.Len()))
}

// Select jumps to catalog position index and loads it.
func (c *Controller) Select(index int) error {
	if c.data == nil {
		return ErrNoDataDirectory
	}
	if index < 0 || index >= c.data.Len() {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, c.data.Len())
	}
	return c.load(index)
}

// SelectByName jumps to the data file called name and loads it.
func (c *Controller) SelectByName(name string) error {
	if c.data == nil {
		return ErrNoDataDirectory
	}
	i := c.data.PositionOf(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotInCatalog, name)
	}
	return c.load(i)
}

// load makes index current and loads its file. The position moves even when
// loading fails so navigation can step past a bad file; the failed scan is
// left unloaded.
func (c *Controller) load(index int) error {
	c.current = index
	c.preview = nil
	path := c.data.Path(index)

	s, err := scan.Load(c.fsys, path)
	if err != nil {
		c.replaceScan(nil)
		logf("failed to load %s: %v", path, err)
		return err
	}
	c.replaceScan(s)
	c.redraw()
	logf("loaded %s (%d points)", filepath.Base(path), s.Len())
	return nil
}

func (c *Controller) replaceScan(s *scan.Scan) {
	c.sel.Cancel()
	c.scan = s
}

// OpenLabel shows the label file called name without changing the current
// position. The preview is read-only: drags are ignored until the operator
// navigates or selects a data file again.
func (c *Controller) OpenLabel(name string) error {
	if c.labels == nil {
		return scan.ErrNoTargetDirectory
	}
	i := c.labels.PositionOf(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotInCatalog, name)
	}
	s, err := scan.Load(c.fsys, c.labels.Path(i))
	if err != nil {
		return err
	}
	c.sel.Cancel()
	c.preview = s
	c.canvas.ClearOutline()
	c.canvas.DrawScan(s, c.view.Bounds())
	return nil
}

// ClosePreview returns the canvas to the current scan. It reports whether a
// preview was open.
func (c *Controller) ClosePreview() bool {
	if c.preview == nil {
		return false
	}
	c.preview = nil
	c.redraw()
	return true
}

// CommitAndAdvance saves the current scan as label_NNNN.txt, NNNN being the
// current data-catalog position, and rebuilds the label catalog. The name
// does not depend on the source file name, so scans from different data
// directories can overwrite each other's labels; the journal reports that.
func (c *Controller) CommitAndAdvance(ctx context.Context) (SaveResult, error) {
	if c.labels == nil {
		return SaveResult{}, scan.ErrNoTargetDirectory
	}
	if c.scan == nil {
		return SaveResult{}, ErrNoScanLoaded
	}

	name := LabelFileName(c.current)
	path, err := scan.Save(c.fsys, c.scan, c.labels.Dir(), name)
	if err != nil {
		return SaveResult{}, err
	}
	res := SaveResult{
		Path:    path,
		Index:   c.current,
		Points:  c.scan.Len(),
		Labeled: c.scan.Count(scan.LabelObject),
	}
	logf("saved %s (%d/%d labeled)", path, res.Labeled, res.Points)

	if err := c.refreshLabels(); err != nil {
		return res, fmt.Errorf("saved %s but failed to refresh label catalog: %w", path, err)
	}

	if c.journal != nil {
		_, ow, err := c.journal.Record(ctx, journal.Entry{
			CatalogIndex: res.Index,
			SourcePath:   c.scan.Source,
			LabelPath:    path,
			Points:       res.Points,
			Labeled:      res.Labeled,
		})
		if err != nil {
			// The label file is already on disk; a journal failure only loses history.
			logf("failed to journal save of %s: %v", path, err)
		}
		res.Overwrite = ow
	}
	return res, nil
}

// PointerDown starts a drag. It is ignored while previewing a label file.
func (c *Controller) PointerDown(p selection.Pointer) bool {
	if c.preview != nil {
		return false
	}
	return c.sel.PointerDown(p)
}

// PointerMove updates the live selection outline.
func (c *Controller) PointerMove(p selection.Pointer) {
	c.sel.PointerMove(p)
}

// PointerUp commits or discards the active drag.
func (c *Controller) PointerUp(p selection.Pointer) (selection.Result, bool) {
	return c.sel.PointerUp(p, c.scan, c.view.Bounds())
}

// Zoom changes the window half extent by delta and redraws.
func (c *Controller) Zoom(delta int) float64 {
	h := c.view.Zoom(delta)
	c.redraw()
	return h
}

func (c *Controller) redraw() {
	if c.preview != nil {
		c.canvas.DrawScan(c.preview, c.view.Bounds())
		return
	}
	c.canvas.DrawScan(c.scan, c.view.Bounds())
}

// CurrentIndex is the data-catalog position, -1 without a data directory.
func (c *Controller) CurrentIndex() int { return c.current }

// Scan returns the loaded scan, nil when none is loaded.
func (c *Controller) Scan() *scan.Scan { return c.scan }

// Displayed returns the scan on the canvas: the label preview if one is
// open, otherwise the loaded scan.
func (c *Controller) Displayed() *scan.Scan {
	if c.preview != nil {
		return c.preview
	}
	return c.scan
}

// Window returns the visible square window.
func (c *Controller) Window() r2.Box { return c.view.Bounds() }

// DataCatalog returns the data catalog, nil before SetDataDir.
func (c *Controller) DataCatalog() *catalog.Catalog { return c.data }

// LabelCatalog returns the label catalog, nil before SetLabelDir.
func (c *Controller) LabelCatalog() *catalog.Catalog { return c.labels }

// Snapshot is a read-only view of the session for display.
type Snapshot struct {
	DataDir      string     `json:"data_dir"`
	LabelDir     string     `json:"label_dir"`
	DataFiles    []string   `json:"data_files"`
	LabelFiles   []string   `json:"label_files"`
	CurrentIndex int        `json:"current_index"`
	CurrentName  string     `json:"current_name,omitempty"`
	Loaded       bool       `json:"loaded"`
	Preview      string     `json:"preview,omitempty"`
	HalfExtent   float64    `json:"half_extent"`
	Dragging     bool       `json:"dragging"`
	Stats        scan.Stats `json:"stats"`
}

// Snapshot captures the current session state.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		DataDir:      c.data.Dir(),
		LabelDir:     c.labels.Dir(),
		DataFiles:    c.data.Names(),
		LabelFiles:   c.labels.Names(),
		CurrentIndex: c.current,
		Loaded:       c.scan != nil,
		HalfExtent:   c.view.HalfExtent,
		Dragging:     c.sel.Active(),
	}
	if c.current >= 0 && c.current < c.data.Len() {
		snap.CurrentName = c.data.Name(c.current)
	}
	if c.preview != nil {
		snap.Preview = filepath.Base(c.preview.Source)
	}
	if s := c.Displayed(); s != nil {
		snap.Stats = s.Stats()
	}
	return snap
}
