package scan

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/scanlabel/internal/fsutil"
)

const threePointScan = "0,1,0,1,0,0\n1,1,1.57,0,1,0\n2,1,3.14,-1,0,0\n"

func newMemFS(t *testing.T, files map[string]string) *fsutil.MemoryFileSystem {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	for path, content := range files {
		if err := mfs.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := mfs.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	return mfs
}

func TestLoad(t *testing.T) {
	mfs := newMemFS(t, map[string]string{"/data/scan_0000.txt": threePointScan})

	s, err := Load(mfs, "/data/scan_0000.txt")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []PointRecord{
		{Index: 0, Range: 1, Angle: 0, X: 1, Y: 0},
		{Index: 1, Range: 1, Angle: 1.57, X: 0, Y: 1},
		{Index: 2, Range: 1, Angle: 3.14, X: -1, Y: 0},
	}
	if diff := cmp.Diff(want, s.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if s.Source != "/data/scan_0000.txt" {
		t.Errorf("Source = %q", s.Source)
	}
}

func TestLoad_TrailingBlankLines(t *testing.T) {
	mfs := newMemFS(t, map[string]string{"/data/a.txt": threePointScan + "\n\n"})

	s, err := Load(mfs, "/data/a.txt")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Len() != 3 {
		t.Errorf("expected 3 records, got %d", s.Len())
	}
}

func TestLoad_RejectsWholeFile(t *testing.T) {
	tests := map[string]string{
		"bad middle line":   "0,1,0,1,0,0\n1,1,oops,0,1,0\n2,1,3.14,-1,0,0\n",
		"short last line":   "0,1,0,1,0,0\n1,1,1.57,0,1\n",
		"blank inside data": "0,1,0,1,0,0\n\n2,1,3.14,-1,0,0\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			mfs := newMemFS(t, map[string]string{"/data/bad.txt": content})

			s, err := Load(mfs, "/data/bad.txt")
			if !errors.Is(err, ErrMalformedRecord) {
				t.Fatalf("expected ErrMalformedRecord, got %v", err)
			}
			if s != nil {
				t.Errorf("expected no partial scan, got %d records", s.Len())
			}

			var recErr *RecordError
			if !errors.As(err, &recErr) || recErr.Line != 2 {
				t.Errorf("expected error on line 2, got %v", err)
			}
		})
	}
}

func TestLoad_Unreadable(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()

	_, err := Load(mfs, "/nope/scan.txt")
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped ErrNotExist, got %v", err)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	mfs := newMemFS(t, map[string]string{"/data/scan_0000.txt": threePointScan})
	_ = mfs.MkdirAll("/labels", 0755)

	s, err := Load(mfs, "/data/scan_0000.txt")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s.SetLabel(0, LabelObject)
	s.SetLabel(1, LabelObject)

	path, err := Save(mfs, s, "/labels", "label_0000.txt")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if path != "/labels/label_0000.txt" {
		t.Errorf("path = %q", path)
	}
	if mfs.Exists("/labels/.label_0000.txt.tmp") {
		t.Error("temporary file left behind")
	}

	reloaded, err := Load(mfs, path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if diff := cmp.Diff(s.Records, reloaded.Records); diff != "" {
		t.Errorf("reloaded records mismatch (-saved +reloaded):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 1, 0}, reloaded.Labels()); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_OSFileSystem(t *testing.T) {
	dir := t.TempDir()
	s := New([]PointRecord{FromPolar(0, 1, 0), FromPolar(1, 2, 0.5)})
	s.SetLabel(1, LabelObject)

	osfs := fsutil.OSFileSystem{}
	path, err := Save(osfs, s, dir, "label_0003.txt")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(osfs, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(s.Records, got.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the label file in %s, got %d entries", dir, len(entries))
	}
}

func TestSave_NoTargetDirectory(t *testing.T) {
	s := New([]PointRecord{FromPolar(0, 1, 0)})

	_, err := Save(fsutil.NewMemoryFileSystem(), s, "", "label_0000.txt")
	if !errors.Is(err, ErrNoTargetDirectory) {
		t.Fatalf("expected ErrNoTargetDirectory, got %v", err)
	}
}

func TestSave_UnwritableDirectory(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	_ = mfs.MkdirAll("/labels", 0755)
	mfs.SetReadOnly("/labels", true)
	s := New([]PointRecord{FromPolar(0, 1, 0)})

	_, err := Save(mfs, s, "/labels", "label_0000.txt")
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}

	_, err = Save(mfs, s, "/missing", "label_0000.txt")
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO for missing directory, got %v", err)
	}
}

func TestSetLabel_PanicsOutOfRange(t *testing.T) {
	s := New([]PointRecord{FromPolar(0, 1, 0)})

	for _, idx := range []int{-1, 1, 100} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("SetLabel(%d) did not panic", idx)
				}
			}()
			s.SetLabel(idx, LabelObject)
		}()
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("SetLabel with label 2 did not panic")
			}
		}()
		s.SetLabel(0, 2)
	}()
}

func TestScan_CountCloneStats(t *testing.T) {
	mfs := newMemFS(t, map[string]string{"/data/a.txt": threePointScan + "3,inf,0.5,inf,inf,0\n"})
	s, err := Load(mfs, "/data/a.txt")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	c := s.Clone()
	c.SetLabel(2, LabelObject)
	if s.Count(LabelObject) != 0 || c.Count(LabelObject) != 1 {
		t.Errorf("clone is not independent: original=%d clone=%d", s.Count(LabelObject), c.Count(LabelObject))
	}

	st := c.Stats()
	if st.Points != 4 || st.Labeled != 1 || st.Invalid != 1 {
		t.Errorf("unexpected counts: %+v", st)
	}
	if st.MinX != -1 || st.MaxX != 1 || st.MinY != 0 || st.MaxY != 1 || st.MaxRange != 1 {
		t.Errorf("unexpected extent: %+v", st)
	}
	box := st.Extent()
	if box.Min.X != -1 || box.Max.Y != 1 {
		t.Errorf("unexpected box: %+v", box)
	}

	if empty := New(nil).Stats(); empty.Points != 0 || empty.MaxRange != 0 {
		t.Errorf("unexpected stats for empty scan: %+v", empty)
	}
}
