package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fs := OSFileSystem{}

	if !fs.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}

	if fs.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_WriteRenameReadDir(t *testing.T) {
	osfs := OSFileSystem{}
	dir := t.TempDir()

	tmp := filepath.Join(dir, ".b.txt.tmp")
	if err := osfs.WriteFile(tmp, []byte("b"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := osfs.Rename(tmp, filepath.Join(dir, "b.txt")); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if err := osfs.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	entries, err := osfs.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Name() != "a.txt" || entries[1].Name() != "b.txt" {
		t.Errorf("unexpected entries: %v", entries)
	}
	if osfs.Exists(tmp) {
		t.Error("temp file should have been renamed away")
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	testData := []byte("hello, world")
	err := mfs.WriteFile("/test.txt", testData, 0644)
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := mfs.ReadFile("/test.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if string(data) != string(testData) {
		t.Errorf("expected %q, got %q", testData, data)
	}
}

func TestMemoryFileSystem_WriteRequiresParent(t *testing.T) {
	mfs := NewMemoryFileSystem()

	err := mfs.WriteFile("/missing/test.txt", []byte("x"), 0644)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}

	if err := mfs.MkdirAll("/missing", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := mfs.WriteFile("/missing/test.txt", []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile after MkdirAll failed: %v", err)
	}
}

func TestMemoryFileSystem_ReadOnlyDir(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.MkdirAll("/labels", 0755)
	mfs.SetReadOnly("/labels", true)

	err := mfs.WriteFile("/labels/label_0000.txt", []byte("x"), 0644)
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("expected ErrPermission, got %v", err)
	}

	mfs.SetReadOnly("/labels", false)
	if err := mfs.WriteFile("/labels/label_0000.txt", []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func TestMemoryFileSystem_Open(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.WriteFile("/open.txt", []byte("open content"), 0644)

	f, err := mfs.Open("/open.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "open content" {
		t.Errorf("expected 'open content', got %q", data)
	}

	info, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Name() != "open.txt" || info.Size() != 12 {
		t.Errorf("unexpected stat: name=%s size=%d", info.Name(), info.Size())
	}
}

func TestMemoryFileSystem_OpenNonExistent(t *testing.T) {
	mfs := NewMemoryFileSystem()

	_, err := mfs.Open("/nope.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_ReadDir(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.MkdirAll("/data/sub", 0755)
	_ = mfs.WriteFile("/data/scan_0001.txt", nil, 0644)
	_ = mfs.WriteFile("/data/scan_0000.txt", nil, 0644)
	_ = mfs.WriteFile("/data/sub/nested.txt", nil, 0644)

	entries, err := mfs.ReadDir("/data")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}

	want := []string{"scan_0000.txt", "scan_0001.txt", "sub"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		if e.Name() != want[i] {
			t.Errorf("entry %d: expected %s, got %s", i, want[i], e.Name())
		}
	}
	if !entries[2].IsDir() {
		t.Error("expected sub to be a directory")
	}
	if entries[0].IsDir() {
		t.Error("expected scan_0000.txt to be a regular file")
	}

	if _, err := mfs.ReadDir("/absent"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist for missing dir, got %v", err)
	}
}

func TestMemoryFileSystem_Rename(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.MkdirAll("/labels", 0755)
	_ = mfs.WriteFile("/labels/label_0000.txt", []byte("old"), 0644)
	_ = mfs.WriteFile("/labels/.label_0000.txt.tmp", []byte("new"), 0644)

	if err := mfs.Rename("/labels/.label_0000.txt.tmp", "/labels/label_0000.txt"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	data, _ := mfs.ReadFile("/labels/label_0000.txt")
	if string(data) != "new" {
		t.Errorf("expected replaced content 'new', got %q", data)
	}
	if mfs.Exists("/labels/.label_0000.txt.tmp") {
		t.Error("expected temp file to be gone")
	}

	if err := mfs.Rename("/labels/missing", "/labels/x"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_StatDir(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.MkdirAll("/a/b/c", 0755)

	for _, dir := range []string{"/a", "/a/b", "/a/b/c"} {
		info, err := mfs.Stat(dir)
		if err != nil {
			t.Fatalf("Stat(%s) failed: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("expected %s to be a directory", dir)
		}
	}
}

func TestMemoryFileSystem_Remove(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.MkdirAll("/dir", 0755)
	_ = mfs.WriteFile("/dir/file.txt", []byte("x"), 0644)

	if err := mfs.Remove("/dir"); err == nil {
		t.Error("expected error removing non-empty directory")
	}
	if err := mfs.Remove("/dir/file.txt"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := mfs.Remove("/dir"); err != nil {
		t.Fatalf("Remove dir failed: %v", err)
	}
	if mfs.Exists("/dir") {
		t.Error("expected /dir to be removed")
	}
	if err := mfs.Remove("/dir"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_DataIsolation(t *testing.T) {
	mfs := NewMemoryFileSystem()

	original := []byte("original")
	_ = mfs.WriteFile("/iso.txt", original, 0644)
	original[0] = 'X'

	data, _ := mfs.ReadFile("/iso.txt")
	if string(data) != "original" {
		t.Errorf("stored data was mutated through caller slice: %q", data)
	}

	data[0] = 'Y'
	again, _ := mfs.ReadFile("/iso.txt")
	if string(again) != "original" {
		t.Errorf("stored data was mutated through returned slice: %q", again)
	}
}
