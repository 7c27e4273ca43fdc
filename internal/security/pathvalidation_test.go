package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestValidateFileName(t *testing.T) {
	valid := []string{"scan_0000.txt", "label_0042.txt", "a", "run-1.v2.txt"}
	for _, name := range valid {
		if err := ValidateFileName(name); err != nil {
			t.Errorf("ValidateFileName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", ".", "..", "../scan_0000.txt", "/etc/passwd", "sub/scan.txt", `sub\scan.txt`, ".hidden.txt", "nul\x00.txt"}
	for _, name := range invalid {
		err := ValidateFileName(name)
		if !errors.Is(err, ErrInvalidName) {
			t.Errorf("ValidateFileName(%q) = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestValidatePathWithinDirectory(t *testing.T) {
	root := t.TempDir()

	runs := filepath.Join(root, "runs")
	outside := filepath.Join(root, "outside")
	for _, dir := range []string{filepath.Join(runs, "run_01"), outside} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
	}
	escape := filepath.Join(runs, "escape")
	if err := os.Symlink(outside, escape); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		{"existing run directory", filepath.Join(runs, "run_01"), false},
		{"labels directory not yet created", filepath.Join(runs, "run_01", "labels"), false},
		{"root itself", runs, false},
		{"dot-dot out of root", filepath.Join(runs, "..", "outside"), true},
		{"relative traversal", "../../../etc", true},
		{"absolute elsewhere", "/etc", true},
		{"symlink to outside", escape, true},
		{"through symlink to outside", filepath.Join(escape, "labels"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, runs)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory(%q) error = %v, wantError %v", tt.path, err, tt.wantError)
			}
		})
	}
}

func TestValidatePathWithinAllowedDirs(t *testing.T) {
	data := t.TempDir()
	labels := t.TempDir()

	if err := ValidatePathWithinAllowedDirs(filepath.Join(labels, "run_01"), []string{data, labels}); err != nil {
		t.Errorf("expected second root to allow path: %v", err)
	}
	if err := ValidatePathWithinAllowedDirs("/etc", []string{data, labels}); err == nil {
		t.Error("expected /etc to be rejected")
	}
	if err := ValidatePathWithinAllowedDirs(data, nil); err == nil {
		t.Error("expected an empty allow list to reject everything")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"":                 "unknown",
		"run 2026-03-01":   "run_2026-03-01",
		"../../etc":        "etc",
		"lab/garage  test": "lab_garage_test",
		"__already__":      "already",
		"scan.v1":          "scan.v1",
		"ünïcode":          "n_code",
		"...":              "unknown",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	if got := SanitizeFilename(string(long)); len(got) != 128 {
		t.Errorf("expected 128-byte cap, got %d", len(got))
	}
}
