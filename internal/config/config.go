// Package config loads labeler settings from JSON or YAML files.
//
// Every field is optional. Unset fields fall back to the defaults returned
// by the Get* methods, so a partial file is always valid.
package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/scanlabel/internal/fsutil"
)

// DefaultConfigPath is the sample configuration shipped with the repository.
const DefaultConfigPath = "config/labeler.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Defaults for unset fields.
const (
	DefaultListen       = "localhost:8090"
	DefaultHalfExtent   = 20.0
	DefaultRecordExt    = ".txt"
	DefaultPointSize    = 2.5
	DefaultRenderInches = 9.0
	DefaultNoticeLimit  = 100
)

// LabelerConfig holds the settings of the labeler host and CLI.
type LabelerConfig struct {
	DataDir     *string `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
	LabelDir    *string `json:"label_dir,omitempty" yaml:"label_dir,omitempty"`
	Listen      *string `json:"listen,omitempty" yaml:"listen,omitempty"`
	JournalPath *string `json:"journal_path,omitempty" yaml:"journal_path,omitempty"` // empty disables the journal

	HalfExtent *float64 `json:"half_extent,omitempty" yaml:"half_extent,omitempty"`
	RecordExt  *string  `json:"record_ext,omitempty" yaml:"record_ext,omitempty"`

	// Rendering
	PointSize      *float64 `json:"point_size,omitempty" yaml:"point_size,omitempty"` // points
	RenderWidthIn  *float64 `json:"render_width_in,omitempty" yaml:"render_width_in,omitempty"`
	RenderHeightIn *float64 `json:"render_height_in,omitempty" yaml:"render_height_in,omitempty"`

	// AllowedRoots restricts directory selection from the web page.
	AllowedRoots []string `json:"allowed_roots,omitempty" yaml:"allowed_roots,omitempty"`
	NoticeLimit  *int     `json:"notice_limit,omitempty" yaml:"notice_limit,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyConfig returns a config with every field unset.
func EmptyConfig() *LabelerConfig {
	return &LabelerConfig{}
}

// DefaultConfig returns a config with every defaulted field set explicitly.
func DefaultConfig() *LabelerConfig {
	return &LabelerConfig{
		Listen:         ptrString(DefaultListen),
		HalfExtent:     ptrFloat64(DefaultHalfExtent),
		RecordExt:      ptrString(DefaultRecordExt),
		PointSize:      ptrFloat64(DefaultPointSize),
		RenderWidthIn:  ptrFloat64(DefaultRenderInches),
		RenderHeightIn: ptrFloat64(DefaultRenderInches),
		NoticeLimit:    ptrInt(DefaultNoticeLimit),
	}
}

// LoadConfig reads a config file. The format follows the extension: .json,
// .yaml or .yml. Files over 1MB are rejected.
func LoadConfig(path string) (*LabelerConfig, error) {
	return LoadConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadConfigFS is LoadConfig reading from fsys.
func LoadConfigFS(fsys fsutil.FileSystem, path string) (*LabelerConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data, ext)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Parse decodes data as JSON (ext ".json") or YAML (".yaml", ".yml")
// without validating it.
func Parse(data []byte, ext string) (*LabelerConfig, error) {
	cfg := EmptyConfig()
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *LabelerConfig) Validate() error {
	if c.HalfExtent != nil && *c.HalfExtent < 1 {
		return fmt.Errorf("half_extent must be at least 1, got %g", *c.HalfExtent)
	}
	if c.RecordExt != nil && !strings.HasPrefix(*c.RecordExt, ".") {
		return fmt.Errorf("record_ext must start with '.', got %q", *c.RecordExt)
	}
	if c.Listen != nil && *c.Listen == "" {
		return fmt.Errorf("listen must not be empty")
	}
	if c.PointSize != nil && *c.PointSize <= 0 {
		return fmt.Errorf("point_size must be positive, got %g", *c.PointSize)
	}
	for name, v := range map[string]*float64{
		"render_width_in":  c.RenderWidthIn,
		"render_height_in": c.RenderHeightIn,
	} {
		if v != nil && (*v <= 0 || *v > 100) {
			return fmt.Errorf("%s must be in (0, 100], got %g", name, *v)
		}
	}
	if c.NoticeLimit != nil && *c.NoticeLimit <= 0 {
		return fmt.Errorf("notice_limit must be positive, got %d", *c.NoticeLimit)
	}
	return nil
}

// GetDataDir returns the data directory, empty when unset.
func (c *LabelerConfig) GetDataDir() string {
	if c.DataDir == nil {
		return ""
	}
	return *c.DataDir
}

// GetLabelDir returns the label directory, empty when unset.
func (c *LabelerConfig) GetLabelDir() string {
	if c.LabelDir == nil {
		return ""
	}
	return *c.LabelDir
}

// GetListen returns the HTTP listen address or the default.
func (c *LabelerConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return DefaultListen
	}
	return *c.Listen
}

// GetJournalPath returns the journal database path, empty when disabled.
func (c *LabelerConfig) GetJournalPath() string {
	if c.JournalPath == nil {
		return ""
	}
	return *c.JournalPath
}

// GetHalfExtent returns the initial viewport half extent or the default.
func (c *LabelerConfig) GetHalfExtent() float64 {
	if c.HalfExtent == nil {
		return DefaultHalfExtent
	}
	return *c.HalfExtent
}

// GetRecordExt returns the record file extension or the default.
func (c *LabelerConfig) GetRecordExt() string {
	if c.RecordExt == nil || *c.RecordExt == "" {
		return DefaultRecordExt
	}
	return *c.RecordExt
}

// GetPointSize returns the marker size in points or the default.
func (c *LabelerConfig) GetPointSize() float64 {
	if c.PointSize == nil {
		return DefaultPointSize
	}
	return *c.PointSize
}

// GetRenderSize returns the rendered image size in inches.
func (c *LabelerConfig) GetRenderSize() (width, height float64) {
	width, height = DefaultRenderInches, DefaultRenderInches
	if c.RenderWidthIn != nil {
		width = *c.RenderWidthIn
	}
	if c.RenderHeightIn != nil {
		height = *c.RenderHeightIn
	}
	return width, height
}

// GetNoticeLimit returns the notice log size or the default.
func (c *LabelerConfig) GetNoticeLimit() int {
	if c.NoticeLimit == nil {
		return DefaultNoticeLimit
	}
	return *c.NoticeLimit
}
