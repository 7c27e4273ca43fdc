package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scanlabel/internal/fsutil"
)

func memDir(t *testing.T, dir string, names ...string) *fsutil.MemoryFileSystem {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll(dir, 0755))
	for _, n := range names {
		require.NoError(t, mfs.WriteFile(filepath.Join(dir, n), []byte("0,1,0,1,0,0\n"), 0644))
	}
	return mfs
}

func TestList_FiltersAndSorts(t *testing.T) {
	mfs := memDir(t, "/data", "scan_0002.txt", "scan_0000.txt", "notes.md", "scan_0001.txt", ".label_0000.txt.tmp", ".hidden.txt")
	require.NoError(t, mfs.MkdirAll("/data/nested.txt", 0755))

	c, err := List(mfs, "/data", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"scan_0000.txt", "scan_0001.txt", "scan_0002.txt"}, c.Names())
	assert.Equal(t, "/data", c.Dir())
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, "/data/scan_0001.txt", c.Path(1))
	assert.Equal(t, "scan_0002.txt", c.Name(2))
}

func TestList_StableAcrossListings(t *testing.T) {
	mfs := memDir(t, "/data", "b.txt", "a.txt", "c.txt", "A.txt")

	first, err := List(mfs, "/data", "")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := List(mfs, "/data", "")
		require.NoError(t, err)
		assert.Equal(t, first.Names(), again.Names())
	}
	// Byte-wise ordering puts upper case first.
	assert.Equal(t, []string{"A.txt", "a.txt", "b.txt", "c.txt"}, first.Names())
}

func TestList_CustomExtension(t *testing.T) {
	mfs := memDir(t, "/data", "a.csv", "b.txt")

	c, err := List(mfs, "/data", ".csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv"}, c.Names())
}

func TestList_MissingDirectory(t *testing.T) {
	_, err := List(fsutil.NewMemoryFileSystem(), "/absent", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestList_OSDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"scan_0001.txt", "scan_0000.txt", "readme"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0644))
	}

	c, err := List(fsutil.OSFileSystem{}, dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"scan_0000.txt", "scan_0001.txt"}, c.Names())
}

func TestPositionOf(t *testing.T) {
	c, err := List(memDir(t, "/d", "a.txt", "b.txt", "c.txt"), "/d", "")
	require.NoError(t, err)

	assert.Equal(t, 0, c.PositionOf("a.txt"))
	assert.Equal(t, 2, c.PositionOf("c.txt"))
	assert.Equal(t, -1, c.PositionOf("z.txt"))

	var nilCat *Catalog
	assert.Equal(t, -1, nilCat.PositionOf("a.txt"))
	assert.True(t, nilCat.Empty())
	assert.Nil(t, nilCat.Names())
}

func TestWrap(t *testing.T) {
	tests := []struct {
		i, delta, n, want int
	}{
		{0, 1, 3, 1},
		{2, 1, 3, 0},
		{0, -1, 3, 2},
		{1, -1, 3, 0},
		{0, 1, 1, 0},
		{0, -1, 1, 0},
		{0, 7, 3, 1},
		{0, -7, 3, 2},
		{0, 1, 0, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Wrap(tt.i, tt.delta, tt.n), "Wrap(%d, %d, %d)", tt.i, tt.delta, tt.n)
	}
}

func TestWrap_FullCycleReturnsToStart(t *testing.T) {
	for n := 1; n <= 7; n++ {
		for start := 0; start < n; start++ {
			i := start
			for k := 0; k < n; k++ {
				i = Wrap(i, 1, n)
			}
			assert.Equal(t, start, i, "next x%d from %d", n, start)
			assert.Equal(t, start, Wrap(Wrap(start, 1, n), -1, n), "prev must invert next")
		}
	}
}

func TestList_FollowsSymlinksToFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scan_0000.txt"), []byte("0,1,0,1,0,0\n"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	if err := os.Symlink("scan_0000.txt", filepath.Join(dir, "scan_0001.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink("missing.txt", filepath.Join(dir, "scan_0002.txt")))
	require.NoError(t, os.Symlink("sub", filepath.Join(dir, "scan_0003.txt")))

	c, err := List(fsutil.OSFileSystem{}, dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"scan_0000.txt", "scan_0001.txt"}, c.Names())
}
