package unpack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/antgroup/zeta-sparse/modules/index"
	"github.com/antgroup/zeta-sparse/modules/objstore"
	"github.com/antgroup/zeta-sparse/modules/plumbing"
	"github.com/antgroup/zeta-sparse/modules/plumbing/filemode"
	"github.com/antgroup/zeta-sparse/modules/sparse"
	"github.com/antgroup/zeta-sparse/modules/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFixture writes each entry's file to disk with placeholder content and
// stamps the entry's Hash with that content's real digest, so a later
// overwrite (simulating a local edit) is the only thing that diverges from
// the index's recorded hash; a freshly-written, unmodified file must never
// look locally modified to hasLocalModifications.
func newFixture(t *testing.T, entries []index.Entry) (*DefaultUnpacker, string) {
	t.Helper()
	root := t.TempDir()

	built := make([]index.Entry, len(entries))
	for i, e := range entries {
		full := filepath.Join(root, e.Name)
		if e.Mode.IsDir() {
			require.NoError(t, os.MkdirAll(full, 0755))
			built[i] = e
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		content := []byte("x")
		require.NoError(t, os.WriteFile(full, content, 0644))

		h := plumbing.NewHasher()
		_, err := h.Write(content)
		require.NoError(t, err)
		e.Hash = h.Sum()
		built[i] = e
	}
	idx := index.NewFile(filepath.Join(root, ".zeta", "index"), built)

	u := New(objstore.NewMemory(), idx, vfs.NewVFS(root), root)
	return u, root
}

func TestUpdateWorkingDirectoryNilHeadIsNoop(t *testing.T) {
	u, _ := newFixture(t, nil)
	err := u.UpdateWorkingDirectory(nil, nil)
	assert.NoError(t, err)
}

func TestUpdateWorkingDirectoryExcludesUnmatched(t *testing.T) {
	entries := []index.Entry{
		{Name: "a", Mode: filemode.Regular},
		{Name: "folder1/a", Mode: filemode.Regular},
	}
	u, root := newFixture(t, entries)

	pl := sparse.NewPatternList()
	require.NoError(t, pl.AddPattern("/*"))
	require.NoError(t, pl.AddPattern("!/*/"))

	err := u.UpdateWorkingDirectory(&objstore.Tree{}, pl)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "a"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "folder1", "a"))
	assert.True(t, os.IsNotExist(err))
}

func TestUpdateWorkingDirectoryEmptyCheckoutAborts(t *testing.T) {
	// A file directly under the root is always visible in the cone dialect,
	// so the lone tracked file sits in a subdirectory the pattern misses.
	entries := []index.Entry{{Name: "dir/file", Mode: filemode.Regular}}
	u, _ := newFixture(t, entries)

	pl := sparse.NewConePatternList()
	pl.ConeInsert("nothing")

	err := u.UpdateWorkingDirectory(&objstore.Tree{}, pl)
	assert.ErrorIs(t, err, ErrEmptyCheckout)
}

func TestUpdateWorkingDirectoryUnmergedIndexAborts(t *testing.T) {
	entries := []index.Entry{
		{Name: "a", Mode: filemode.Regular},
		{Name: "b", Mode: filemode.Regular, Stage: index.StageOurs},
	}
	u, _ := newFixture(t, entries)

	err := u.UpdateWorkingDirectory(&objstore.Tree{}, nil)
	assert.ErrorIs(t, err, ErrUnmergedIndex)
}

func TestUpdateWorkingDirectoryRemovePrunesEmptyParentDirs(t *testing.T) {
	entries := []index.Entry{
		{Name: "keep", Mode: filemode.Regular},
		{Name: "deep/deeper1/a", Mode: filemode.Regular},
	}
	u, root := newFixture(t, entries)

	pl := sparse.NewPatternList()
	require.NoError(t, pl.AddPattern("/*"))
	require.NoError(t, pl.AddPattern("!/*/"))

	err := u.UpdateWorkingDirectory(&objstore.Tree{}, pl)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "keep"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "deep", "deeper1", "a"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "deep", "deeper1"))
	assert.True(t, os.IsNotExist(err), "now-empty deeper1 must be pruned")
	_, err = os.Stat(filepath.Join(root, "deep"))
	assert.True(t, os.IsNotExist(err), "now-empty deep must be pruned")
	_, err = os.Stat(root)
	assert.NoError(t, err, "worktree root itself must never be removed")
}

func TestUpdateWorkingDirectoryWouldLoseChangesAborts(t *testing.T) {
	entries := []index.Entry{
		{Name: "deep/deeper1/a", Mode: filemode.Regular},
		{Name: "deep/deeper2/a", Mode: filemode.Regular},
	}
	u, root := newFixture(t, entries)
	require.NoError(t, os.WriteFile(filepath.Join(root, "deep/deeper2/a"), []byte("modified locally"), 0644))

	pl := sparse.NewConePatternList()
	pl.ConeInsert("deep/deeper1")

	err := u.UpdateWorkingDirectory(&objstore.Tree{}, pl)
	assert.ErrorIs(t, err, ErrWouldLoseChanges)
}
