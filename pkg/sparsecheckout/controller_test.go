package sparsecheckout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/antgroup/zeta-sparse/modules/index"
	"github.com/antgroup/zeta-sparse/modules/objstore"
	"github.com/antgroup/zeta-sparse/modules/plumbing"
	"github.com/antgroup/zeta-sparse/modules/plumbing/filemode"
	"github.com/antgroup/zeta-sparse/modules/unpack"
	"github.com/antgroup/zeta-sparse/modules/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t        *testing.T
	root     string
	gitDir   string
	idx      *index.File
	unpacker *unpack.DefaultUnpacker
	ctrl     *Controller
}

func newFixture(t *testing.T, names []string) *fixture {
	t.Helper()
	root := t.TempDir()
	gitDir := filepath.Join(root, ".zeta")
	require.NoError(t, os.MkdirAll(gitDir, 0755))

	entries := make([]index.Entry, 0, len(names))
	for _, name := range names {
		full := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		content := []byte("content:" + name)
		require.NoError(t, os.WriteFile(full, content, 0644))

		h := plumbing.NewHasher()
		_, err := h.Write(content)
		require.NoError(t, err)
		entries = append(entries, index.Entry{Name: name, Mode: filemode.Regular, Hash: h.Sum()})
	}
	idx := index.NewFile(filepath.Join(gitDir, "index"), entries)

	u := unpack.New(objstore.NewMemory(), idx, vfs.NewVFS(root), root)
	head := func() (*objstore.Tree, error) { return &objstore.Tree{}, nil }
	ctrl := New(gitDir, u, head)

	return &fixture{t: t, root: root, gitDir: gitDir, idx: idx, unpacker: u, ctrl: ctrl}
}

func (f *fixture) exists(name string) bool {
	_, err := os.Stat(filepath.Join(f.root, name))
	return err == nil
}

func (f *fixture) patternFile() string {
	return filepath.Join(f.gitDir, "info", "sparse-checkout")
}

func (f *fixture) readPatternFile() string {
	data, err := os.ReadFile(f.patternFile())
	require.NoError(f.t, err)
	return string(data)
}

// Scenario 1: Init default.
func TestScenario1InitDefault(t *testing.T) {
	f := newFixture(t, []string{"a", "folder1/a", "folder2/a"})
	require.NoError(t, f.ctrl.Init(false))

	assert.Equal(t, "/*\n!/*/\n", f.readPatternFile())
	assert.True(t, f.exists("a"))
	assert.False(t, f.exists("folder1/a"))
	assert.False(t, f.exists("folder2/a"))
}

// Scenario 2: Set in general mode.
func TestScenario2SetGeneralMode(t *testing.T) {
	f := newFixture(t, []string{"a", "folder1/a", "folder2/a"})
	require.NoError(t, f.ctrl.Init(false))

	require.NoError(t, f.ctrl.Set([]string{"/*", "!/*/", "*folder*"}, false))

	assert.Equal(t, "/*\n!/*/\n*folder*\n", f.readPatternFile())
	assert.True(t, f.exists("a"))
	assert.True(t, f.exists("folder1/a"))
	assert.True(t, f.exists("folder2/a"))
}

// Scenario 3: Set in cone mode.
func TestScenario3SetConeMode(t *testing.T) {
	f := newFixture(t, []string{
		"a",
		"deep/a",
		"deep/deeper1/a",
		"deep/deeper1/deepest/a",
		"deep/deeper2/a",
	})
	require.NoError(t, f.ctrl.Init(true))
	require.NoError(t, f.ctrl.Set([]string{"deep/deeper1/deepest"}, true))

	expected := "/*\n!/*/\n/deep/\n!/deep/*/\n/deep/deeper1/\n!/deep/deeper1/*/\n/deep/deeper1/deepest/\n"
	assert.Equal(t, expected, f.readPatternFile())

	assert.True(t, f.exists("a"))
	assert.True(t, f.exists("deep/a"))
	assert.True(t, f.exists("deep/deeper1/a"))
	assert.True(t, f.exists("deep/deeper1/deepest/a"))
	assert.False(t, f.exists("deep/deeper2/a"))
}

// Scenario 4: Cone with nested redundancy.
func TestScenario4ConeNestedRedundancy(t *testing.T) {
	f := newFixture(t, []string{"a", "deep/a", "deep/deeper1/deepest/a"})
	require.NoError(t, f.ctrl.Init(true))
	require.NoError(t, f.ctrl.Set([]string{"deep", "deep/deeper1/deepest"}, true))

	assert.Equal(t, "/*\n!/*/\n/deep/\n", f.readPatternFile())
}

// Scenario 5: Refuse empty.
func TestScenario5RefuseEmpty(t *testing.T) {
	f := newFixture(t, []string{"file"})
	require.NoError(t, f.ctrl.Init(false))
	before := f.readPatternFile()

	err := f.ctrl.Set([]string{"nothing"}, false)
	assert.ErrorIs(t, err, ErrEmptyCheckout)
	assert.Equal(t, before, f.readPatternFile())

	_, statErr := os.Stat(filepath.Join(f.gitDir, "index.lock"))
	assert.True(t, os.IsNotExist(statErr))
}

// Scenario 6: Refuse when local changes would vanish.
func TestScenario6RefuseWouldLoseChanges(t *testing.T) {
	f := newFixture(t, []string{"a", "deep/deeper1/a", "deep/deeper2/a"})
	require.NoError(t, f.ctrl.Init(true))
	require.NoError(t, f.ctrl.Set([]string{"deep"}, true))

	require.NoError(t, os.WriteFile(filepath.Join(f.root, "deep/deeper2/a"), []byte("edited locally"), 0644))
	before := f.readPatternFile()

	err := f.ctrl.Set([]string{"deep/deeper1"}, true)
	assert.ErrorIs(t, err, ErrWouldLoseChanges)
	assert.Equal(t, before, f.readPatternFile())
	assert.True(t, f.exists("deep/deeper2/a"))
}

func TestDisableIsIdempotentAndRemovesFile(t *testing.T) {
	f := newFixture(t, []string{"a", "folder1/a"})
	require.NoError(t, f.ctrl.Init(false))
	require.NoError(t, f.ctrl.Disable())

	_, err := os.Stat(f.patternFile())
	assert.True(t, os.IsNotExist(err))
	assert.True(t, f.exists("a"))
	assert.True(t, f.exists("folder1/a"))

	assert.NoError(t, f.ctrl.Disable())
}

func TestInitIsIdempotent(t *testing.T) {
	f := newFixture(t, []string{"a", "folder1/a"})
	require.NoError(t, f.ctrl.Init(false))
	first := f.readPatternFile()
	require.NoError(t, f.ctrl.Init(false))
	assert.Equal(t, first, f.readPatternFile())
}
