package sparsecheckout

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/antgroup/zeta-sparse/modules/lockfile"
	"github.com/antgroup/zeta-sparse/modules/objstore"
	"github.com/antgroup/zeta-sparse/modules/sparse"
	"github.com/antgroup/zeta-sparse/modules/unpack"
	"github.com/antgroup/zeta-sparse/modules/wtconfig"
	"github.com/sirupsen/logrus"
)

// HeadResolver resolves the tree to reconcile against. A nil tree with a
// nil error means "no HEAD yet" (fresh repository): reconcile is then a
// no-op that always succeeds.
type HeadResolver func() (*objstore.Tree, error)

// Controller is the persistence & mode controller (component E): it owns
// the pattern-file lock, drives the worktree reconciler through its own
// index-lock discipline, and flips the two per-worktree config flags in
// lockstep with both.
type Controller struct {
	GitDir   string
	Unpacker unpack.Unpacker
	Head     HeadResolver
}

func New(gitDir string, unpacker unpack.Unpacker, head HeadResolver) *Controller {
	return &Controller{GitDir: gitDir, Unpacker: unpacker, Head: head}
}

func (c *Controller) patternFilePath() string {
	return filepath.Join(c.GitDir, "info", "sparse-checkout")
}

// ReadFile reads and parses the on-disk pattern file. The dialect is
// inferred from the persisted mode, since the cone dialect's canonical
// layout is otherwise indistinguishable from a hand-written general file.
func (c *Controller) ReadFile() (*sparse.PatternList, error) {
	data, err := os.ReadFile(c.patternFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMissingPatternFile
		}
		return nil, wrapIoFailure(err)
	}
	mode, err := c.mode()
	if err != nil {
		return nil, err
	}
	if mode == ConePatterns {
		return sparse.ParseConeFile(string(data)), nil
	}
	pl := sparse.NewPatternList()
	for _, line := range strings.Split(strings.TrimSuffix(string(data), "\n"), "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := pl.AddPattern(line); err != nil {
			return nil, err
		}
	}
	return pl, nil
}

// writeFile renders pl (in canonical form for cone, verbatim for general)
// and writes it through a freshly acquired pattern-file lock, committing
// on success. The caller must not already hold the pattern-file lock.
func (c *Controller) writeFile(pl *sparse.PatternList) error {
	lines := pl.Lines()
	if pl.UseCone {
		lines = pl.CanonicalLines()
	}
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}

	lock, err := lockfile.Create(c.patternFilePath())
	if err != nil {
		return ErrLockHeld
	}
	defer lock.Rollback()
	if _, err := lock.Write([]byte(content)); err != nil {
		return wrapIoFailure(err)
	}
	return lock.Commit()
}

func (c *Controller) mode() (Mode, error) {
	cfg, err := wtconfig.Load(c.GitDir)
	if err != nil {
		return NoPatterns, wrapIoFailure(err)
	}
	return ModeFromFlags(cfg.Core.SparseCheckout, cfg.Core.SparseCheckoutCone), nil
}

// setMode writes the two config flags for mode and enables the
// worktreeConfig extension if not already enabled.
func (c *Controller) setMode(mode Mode) error {
	cfg, err := wtconfig.Load(c.GitDir)
	if err != nil {
		return ErrConfigWriteFailed
	}
	cfg.Core.SparseCheckout, cfg.Core.SparseCheckoutCone = mode.Flags()
	cfg.Extensions.WorktreeConfig = true
	if err := wtconfig.Save(c.GitDir, cfg); err != nil {
		return ErrConfigWriteFailed
	}
	return nil
}

func (c *Controller) reconcile(pl *sparse.PatternList) error {
	tree, err := c.headTree()
	if err != nil {
		return wrapIoFailure(err)
	}
	err = c.Unpacker.UpdateWorkingDirectory(tree, pl)
	return translateUnpackError(err)
}

func (c *Controller) headTree() (*objstore.Tree, error) {
	if c.Head == nil {
		return &objstore.Tree{}, nil
	}
	return c.Head()
}

// Set implements component E's set operation. The unpack runs exactly
// once, before the pattern-file lock is taken: the reconciler takes and
// releases the index lock itself, and only after it succeeds does writeFile
// take the pattern-file lock to publish the new pattern file.
func (c *Controller) Set(patterns []string, cone bool) error {
	previousMode, err := c.mode()
	if err != nil {
		return err
	}
	newMode := AllPatterns
	if cone {
		newMode = ConePatterns
	}
	modeChanged := newMode != previousMode

	pl, err := buildPatternList(patterns, cone)
	if err != nil {
		return err
	}

	if modeChanged {
		if err := c.setMode(newMode); err != nil {
			return err
		}
	}

	if err := c.reconcile(pl); err != nil {
		// The reconciler refuses an unmerged index, an empty checkout,
		// lost local changes or a held index lock before touching the
		// working tree or the index. An I/O failure part-way through
		// leaves the working tree as far as it got and the index file
		// unwritten. Only the mode flag is reverted here.
		if modeChanged {
			_ = c.setMode(previousMode)
		}
		return err
	}

	if err := c.writeFile(pl); err != nil {
		if modeChanged {
			_ = c.setMode(previousMode)
		}
		_ = c.restorePrevious()
		return err
	}
	return nil
}

// restorePrevious re-materializes the on-disk pattern file (or its absence)
// to undo a reconcile that ran before a later step failed.
func (c *Controller) restorePrevious() error {
	pl, err := c.ReadFile()
	if err == ErrMissingPatternFile {
		return c.Unpacker.UpdateWorkingDirectory(mustTree(c), nil)
	}
	if err != nil {
		return err
	}
	return c.Unpacker.UpdateWorkingDirectory(mustTree(c), pl)
}

func mustTree(c *Controller) *objstore.Tree {
	t, err := c.headTree()
	if err != nil {
		logrus.Warnf("sparsecheckout: restore after failed set could not resolve HEAD: %v", err)
		return nil
	}
	return t
}

func buildPatternList(patterns []string, cone bool) (*sparse.PatternList, error) {
	if cone {
		pl := sparse.NewConePatternList()
		for _, p := range patterns {
			if strings.ContainsAny(p, "\n") {
				return nil, ErrInvalidPattern
			}
			pl.ConeInsert(p)
		}
		return pl, nil
	}
	pl := sparse.NewPatternList()
	for _, p := range patterns {
		if err := pl.AddPattern(p); err != nil {
			return nil, ErrInvalidPattern
		}
	}
	return pl, nil
}

// Init implements component E's init operation.
func (c *Controller) Init(cone bool) error {
	previousMode, err := c.mode()
	if err != nil {
		return err
	}
	mode := AllPatterns
	if cone {
		mode = ConePatterns
	}
	if err := c.setMode(mode); err != nil {
		return err
	}

	pl, err := c.ReadFile()
	if err == ErrMissingPatternFile {
		pl = seedPatternList(cone)
		if err := c.reconcile(pl); err != nil {
			_ = c.setMode(previousMode)
			return err
		}
		if err := c.writeFile(pl); err != nil {
			_ = c.setMode(previousMode)
			return err
		}
		return nil
	}
	if err != nil {
		_ = c.setMode(previousMode)
		return err
	}
	if err := c.reconcile(pl); err != nil {
		_ = c.setMode(previousMode)
		return err
	}
	return nil
}

func seedPatternList(cone bool) *sparse.PatternList {
	if cone {
		return sparse.NewConePatternList()
	}
	pl := sparse.NewPatternList()
	_ = pl.AddPattern("/*")
	_ = pl.AddPattern("!/*/")
	return pl
}

// Disable implements component E's disable operation: it transits through
// AllPatterns so the working tree is restored before the mode flag goes
// false, per the state machine in §4.E.
func (c *Controller) Disable() error {
	if err := c.setMode(AllPatterns); err != nil {
		return err
	}
	if err := c.reconcile(nil); err != nil {
		return err
	}
	if err := os.Remove(c.patternFilePath()); err != nil && !os.IsNotExist(err) {
		return wrapIoFailure(err)
	}
	return c.setMode(NoPatterns)
}

// List returns the pattern file's raw content, or ErrMissingPatternFile.
func (c *Controller) List() (string, error) {
	data, err := os.ReadFile(c.patternFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrMissingPatternFile
		}
		return "", wrapIoFailure(err)
	}
	return string(data), nil
}

func translateUnpackError(err error) error {
	switch err {
	case nil:
		return nil
	case unpack.ErrUnmergedIndex:
		return ErrUnmergedIndex
	case unpack.ErrEmptyCheckout:
		return ErrEmptyCheckout
	case unpack.ErrWouldLoseChanges:
		return ErrWouldLoseChanges
	case unpack.ErrLockHeld:
		return ErrLockHeld
	default:
		if iof, ok := err.(*unpack.IoFailure); ok {
			return wrapIoFailure(iof.Err)
		}
		return wrapIoFailure(err)
	}
}
