// Package unpack implements the worktree reconciler: it drives a one-way
// merge of a tree object into the index and working tree, honoring
// skip-worktree bits computed from a sparse.PatternList, and enforces the
// abort conditions that keep a failed reconcile from losing local edits or
// emptying the checkout.
//
// Reading blob contents to the filesystem is this system's own external
// collaborator boundary; DefaultUnpacker materializes an entry by creating
// it (empty regular file, symlink, or directory) and leaves filling in
// blob bytes to that collaborator; an entry already present in the working
// tree is left as it is.
package unpack

import (
	"os"
	"path/filepath"

	"github.com/antgroup/zeta-sparse/modules/index"
	"github.com/antgroup/zeta-sparse/modules/lockfile"
	"github.com/antgroup/zeta-sparse/modules/objstore"
	"github.com/antgroup/zeta-sparse/modules/plumbing"
	"github.com/antgroup/zeta-sparse/modules/sparse"
	"github.com/antgroup/zeta-sparse/modules/vfs"
)

// UnmergedChecker reports whether the index currently has any entry in a
// conflicted state. The index collaborator records conflict state as a
// per-entry merge stage (index.Entry.Stage); this package depends only on
// the narrow hook needed to honor invariant 1 of update_working_directory.
type UnmergedChecker interface {
	HasUnmergedEntries() bool
}

// Unpacker is the worktree reconciler collaborator.
type Unpacker interface {
	// UpdateWorkingDirectory reconciles the working tree and index against
	// headTree using pl to compute skip-worktree bits. A nil pl means
	// "exclude nothing" (AllPatterns semantics).
	UpdateWorkingDirectory(headTree *objstore.Tree, pl *sparse.PatternList) error
}

// DefaultUnpacker is the in-repository implementation of Unpacker, backed
// by an object store, an index, and a bound filesystem.
type DefaultUnpacker struct {
	Store      objstore.Store
	Index      *index.File
	FS         vfs.VFS
	Root       string
	Unmerged   UnmergedChecker
	ReadHasher func(path string) (plumbing.Hash, error)
}

func New(store objstore.Store, idx *index.File, fs vfs.VFS, root string) *DefaultUnpacker {
	return &DefaultUnpacker{Store: store, Index: idx, FS: fs, Root: root, ReadHasher: defaultFileHash, Unmerged: idx}
}

type decision struct {
	entry   index.Entry
	include bool
}

// UpdateWorkingDirectory implements the algorithm of component D: refuse on
// an unmerged index, compute per-entry skip bits from pl against the flat
// index (standing in for the HEAD tree entries already present in the
// index, since walking the object-store tree is this system's external
// collaborator boundary), abort on WouldLoseChanges or EmptyCheckout, and
// otherwise materialize/remove files and commit the index lock.
//
// headTree is consulted only to recognize a fresh repository (a nil tree,
// matching "no HEAD yet"), which short-circuits to success.
func (u *DefaultUnpacker) UpdateWorkingDirectory(headTree *objstore.Tree, pl *sparse.PatternList) error {
	if u.Unmerged != nil && u.Unmerged.HasUnmergedEntries() {
		return ErrUnmergedIndex
	}
	if headTree == nil {
		return nil
	}

	entries := u.Index.Entries()
	matcher := matcherFor(pl)

	decisions := make([]decision, len(entries))
	includedCount := 0
	for i, e := range entries {
		include := matcher == nil || matcher.Match(e.Name, e.Mode.IsDir()) == sparse.Include
		decisions[i] = decision{entry: e, include: include}
		if include {
			includedCount++
		}
	}
	if len(entries) > 0 && includedCount == 0 {
		return ErrEmptyCheckout
	}

	for _, d := range decisions {
		if d.include || d.entry.SkipWorktree {
			continue
		}
		// Transitioning from tracked to skipped: refuse if the working
		// copy has diverged from what the index recorded.
		if u.hasLocalModifications(d.entry) {
			return ErrWouldLoseChanges
		}
	}

	lock, err := lockfile.Create(u.Index.Path())
	if err != nil {
		return ErrLockHeld
	}
	defer lock.Rollback()

	for _, d := range decisions {
		u.Index.SetSkipWorktree(d.entry.Name, !d.include)
		if d.include {
			if err := u.materialize(d.entry); err != nil {
				return ErrIoFailure(err)
			}
		} else {
			if err := u.remove(d.entry); err != nil {
				return ErrIoFailure(err)
			}
		}
	}

	// Save takes the index lock itself and publishes the new entries through
	// it, so the guard lock taken above is released first.
	if err := lock.Rollback(); err != nil {
		return ErrIoFailure(err)
	}
	if err := u.Index.Save(); err != nil {
		return ErrIoFailure(err)
	}
	return nil
}

func matcherFor(pl *sparse.PatternList) *sparse.Matcher {
	if pl == nil {
		return nil
	}
	return sparse.NewMatcher(pl)
}

func (u *DefaultUnpacker) hasLocalModifications(e index.Entry) bool {
	if e.Mode.IsDir() {
		return false
	}
	full := u.FS.Join(u.Root, e.Name)
	if _, err := u.FS.Lstat(full); err != nil {
		return false
	}
	h, err := u.ReadHasher(full)
	if err != nil {
		return false
	}
	return h != e.Hash
}

func (u *DefaultUnpacker) materialize(e index.Entry) error {
	full := u.FS.Join(u.Root, e.Name)
	switch {
	case e.Mode.IsDir():
		return u.FS.MkdirAll(full, 0755)
	case e.Mode.IsSymlink():
		if err := u.FS.MkdirAll(u.FS.Join(full, ".."), 0755); err != nil {
			return err
		}
		if _, err := u.FS.Lstat(full); err == nil {
			return nil
		}
		return u.FS.Symlink(e.Hash.String(), full)
	default:
		if err := u.FS.MkdirAll(u.FS.Join(full, ".."), 0755); err != nil {
			return err
		}
		if _, err := u.FS.Lstat(full); err == nil {
			return nil
		}
		fd, err := u.FS.Create(full)
		if err != nil {
			return err
		}
		return fd.Close()
	}
}

// remove deletes the entry's file and then walks up its parent chain
// removing any directory left empty by that deletion, stopping at the
// first non-empty directory or at the worktree root.
func (u *DefaultUnpacker) remove(e index.Entry) error {
	full := u.FS.Join(u.Root, e.Name)
	if err := u.FS.RemoveAll(full); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return u.removeDirsIfEmpty(u.FS.Join(full, ".."))
}

// removeDirsIfEmpty walks dir up to u.Root, removing each directory that
// ReadDir reports as empty, and stopping at the first one that isn't.
func (u *DefaultUnpacker) removeDirsIfEmpty(dir string) error {
	root := filepath.Clean(u.Root)
	for filepath.Clean(dir) != root {
		removed, err := u.removeDirIfEmpty(dir)
		if err != nil {
			return err
		}
		if !removed {
			return nil
		}
		dir = u.FS.Join(dir, "..")
	}
	return nil
}

func (u *DefaultUnpacker) removeDirIfEmpty(dir string) (bool, error) {
	entries, err := u.FS.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if len(entries) > 0 {
		return false, nil
	}
	if err := u.FS.Remove(dir); err != nil {
		return false, err
	}
	return true, nil
}
