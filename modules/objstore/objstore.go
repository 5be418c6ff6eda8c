// Package objstore models the content-addressed object store the
// sparse-checkout engine reads trees from. The real store (commit graph,
// packfiles, loose objects) is a collaborator outside this system's scope;
// this package defines the narrow interface the engine depends on plus an
// in-memory implementation sufficient to exercise it in tests.
package objstore

import (
	"sort"

	"github.com/antgroup/zeta-sparse/modules/plumbing"
	"github.com/antgroup/zeta-sparse/modules/plumbing/filemode"
)

// TreeEntry is one child of a Tree: a named, typed pointer to either another
// Tree (directories) or a blob (regular files, symlinks).
type TreeEntry struct {
	Name string
	Mode filemode.FileMode
	Hash plumbing.Hash
}

// Tree is an ordered set of entries, as stored for one directory level of a
// commit's file layout.
type Tree struct {
	Entries []TreeEntry
}

// Sort orders entries by name. Memory.Put stores a tree as given, so
// callers constructing a Tree by hand should call Sort before handing it to
// a Store.
func (t *Tree) Sort() {
	sort.Slice(t.Entries, func(i, j int) bool { return t.Entries[i].Name < t.Entries[j].Name })
}

// Store is the object store collaborator: given a tree's hash, it returns
// that tree's entries. It does not resolve paths or walk recursively.
// modules/unpack's DefaultUnpacker holds a Store but reconciles against the
// index entries, not against trees read from it.
type Store interface {
	Tree(oid plumbing.Hash) (*Tree, error)
}

// Memory is an in-memory Store, keyed by tree hash. It is not derived from
// file contents; tests construct trees directly and register them with Put.
type Memory struct {
	trees map[plumbing.Hash]*Tree
}

func NewMemory() *Memory {
	return &Memory{trees: make(map[plumbing.Hash]*Tree)}
}

// Put registers a tree under oid, overwriting any existing tree.
func (m *Memory) Put(oid plumbing.Hash, tree *Tree) {
	m.trees[oid] = tree
}

func (m *Memory) Tree(oid plumbing.Hash) (*Tree, error) {
	t, ok := m.trees[oid]
	if !ok {
		return nil, plumbing.NoSuchObject(oid)
	}
	return t, nil
}
