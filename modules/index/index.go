// Package index models the tracked-path index the sparse-checkout engine
// reads and writes SkipWorktree bits on. The index's own format and its
// tree-merge/unpack routine are collaborators outside this system's scope;
// this package defines the narrow Index interface the engine depends on
// plus a lock-file-backed implementation sufficient to exercise it.
package index

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/antgroup/zeta-sparse/modules/lockfile"
	"github.com/antgroup/zeta-sparse/modules/plumbing"
	"github.com/antgroup/zeta-sparse/modules/plumbing/filemode"
)

// Stage is the merge-conflict stage of an index entry, mirroring the
// teacher's own index.Stage: 0 for a normally-staged entry, 1-3 while a
// merge conflict on that path is still unresolved (base/ours/theirs).
type Stage uint8

const (
	StageNormal Stage = iota
	StageBase
	StageOurs
	StageTheirs
)

// Entry is one tracked path. Name is always slash-separated and relative to
// the worktree root, never beginning with "/".
type Entry struct {
	Name         string
	Mode         filemode.FileMode
	Hash         plumbing.Hash
	Stage        Stage
	SkipWorktree bool
}

// Index is the tracked-path collaborator: an ordered list of entries keyed
// by path, with a mutable SkipWorktree bit per entry that the reconciler
// flips to reflect the active sparse pattern set.
type Index interface {
	// Entries returns all entries in path order. Callers must not mutate
	// the returned slice's Entry values in place; use SetSkipWorktree.
	Entries() []Entry
	// SetSkipWorktree updates the SkipWorktree bit for name. It returns
	// false if name is not present.
	SetSkipWorktree(name string, skip bool) bool
	// Save persists the index, if the implementation is backed by storage.
	Save() error
}

// Memory is an in-memory Index keyed by path, suitable for tests and for
// embedding by callers that manage persistence themselves.
type Memory struct {
	byName  map[string]int
	entries []Entry
}

func NewMemory(entries []Entry) *Memory {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	m := &Memory{byName: make(map[string]int, len(entries)), entries: entries}
	for i, e := range entries {
		m.byName[e.Name] = i
	}
	return m
}

func (m *Memory) Entries() []Entry {
	return m.entries
}

func (m *Memory) SetSkipWorktree(name string, skip bool) bool {
	i, ok := m.byName[name]
	if !ok {
		return false
	}
	m.entries[i].SkipWorktree = skip
	return true
}

func (m *Memory) Save() error { return nil }

// HasUnmergedEntries reports whether any entry is still sitting at a
// conflict stage, i.e. a merge left this path unresolved. Implements
// unpack.UnmergedChecker.
func (m *Memory) HasUnmergedEntries() bool {
	for _, e := range m.entries {
		if e.Stage != StageNormal {
			return true
		}
	}
	return false
}

// File is an Index persisted as a plain-text table at path, guarded by a
// lockfile.Lock on write. The on-disk format is one entry per line:
//
//	<hash-hex> <mode-octal> <stage 0-3> <skip 0|1> <name>
//
// Malformed lines are rejected rather than silently skipped, since a
// truncated or corrupted index must never be mistaken for an empty one.
type File struct {
	path string
	Memory
}

// Path returns the on-disk location this index is loaded from and saved to.
func (f *File) Path() string {
	return f.path
}

// NewFile builds a File backed by path with an initial set of entries,
// without touching disk. It is mainly useful for tests that need an Index
// to hand to a reconciler before ever calling Save.
func NewFile(path string, entries []Entry) *File {
	return &File{path: path, Memory: *NewMemory(entries)}
}

// Load reads an index from path. A missing file is treated as an empty
// index, matching the "nothing tracked yet" state of a fresh worktree.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{path: path, Memory: *NewMemory(nil)}, nil
		}
		return nil, err
	}
	entries, err := parseEntries(data)
	if err != nil {
		return nil, fmt.Errorf("index: %s: %w", path, err)
	}
	return &File{path: path, Memory: *NewMemory(entries)}, nil
}

func parseEntries(data []byte) ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 5)
		if len(fields) != 5 {
			return nil, fmt.Errorf("malformed entry: %q", line)
		}
		mode, err := strconv.ParseUint(fields[1], 8, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed mode in entry: %q", line)
		}
		stage, err := strconv.ParseUint(fields[2], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("malformed stage in entry: %q", line)
		}
		skip := fields[3] == "1"
		entries = append(entries, Entry{
			Name:         fields[4],
			Mode:         filemode.FileMode(mode),
			Hash:         plumbing.NewHash(fields[0]),
			Stage:        Stage(stage),
			SkipWorktree: skip,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func encodeEntries(entries []Entry) []byte {
	var sb strings.Builder
	for _, e := range entries {
		skip := "0"
		if e.SkipWorktree {
			skip = "1"
		}
		fmt.Fprintf(&sb, "%s %06o %d %s %s\n", e.Hash.String(), uint32(e.Mode), uint8(e.Stage), skip, e.Name)
	}
	return []byte(sb.String())
}

// Save writes the index back to path via a lockfile.Lock, so a concurrent
// writer observes either the old or the new contents, never a partial file.
func (f *File) Save() error {
	l, err := lockfile.Create(f.path)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	defer l.Rollback()
	if _, err := l.Write(encodeEntries(f.Memory.entries)); err != nil {
		return err
	}
	return l.Commit()
}
