// Package filemode defines the set of valid index/tree entry modes the
// sparse-checkout engine reasons about when materializing or removing
// working-tree entries.
package filemode

import (
	"fmt"
	"os"
)

// FileMode is an os-independent representation of an index or tree entry's
// type and permission bits, following the same small fixed vocabulary used
// by the object store and working-tree unpacker.
type FileMode uint32

const (
	Empty        FileMode = 0
	Dir          FileMode = 0040000
	Regular      FileMode = 0100644
	Deprecated   FileMode = 0100000
	Executable   FileMode = 0100755
	Symlink      FileMode = 0120000
	Submodule    FileMode = 0160000
	fragmentsBit FileMode = 0001000
)

// Fragments marks an entry as a fragmented (chunked) regular file; it is
// combined with Regular via bitwise OR.
const Fragments = fragmentsBit

// IsMalformed reports whether m is outside the modes above.
func (m FileMode) IsMalformed() bool {
	switch m &^ fragmentsBit {
	case Empty, Dir, Regular, Deprecated, Executable, Symlink, Submodule:
		return false
	default:
		return true
	}
}

func (m FileMode) IsRegular() bool {
	return m&^fragmentsBit == Regular || m&^fragmentsBit == Deprecated
}

func (m FileMode) IsFragments() bool {
	return m&fragmentsBit != 0
}

func (m FileMode) IsExecutable() bool {
	return m&^fragmentsBit == Executable
}

func (m FileMode) IsSymlink() bool {
	return m&^fragmentsBit == Symlink
}

func (m FileMode) IsDir() bool {
	return m&^fragmentsBit == Dir
}

func (m FileMode) IsSubmodule() bool {
	return m&^fragmentsBit == Submodule
}

// ToOSFileMode converts m to the closest matching os.FileMode.
func (m FileMode) ToOSFileMode() (os.FileMode, error) {
	switch m &^ fragmentsBit {
	case Dir, Submodule:
		return os.ModeDir, nil
	case Symlink:
		return os.ModeSymlink, nil
	case Executable:
		return 0755, nil
	case Regular, Deprecated:
		return 0644, nil
	case Empty:
		return 0, nil
	}
	return 0, fmt.Errorf("filemode: malformed mode %o", uint32(m))
}

func (m FileMode) String() string {
	return fmt.Sprintf("%06o", uint32(m))
}

// NewFileMode translates an os.FileMode into the closest FileMode.
func NewFileMode(m os.FileMode) FileMode {
	switch {
	case m.IsDir():
		return Dir
	case m&os.ModeSymlink != 0:
		return Symlink
	case m&0111 != 0:
		return Executable
	default:
		return Regular
	}
}

func (m FileMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *FileMode) UnmarshalText(text []byte) error {
	var v uint32
	if _, err := fmt.Sscanf(string(text), "%o", &v); err != nil {
		return err
	}
	*m = FileMode(v)
	return nil
}
