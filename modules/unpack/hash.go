package unpack

import (
	"io"
	"os"

	"github.com/antgroup/zeta-sparse/modules/plumbing"
)

// defaultFileHash computes the content hash of the file at path the same
// way the object store would, so a working-tree entry can be compared
// against the hash recorded in the index.
func defaultFileHash(path string) (plumbing.Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	defer f.Close()
	h := plumbing.NewHasher()
	if _, err := io.Copy(h, f); err != nil {
		return plumbing.ZeroHash, err
	}
	return h.Sum(), nil
}
