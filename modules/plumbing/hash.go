package plumbing

import (
	"encoding/hex"
	"hash"

	"github.com/zeebo/blake3"
)

const (
	HASH_DIGEST_SIZE = 32
	HASH_HEX_SIZE    = 64
)

// Hash is a BLAKE3 content hash, as used by the object store and index
// entries the sparse-checkout engine reconciles against.
type Hash [HASH_DIGEST_SIZE]byte

// ZeroHash is Hash with value zero.
var ZeroHash Hash

// NewHash returns a new Hash from a hexadecimal hash representation.
func NewHash(s string) Hash {
	b, _ := hex.DecodeString(s)
	var h Hash
	copy(h[:], b)
	return h
}

func (h Hash) IsZero() bool {
	var empty Hash
	return h == empty
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalText/UnmarshalText let a Hash appear directly as a TOML/JSON string.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	hashBytes, _ := hex.DecodeString(string(text))
	copy(h[:], hashBytes)
	return nil
}

type Hasher struct {
	hash.Hash
}

func NewHasher() Hasher {
	return Hasher{Hash: blake3.New()}
}

func (h Hasher) Sum() (hash Hash) {
	copy(hash[:], h.Hash.Sum(nil))
	return
}
