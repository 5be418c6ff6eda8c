// Package wtconfig implements the per-worktree configuration store: the
// two boolean keys that drive the sparse-checkout Mode state machine, and
// the worktreeConfig extension flag that gates them, persisted as
// config.worktree under the repository's metadata directory.
package wtconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

var ErrInvalidArgument = errors.New("wtconfig: invalid argument")

// Core holds the two configuration keys the sparse-checkout mode
// controller reads and writes.
type Core struct {
	SparseCheckout     bool `toml:"sparseCheckout,omitempty"`
	SparseCheckoutCone bool `toml:"sparseCheckoutCone,omitempty"`
}

// Extensions holds the worktreeConfig extension flag; the pattern-file
// config keys are only meaningful once this is enabled.
type Extensions struct {
	WorktreeConfig bool `toml:"worktreeConfig,omitempty"`
}

// Config is the per-worktree configuration document.
type Config struct {
	Core       Core       `toml:"core,omitempty"`
	Extensions Extensions `toml:"extensions,omitempty"`
}

const fileName = "config.worktree"

// Load reads the per-worktree config from dir/config.worktree. A missing
// file is treated as a zero-value Config (NoPatterns, extension disabled).
func Load(dir string) (*Config, error) {
	var c Config
	path := filepath.Join(dir, fileName)
	if _, err := toml.DecodeFile(path, &c); err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	return &c, nil
}

// Save atomically persists c to dir/config.worktree: it encodes to a
// temp file in the same directory, then renames over the target so a
// concurrent reader never observes a partially written file.
func Save(dir string, c *Config) error {
	if c == nil || dir == "" {
		return ErrInvalidArgument
	}
	path := filepath.Join(dir, fileName)
	return atomicEncode(path, c)
}

func atomicEncode(target string, a any) error {
	name, err := func() (string, error) {
		dir := filepath.Dir(target)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
		cachePath := fmt.Sprintf("%s/.wtconfig-%d.toml", dir, time.Now().UnixNano())
		fd, err := os.Create(cachePath)
		if err != nil {
			return "", err
		}
		defer fd.Close() // nolint
		enc := toml.NewEncoder(fd)
		enc.Indent = ""
		if err := enc.Encode(a); err != nil {
			return cachePath, err
		}
		return cachePath, nil
	}()
	if err != nil {
		if name != "" {
			_ = os.Remove(name)
		}
		return err
	}
	if err := os.Rename(name, target); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}
