package sparse

import (
	"strings"
	"sync"

	"github.com/antgroup/zeta-sparse/modules/strengthen"
	"github.com/antgroup/zeta-sparse/modules/wildmatch"
	"github.com/sirupsen/logrus"
)

// Verdict is the result of matching a path against a PatternList.
type Verdict int

const (
	Exclude Verdict = iota
	Include
)

// Matcher evaluates paths against one PatternList, in either general or
// cone dialect depending on how the list was constructed.
type Matcher struct {
	pl *PatternList
	// compiled caches one wildmatch.Wildmatch per general-dialect pattern,
	// built lazily and in lockstep with pl.Patterns.
	compiled []*wildmatch.Wildmatch
	logger   *logrus.Logger
	warnOnce sync.Once
}

// NewMatcher returns a Matcher bound to pl, logging any degraded-cone
// warning through logrus's standard logger. pl is borrowed for the
// lifetime of the Matcher; callers must not mutate it concurrently with
// calls to Match.
func NewMatcher(pl *PatternList) *Matcher {
	return NewMatcherWithLogger(pl, logrus.StandardLogger())
}

// NewMatcherWithLogger is NewMatcher with an injectable logger, so a caller
// can capture or silence the one-time degraded-cone warning.
func NewMatcherWithLogger(pl *PatternList, logger *logrus.Logger) *Matcher {
	return &Matcher{pl: pl, logger: logger}
}

// Match decides Include/Exclude for path, given whether path denotes a
// directory.
func (m *Matcher) Match(path string, isDir bool) Verdict {
	if m.pl.UseCone {
		return m.matchCone(path, isDir)
	}
	return m.matchGeneral(path, isDir)
}

// matchCone implements the cone dialect's decision: recursive inclusion,
// parent visibility, or a direct file sitting in a visited directory
// (including the repository root, which is always visited). The last case
// is what the canonical "/*" framing line encodes on disk (see §6); the
// two hash sets alone only decide directory visibility, so a plain file's
// own inclusion is resolved against its immediate parent rather than
// against itself.
func (m *Matcher) matchCone(path string, isDir bool) Verdict {
	if m.pl.Degraded {
		m.warnOnce.Do(func() {
			if m.logger != nil {
				m.logger.Warn(ErrUnsupportedConePattern)
			}
		})
		return m.matchGeneral(path, isDir)
	}
	c := m.pl.Cone
	if c == nil {
		return Exclude
	}
	key := "/" + strings.Trim(path, "/")
	if c.ContainsRecursive(key) || c.ContainsParentOfAnyRecursive(key) {
		return Include
	}
	if isDir {
		if c.ContainsParent(key) {
			return Include
		}
		return Exclude
	}
	parent := coneParentKey(key)
	if parent == "" || c.ContainsParent(parent) {
		return Include
	}
	return Exclude
}

// coneParentKey returns the canonical key of key's containing directory, or
// "" if key is a direct child of the repository root.
func coneParentKey(key string) string {
	i := strings.LastIndexByte(key, '/')
	if i <= 0 {
		return ""
	}
	return key[:i]
}

// matchGeneral walks path from its shallowest ancestor down to the leaf,
// evaluating the declared pattern list exactly (last match wins) against
// each level in turn. A level with no matching pattern carries forward the
// verdict of its parent, so a directory matched by a later, broader
// pattern brings its whole subtree along, and a directory excluded by a
// mustbedir pattern hides everything beneath it unless some deeper pattern
// overrides it again.
func (m *Matcher) matchGeneral(path string, isDir bool) Verdict {
	m.ensureCompiled()
	clean := strings.TrimPrefix(path, "/")
	parts := strengthen.StrSplitSkipEmpty(clean, '/', 4)

	verdict := Exclude
	prefix := ""
	for i, part := range parts {
		if prefix == "" {
			prefix = part
		} else {
			prefix = prefix + "/" + part
		}
		levelIsDir := isDir || i != len(parts)-1
		if v, matched := m.matchLevel(prefix, levelIsDir); matched {
			verdict = v
		}
	}
	return verdict
}

// matchLevel evaluates every pattern against the exact path prefix,
// returning the verdict of the last pattern that matched it.
func (m *Matcher) matchLevel(prefix string, isDir bool) (Verdict, bool) {
	matched := false
	verdict := Exclude
	for i, p := range m.pl.Patterns {
		if p.Flags.MustBeDir && !isDir {
			continue
		}
		if !m.patternMatches(i, p, prefix) {
			continue
		}
		matched = true
		if p.Flags.Negative {
			verdict = Exclude
		} else {
			verdict = Include
		}
	}
	return verdict, matched
}

func (m *Matcher) ensureCompiled() {
	if len(m.compiled) == len(m.pl.Patterns) {
		return
	}
	m.compiled = make([]*wildmatch.Wildmatch, len(m.pl.Patterns))
	for i, p := range m.pl.Patterns {
		if !p.Flags.Anchored && !strings.Contains(p.Text, "/") {
			m.compiled[i] = wildmatch.NewWildmatch(p.Text, wildmatch.Basename)
		} else {
			m.compiled[i] = wildmatch.NewWildmatch(p.Text)
		}
	}
}

// patternMatches reports whether pattern i matches prefix. wildmatch drops an
// anchored pattern's leading "/" when compiling it and matches the rest from
// the start of the target, so anchored and unanchored patterns alike are
// matched against the slash-free prefix.
func (m *Matcher) patternMatches(i int, p Pattern, prefix string) bool {
	return m.compiled[i].Match(prefix)
}
