// Package sparse implements the sparse-checkout pattern engine: parsing and
// holding path patterns in both the general gitignore-like dialect and the
// restricted cone dialect, and matching worktree paths against them.
package sparse

import (
	"sort"
	"strings"

	"github.com/antgroup/zeta-sparse/modules/trace"
)

// Pattern is one general-dialect pattern record, as parsed from a line of a
// pattern file or a CLI argument.
type Pattern struct {
	Text    string
	BaseLen int
	Flags   PatternFlags
}

// PatternFlags holds the boolean attributes add_pattern derives from the
// raw pattern text.
type PatternFlags struct {
	Negative             bool
	MustBeDir            bool
	Anchored             bool
	NoWildcardPrefixLen  int
	HasWildcardMeta      bool
}

func isWildcardMeta(b byte) bool {
	return b == '*' || b == '?' || b == '['
}

// AddPattern parses one general-dialect pattern line and returns the
// resulting Pattern. text must not contain a newline; the caller is
// expected to have already rejected that case (see ErrInvalidPattern).
func AddPattern(text string, base int) Pattern {
	p := Pattern{BaseLen: base}
	body := text
	if strings.HasPrefix(body, "!") {
		p.Flags.Negative = true
		body = body[1:]
	}
	if strings.HasSuffix(body, "/") && len(body) > 0 {
		p.Flags.MustBeDir = true
		body = body[:len(body)-1]
	}
	if strings.HasPrefix(body, "/") {
		p.Flags.Anchored = true
	}
	prefixLen := 0
	for prefixLen < len(body) && !isWildcardMeta(body[prefixLen]) {
		prefixLen++
	}
	p.Flags.NoWildcardPrefixLen = prefixLen
	p.Flags.HasWildcardMeta = prefixLen < len(body)
	p.Text = body
	return p
}

// PatternList is an ordered sequence of general-dialect patterns plus,
// when UseCone is set, the cone index built from cone_insert calls.
type PatternList struct {
	Patterns []Pattern
	UseCone  bool
	Cone     *ConeIndex

	// Degraded is set by ParseConeFile when a cone-mode pattern file
	// contained a negative pattern outside the canonical "!dir/*/" framing
	// (e.g. "!/deep/foo/*"). Patterns then holds that file parsed in the
	// general dialect instead, and the matcher falls back to general
	// matching for the whole list rather than trusting the cone index,
	// which cannot represent an arbitrary negative pattern.
	Degraded bool
}

// NewPatternList returns an empty general-dialect pattern list.
func NewPatternList() *PatternList {
	return &PatternList{}
}

// NewConePatternList returns an empty cone-dialect pattern list, with its
// cone index initialized.
func NewConePatternList() *PatternList {
	return &PatternList{UseCone: true, Cone: NewConeIndex()}
}

// AddPattern appends a general-dialect pattern to pl. It rejects patterns
// containing an embedded newline with ErrInvalidPattern.
func (pl *PatternList) AddPattern(text string) error {
	if strings.ContainsAny(text, "\n") {
		_ = trace.Errorf("sparse: rejected pattern with embedded newline: %q", text)
		return ErrInvalidPattern
	}
	pl.Patterns = append(pl.Patterns, AddPattern(text, 0))
	return nil
}

// ConeInsert canonicalizes path and inserts it into the cone index's
// recursive_set, and each strict ancestor into parent_set. It is only
// valid on a cone PatternList.
func (pl *PatternList) ConeInsert(path string) {
	if pl.Cone == nil {
		pl.Cone = NewConeIndex()
	}
	canon := canonicalizeConePath(path)
	if canon == "" {
		return
	}
	pl.Cone.Insert(canon)
}

// Clear releases all patterns and cone sets.
func (pl *PatternList) Clear() {
	pl.Patterns = nil
	if pl.Cone != nil {
		pl.Cone = NewConeIndex()
	}
}

// canonicalizeConePath trims whitespace, collapses repeated slashes, trims
// a trailing slash, and prepends a leading slash if missing. An
// all-whitespace or root-only path canonicalizes to the empty string, which
// callers must discard.
func canonicalizeConePath(path string) string {
	p := strings.TrimSpace(path)
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if p == "/" {
		return ""
	}
	return p
}

// Lines renders the general-dialect pattern list verbatim, one pattern per
// line in declared order, reconstructing the !/ and trailing-/ markers.
func (pl *PatternList) Lines() []string {
	lines := make([]string, 0, len(pl.Patterns))
	for _, p := range pl.Patterns {
		var sb strings.Builder
		if p.Flags.Negative {
			sb.WriteByte('!')
		}
		sb.WriteString(p.Text)
		if p.Flags.MustBeDir {
			sb.WriteByte('/')
		}
		lines = append(lines, sb.String())
	}
	return lines
}

// sortedKeys returns the keys of set in lexical order.
func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
