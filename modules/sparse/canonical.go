package sparse

import "strings"

// CanonicalLines renders a cone PatternList as the canonical pattern-file
// layout: the root pair, then each parent directory (widened to visibility
// only) in sorted order, then each recursive directory in sorted order,
// skipping any key already implied by an ancestor recursive key.
func (pl *PatternList) CanonicalLines() []string {
	if !pl.UseCone || pl.Cone == nil {
		return pl.Lines()
	}
	lines := []string{"/*", "!/*/"}

	recursive := pl.Cone.RecursiveKeys()
	covered := func(key string) bool {
		for _, r := range recursive {
			if r != key && strings.HasPrefix(key, r+"/") {
				return true
			}
		}
		return false
	}

	for _, p := range pl.Cone.ParentKeys() {
		if pl.Cone.ContainsRecursive(p) || covered(p) {
			continue
		}
		lines = append(lines, p+"/", "!"+p+"/*/")
	}
	for _, r := range recursive {
		if covered(r) {
			continue
		}
		lines = append(lines, r+"/")
	}
	return lines
}

// ParseConeFile parses the canonical cone pattern-file text back into a
// cone PatternList, recovering the recursive set from the trailing "r/"
// entries (those not immediately followed by their own "!r/*/" pair).
//
// A negative line that isn't the canonical "!/*/" top framing or a
// "!dir/*/" pairing consumed alongside its "dir/" line is a negative
// pattern this dialect cannot represent (e.g. "!/deep/foo/*"); ParseConeFile
// then marks the returned list Degraded and reparses text in the general
// dialect into Patterns, so callers fall back to general matching for the
// whole file instead of silently dropping the pattern.
func ParseConeFile(text string) *PatternList {
	pl := NewConePatternList()
	lines := splitLines(text)
	unsupported := false
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case line == "/*" || line == "!/*/":
			continue
		case strings.HasSuffix(line, "/") && !strings.HasPrefix(line, "!"):
			dir := strings.TrimSuffix(line, "/")
			// A parent-only entry is immediately followed by its own
			// "!dir/*/" pair; a recursive entry is not.
			if i+1 < len(lines) && lines[i+1] == "!"+dir+"/*/" {
				i++
				continue
			}
			pl.ConeInsert(dir)
		case strings.HasPrefix(line, "!"):
			unsupported = true
		}
	}
	if unsupported {
		pl.Degraded = true
		pl.Patterns = parseGeneralPatterns(lines)
	}
	return pl
}

// parseGeneralPatterns parses lines (skipping blanks and comments) as
// general-dialect patterns, the same way Controller.ReadFile parses a
// general-mode pattern file.
func parseGeneralPatterns(lines []string) []Pattern {
	pl := NewPatternList()
	for _, line := range lines {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		_ = pl.AddPattern(line)
	}
	return pl.Patterns
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
