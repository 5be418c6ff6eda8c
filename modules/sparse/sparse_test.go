package sparse

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPatternFlags(t *testing.T) {
	p := AddPattern("!/deep/foo/*", 0)
	assert.True(t, p.Flags.Negative)
	assert.True(t, p.Flags.Anchored)
	assert.Equal(t, "/deep/foo/*", p.Text)
	assert.True(t, p.Flags.HasWildcardMeta)

	p2 := AddPattern("folder1/", 0)
	assert.True(t, p2.Flags.MustBeDir)
	assert.Equal(t, "folder1", p2.Text)
}

func TestPatternListRejectsEmbeddedNewline(t *testing.T) {
	pl := NewPatternList()
	err := pl.AddPattern("foo\nbar")
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestConeInsertBuildsParentChain(t *testing.T) {
	pl := NewConePatternList()
	pl.ConeInsert("deep/deeper1/deepest")

	assert.True(t, pl.Cone.ContainsRecursive("/deep/deeper1/deepest"))
	assert.True(t, pl.Cone.ContainsParent("/deep/deeper1/deepest"))
	assert.True(t, pl.Cone.ContainsParent("/deep/deeper1"))
	assert.True(t, pl.Cone.ContainsParent("/deep"))
	assert.False(t, pl.Cone.ContainsRecursive("/deep"))
}

func TestConeInsertDiscardsRootAndWhitespace(t *testing.T) {
	pl := NewConePatternList()
	pl.ConeInsert("   ")
	pl.ConeInsert("/")
	assert.Empty(t, pl.Cone.RecursiveKeys())
}

func TestMatcherGeneralRootOnly(t *testing.T) {
	pl := NewPatternList()
	require.NoError(t, pl.AddPattern("/*"))
	require.NoError(t, pl.AddPattern("!/*/"))
	m := NewMatcher(pl)

	assert.Equal(t, Include, m.Match("a", false))
	assert.Equal(t, Exclude, m.Match("folder1", true))
	assert.Equal(t, Exclude, m.Match("folder1/a", false))
}

// TestMatcherGeneralLastPatternWins mirrors the scenario-2 pattern set from
// the concrete end-to-end scenarios: adding "*folder*" after the root-only
// pair re-includes the folders and their contents.
func TestMatcherGeneralLastPatternWins(t *testing.T) {
	pl := NewPatternList()
	require.NoError(t, pl.AddPattern("/*"))
	require.NoError(t, pl.AddPattern("!/*/"))
	require.NoError(t, pl.AddPattern("*folder*"))
	m := NewMatcher(pl)

	assert.Equal(t, Include, m.Match("a", false))
	assert.Equal(t, Include, m.Match("folder1", true))
	assert.Equal(t, Include, m.Match("folder1/a", false))
}

func TestMatcherConeScenario3(t *testing.T) {
	pl := NewConePatternList()
	pl.ConeInsert("deep/deeper1/deepest")
	m := NewMatcher(pl)

	assert.Equal(t, Include, m.Match("/deep/deeper1/deepest/a", false))
	assert.Equal(t, Include, m.Match("/deep/deeper1", true))
	assert.Equal(t, Include, m.Match("/deep", true))
	assert.Equal(t, Exclude, m.Match("/deep/deeper2/a", false))
	assert.Equal(t, Exclude, m.Match("/deep/deeper2", true))

	// Direct file children of a visited-but-not-recursive ancestor, and
	// top-level files, are visible: the on-disk canonical form expresses
	// this with the fixed "/*" and "p/" framing lines (see §6), so the
	// cone index's parent_set must grant it without an explicit pattern.
	assert.Equal(t, Include, m.Match("/deep/a", false))
	assert.Equal(t, Include, m.Match("/deep/deeper1/a", false))
	assert.Equal(t, Include, m.Match("/a", false))
}

func TestMatcherDeterministic(t *testing.T) {
	pl := NewConePatternList()
	pl.ConeInsert("deep/deeper1")
	m := NewMatcher(pl)
	first := m.Match("/deep/deeper1/x", false)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Match("/deep/deeper1/x", false))
	}
}

func TestCanonicalLinesScenario3(t *testing.T) {
	pl := NewConePatternList()
	pl.ConeInsert("deep/deeper1/deepest")

	lines := pl.CanonicalLines()
	assert.Equal(t, []string{
		"/*",
		"!/*/",
		"/deep/",
		"!/deep/*/",
		"/deep/deeper1/",
		"!/deep/deeper1/*/",
		"/deep/deeper1/deepest/",
	}, lines)
}

func TestCanonicalLinesPrunesRedundantNesting(t *testing.T) {
	pl := NewConePatternList()
	pl.ConeInsert("deep")
	pl.ConeInsert("deep/deeper1/deepest")

	lines := pl.CanonicalLines()
	assert.Equal(t, []string{"/*", "!/*/", "/deep/"}, lines)
}

func TestParseConeFileDegradesOnUnsupportedNegativePattern(t *testing.T) {
	text := "/*\n!/*/\n/deep/\n!/deep/foo/*\n"
	pl := ParseConeFile(text)

	assert.True(t, pl.Degraded)
	assert.True(t, pl.UseCone)
	require.NotEmpty(t, pl.Patterns)

	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	m := NewMatcherWithLogger(pl, logger)

	// Degraded matching runs the general algorithm over the reparsed
	// lines: "/deep/foo/*" is excluded by the negative pattern, but
	// everything else under the "/*" root pattern is included.
	assert.Equal(t, Exclude, m.Match("/deep/foo/bar", false))
	assert.Equal(t, Include, m.Match("/deep/other", false))

	// A second match must not emit a second warning.
	m.Match("/deep/other", false)
	assert.Equal(t, 1, strings.Count(buf.String(), "unrecognized negative pattern"))
}

func TestParseConeFileRoundTrip(t *testing.T) {
	pl := NewConePatternList()
	pl.ConeInsert("deep/deeper1/deepest")
	text := ""
	for _, l := range pl.CanonicalLines() {
		text += l + "\n"
	}

	parsed := ParseConeFile(text)
	again := parsed.CanonicalLines()
	assert.Equal(t, pl.CanonicalLines(), again)
}
