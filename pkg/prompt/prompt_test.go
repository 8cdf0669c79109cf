package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderReplacesStrings(t *testing.T) {
	rendered, err := Render("rows: <ROW_COUNT>, cols: <COLUMN_COUNT>", map[string]interface{}{
		"ROW_COUNT":    "12",
		"COLUMN_COUNT": "3",
	}, true)

	require.NoError(t, err)
	assert.Equal(t, "rows: 12, cols: 3", rendered)
}

func TestRenderSerializesNonStrings(t *testing.T) {
	rendered, err := Render("profile:\n<PROFILE_JSON>", map[string]interface{}{
		"PROFILE_JSON": map[string]interface{}{"rows": 2, "note": "a<b"},
	}, true)

	require.NoError(t, err)
	assert.Contains(t, rendered, "```json")
	assert.Contains(t, rendered, "\"rows\": 2")
	// HTML escaping must not mangle values
	assert.Contains(t, rendered, "a<b")
}

func TestRenderStrictRejectsUnknownVariable(t *testing.T) {
	_, err := Render("no placeholders here", map[string]interface{}{
		"MISSING": "x",
	}, true)

	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
}

func TestRenderStrictRejectsLeftoverPlaceholder(t *testing.T) {
	_, err := Render("present: <A>, absent: <B>", map[string]interface{}{
		"A": "x",
	}, true)

	assert.Error(t, err)
}

func TestRenderLenientIgnoresMismatches(t *testing.T) {
	rendered, err := Render("present: <A>, absent: <B>", map[string]interface{}{
		"A":     "x",
		"EXTRA": "y",
	}, false)

	require.NoError(t, err)
	assert.Equal(t, "present: x, absent: <B>", rendered)
}

func TestRenderIgnoresLowercaseBrackets(t *testing.T) {
	// Only uppercase bracket tokens are placeholders, so strict mode does not
	// flag html-ish leftovers
	rendered, err := Render("generic <html> stays", map[string]interface{}{}, true)
	require.NoError(t, err)
	assert.Equal(t, "generic <html> stays", rendered)
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	tpl, err := Load("", AnalysisTemplate)
	require.NoError(t, err)
	assert.Contains(t, tpl, "<PROFILE_JSON>")

	tpl, err = Load(t.TempDir(), StrategyTemplate)
	require.NoError(t, err)
	assert.NotEmpty(t, tpl)
}

func TestLoadPrefersDirectoryFile(t *testing.T) {
	dir := t.TempDir()
	custom := "custom template <PROFILE_JSON>"
	require.NoError(t, os.WriteFile(filepath.Join(dir, AnalysisTemplate), []byte(custom), 0o644))

	tpl, err := Load(dir, AnalysisTemplate)
	require.NoError(t, err)
	assert.Equal(t, custom, tpl)
}

func TestLoadUnknownTemplate(t *testing.T) {
	_, err := Load("", "nonexistent.md")
	assert.Error(t, err)
}
