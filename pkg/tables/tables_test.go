package tables

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSingleTable(t *testing.T) {
	text := `# Document: report.pdf

Some narrative text.

| Region | Sales |
|--------|-------|
| North  | 100   |
| South  | 200   |

More narrative.`

	found := Extract(text)
	require.Len(t, found, 1)

	table := found[0]
	assert.Equal(t, []string{"Region", "Sales"}, table.Headers)
	assert.Equal(t, [][]string{{"North", "100"}, {"South", "200"}}, table.Rows)
}

func TestExtractMultipleTables(t *testing.T) {
	text := `| A | B |
|---|---|
| 1 | 2 |

intervening prose ends the first block

| X | Y | Z |
|---|---|---|
| a | b | c |
| d | e | f |`

	found := Extract(text)
	require.Len(t, found, 2)
	assert.Equal(t, []string{"A", "B"}, found[0].Headers)
	assert.Equal(t, []string{"X", "Y", "Z"}, found[1].Headers)
	assert.Len(t, found[1].Rows, 2)
}

func TestExtractBlankLinesInsideBlock(t *testing.T) {
	// A blank line between data rows does not split the table
	text := `| A | B |
|---|---|
| 1 | 2 |

| 3 | 4 |`

	found := Extract(text)
	require.Len(t, found, 1)
	assert.Len(t, found[0].Rows, 2)
}

func TestExtractDropsMismatchedRows(t *testing.T) {
	text := `| A | B |
|---|---|
| 1 | 2 |
| only-one |
| 3 | 4 | 5 |
| 6 | 7 |`

	found := Extract(text)
	require.Len(t, found, 1)
	assert.Equal(t, [][]string{{"1", "2"}, {"6", "7"}}, found[0].Rows)
}

func TestExtractDiscardsHeaderOnlyBlock(t *testing.T) {
	text := `| A | B |
|---|---|`

	assert.Empty(t, Extract(text))
}

func TestExtractIgnoresStrayPipes(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"single pipe", "|"},
		{"pipe mid-line", "a | b"},
		{"no trailing pipe", "| a | b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Extract(tt.text))
		})
	}
}

func TestMarkdownRoundTrip(t *testing.T) {
	text := `| Item | Qty | Price |
|------|-----|-------|
| Pen  | 3   | 1.50  |
| Pad  | 10  | 2.00  |`

	first := Extract(text)
	require.Len(t, first, 1)

	second := Extract(ToMarkdown(&first[0]))
	require.Len(t, second, 1)

	assert.Equal(t, first[0].Headers, second[0].Headers)
	assert.Equal(t, first[0].Rows, second[0].Rows)
}

func TestPreviewLimitsRows(t *testing.T) {
	text := `| A |
|---|
| 1 |
| 2 |
| 3 |`

	found := Extract(text)
	require.Len(t, found, 1)

	preview := Preview(&found[0], 2)
	reparsed := Extract(preview)
	require.Len(t, reparsed, 1)
	assert.Len(t, reparsed[0].Rows, 2)

	// Asking for more rows than exist is fine
	full := Extract(Preview(&found[0], 99))
	require.Len(t, full, 1)
	assert.Len(t, full[0].Rows, 3)
}

func TestCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "table_1.csv")

	text := `| Name | Amount |
|------|--------|
| a, b | 10     |
| "q"  | 20     |`

	found := Extract(text)
	require.Len(t, found, 1)

	require.NoError(t, WriteCSV(&found[0], path))

	loaded, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, found[0].Headers, loaded.Headers)
	assert.Equal(t, found[0].Rows, loaded.Rows)
}

func TestReadCSVMissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
