package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/tidy/internal/models"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompt3_py1.py")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func sampleTable() *models.Table {
	return &models.Table{
		Headers: []string{"region", "sales"},
		Rows: [][]string{
			{"North", "100"},
			{"Total", "300"},
			{"South", "200"},
		},
	}
}

func TestExecutePairResult(t *testing.T) {
	script := writeScript(t, `
function transform2tidy_table(table) {
	var rows = [];
	for (var i = 0; i < table.rows.length; i++) {
		if (table.rows[i][0] !== "Total") {
			rows.push(table.rows[i]);
		}
	}
	var log = [{step: "drop_totals", action: "removed rows labeled Total", rows_removed: table.rows.length - rows.length}];
	return [{headers: table.headers, rows: rows}, log];
}`)

	result, ok := New().Execute(context.Background(), script, sampleTable())
	require.True(t, ok)

	assert.Equal(t, []string{"region", "sales"}, result.Table.Headers)
	assert.Equal(t, [][]string{{"North", "100"}, {"South", "200"}}, result.Table.Rows)
	require.Len(t, result.Log, 1)
	assert.Equal(t, "drop_totals", result.Log[0]["step"])
}

func TestExecuteBareTableResult(t *testing.T) {
	script := writeScript(t, `
function transform2tidy_table(table) {
	return {headers: table.headers, rows: table.rows};
}`)

	result, ok := New().Execute(context.Background(), script, sampleTable())
	require.True(t, ok)

	assert.Len(t, result.Table.Rows, 3)
	// A synthesized log entry marks the unspecified log format
	require.Len(t, result.Log, 1)
	assert.Equal(t, "unknown", result.Log[0]["step"])
}

func TestExecuteMissingEntryPoint(t *testing.T) {
	script := writeScript(t, `function some_other_function(t) { return t; }`)

	result, ok := New().Execute(context.Background(), script, sampleTable())
	assert.False(t, ok)
	assert.Nil(t, result)
}

func TestExecuteThrowingScript(t *testing.T) {
	script := writeScript(t, `
function transform2tidy_table(table) {
	throw new Error("cannot clean this");
}`)

	_, ok := New().Execute(context.Background(), script, sampleTable())
	assert.False(t, ok)
}

func TestExecuteSyntaxError(t *testing.T) {
	script := writeScript(t, `function transform2tidy_table( { nope`)

	_, ok := New().Execute(context.Background(), script, sampleTable())
	assert.False(t, ok)
}

func TestExecuteMalformedReturn(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"number", `function transform2tidy_table(t) { return 42; }`},
		{"no headers", `function transform2tidy_table(t) { return {rows: []}; }`},
		{"rows not array", `function transform2tidy_table(t) { return {headers: ["a"], rows: "x"}; }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := writeScript(t, tt.body)
			_, ok := New().Execute(context.Background(), script, sampleTable())
			assert.False(t, ok)
		})
	}
}

func TestExecuteMissingScriptFile(t *testing.T) {
	_, ok := New().Execute(context.Background(), filepath.Join(t.TempDir(), "absent.py"), sampleTable())
	assert.False(t, ok)
}

func TestExecuteCancelledContext(t *testing.T) {
	script := writeScript(t, `
function transform2tidy_table(table) {
	while (true) {}
}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := New().Execute(ctx, script, sampleTable())
	assert.False(t, ok)
}

func TestExecuteCoercesCellsToStrings(t *testing.T) {
	script := writeScript(t, `
function transform2tidy_table(table) {
	return [{headers: ["n"], rows: [[1], [2.5]]}, []];
}`)

	result, ok := New().Execute(context.Background(), script, sampleTable())
	require.True(t, ok)
	assert.Equal(t, [][]string{{"1"}, {"2.5"}}, result.Table.Rows)
}
