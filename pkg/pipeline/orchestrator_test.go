package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/tidy/internal/models"
	"github.com/xhad/tidy/pkg/tables"
)

// scriptedGenerator returns canned responses in call order.
type scriptedGenerator struct {
	responses []string
	prompts   []string
	err       error
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	idx := len(g.prompts) - 1
	if idx >= len(g.responses) {
		idx = len(g.responses) - 1
	}
	return g.responses[idx], nil
}

const cleaningScript = "```javascript\n" + `function transform2tidy_table(table) {
	var rows = [];
	for (var i = 0; i < table.rows.length; i++) {
		if (table.rows[i][0] !== "Total") {
			rows.push(table.rows[i]);
		}
	}
	return [{headers: table.headers, rows: rows},
		[{step: "drop_totals", action: "removed total rows"}]];
}` + "\n```"

func seedTable(t *testing.T, l Layout, docID string, n int) {
	t.Helper()
	table := &models.Table{
		Headers: []string{"region", "sales"},
		Rows: [][]string{
			{"North", "100"},
			{"South", "200"},
			{"Total", "300"},
		},
	}
	require.NoError(t, tables.WriteCSV(table, l.TableCSV(docID, n)))
}

func testPrompts() PromptSet {
	return PromptSet{
		Analysis: "analyze:\n<PROFILE_JSON>\n<TABLE_PREVIEW>\nrows=<ROW_COUNT> cols=<COLUMN_COUNT>",
		Strategy: "strategize:\n<PROMPT1_ERROR_DIAGNOSIS_JSON>\n<TABLE_PROFILE>",
		Codegen:  "generate code:\n<PROFILE_JSON>\n<STRATEGY_MD>",
	}
}

func TestRunFullPipeline(t *testing.T) {
	l := testLayout(t.TempDir())
	seedTable(t, l, "report", 1)

	generator := &scriptedGenerator{responses: []string{
		"```json\n{\"errors\": [\"totals row embedded in data\"]}\n```",
		"## Strategy\n\nDrop the totals row.",
		cleaningScript,
	}}

	o := NewWithConfig(OrchestratorConfig{
		Layout:    l,
		Generator: generator,
		Prompts:   testPrompts(),
		Model:     "test-model",
	})

	result, err := o.Run(context.Background(), "report", "1")
	require.NoError(t, err)

	assert.Equal(t, "report", result.DocID)
	assert.Equal(t, 1, result.TableNum)
	assert.Equal(t, 3, result.RowsOriginal)
	assert.Equal(t, 2, result.RowsCleaned)

	// Every stage left its artifact behind
	assert.FileExists(t, l.ProfileJSON("report", 1))
	assert.FileExists(t, l.AnalysisJSON("report", 1))
	assert.FileExists(t, l.StrategyMD("report", 1))
	assert.FileExists(t, l.CodegenScript("report", 1))
	assert.FileExists(t, result.CleanedCSVPath)
	assert.FileExists(t, result.LogPath)

	// The analysis artifact records model and source table
	data, err := os.ReadFile(l.AnalysisJSON("report", 1))
	require.NoError(t, err)
	var artifact AnalysisArtifact
	require.NoError(t, json.Unmarshal(data, &artifact))
	assert.Equal(t, "success", artifact.Status)
	assert.Equal(t, "test-model", artifact.Model)
	assert.Equal(t, l.TableCSV("report", 1), artifact.CSVPath)

	// The persisted script has its fence stripped
	script, err := os.ReadFile(l.CodegenScript("report", 1))
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(string(script), "```"))

	// Cleaned table dropped the totals row
	cleaned, err := tables.ReadCSV(result.CleanedCSVPath)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"North", "100"}, {"South", "200"}}, cleaned.Rows)

	// The three prompts were rendered from their templates in order
	require.Len(t, generator.prompts, 3)
	assert.Contains(t, generator.prompts[0], "rows=3 cols=2")
	assert.Contains(t, generator.prompts[1], "totals row embedded in data")
	assert.Contains(t, generator.prompts[2], "Drop the totals row.")
}

func TestRunUnknownDocument(t *testing.T) {
	o := NewWithConfig(OrchestratorConfig{Layout: testLayout(t.TempDir())})

	_, err := o.Run(context.Background(), "ghost", "1")
	var nfe *NotFoundError
	assert.ErrorAs(t, err, &nfe)
}

func TestRunUnknownTable(t *testing.T) {
	l := testLayout(t.TempDir())
	seedTable(t, l, "report", 1)

	o := NewWithConfig(OrchestratorConfig{Layout: l})

	_, err := o.Run(context.Background(), "report", "9")
	var nfe *NotFoundError
	assert.ErrorAs(t, err, &nfe)
}

func TestRunGenerationFailureIsStageAttributed(t *testing.T) {
	l := testLayout(t.TempDir())
	seedTable(t, l, "report", 1)

	o := NewWithConfig(OrchestratorConfig{
		Layout:    l,
		Generator: &scriptedGenerator{err: errors.New("service unavailable")},
		Prompts:   testPrompts(),
	})

	_, err := o.Run(context.Background(), "report", "1")
	var perr *ProcessingError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StageAnalysis, perr.Stage)
	// The profile was still written before the failing stage
	assert.FileExists(t, l.ProfileJSON("report", 1))
}

func TestRunBrokenScriptIsExecuteFailure(t *testing.T) {
	l := testLayout(t.TempDir())
	seedTable(t, l, "report", 1)

	generator := &scriptedGenerator{responses: []string{
		"diagnosis",
		"strategy",
		"function wrong_name(t) { return t; }",
	}}

	o := NewWithConfig(OrchestratorConfig{
		Layout:    l,
		Generator: generator,
		Prompts:   testPrompts(),
	})

	_, err := o.Run(context.Background(), "report", "1")
	var perr *ProcessingError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StageExecute, perr.Stage)
}

func TestResolveTableForms(t *testing.T) {
	l := testLayout(t.TempDir())
	seedTable(t, l, "report", 2)

	o := NewWithConfig(OrchestratorConfig{Layout: l})

	tests := []struct {
		name    string
		tableID string
	}{
		{"bare number", "2"},
		{"stem", "table_2"},
		{"filename", "table_2.csv"},
		{"case insensitive", "TABLE_2.CSV"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, n, err := o.resolveTable("report", tt.tableID)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			assert.Equal(t, l.TableCSV("report", 2), path)
		})
	}
}
