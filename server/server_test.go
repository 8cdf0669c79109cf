package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/tidy/internal/models"
	"github.com/xhad/tidy/pkg/pipeline"
	"github.com/xhad/tidy/pkg/tables"
)

type cannedGenerator struct {
	responses []string
	calls     int
}

func (g *cannedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	idx := g.calls
	if idx >= len(g.responses) {
		idx = len(g.responses) - 1
	}
	g.calls++
	return g.responses[idx], nil
}

func testServer(t *testing.T) (*Server, pipeline.Layout) {
	t.Helper()

	root := t.TempDir()
	layout := pipeline.Layout{
		OutputsRoot:  filepath.Join(root, "outputs"),
		TablesRoot:   filepath.Join(root, "each_table"),
		ProfilesRoot: filepath.Join(root, "profile_raw_df"),
		AnalysisRoot: filepath.Join(root, "prompt1_profile"),
		StrategyRoot: filepath.Join(root, "prompt2_prompt1"),
		CodegenRoot:  filepath.Join(root, "prompt3_prompt2"),
		CleanedRoot:  filepath.Join(root, "cleaned_data"),
	}

	generator := &cannedGenerator{responses: []string{
		"{\"errors\": []}",
		"strategy",
		"function transform2tidy_table(t) { return [t, [{step: \"noop\"}]]; }",
	}}

	orchestrator := pipeline.NewWithConfig(pipeline.OrchestratorConfig{
		Layout:    layout,
		Generator: generator,
		Prompts: pipeline.PromptSet{
			Analysis: "<PROFILE_JSON> <TABLE_PREVIEW> <ROW_COUNT> <COLUMN_COUNT>",
			Strategy: "<PROMPT1_ERROR_DIAGNOSIS_JSON> <TABLE_PROFILE>",
			Codegen:  "<PROFILE_JSON> <STRATEGY_MD>",
		},
		Model: "test-model",
	})

	s := New(Config{
		Extractor:    pipeline.NewExtractor(layout, nil),
		Orchestrator: orchestrator,
		OutputsDir:   layout.OutputsRoot,
	})

	return s, layout
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestFilterCSVUnknownDocument(t *testing.T) {
	s, _ := testServer(t)

	rec := postJSON(t, s.handleFilterCSV, filterCSVRequest{Document: "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFilterCSVSuccess(t *testing.T) {
	s, layout := testServer(t)

	docDir := layout.DocumentDir("report")
	require.NoError(t, os.MkdirAll(docDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docDir, "report.md"),
		[]byte("| A | B |\n|---|---|\n| 1 | 2 |\n"), 0o644))

	rec := postJSON(t, s.handleFilterCSV, filterCSVRequest{Document: "report"})
	require.Equal(t, http.StatusOK, rec.Code)

	var result pipeline.ExtractResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.NumTables)
}

func TestFilterCSVRejectsMissingField(t *testing.T) {
	s, _ := testServer(t)

	rec := postJSON(t, s.handleFilterCSV, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransformTidySuccess(t *testing.T) {
	s, layout := testServer(t)

	table := &models.Table{Headers: []string{"a"}, Rows: [][]string{{"1"}, {"2"}}}
	require.NoError(t, tables.WriteCSV(table, layout.TableCSV("report", 1)))

	rec := postJSON(t, s.handleTransformTidy, transformTidyRequest{Document: "report", TableID: "1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.PipelineResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.RowsOriginal)
	assert.Equal(t, 2, result.RowsCleaned)
	assert.FileExists(t, result.CleanedCSVPath)
}

func TestTransformTidyUnknownTable(t *testing.T) {
	s, layout := testServer(t)
	require.NoError(t, os.MkdirAll(layout.TableDir("report"), 0o755))

	rec := postJSON(t, s.handleTransformTidy, transformTidyRequest{Document: "report", TableID: "5"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/filter2csv", nil)
	rec := httptest.NewRecorder()
	s.handleFilterCSV(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
