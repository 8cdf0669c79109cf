package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xhad/tidy/internal/models"
	"github.com/xhad/tidy/pkg/prompt"
	"github.com/xhad/tidy/pkg/tables"
)

// AnalysisArtifact is the persisted result of the analysis stage.
type AnalysisArtifact struct {
	Status       string         `json:"status"`
	Model        string         `json:"model"`
	Analysis     string         `json:"analysis"`
	TableProfile models.Profile `json:"table_profile"`
	CSVPath      string         `json:"csv_path"`
}

const previewRows = 10

// analyze briefs the LLM with the table profile and a short preview, and
// persists the diagnosis.
func (o *Orchestrator) analyze(ctx context.Context, docID string, n int, prof models.Profile, raw *models.Table, csvPath string) (string, error) {
	variables := map[string]interface{}{
		"PROFILE_JSON":  prof,
		"TABLE_PREVIEW": tables.Preview(raw, previewRows),
		"ROW_COUNT":     fmt.Sprintf("%d", raw.NumRows()),
		"COLUMN_COUNT":  fmt.Sprintf("%d", raw.NumColumns()),
	}

	rendered := o.renderOrFallback(o.prompts.Analysis, variables, docID, n)

	response, err := o.generator.Generate(ctx, rendered)
	if err != nil {
		return "", err
	}

	artifact := AnalysisArtifact{
		Status:       "success",
		Model:        o.model,
		Analysis:     response,
		TableProfile: prof,
		CSVPath:      csvPath,
	}

	path := o.layout.AnalysisJSON(docID, n)
	if err := writeJSON(path, artifact); err != nil {
		return "", err
	}
	return path, nil
}

// strategize turns the analysis into a remediation strategy. The analysis
// free text often carries a fenced JSON diagnosis; parse it out when
// possible, otherwise pass the raw text through as an opaque diagnosis.
func (o *Orchestrator) strategize(ctx context.Context, docID string, n int, analysisPath string) (string, error) {
	data, err := os.ReadFile(analysisPath)
	if err != nil {
		return "", err
	}

	var artifact AnalysisArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return "", fmt.Errorf("failed to decode analysis artifact %s: %v", analysisPath, err)
	}

	diagnosis := parseDiagnosis(artifact.Analysis)

	variables := map[string]interface{}{
		"PROMPT1_ERROR_DIAGNOSIS_JSON": diagnosis,
		"ANALYSIS":                     artifact.Analysis,
		"TABLE_PROFILE":                artifact.TableProfile,
	}

	rendered := o.renderOrFallback(o.prompts.Strategy, variables, docID, n)

	response, err := o.generator.Generate(ctx, rendered)
	if err != nil {
		return "", err
	}

	path := o.layout.StrategyMD(docID, n)
	if err := writeText(path, response); err != nil {
		return "", err
	}
	return path, nil
}

// codegen asks for a cleaning script implementing the strategy and persists
// it under the table's code artifact name.
func (o *Orchestrator) codegen(ctx context.Context, docID string, n int, prof models.Profile, strategyPath string) (string, error) {
	strategy, err := os.ReadFile(strategyPath)
	if err != nil {
		return "", err
	}

	variables := map[string]interface{}{
		"PROFILE_JSON": prof,
		"STRATEGY_MD":  string(strategy),
	}

	rendered := o.renderOrFallback(o.prompts.Codegen, variables, docID, n)

	response, err := o.generator.Generate(ctx, rendered)
	if err != nil {
		return "", err
	}

	path := o.layout.CodegenScript(docID, n)
	if err := writeText(path, stripFences(response)); err != nil {
		return "", err
	}
	return path, nil
}

// renderOrFallback renders non-strict and degrades to the bare template on
// failure; a template/variable mismatch must never block the pipeline.
func (o *Orchestrator) renderOrFallback(template string, variables map[string]interface{}, docID string, n int) string {
	rendered, err := prompt.Render(template, variables, false)
	if err != nil {
		o.logger.Printf("falling back to raw template for %s table %d: %v", docID, n, err)
		return template
	}
	return rendered
}

var (
	openFenceRe  = regexp.MustCompile("^```[a-zA-Z0-9_]*\n?")
	closeFenceRe = regexp.MustCompile("\n?```$")
)

// stripFences removes a single wrapping markdown code fence, if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = openFenceRe.ReplaceAllString(text, "")
	text = closeFenceRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// parseDiagnosis extracts a structured diagnosis from LLM free text,
// falling back to wrapping the raw text when it is not valid JSON.
func parseDiagnosis(analysis string) map[string]interface{} {
	cleaned := stripFences(analysis)

	var diagnosis map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &diagnosis); err != nil {
		return map[string]interface{}{"raw_analysis": analysis}
	}
	return diagnosis
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %v", path, err)
	}
	return writeText(path, string(data)+"\n")
}

func writeText(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %v", err)
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
