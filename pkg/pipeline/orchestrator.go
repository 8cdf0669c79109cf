package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xhad/tidy/internal/models"
	"github.com/xhad/tidy/internal/types"
	"github.com/xhad/tidy/pkg/executor"
	"github.com/xhad/tidy/pkg/profile"
	"github.com/xhad/tidy/pkg/tables"
)

// PromptSet holds the three stage templates.
type PromptSet struct {
	Analysis string
	Strategy string
	Codegen  string
}

type OrchestratorConfig struct {
	Layout    Layout
	Generator types.Generator
	Executor  *executor.Executor
	Prompts   PromptSet
	Model     string
	Logger    *log.Logger
}

// Orchestrator drives one (document, table) unit through the fixed stage
// sequence: resolve, profile, analyze, strategize, generate code, execute.
// Every stage persists its artifact before the next one starts; a missing or
// empty result halts the unit with a stage-attributed error. Batching and
// concurrency across units are caller policy. Concurrent runs for the same
// unit race on artifact writes; callers own that discipline.
type Orchestrator struct {
	layout    Layout
	generator types.Generator
	exec      *executor.Executor
	prompts   PromptSet
	model     string
	logger    *log.Logger
}

func NewWithConfig(config OrchestratorConfig) *Orchestrator {
	if config.Executor == nil {
		config.Executor = executor.New()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	return &Orchestrator{
		layout:    config.Layout,
		generator: config.Generator,
		exec:      config.Executor,
		prompts:   config.Prompts,
		model:     config.Model,
		logger:    config.Logger,
	}
}

// Layout exposes the orchestrator's artifact addressing scheme.
func (o *Orchestrator) Layout() Layout {
	return o.layout
}

// Run executes the full cleaning pipeline for one table of one document.
func (o *Orchestrator) Run(ctx context.Context, docID, tableID string) (*models.PipelineResult, error) {
	csvPath, tableNum, err := o.resolveTable(docID, tableID)
	if err != nil {
		return nil, err
	}

	o.logger.Printf("running tidy pipeline for %s/%s", docID, filepath.Base(csvPath))

	raw, err := tables.ReadCSV(csvPath)
	if err != nil {
		return nil, &ProcessingError{Stage: StageProfiling, Details: fmt.Sprintf("cannot read table: %v", err), Err: err}
	}

	prof := profile.Build(raw)
	profilePath := o.layout.ProfileJSON(docID, tableNum)
	if err := profile.Save(prof, profilePath); err != nil {
		return nil, &ProcessingError{Stage: StageProfiling, Details: err.Error(), Err: err}
	}

	analysisPath, err := o.analyze(ctx, docID, tableNum, prof, raw, csvPath)
	if err != nil {
		return nil, &ProcessingError{Stage: StageAnalysis, Details: "failed to generate analysis", Err: err}
	}
	if err := requireArtifact(analysisPath); err != nil {
		return nil, &ProcessingError{Stage: StageAnalysis, Details: err.Error()}
	}

	strategyPath, err := o.strategize(ctx, docID, tableNum, analysisPath)
	if err != nil {
		return nil, &ProcessingError{Stage: StageStrategy, Details: "failed to generate remediation strategy", Err: err}
	}
	if err := requireArtifact(strategyPath); err != nil {
		return nil, &ProcessingError{Stage: StageStrategy, Details: err.Error()}
	}

	codePath, err := o.codegen(ctx, docID, tableNum, prof, strategyPath)
	if err != nil {
		return nil, &ProcessingError{Stage: StageCodegen, Details: "failed to generate cleaning code", Err: err}
	}
	if err := requireArtifact(codePath); err != nil {
		return nil, &ProcessingError{Stage: StageCodegen, Details: err.Error()}
	}

	cleaned, ok := o.exec.Execute(ctx, codePath, raw)
	if !ok {
		return nil, &ProcessingError{Stage: StageExecute, Details: "cleaning script did not produce output"}
	}

	cleanedPath := o.layout.CleanedCSV(docID, tableNum)
	if err := tables.WriteCSV(cleaned.Table, cleanedPath); err != nil {
		return nil, &ProcessingError{Stage: StageExecute, Details: err.Error(), Err: err}
	}

	logPath := o.layout.CleaningLog(docID, tableNum)
	if err := writeCleaningLog(logPath, cleaned.Log); err != nil {
		return nil, &ProcessingError{Stage: StageExecute, Details: err.Error(), Err: err}
	}

	return &models.PipelineResult{
		DocID:          docID,
		TableNum:       tableNum,
		TablePath:      csvPath,
		ProfilePath:    profilePath,
		AnalysisPath:   analysisPath,
		StrategyPath:   strategyPath,
		CodegenPath:    codePath,
		CleanedCSVPath: cleanedPath,
		LogPath:        logPath,
		RowsOriginal:   raw.NumRows(),
		RowsCleaned:    cleaned.Table.NumRows(),
	}, nil
}

var tableNumRe = regexp.MustCompile(`table_?(\d+)$`)

// resolveTable accepts a bare table id ("3"), a stem ("table_3") or a
// filename ("table_3.csv"), matching case-insensitively against the
// document's table directory.
func (o *Orchestrator) resolveTable(docID, tableID string) (string, int, error) {
	docDir := o.layout.TableDir(docID)
	if _, err := os.Stat(docDir); err != nil {
		return "", 0, &NotFoundError{Resource: fmt.Sprintf("tables directory for document %q", docID)}
	}

	base := tableID
	if strings.EqualFold(filepath.Ext(base), ".csv") {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if isAllDigits(base) {
		base = "table_" + base
	}

	candidates := []string{
		filepath.Join(docDir, base),
		filepath.Join(docDir, base+".csv"),
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return tableNumber(candidate, base)
		}
	}

	// Fall back to scanning for a matching stem, case-insensitively
	lowered := strings.ToLower(base)
	matches, _ := filepath.Glob(filepath.Join(docDir, "*.csv"))
	for _, match := range matches {
		stem := strings.TrimSuffix(filepath.Base(match), ".csv")
		if strings.ToLower(stem) == lowered {
			return tableNumber(match, stem)
		}
	}

	return "", 0, &NotFoundError{Resource: fmt.Sprintf("table %q for document %q", tableID, docID)}
}

func tableNumber(path, stem string) (string, int, error) {
	m := tableNumRe.FindStringSubmatch(stem)
	if m == nil {
		return "", 0, &NotFoundError{Resource: fmt.Sprintf("table id in %q", stem)}
	}
	n := 0
	fmt.Sscanf(m[1], "%d", &n)
	return path, n, nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func requireArtifact(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("artifact missing at %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("artifact empty at %s", path)
	}
	return nil
}

func writeCleaningLog(path string, entries []models.LogEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cleaning log: %v", err)
	}
	return writeText(path, string(data)+"\n")
}
