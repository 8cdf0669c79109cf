package models

import "time"

// PipelineResult collects the artifact paths and row counts produced by one
// full pipeline run for a (document, table) unit.
type PipelineResult struct {
	DocID          string `json:"doc_id"`
	TableNum       int    `json:"table_num"`
	TablePath      string `json:"table_path"`
	ProfilePath    string `json:"profile_path"`
	AnalysisPath   string `json:"prompt1_path"`
	StrategyPath   string `json:"prompt2_path"`
	CodegenPath    string `json:"prompt3_path"`
	CleanedCSVPath string `json:"cleaned_csv_path"`
	LogPath        string `json:"log_path,omitempty"`
	RowsOriginal   int    `json:"num_rows_original"`
	RowsCleaned    int    `json:"num_rows_cleaned"`
}

// RunRecord is one row in the run registry.
type RunRecord struct {
	DocID        string
	TableID      string
	Stage        string
	Status       string
	RowsOriginal int
	RowsCleaned  int
	Duration     time.Duration
	Error        string
	CreatedAt    time.Time
}
