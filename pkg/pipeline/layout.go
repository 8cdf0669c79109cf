package pipeline

import (
	"fmt"
	"path/filepath"
)

// Layout is the single addressing scheme for pipeline artifacts. Every
// artifact of table n in document d is addressable from (stage, d, n) alone;
// writers and readers share these functions instead of guessing paths.
// The filenames are a compatibility contract with downstream tooling, which
// is why the generated-code artifact keeps its historical prompt3_py name.
type Layout struct {
	OutputsRoot  string
	TablesRoot   string
	ProfilesRoot string
	AnalysisRoot string
	StrategyRoot string
	CodegenRoot  string
	CleanedRoot  string
}

func (l Layout) DocumentDir(docID string) string {
	return filepath.Join(l.OutputsRoot, docID)
}

func (l Layout) TableDir(docID string) string {
	return filepath.Join(l.TablesRoot, docID)
}

func (l Layout) TableCSV(docID string, n int) string {
	return filepath.Join(l.TablesRoot, docID, fmt.Sprintf("table_%d.csv", n))
}

func (l Layout) ProfileJSON(docID string, n int) string {
	return filepath.Join(l.ProfilesRoot, docID, fmt.Sprintf("table_%d_profile.json", n))
}

func (l Layout) AnalysisJSON(docID string, n int) string {
	return filepath.Join(l.AnalysisRoot, docID, fmt.Sprintf("prompt1_table%d.json", n))
}

func (l Layout) StrategyMD(docID string, n int) string {
	return filepath.Join(l.StrategyRoot, docID, fmt.Sprintf("prompt2_table%d.md", n))
}

func (l Layout) CodegenScript(docID string, n int) string {
	return filepath.Join(l.CodegenRoot, docID, fmt.Sprintf("prompt3_py%d.py", n))
}

func (l Layout) CleanedCSV(docID string, n int) string {
	return filepath.Join(l.CleanedRoot, docID, fmt.Sprintf("cleaned_table_%d.csv", n))
}

func (l Layout) CleaningLog(docID string, n int) string {
	return filepath.Join(l.CleanedRoot, docID, fmt.Sprintf("log_table_%d.json", n))
}
