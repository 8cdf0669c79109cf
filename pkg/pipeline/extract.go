package pipeline

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/xhad/tidy/pkg/tables"
)

// ExtractResult reports the outcome of pulling tables out of a converted
// document.
type ExtractResult struct {
	DocID      string   `json:"doc_id"`
	SourcePath string   `json:"source_path"`
	NumTables  int      `json:"num_tables"`
	TablePaths []string `json:"table_paths"`
}

// Extractor locates a document's converted markdown and materializes every
// pipe table in it as a numbered CSV artifact.
type Extractor struct {
	layout Layout
	logger *log.Logger
}

func NewExtractor(layout Layout, logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.Default()
	}
	return &Extractor{layout: layout, logger: logger}
}

// Extract parses the document's combined markdown and writes one CSV per
// table, numbered in order of appearance starting at 1. A document with no
// tables succeeds with an empty result.
func (e *Extractor) Extract(docID string) (*ExtractResult, error) {
	sourcePath, err := e.resolveMarkdown(docID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", sourcePath, err)
	}

	extracted := tables.Extract(string(data))
	e.logger.Printf("extracted %d tables from %s", len(extracted), sourcePath)

	paths := make([]string, 0, len(extracted))
	for i, table := range extracted {
		path := e.layout.TableCSV(docID, i+1)
		if err := tables.WriteCSV(&table, path); err != nil {
			return nil, fmt.Errorf("failed to write table %d: %v", i+1, err)
		}
		paths = append(paths, path)
	}

	return &ExtractResult{
		DocID:      docID,
		SourcePath: sourcePath,
		NumTables:  len(paths),
		TablePaths: paths,
	}, nil
}

// resolveMarkdown finds the converted document text, preferring the
// conventional <doc>/<doc>.md location and falling back to any single
// markdown file in the document directory.
func (e *Extractor) resolveMarkdown(docID string) (string, error) {
	docDir := e.layout.DocumentDir(docID)

	canonical := filepath.Join(docDir, docID+".md")
	if info, err := os.Stat(canonical); err == nil && !info.IsDir() {
		return canonical, nil
	}

	matches, _ := filepath.Glob(filepath.Join(docDir, "*.md"))
	if len(matches) == 1 {
		return matches[0], nil
	}

	return "", &NotFoundError{Resource: fmt.Sprintf("converted markdown for document %q", docID)}
}
