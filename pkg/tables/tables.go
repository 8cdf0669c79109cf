package tables

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xhad/tidy/internal/models"
)

// Extract parses all pipe-delimited tables out of a converted document.
// A line is a table-row candidate when, after trimming, it begins and ends
// with a pipe. The first candidate line of a block is the header, the line
// right after it is skipped as the header/body separator, and data rows are
// kept only when their cell count matches the header. Rows with mismatched
// arity are dropped; this is lossy on purpose. Blank lines inside a block
// are tolerated, any other non-candidate line ends the block. Tables are
// numbered by discovery order starting at 1.
func Extract(text string) []models.Table {
	var found []models.Table
	var block []string

	flush := func() {
		if table, ok := parseBlock(block); ok {
			found = append(found, table)
		}
		block = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if isRowCandidate(trimmed) {
			block = append(block, trimmed)
			continue
		}

		if trimmed == "" {
			// A blank line does not terminate a block by itself
			continue
		}

		if len(block) > 0 {
			flush()
		}
	}
	flush()

	return found
}

func isRowCandidate(trimmed string) bool {
	return len(trimmed) > 1 &&
		strings.HasPrefix(trimmed, "|") &&
		strings.HasSuffix(trimmed, "|")
}

func parseBlock(lines []string) (models.Table, bool) {
	if len(lines) < 2 {
		return models.Table{}, false
	}

	headers := splitCells(lines[0])
	if len(headers) == 0 {
		return models.Table{}, false
	}

	var rows [][]string
	// lines[1] is the header/body separator
	for _, line := range lines[2:] {
		cells := splitCells(line)
		if len(cells) != len(headers) {
			continue
		}
		rows = append(rows, cells)
	}

	if len(rows) == 0 {
		return models.Table{}, false
	}

	return models.Table{Headers: headers, Rows: rows}, true
}

// splitCells splits a candidate line on pipes, dropping the empty outer
// fields produced by the leading and trailing delimiter.
func splitCells(line string) []string {
	parts := strings.Split(line, "|")
	if len(parts) < 3 {
		return nil
	}
	cells := make([]string, 0, len(parts)-2)
	for _, p := range parts[1 : len(parts)-1] {
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells
}

// ToMarkdown re-serializes a table as pipe-delimited text. Extracting the
// result yields a cell-wise identical table.
func ToMarkdown(t *models.Table) string {
	var b strings.Builder

	writeRow := func(cells []string) {
		b.WriteString("|")
		for _, c := range cells {
			b.WriteString(" ")
			b.WriteString(c)
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(t.Headers)

	sep := make([]string, len(t.Headers))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)

	for _, row := range t.Rows {
		writeRow(row)
	}

	return b.String()
}

// Preview renders the first n rows for inclusion in a prompt.
func Preview(t *models.Table, n int) string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	preview := models.Table{Headers: t.Headers, Rows: t.Rows[:n]}
	return ToMarkdown(&preview)
}

// WriteCSV persists a table, headers first.
func WriteCSV(t *models.Table, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create table directory: %v", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	records := make([][]string, 0, len(t.Rows)+1)
	records = append(records, t.Headers)
	records = append(records, t.Rows...)

	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %v", path, err)
	}
	return nil
}

// ReadCSV loads a table written by WriteCSV.
func ReadCSV(path string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty table file %s", path)
	}

	return &models.Table{Headers: records[0], Rows: records[1:]}, nil
}
