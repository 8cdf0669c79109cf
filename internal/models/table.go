package models

// Table is a rectangular grid extracted from a converted document. Headers
// are ordered and every row has exactly len(Headers) cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.Headers)
}

// LogEntry is one step of a cleaning log produced by a generated
// transformation script. Scripts decide their own keys, so entries stay
// schemaless.
type LogEntry map[string]interface{}

// CleaningResult is the output of running a generated cleaning script
// against a raw table.
type CleaningResult struct {
	Table *Table
	Log   []LogEntry
}
