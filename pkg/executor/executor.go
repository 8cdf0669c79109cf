package executor

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dop251/goja"

	"github.com/xhad/tidy/internal/models"
)

// EntryPoint is the function a generated cleaning script must define.
const EntryPoint = "transform2tidy_table"

// Executor runs LLM-generated cleaning scripts inside an embedded JavaScript
// interpreter. The interpreter has no host bindings, so generated code can
// compute over the table it is handed and nothing else. Any script failure
// (missing entry point, thrown exception, malformed return value) is
// absorbed: the stage reports "no cleaned output" instead of crashing the
// orchestrator.
type Executor struct {
	Logger *log.Logger
}

func New() *Executor {
	return &Executor{Logger: log.Default()}
}

// Execute loads the script at scriptPath and applies its entry point to the
// raw table. ok is false when no cleaned output was produced.
func (e *Executor) Execute(ctx context.Context, scriptPath string, raw *models.Table) (result *models.CleaningResult, ok bool) {
	script, err := os.ReadFile(scriptPath)
	if err != nil {
		e.logf("cannot read cleaning script %s: %v", scriptPath, err)
		return nil, false
	}

	vm := goja.New()

	// Interrupt the interpreter if the caller gives up
	done := make(chan struct{})
	defer close(done)
	defer vm.ClearInterrupt()
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	if _, err := vm.RunString(string(script)); err != nil {
		e.logf("cleaning script %s failed to load: %v", scriptPath, err)
		return nil, false
	}

	fn, fnOK := goja.AssertFunction(vm.Get(EntryPoint))
	if !fnOK {
		e.logf("function %q not found in %s", EntryPoint, scriptPath)
		return nil, false
	}

	arg := vm.ToValue(tableToJS(raw))

	value, err := fn(goja.Undefined(), arg)
	if err != nil {
		e.logf("runtime error in cleaning script %s: %v", scriptPath, err)
		return nil, false
	}

	res, err := decodeResult(value.Export())
	if err != nil {
		e.logf("cleaning script %s returned malformed result: %v", scriptPath, err)
		return nil, false
	}

	return res, true
}

func (e *Executor) logf(format string, v ...interface{}) {
	logger := e.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, v...)
}

func tableToJS(t *models.Table) map[string]interface{} {
	rows := make([]interface{}, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for j, c := range row {
			cells[j] = c
		}
		rows[i] = cells
	}

	headers := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = h
	}

	return map[string]interface{}{
		"headers": headers,
		"rows":    rows,
	}
}

// decodeResult accepts either a bare table object or a [table, log] pair.
// A bare table gets a synthesized single-entry log, since the script left
// its log format unspecified.
func decodeResult(exported interface{}) (*models.CleaningResult, error) {
	if pair, isPair := exported.([]interface{}); isPair && len(pair) == 2 {
		table, err := decodeTable(pair[0])
		if err != nil {
			return nil, err
		}
		return &models.CleaningResult{
			Table: table,
			Log:   decodeLog(pair[1]),
		}, nil
	}

	table, err := decodeTable(exported)
	if err != nil {
		return nil, err
	}
	return &models.CleaningResult{
		Table: table,
		Log: []models.LogEntry{
			{"step": "unknown", "action": "script returned only a cleaned table; log format unspecified"},
		},
	}, nil
}

func decodeTable(v interface{}) (*models.Table, error) {
	obj, isObj := v.(map[string]interface{})
	if !isObj {
		return nil, fmt.Errorf("expected a table object, got %T", v)
	}

	headers, err := decodeStrings(obj["headers"])
	if err != nil {
		return nil, fmt.Errorf("headers: %v", err)
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("table has no headers")
	}

	rawRows, isList := obj["rows"].([]interface{})
	if !isList {
		return nil, fmt.Errorf("rows is not an array")
	}

	rows := make([][]string, 0, len(rawRows))
	for i, r := range rawRows {
		cells, err := decodeStrings(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %v", i, err)
		}
		rows = append(rows, cells)
	}

	return &models.Table{Headers: headers, Rows: rows}, nil
}

func decodeStrings(v interface{}) ([]string, error) {
	list, isList := v.([]interface{})
	if !isList {
		return nil, fmt.Errorf("expected an array, got %T", v)
	}
	out := make([]string, len(list))
	for i, item := range list {
		out[i] = fmt.Sprintf("%v", item)
	}
	return out, nil
}

func decodeLog(v interface{}) []models.LogEntry {
	list, isList := v.([]interface{})
	if !isList {
		return []models.LogEntry{
			{"step": "unknown", "action": fmt.Sprintf("script log had unexpected shape %T", v)},
		}
	}

	entries := make([]models.LogEntry, 0, len(list))
	for _, item := range list {
		if m, isMap := item.(map[string]interface{}); isMap {
			entries = append(entries, models.LogEntry(m))
		} else {
			entries = append(entries, models.LogEntry{"step": fmt.Sprintf("%v", item)})
		}
	}
	return entries
}
