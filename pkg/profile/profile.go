package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xhad/tidy/internal/models"
)

var totalLabels = map[string]bool{
	"Total":       true,
	"Grand Total": true,
	"Subtotal":    true,
}

const sampleLimit = 5

// Build derives a deterministic statistical summary of a raw table: shape,
// per-column dtype/role/missingness/cardinality/samples, and the rows
// suspected to be subtotal or grand-total rows.
func Build(t *models.Table) models.Profile {
	p := models.Profile{
		Shape:               models.Shape{Rows: t.NumRows(), Columns: t.NumColumns()},
		Columns:             make([]models.ColumnProfile, 0, t.NumColumns()),
		SuspectedTotalsRows: []int{},
		HeaderSamples:       [][]string{t.Headers},
	}

	for i, row := range t.Rows {
		if len(row) > 0 && totalLabels[strings.TrimSpace(row[0])] {
			p.SuspectedTotalsRows = append(p.SuspectedTotalsRows, i)
		}
	}

	for col, name := range t.Headers {
		p.Columns = append(p.Columns, profileColumn(t, col, name))
	}

	return p
}

func profileColumn(t *models.Table, col int, name string) models.ColumnProfile {
	var nonNull []string
	nulls := 0
	unique := make(map[string]bool)
	containsTotals := false

	for _, row := range t.Rows {
		cell := strings.TrimSpace(row[col])
		if isNull(cell) {
			nulls++
			continue
		}
		nonNull = append(nonNull, cell)
		unique[cell] = true
		if totalLabels[cell] {
			containsTotals = true
		}
	}

	dtype := inferDtype(nonNull)
	numeric := dtype != "object"

	cp := models.ColumnProfile{
		Name:                name,
		Dtype:               dtype,
		ContainsTotalLabels: containsTotals,
		SampleValues:        []interface{}{},
	}

	if numeric {
		cp.SemanticType = "numeric"
		cp.Role = "measure"
	} else {
		cp.SemanticType = "categorical"
		cp.Role = "dimension"
	}

	if n := len(t.Rows); n > 0 {
		cp.NullRatio = float64(nulls) / float64(n)
		cp.UniqueRatio = float64(len(unique)) / float64(n)
	}

	for _, v := range nonNull {
		if len(cp.SampleValues) >= sampleLimit {
			break
		}
		cp.SampleValues = append(cp.SampleValues, sampleValue(v, dtype))
	}

	return cp
}

func isNull(cell string) bool {
	return cell == "" || cell == "NaN" || cell == "nan"
}

// inferDtype mirrors how a dataframe would type the column after CSV load:
// all-integer values are int64, otherwise all-numeric values are float64,
// anything else is object.
func inferDtype(values []string) string {
	if len(values) == 0 {
		return "object"
	}

	allInt := true
	for _, v := range values {
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			allInt = false
			break
		}
	}
	if allInt {
		return "int64"
	}

	for _, v := range values {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return "object"
		}
	}
	return "float64"
}

func sampleValue(v, dtype string) interface{} {
	switch dtype {
	case "int64":
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case "float64":
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return v
}

// Save writes a profile as indented JSON at path, creating parent
// directories as needed.
func Save(p models.Profile, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create profile directory: %v", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile: %v", err)
	}

	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Load reads a profile written by Save.
func Load(path string) (models.Profile, error) {
	var p models.Profile

	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to decode profile %s: %v", path, err)
	}
	return p, nil
}
