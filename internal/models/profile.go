package models

// Shape holds the row/column counts of a table.
type Shape struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// ColumnProfile summarizes one column of a raw table.
type ColumnProfile struct {
	Name                string        `json:"name"`
	Dtype               string        `json:"dtype"`
	SemanticType        string        `json:"semantic_type"`
	Role                string        `json:"role"`
	NullRatio           float64       `json:"null_ratio"`
	UniqueRatio         float64       `json:"unique_ratio"`
	SampleValues        []interface{} `json:"sample_values"`
	ContainsTotalLabels bool          `json:"contains_total_labels"`
}

// Profile is a compact statistical summary of a table, used to brief the
// LLM stages without sending full row data.
type Profile struct {
	Shape               Shape           `json:"shape"`
	Columns             []ColumnProfile `json:"columns"`
	SuspectedTotalsRows []int           `json:"suspected_totals_rows"`
	HeaderSamples       [][]string      `json:"header_samples"`
}
