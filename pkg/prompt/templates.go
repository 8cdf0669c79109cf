package prompt

// Template names, matching the prompt files the pipeline ships with.
const (
	AnalysisTemplate = "prompt_1_table_error_understanding.md"
	StrategyTemplate = "prompt_2_remediation_strategy.md"
	CodegenTemplate  = "prompt_3_code_generation.md"
)

// Built-in templates used when no prompt directory is configured. Fenced
// examples keep lowercase tokens so strict leftover detection stays useful.
var defaults = map[string]string{
	AnalysisTemplate: `# Table Error Understanding

You are a data quality analyst. A table was extracted from a scanned document
and is likely messy: merged header artifacts, subtotal rows mixed into data,
inconsistent number formatting, stray footnote markers.

Statistical profile of the table:

<PROFILE_JSON>

Preview of the first rows (<ROW_COUNT> rows, <COLUMN_COUNT> columns in total):

<TABLE_PREVIEW>

Identify every structural and content problem that prevents this table from
being tidy (one observation per row, one variable per column). Respond with a
JSON object:

` + "```" + `json
{
  "issues": [
    {"id": "...", "kind": "...", "columns": [], "rows": [], "evidence": "..."}
  ],
  "summary": "..."
}
` + "```" + `
`,

	StrategyTemplate: `# Remediation Strategy

You are planning the cleanup of a messy extracted table. The diagnosis below
was produced in a previous step.

Error diagnosis:

<PROMPT1_ERROR_DIAGNOSIS_JSON>

Table profile:

<TABLE_PROFILE>

Write a step-by-step remediation strategy in markdown. For each issue, state
the transformation to apply, the columns and rows affected, and the order in
which steps must run. Do not write code yet.
`,

	CodegenTemplate: `# Cleaning Code Generation

Implement the remediation strategy below as a single JavaScript function.

Table profile:

<PROFILE_JSON>

Strategy:

<STRATEGY_MD>

Requirements:
- Define exactly one function named transform2tidy_table(table).
- The argument is {headers: [...], rows: [[...], ...]} with string cells.
- Return [cleanedTable, log] where cleanedTable has the same shape
  ({headers, rows}) and log is an array of {step, action} objects, one per
  transformation applied.
- The function must be pure: no I/O, no globals, no host calls.
- Respond with only the code.
`,
}
