package pipeline

import "fmt"

// Stage names used in stage-attributed errors.
const (
	StageProfiling = "profiling"
	StageAnalysis  = "prompt1"
	StageStrategy  = "prompt2"
	StageCodegen   = "prompt3"
	StageExecute   = "execute_cleaning"
)

// ProcessingError is a stage-attributed failure. It halts the
// (document, table) unit it occurred in; independent units are unaffected.
type ProcessingError struct {
	Stage   string
	Details string
	Err     error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("error in %s: %s", e.Stage, e.Details)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a missing document, table or artifact. It maps to a
// 404 at the API boundary.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}
