package pipeline

import "time"

// Outcome classifies how a run ended
type Outcome string

const (
	// OutcomeSucceeded means the file was written (and published, if configured)
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeFetchFailed means no document was retrieved
	OutcomeFetchFailed Outcome = "fetch_failed"
	// OutcomeFlattenFailed means the document could not be turned into a table
	OutcomeFlattenFailed Outcome = "flatten_failed"
	// OutcomeEmptyResult means the document was an empty object
	OutcomeEmptyResult Outcome = "empty_result"
	// OutcomeWriteFailed means the table could not be persisted
	OutcomeWriteFailed Outcome = "write_failed"
	// OutcomePublishFailed means the file was written but not uploaded
	OutcomePublishFailed Outcome = "publish_failed"
)

// Result describes a finished run
type Result struct {
	Outcome      Outcome
	URL          string
	OutputPath   string
	PublishedURI string
	Rows         int
	Duration     time.Duration
	// Err is the error of the failing stage, nil on success
	Err error
}

// OK reports whether the run succeeded
func (r *Result) OK() bool {
	return r != nil && r.Outcome == OutcomeSucceeded
}

// ExitCode maps the outcome onto the process exit status
func (r *Result) ExitCode() int {
	if r.OK() {
		return 0
	}
	return 1
}

func (r *Result) fail(outcome Outcome, err error) {
	r.Outcome = outcome
	r.Err = err
}
