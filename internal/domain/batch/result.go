package batch

import "github.com/kailas-cloud/docextract/internal/domain/pipeline"

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of running one document of a multi-file submission.
type Result struct {
	filename string
	status   ItemStatus
	record   pipeline.Record
	err      error
}

// NewOK creates a successful batch result.
func NewOK(rec pipeline.Record) Result {
	return Result{filename: rec.Filename, status: StatusOK, record: rec}
}

// NewError creates a failed batch result.
func NewError(filename string, err error) Result {
	return Result{filename: filename, status: StatusError, err: err}
}

// Filename returns the submitted file name.
func (r Result) Filename() string { return r.filename }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Record returns the pipeline record of a successful item.
func (r Result) Record() pipeline.Record { return r.record }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }
