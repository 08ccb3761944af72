// Package batch models per-item outcomes of multi-document operations.
package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK      ItemStatus = "ok"
	StatusSkipped ItemStatus = "skipped"
	StatusError   ItemStatus = "error"
)

// Result is the outcome of processing one document in a batch operation.
type Result struct {
	name   string
	status ItemStatus
	reason string
	err    error
}

// NewOK creates a successful batch result.
func NewOK(name string) Result { return Result{name: name, status: StatusOK} }

// NewSkipped records an item left untouched, with the reason.
func NewSkipped(name, reason string) Result {
	return Result{name: name, status: StatusSkipped, reason: reason}
}

// NewError creates a failed batch result.
func NewError(name string, err error) Result { return Result{name: name, status: StatusError, err: err} }

// Name returns the document name.
func (r Result) Name() string { return r.name }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Reason explains a skipped item.
func (r Result) Reason() string { return r.reason }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Counts tallies results by status.
func Counts(results []Result) (ok, skipped, failed int) {
	for _, r := range results {
		switch r.status {
		case StatusOK:
			ok++
		case StatusSkipped:
			skipped++
		case StatusError:
			failed++
		}
	}
	return ok, skipped, failed
}
