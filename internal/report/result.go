package report

// ErrorKind classifies why a submission was aborted.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation_error"
	KindStorage     ErrorKind = "storage_error"
	KindPersistence ErrorKind = "persistence_error"
	KindInternal    ErrorKind = "internal_error"
)

type Failure struct {
	Kind    ErrorKind
	Message string
	Details ValidationErrors
	Err     error // underlying cause, never shown to clients
}

// Result is the uniform outcome of Submit. Failure is nil on success.
type Result struct {
	ReportID string
	Message  string
	Failure  *Failure
}

func (r Result) OK() bool { return r.Failure == nil }

func failed(kind ErrorKind, msg string, err error) Result {
	return Result{Failure: &Failure{Kind: kind, Message: msg, Err: err}}
}
