package dispatcher

import "fmt"

// Status indicates the outcome of handling one action.
type Status uint8

const (
	StatusOK Status = iota
	StatusNoOp
	StatusError
	StatusAsync
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoOp:
		return "no-op"
	case StatusError:
		return "error"
	case StatusAsync:
		return "async"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is the outcome of Dispatcher.Execute: the mutation itself
// already happened (or didn't) by the time a Handler returns one of
// these, so Result exists for logging, status-line messages, and
// deciding whether a mode change or undo-group commit follows.
type Result struct {
	Status     Status
	Error      error
	Message    string
	ModeChange string // non-empty on a completed mode transition
}

func (r Result) IsOK() bool    { return r.Status == StatusOK }
func (r Result) IsError() bool { return r.Status == StatusError }

func Success() Result                 { return Result{Status: StatusOK} }
func SuccessWithMessage(m string) Result { return Result{Status: StatusOK, Message: m} }
func NoOp() Result                    { return Result{Status: StatusNoOp} }
func NoOpWithMessage(m string) Result { return Result{Status: StatusNoOp, Message: m} }
func Error(err error) Result          { return Result{Status: StatusError, Error: err} }
func Errorf(format string, args ...interface{}) Result {
	return Result{Status: StatusError, Error: fmt.Errorf(format, args...)}
}
func Async() Result      { return Result{Status: StatusAsync} }
func Cancelled() Result  { return Result{Status: StatusCancelled} }

// WithModeChange returns a copy of r recording a completed mode change.
func (r Result) WithModeChange(mode string) Result {
	r.ModeChange = mode
	return r
}

// WithMessage returns a copy of r with a status-line message attached.
func (r Result) WithMessage(msg string) Result {
	r.Message = msg
	return r
}
