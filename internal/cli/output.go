package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // replay interrupted, archive write failed, scenarios failed
	ExitCommandError = 2 // bad flags or paths, input that is not a sequence
)

// Error codes reported in the JSON envelope.
const (
	ErrCodeGeneric       = "E001"
	ErrCodeNotFound      = "E005" // sequence file or archived sequence missing
	ErrCodeInvalidFormat = "E010" // input is not a sequence document
	ErrCodeArchive       = "E020" // archive unavailable or failed
	ErrCodeTestFailed    = "E030" // at least one scenario failed
)

// ExitError is a command failure. Code is the process exit code, ErrCode
// the code reported under --format json (ErrCodeGeneric when empty).
type ExitError struct {
	Code    int
	ErrCode string
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WithCode sets the reported error code and returns e.
func (e *ExitError) WithCode(code string) *ExitError {
	e.ErrCode = code
	return e
}

// NewExitError creates an ExitError without an underlying cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError creates an ExitError around err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code carried by err, or ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Envelope is the --format json response. Data is typed per command:
// ListResult for list, TestResult for test.
type Envelope[T any] struct {
	Status string     `json:"status"` // "ok" or "error"
	Data   *T         `json:"data,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed command.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func newErrorBody(err error) *ErrorBody {
	body := &ErrorBody{Code: ErrCodeGeneric, Message: err.Error()}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ErrCode != "" {
			body.Code = exitErr.ErrCode
		}
		body.Message = exitErr.Message
		if exitErr.Err != nil {
			body.Details = exitErr.Err.Error()
		}
	}
	return body
}

// textRenderer is implemented by results with a human-readable form.
type textRenderer interface {
	RenderText(w io.Writer) error
}

// OutputFormatter writes command results as text or a JSON envelope.
// Writer carries results; Diag carries verbose diagnostics.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Diag    io.Writer
	Verbose bool
}

// Success writes data as the command result.
func (f *OutputFormatter) Success(data any) error {
	return f.Report(data, nil)
}

// Report writes data and, when err is non-nil, marks the envelope as
// failed. It returns err so commands can end with `return f.Report(...)`.
func (f *OutputFormatter) Report(data any, err error) error {
	if f.Format == "json" {
		env := Envelope[any]{Status: "ok", Data: &data}
		if err != nil {
			env.Status = "error"
			env.Error = newErrorBody(err)
		}
		if encErr := json.NewEncoder(f.Writer).Encode(env); encErr != nil {
			return encErr
		}
		return err
	}

	if r, ok := data.(textRenderer); ok {
		if renderErr := r.RenderText(f.Writer); renderErr != nil {
			return renderErr
		}
	} else if _, printErr := fmt.Fprintln(f.Writer, data); printErr != nil {
		return printErr
	}
	return err
}

// Fail reports err in the JSON envelope and returns it. Text mode writes
// nothing here; main prints the error.
func (f *OutputFormatter) Fail(err error) error {
	if f.Format == "json" {
		_ = json.NewEncoder(f.Writer).Encode(Envelope[any]{
			Status: "error",
			Error:  newErrorBody(err),
		})
	}
	return err
}

// VerboseLog writes a diagnostic line under --verbose. It never touches
// Writer, which may be a payload stream.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose || f.Diag == nil {
		return
	}
	fmt.Fprintf(f.Diag, format+"\n", args...)
}
