package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/syncbox/internal/archive"
	"github.com/roach88/syncbox/internal/guest"
	"github.com/roach88/syncbox/internal/manifest"
	"github.com/roach88/syncbox/internal/vfs"
)

// Exit codes.
const (
	ExitSuccess      = 0 // command ran and the archive checked out
	ExitFailure      = 1 // archive or manifest failed validation
	ExitCommandError = 2 // bad invocation: missing files, unreadable registry
)

// codeGeneric is reported when a failure carries no typed code.
const codeGeneric = "ERROR"

// ExitError tags a failure with the process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// GetExitCode maps an error to the process exit code. Untagged errors
// (cobra usage errors, unknown flags) count as command errors.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// Printer renders command results as human text or as the stable JSON
// envelope. Diagnostics go to Diag so piped JSON stays parseable.
type Printer struct {
	Format  string
	Out     io.Writer
	Diag    io.Writer
	Verbose bool
}

// Envelope is the JSON document every command prints.
type Envelope struct {
	Status string      `json:"status"` // "ok" or "error"
	Result any         `json:"result,omitempty"`
	Error  *Diagnostic `json:"error,omitempty"`
}

// Diagnostic is the error half of the envelope. Code and Field are lifted
// from the typed error families, so scripted callers see the same codes the
// libraries report.
type Diagnostic struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"` // offending manifest field, schema violations only
	Message string `json:"message"`
	Detail  any    `json:"detail,omitempty"`
}

// diagnose folds a failure into a Diagnostic, unwrapping whichever typed
// error family produced it.
func diagnose(err error) *Diagnostic {
	d := &Diagnostic{Code: codeGeneric, Message: err.Error()}

	var me *manifest.Error
	var ae *archive.Error
	var ve *vfs.Error
	var ge *guest.Error
	switch {
	case errors.As(err, &me):
		d.Code = string(me.Code)
		d.Field = me.Field
	case errors.As(err, &ae):
		d.Code = string(ae.Code)
	case errors.As(err, &ve):
		d.Code = string(ve.Code)
	case errors.As(err, &ge):
		d.Code = string(ge.Code)
	}
	return d
}

// textRenderer is implemented by command results that have a human layout
// beyond the JSON envelope.
type textRenderer interface {
	renderText(w io.Writer)
}

// Emit prints a successful command result: the ok envelope in json mode,
// the result's own layout in text mode.
func (p *Printer) Emit(result any) error {
	if p.Format == FormatJSON {
		return json.NewEncoder(p.Out).Encode(Envelope{Status: "ok", Result: result})
	}
	if r, ok := result.(textRenderer); ok {
		r.renderText(p.Out)
		return nil
	}
	fmt.Fprintln(p.Out, result)
	return nil
}

// Fail prints the error envelope for err and returns it tagged with the
// exit code, so commands report and bail in one step.
func (p *Printer) Fail(code int, err error, detail any) error {
	d := diagnose(err)
	d.Detail = detail

	if p.Format == FormatJSON {
		if encErr := json.NewEncoder(p.Out).Encode(Envelope{Status: "error", Error: d}); encErr != nil {
			return &ExitError{Code: ExitCommandError, Err: encErr}
		}
	} else {
		fmt.Fprintf(p.Out, "error [%s]: %s\n", d.Code, d.Message)
		if d.Field != "" {
			fmt.Fprintf(p.Out, "  field: %s\n", d.Field)
		}
	}
	return &ExitError{Code: code, Err: err}
}

// Debugf prints a diagnostic line in verbose mode only.
func (p *Printer) Debugf(format string, args ...any) {
	if !p.Verbose {
		return
	}
	w := p.Diag
	if w == nil {
		w = p.Out
	}
	fmt.Fprintf(w, format+"\n", args...)
}
