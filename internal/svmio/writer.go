// Package svmio holds small I/O helpers shared by the cmd/svm subcommands.
package svmio

import (
	"io"

	"github.com/pkg/errors"
)

// ErrWriter wraps a writer and latches the first error it sees: once Write
// fails, every later call returns the same error instead of attempting
// another write. The CLI uses this for its stdout so a broken pipe during a
// long disassembly or debug session is reported once at exit rather than
// once per line.
//
// Adapted from the teacher's internal/ngi.ErrWriter, which does the same
// thing for its VT100 terminal output.
type ErrWriter struct {
	w   io.Writer
	Err error
}

func (w *ErrWriter) Write(p []byte) (n int, err error) {
	if w.Err != nil {
		return 0, w.Err
	}
	n, err = w.w.Write(p)
	if err != nil {
		w.Err = errors.Wrap(err, "write failed")
	}
	return n, w.Err
}

// NewErrWriter returns a new ErrWriter wrapping w.
func NewErrWriter(w io.Writer) *ErrWriter {
	return &ErrWriter{w: w}
}
