// Package notify prints profile workflow toasts to the terminal.
package notify

import (
	"errors"

	"github.com/pterm/pterm"
)

// Terminal implements profile.Notifier with pterm prefix printers.
type Terminal struct{}

func (Terminal) Success(message string) {
	pterm.Success.Println(message)
}

func (Terminal) Error(message string) {
	pterm.Error.Println(message)
}

type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// Reported marks err as already shown to the user by a notifier. The
// command still fails, but its error is not printed again.
func Reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

// IsReported reports whether err, or anything it wraps, was marked by Reported.
func IsReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}
