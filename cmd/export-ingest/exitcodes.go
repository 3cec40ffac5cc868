package main

import "errors"

// Process exit statuses. Errors without one exit 1.
const (
	exitOK     = 0
	exitUsage  = 2 // bad flags, env or data folder
	exitRules  = 3 // classification rules rejected
	exitDB     = 4 // database unreachable or a read failed
	exitWrite  = 5 // stored data was not written
	exitReport = 6 // a date or JSON report could not be written
)

// statusError tags err with the status the process exits with.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }

func (e *statusError) Unwrap() error { return e.err }

func withCode(status int, err error) error {
	if err == nil {
		return nil
	}
	return &statusError{status: status, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.status
	}
	return 1
}
