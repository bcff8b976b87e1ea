package cli

import "fmt"

// exitCodeError lets a RunE return a specific process exit code through
// cobra's normal error path; main.go's Execute caller unwraps it.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string { return fmt.Sprintf("exit code %d", e.code) }

func errExitCode(code int) error { return exitCodeError{code: code} }

// IsExitCodeError reports whether err already carries its own intended
// exit code (and, by convention, has already printed whatever detail it
// needs), so main.go shouldn't also print a generic "pdbsync: <err>"
// line for it.
func IsExitCodeError(err error) bool {
	_, ok := err.(exitCodeError)
	return ok
}

// ExitCode extracts the intended process exit code from an error
// returned by Execute, defaulting to 1 for any other non-nil error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if ec, ok := err.(exitCodeError); ok {
		return ec.code
	}
	return 1
}
