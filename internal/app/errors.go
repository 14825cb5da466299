package app

import "strings"

// ValidationError lists why a recurring template was rejected.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid template: " + strings.Join(e.Problems, "; ")
}

// StatementError reports a statement that could not be read or parsed, as
// opposed to a storage failure while importing it.
type StatementError struct {
	File string
	Err  error
}

func (e *StatementError) Error() string {
	return e.Err.Error()
}

func (e *StatementError) Unwrap() error {
	return e.Err
}
