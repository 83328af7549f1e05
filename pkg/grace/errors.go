package grace

import "fmt"

// ActionableError is a startup error with a call to action: configuration
// mistakes of an unattended agent surface once in the logs and the operator
// should be told how to fix them, not just what went wrong.
type ActionableError struct {
	expected     string
	got          string
	callToAction string
}

func (e *ActionableError) WhatExpected() string {
	return e.expected
}

func (e *ActionableError) WhatHappened() string {
	return e.got
}

func (e *ActionableError) WhatToDo() string {
	return e.callToAction
}

func (e *ActionableError) Error() string {
	return fmt.Sprintf("expected: %s, got: %s; What to do: %s", e.expected, e.got, e.callToAction)
}

func RaiseError(expected, got, cta string) *ActionableError {
	return &ActionableError{
		expected:     expected,
		got:          got,
		callToAction: cta,
	}
}
