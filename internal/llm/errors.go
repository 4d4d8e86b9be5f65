package llm

import "errors"

// TransientError marks an error that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }
func (e *TransientError) Unwrap() error { return e.err }

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error { return &TransientError{err: err} }

// FatalError marks a permanent error that must not be retried.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string { return e.err.Error() }
func (e *FatalError) Unwrap() error { return e.err }

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error { return &FatalError{err: err} }

// IsFatal reports whether err is fatal and should not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// InvokeError wraps the final failure of an LLM invocation after the retry
// budget is exhausted. The API layer maps it to a 502-class response.
type InvokeError struct {
	Flow string
	Err  error
}

func (e *InvokeError) Error() string {
	return "llm: " + e.Flow + " invocation failed: " + e.Err.Error()
}

func (e *InvokeError) Unwrap() error { return e.Err }
