package feed

import (
	"errors"
	"fmt"
)

// TransientError marks a failure worth retrying (network hiccups, timeouts,
// upstream 5xx). The orchestrator retries these within the round's budget.
type TransientError struct {
	Source string
	Err    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient fetch error for %s: %v", e.Source, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a failure that retrying cannot fix (malformed
// response, unexpected schema). It is logged and the source yields an empty
// item list for the round.
type PermanentError struct {
	Source string
	Err    error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent adapter error for %s: %v", e.Source, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// ConfigError marks an invalid or missing descriptor. Configuration problems
// fail fast at load, before any round runs.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error at %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError for the given source key.
func Transient(source string, err error) error {
	return &TransientError{Source: source, Err: err}
}

// Permanent wraps err as a PermanentError for the given source key.
func Permanent(source string, err error) error {
	return &PermanentError{Source: source, Err: err}
}

// IsPermanent reports whether err carries a PermanentError anywhere in its
// chain.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}
