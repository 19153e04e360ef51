package errs

import (
	"errors"
	"fmt"
)

var (
	ErrMissingConfig  = errors.New("config is missing")
	ErrUnknownBackend = errors.New("unknown indicator backend")
	ErrUnknownSource  = errors.New("unknown station event source")
)

// SilentError is an error wrapper type that silences an
// error and only logs them in the debug log.
//
// It is usually used for control messages from the radio daemon
// that are well-formed but irrelevant to station tracking.
type SilentError struct{ error }

func (e *SilentError) Error() string {
	return e.error.Error()
}

func (e *SilentError) Unwrap() error {
	return e.error
}

func NewSilentErr(format string, a ...any) error {
	return &SilentError{fmt.Errorf(format, a...)}
}

// IsSilent reports whether err is or wraps a SilentError.
func IsSilent(err error) bool {
	var s *SilentError
	return errors.As(err, &s)
}
