package video

import (
	"errors"
	"strings"
)

// ErrEncoderUnavailable indicates no native encoder backend exists on this build.
var ErrEncoderUnavailable = errors.New("video encoder backend unavailable on this platform")

type unavailableError struct {
	message string
}

func (e *unavailableError) Error() string {
	return e.message
}

func (e *unavailableError) Is(target error) bool {
	return target == ErrEncoderUnavailable
}

func newUnavailableError(message string) error {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		trimmed = ErrEncoderUnavailable.Error()
	}
	return &unavailableError{message: trimmed}
}
