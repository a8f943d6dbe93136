package session

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRecording is returned by Start while a session is active.
	ErrAlreadyRecording = errors.New("a recording session is already active")
	// ErrNotRecording is returned by operations that require an active session.
	ErrNotRecording = errors.New("no recording session is active")
	// ErrCaptureInit indicates the video sink or capture region could not be opened.
	ErrCaptureInit = errors.New("capture initialisation failed")
)

type captureInitError struct {
	cause error
}

func (e *captureInitError) Error() string {
	return fmt.Sprintf("capture initialisation failed: %v", e.cause)
}

func (e *captureInitError) Is(target error) bool {
	return target == ErrCaptureInit
}

func (e *captureInitError) Unwrap() error {
	return e.cause
}

func newCaptureInitError(cause error) error {
	return &captureInitError{cause: cause}
}
