package session

import (
	"errors"
	"fmt"
)

// ErrSessionClosed is returned by Commit and Cancel once the session has finished.
var ErrSessionClosed = errors.New("session closed")

// ImageDecodeError reports a payload that could not be decoded. No session exists afterwards.
type ImageDecodeError struct {
	Size int
	Err  error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("decode image payload (%d bytes): %v", e.Size, e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }
