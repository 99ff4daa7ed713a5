package transcriber

import (
	"errors"
	"net/http"
)

// FatalTranscriptionError is an upstream rejection that retrying with the
// same credentials will not fix. Status is the HTTP status when known.
type FatalTranscriptionError struct {
	Status int
	Err    error
}

func (e *FatalTranscriptionError) Error() string {
	if e == nil || e.Err == nil {
		return "fatal transcription error"
	}
	return e.Err.Error()
}

func (e *FatalTranscriptionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func NewFatalTranscriptionError(err error) error {
	if err == nil {
		return nil
	}
	return &FatalTranscriptionError{Err: err}
}

// classifyStatus wraps err as fatal when status is an auth rejection
func classifyStatus(status int, err error) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &FatalTranscriptionError{Status: status, Err: err}
	}
	return err
}

func IsFatalTranscriptionError(err error) bool {
	var fatal *FatalTranscriptionError
	return errors.As(err, &fatal)
}
