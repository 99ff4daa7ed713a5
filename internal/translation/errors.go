package translation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/sashabaranov/go-openai"
)

// ErrorKind classifies provider failures for callers
type ErrorKind string

const (
	KindInvalidAPIKey ErrorKind = "invalid_api_key"
	KindProvider      ErrorKind = "provider"
	KindNetwork       ErrorKind = "network"
)

// ErrEmptyTranslation marks a provider that answered non-blank text with
// nothing. Such results are never cached or stored.
var ErrEmptyTranslation = errors.New("empty translation")

// EmptyResult reports an empty answer from provider as a provider error.
func EmptyResult(provider string) error {
	if provider == "" {
		provider = "translator"
	}
	return &Error{Kind: KindProvider, Provider: provider, Message: ErrEmptyTranslation.Error(), Err: ErrEmptyTranslation}
}

// Error is returned by every provider call in this package
type Error struct {
	Kind     ErrorKind
	Provider string
	Status   int    // HTTP status when the provider answered
	Message  string // provider message, preserved verbatim
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidAPIKey:
		return fmt.Sprintf("%s: invalid API key", e.Provider)
	case KindNetwork:
		return fmt.Sprintf("%s: network error: %v", e.Provider, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a translation error, or "" for other errors.
func KindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// statusError builds an error from an HTTP status and provider message.
func statusError(provider string, status int, message string) *Error {
	kind := KindProvider
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		kind = KindInvalidAPIKey
	}
	return &Error{Kind: kind, Provider: provider, Status: status, Message: message}
}

// networkError wraps a transport-level failure.
func networkError(provider string, err error) *Error {
	return &Error{Kind: KindNetwork, Provider: provider, Message: err.Error(), Err: err}
}

// classifyLLMError maps go-openai errors onto the translation taxonomy.
func classifyLLMError(provider string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		e := statusError(provider, apiErr.HTTPStatusCode, apiErr.Message)
		e.Err = err
		return e
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := reqErr.HTTPStatus
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		e := statusError(provider, reqErr.HTTPStatusCode, msg)
		e.Err = err
		return e
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) {
		return networkError(provider, err)
	}

	return &Error{Kind: KindProvider, Provider: provider, Message: err.Error(), Err: err}
}
