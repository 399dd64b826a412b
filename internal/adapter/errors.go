package adapter

import (
	"fmt"
)

// ConfigError is returned when the adapter cannot be constructed from its configuration
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

// ErrorKind is a category of a failed completion request
type ErrorKind string

const (
	// KindTransport is a network failure: DNS, connection reset, timeout or cancellation
	KindTransport ErrorKind = "transport_failure"
	// KindRemote is a non-2xx status returned by the endpoint
	KindRemote ErrorKind = "remote_error"
	// KindMalformed is a 2xx response that cannot be converted to a completion
	KindMalformed ErrorKind = "malformed_response"
)

const maxErrorBodySize = 64 * 1024

// RequestError is returned by Create when the completion call fails
type RequestError struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	switch e.Kind {
	case KindRemote:
		return fmt.Sprintf("remote endpoint returned status %d: %s", e.StatusCode, e.Message)
	case KindTransport:
		return fmt.Sprintf("completion request failed: %v", e.Err)
	default:
		if e.Err != nil {
			return fmt.Sprintf("malformed completion response: %s: %v", e.Message, e.Err)
		}
		return "malformed completion response: " + e.Message
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ErrorType returns the failure category name.
func (e *RequestError) ErrorType() string {
	return string(e.Kind)
}

func transportError(err error) *RequestError {
	return &RequestError{Kind: KindTransport, Err: err}
}

func malformedError(msg string, err error) *RequestError {
	return &RequestError{Kind: KindMalformed, Message: msg, Err: err}
}

func remoteError(status int, body []byte) *RequestError {
	if len(body) > maxErrorBodySize {
		body = body[:maxErrorBodySize]
	}
	out := &RequestError{
		Kind:       KindRemote,
		StatusCode: status,
		Body:       string(body),
		Message:    string(body),
	}

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		out.Message = apiErr.Error.Message
	}
	if out.Message == "" {
		out.Message = fmt.Sprintf("empty body with status %d", status)
	}

	return out
}
