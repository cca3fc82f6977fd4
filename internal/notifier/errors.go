package notifier

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinels attached to TransportError so callers can classify a failure
// with errors.Is without inspecting messages.
var (
	// ErrUnreachable means the request never produced a response.
	ErrUnreachable = errors.New("remote server unreachable")
	// ErrUndecodable means a response arrived but its body could not be read
	// as the expected structure.
	ErrUndecodable = errors.New("response body undecodable")
	// ErrRejected means the remote service answered and refused the message.
	ErrRejected = errors.New("message rejected")
)

// TransportError reports a failed exchange with a remote service. StatusCode
// and Body hold the raw response when one was received.
type TransportError struct {
	Message    string
	StatusCode int
	Body       []byte

	kind error
	err  error
}

// NewUnreachableError reports that no response could be obtained.
func NewUnreachableError(msg string, cause error) *TransportError {
	return &TransportError{Message: msg, kind: ErrUnreachable, err: cause}
}

// NewUndecodableError reports that the response body could not be decoded.
func NewUndecodableError(msg string, statusCode int, body []byte, cause error) *TransportError {
	return &TransportError{Message: msg, StatusCode: statusCode, Body: body, kind: ErrUndecodable, err: cause}
}

// NewRejectedError reports that the remote service refused the message.
func NewRejectedError(msg string, statusCode int, body []byte) *TransportError {
	return &TransportError{Message: msg, StatusCode: statusCode, Body: body, kind: ErrRejected}
}

func (e *TransportError) Error() string {
	if e.err != nil {
		return e.Message + ": " + e.err.Error()
	}
	return e.Message
}

func (e *TransportError) Unwrap() []error {
	var errs []error
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.err != nil {
		errs = append(errs, e.err)
	}
	return errs
}

// UnsupportedMessageTypeError is returned when a transport is asked to send a
// message kind it cannot handle. No I/O has happened when it is returned.
type UnsupportedMessageTypeError struct {
	Transport string
	Expected  Kind
	Got       Kind
}

func (e *UnsupportedMessageTypeError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("no transport in %s supports %q messages", e.Transport, e.Got)
	}
	return fmt.Sprintf("the %q transport only supports %s messages, got %q", e.Transport, e.Expected, e.Got)
}

// UnsupportedSchemeError is returned by factories for a DSN they do not handle.
type UnsupportedSchemeError struct {
	DSN       DSN
	Provider  string
	Supported []string
}

func (e *UnsupportedSchemeError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("the %q scheme is not supported", e.DSN.Scheme())
	}
	return fmt.Sprintf("the %q scheme is not supported; supported schemes for notifier %q are: %s",
		e.DSN.Scheme(), e.Provider, quoteList(e.Supported))
}

// MissingRequiredOptionError is returned when a DSN lacks a mandatory option.
type MissingRequiredOptionError struct {
	Option string
}

func (e *MissingRequiredOptionError) Error() string {
	return fmt.Sprintf("the option %q is required but missing", e.Option)
}

// IncompleteDSNError is returned when a DSN lacks credentials a factory needs.
type IncompleteDSNError struct {
	DSN    DSN
	Reason string
}

func (e *IncompleteDSNError) Error() string {
	return fmt.Sprintf("invalid %q notifier DSN: %s", e.DSN.Scheme(), e.Reason)
}

// InvalidDSNError is returned when a DSN string cannot be parsed.
type InvalidDSNError struct {
	Reason string
	Err    error
}

func (e *InvalidDSNError) Error() string {
	if e.Err != nil {
		return "invalid notifier DSN: " + e.Reason + ": " + e.Err.Error()
	}
	return "invalid notifier DSN: " + e.Reason
}

func (e *InvalidDSNError) Unwrap() error { return e.Err }

// UnknownTransportError is returned by Transports when a message names a
// transport that is not registered.
type UnknownTransportError struct {
	Name      string
	Available []string
}

func (e *UnknownTransportError) Error() string {
	return fmt.Sprintf("the %q transport does not exist (available transports: %s)", e.Name, quoteList(e.Available))
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = strconv.Quote(item)
	}
	return strings.Join(quoted, ", ")
}
