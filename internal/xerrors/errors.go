package xerrors

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Codes let webhook senders and checkout clients branch without parsing messages.
const (
	CodeInvalidSignature = "invalid_signature"
	CodeInvalidBody      = "invalid_body"
	CodePayloadTooLarge  = "payload_too_large"
	CodeRelayUnavailable = "relay_unavailable"
	CodeRateLimited      = "rate_limited"
	CodeValidation       = "validation_failed"
	CodeProvider         = "provider_error"
	CodeUnavailable      = "unavailable"
)

type Error struct {
	StatusCode int
	Code       string
	Message    string
	Cause      error
	Retry      *RetryInfo
	Validation *ValidationInfo
}

// RetryInfo is surfaced as Retry-After and, when set, X-RateLimit-Reason.
type RetryInfo struct {
	After  time.Duration
	Reason string
}

type ValidationInfo struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func BadRequest(opts ...Option) *Error         { return build(http.StatusBadRequest, opts) }
func PayloadTooLarge(opts ...Option) *Error    { return build(http.StatusRequestEntityTooLarge, opts) }
func TooManyRequests(opts ...Option) *Error    { return build(http.StatusTooManyRequests, opts) }
func Internal(opts ...Option) *Error           { return build(http.StatusInternalServerError, opts) }
func BadGateway(opts ...Option) *Error         { return build(http.StatusBadGateway, opts) }
func ServiceUnavailable(opts ...Option) *Error { return build(http.StatusServiceUnavailable, opts) }

func Validation(fields map[string]string, opts ...Option) *Error {
	e := build(http.StatusUnprocessableEntity, append([]Option{WithCode(CodeValidation)}, opts...))
	e.Validation = &ValidationInfo{Fields: fields}
	return e
}

func build(status int, opts []Option) *Error {
	e := &Error{StatusCode: status, Message: strings.ToLower(http.StatusText(status))}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type Option func(*Error)

func WithCode(code string) Option   { return func(e *Error) { e.Code = code } }
func WithMessage(msg string) Option { return func(e *Error) { e.Message = msg } }
func WithCause(err error) Option    { return func(e *Error) { e.Cause = err } }

func WithRetryAfter(d time.Duration) Option {
	return func(e *Error) { e.retry().After = d }
}

func WithReason(reason string) Option {
	return func(e *Error) { e.retry().Reason = reason }
}

func (e *Error) retry() *RetryInfo {
	if e.Retry == nil {
		e.Retry = &RetryInfo{}
	}
	return e.Retry
}

func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
