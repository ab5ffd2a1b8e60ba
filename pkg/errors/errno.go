// Package errors provides the structured error codes used across PawCare.
//
// Error Code Format: AABBCCC (7 digits)
//
//	AA  (00-99): Service/Module code
//	BB  (00-99): Category code
//	CCC (000-999): Sequence number within the category
//
// Usage:
//
//	return errors.ErrDirectoryNotFound.WithMessagef("directory %q does not exist", dir)
//	return errors.ErrIndexFailed.WithCause(err)
//
// Errno values match with the standard library errors.Is by code, so a
// wrapped error still compares equal to its registered sentinel.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/grpc/codes"
)

// Errno is a registered error code plus its HTTP and gRPC mapping. The
// JSON form is what the response envelope carries.
type Errno struct {
	Code      int        `json:"code"`
	HTTP      int        `json:"-"`
	GRPCCode  codes.Code `json:"-"`
	MessageEN string     `json:"message"`
	MessageZH string     `json:"message_zh,omitempty"`

	cause error
}

// New builds an Errno. Pass it to Register to make it a sentinel.
func New(code int, httpStatus int, grpcCode codes.Code, messageEN, messageZH string) *Errno {
	return &Errno{Code: code, HTTP: httpStatus, GRPCCode: grpcCode, MessageEN: messageEN, MessageZH: messageZH}
}

func (e *Errno) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("[%d] %s", e.Code, e.MessageEN)
	}
	return fmt.Sprintf("[%d] %s: %v", e.Code, e.MessageEN, e.cause)
}

func (e *Errno) Unwrap() error {
	return e.cause
}

// Is matches on code, so copies made by WithCause or WithMessagef still
// satisfy errors.Is against the registered sentinel.
func (e *Errno) Is(target error) bool {
	t, ok := target.(*Errno)
	return ok && t.Code == e.Code
}

// WithCause returns a copy that wraps cause.
func (e *Errno) WithCause(cause error) *Errno {
	c := *e
	c.cause = cause
	return &c
}

// WithMessagef returns a copy with a more specific English message. The
// Chinese message stays generic.
func (e *Errno) WithMessagef(format string, args ...any) *Errno {
	c := *e
	c.MessageEN = fmt.Sprintf(format, args...)
	return &c
}

// Message picks the message for an Accept-Language value.
func (e *Errno) Message(lang string) string {
	if strings.HasPrefix(strings.ToLower(lang), "zh") && e.MessageZH != "" {
		return e.MessageZH
	}
	return e.MessageEN
}

func (e *Errno) HTTPStatus() int {
	if e.HTTP == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTP
}

func (e *Errno) GRPCStatus() codes.Code {
	if e.GRPCCode == codes.OK {
		return codes.Internal
	}
	return e.GRPCCode
}

// Format prints the status mapping and the cause chain for %+v.
func (e *Errno) Format(s fmt.State, verb rune) {
	switch {
	case verb == 'v' && s.Flag('+'):
		_, _ = fmt.Fprintf(s, "errno %d [HTTP %d, gRPC %s]: %s", e.Code, e.HTTPStatus(), e.GRPCStatus(), e.MessageEN)
		if e.cause != nil {
			_, _ = fmt.Fprintf(s, "\ncaused by: %+v", e.cause)
		}
	case verb == 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	default:
		_, _ = fmt.Fprint(s, e.Error())
	}
}

var registry sync.Map // int -> *Errno

// Register records e as the sentinel for its code. A duplicate code is a
// programming error and panics at init.
func Register(e *Errno) *Errno {
	if prev, loaded := registry.LoadOrStore(e.Code, e); loaded {
		panic(fmt.Sprintf("errno code %d already registered: %s", e.Code, prev.(*Errno).MessageEN))
	}
	return e
}

// Lookup returns the sentinel registered for code.
func Lookup(code int) (*Errno, bool) {
	v, ok := registry.Load(code)
	if !ok {
		return nil, false
	}
	return v.(*Errno), true
}

// FromError returns the first Errno in err's chain, or err wrapped in
// ErrInternal.
func FromError(err error) *Errno {
	if err == nil {
		return nil
	}
	var e *Errno
	if stderrors.As(err, &e) {
		return e
	}
	return ErrInternal.WithCause(err)
}

// CodeOf returns the code of the first Errno in err's chain, or -1.
func CodeOf(err error) int {
	var e *Errno
	if stderrors.As(err, &e) {
		return e.Code
	}
	return -1
}
