// Package ferrors holds the structured error type shared by the root
// package and the internal components that need to raise one of its typed
// error kinds, split out from the root package to avoid an import cycle
// (the root package already imports every internal component that would
// otherwise need to import it back for error construction).
package ferrors

import (
	"errors"
	"fmt"
)

// Error is a structured error carrying the operation that failed and a
// high-level category, in the style of go-ublk's Error type.
type Error struct {
	Op    string // operation that failed, e.g. "handshake", "read_status"
	Code  ErrorCode
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		return fmt.Sprintf("fuzzqemu: %s: %s", e.Op, msg)
	}
	return fmt.Sprintf("fuzzqemu: %s", msg)
}

func (e *Error) Unwrap() error {
	return e.Inner
}

func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode categorizes fuzzer errors per the error-handling design.
type ErrorCode string

const (
	ErrCodeProtocolViolation ErrorCode = "forkserver protocol violation"
	ErrCodeEdgeOutOfRange    ErrorCode = "edge index out of range"
	ErrCodeMissingMetadata   ErrorCode = "missing testcase metadata"
	ErrCodeEmulatorDied      ErrorCode = "emulator died"
	ErrCodeSeedIO            ErrorCode = "seed I/O failure"
	ErrCodeConfig            ErrorCode = "configuration error"
	ErrCodeELFSymbolNotFound ErrorCode = "ELF symbol not found"
)

// New builds a structured Error.
func New(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// Wrap wraps an existing error under a fuzzer operation and code.
func Wrap(op string, code ErrorCode, inner error) *Error {
	if inner == nil {
		return nil
	}
	return &Error{Op: op, Code: code, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is a *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}
