// Package fuzzqemu implements a coverage-guided greybox fuzzer that drives
// an AFL-compatible QEMU forkserver.
package fuzzqemu

import "github.com/bitterbit/fuzzer-qemu/internal/ferrors"

// Error is a structured error carrying the operation that failed and a
// high-level category, in the style of go-ublk's Error type. Re-exported
// from internal/ferrors, which holds the real definition so that internal
// components (which the root package imports) can raise these errors
// without an import cycle back to the root package.
type Error = ferrors.Error

// ErrorCode categorizes fuzzer errors per the error-handling design.
type ErrorCode = ferrors.ErrorCode

const (
	ErrCodeProtocolViolation = ferrors.ErrCodeProtocolViolation
	ErrCodeEdgeOutOfRange    = ferrors.ErrCodeEdgeOutOfRange
	ErrCodeMissingMetadata   = ferrors.ErrCodeMissingMetadata
	ErrCodeEmulatorDied      = ferrors.ErrCodeEmulatorDied
	ErrCodeSeedIO            = ferrors.ErrCodeSeedIO
	ErrCodeConfig            = ferrors.ErrCodeConfig
	ErrCodeELFSymbolNotFound = ferrors.ErrCodeELFSymbolNotFound
)

// NewError builds a structured Error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return ferrors.New(op, code, msg)
}

// WrapError wraps an existing error under a fuzzer operation and code.
func WrapError(op string, code ErrorCode, inner error) *Error {
	return ferrors.Wrap(op, code, inner)
}

// IsCode reports whether err is a *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	return ferrors.IsCode(err, code)
}
