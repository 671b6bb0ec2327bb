package fuzzqemu

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewErrorMessage(t *testing.T) {
	err := NewError("handshake", ErrCodeEmulatorDied, "emulator exited before hello")
	assert.Equal(t, "fuzzqemu: handshake: emulator exited before hello", err.Error())
}

func TestNewErrorFallsBackToCodeWhenMsgEmpty(t *testing.T) {
	err := NewError("consume", ErrCodeEdgeOutOfRange, "")
	assert.Equal(t, "fuzzqemu: consume: edge index out of range", err.Error())
}

func TestNewErrorWithoutOp(t *testing.T) {
	err := &Error{Code: ErrCodeConfig, Msg: "missing qemu_path"}
	assert.Equal(t, "fuzzqemu: missing qemu_path", err.Error())
}

func TestWrapErrorPreservesInner(t *testing.T) {
	inner := fmt.Errorf("read: broken pipe")
	err := WrapError("read_status", ErrCodeProtocolViolation, inner)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "fuzzqemu: read_status: read: broken pipe", err.Error())
}

func TestWrapErrorNilIsNil(t *testing.T) {
	assert.Nil(t, WrapError("op", ErrCodeConfig, nil))
}

func TestErrorIsMatchesByCode(t *testing.T) {
	a := NewError("op1", ErrCodeMissingMetadata, "no metadata")
	b := NewError("op2", ErrCodeMissingMetadata, "different message, same code")
	c := NewError("op3", ErrCodeSeedIO, "different code")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestIsCode(t *testing.T) {
	err := NewError("resolve", ErrCodeELFSymbolNotFound, "symbol main not found")
	assert.True(t, IsCode(err, ErrCodeELFSymbolNotFound))
	assert.False(t, IsCode(err, ErrCodeConfig))
	assert.False(t, IsCode(errors.New("plain error"), ErrCodeConfig))
}

func TestIsCodeUnwrapsThroughFmtErrorf(t *testing.T) {
	inner := NewError("shmget", ErrCodeConfig, "shmget failed")
	wrapped := fmt.Errorf("fuzzer: start: %w", inner)
	assert.True(t, IsCode(wrapped, ErrCodeConfig))
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("errno 2")
	err := WrapError("start", ErrCodeEmulatorDied, inner)
	assert.Equal(t, inner, errors.Unwrap(err))
}
