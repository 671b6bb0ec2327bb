package ferrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMessage(t *testing.T) {
	err := New("handshake", ErrCodeEmulatorDied, "emulator died before hello")
	assert.Equal(t, "fuzzqemu: handshake: emulator died before hello", err.Error())
}

func TestWrapNilIsNil(t *testing.T) {
	assert.Nil(t, Wrap("op", ErrCodeConfig, nil))
}

func TestWrapUnwraps(t *testing.T) {
	inner := errors.New("short read")
	err := Wrap("read_status", ErrCodeProtocolViolation, inner)
	assert.ErrorIs(t, err, inner)
}

func TestIsCodeMatchesByCode(t *testing.T) {
	err := New("check_bounds", ErrCodeEdgeOutOfRange, "edge 9 out of range [0,8)")
	assert.True(t, IsCode(err, ErrCodeEdgeOutOfRange))
	assert.False(t, IsCode(err, ErrCodeSeedIO))
}
