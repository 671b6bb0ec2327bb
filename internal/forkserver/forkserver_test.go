package forkserver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateUninitialized:   "uninitialized",
		StateIdle:            "idle",
		StatePendingChildPID: "pending_child_pid",
		StatePendingExit:     "pending_exit",
		StateDead:            "dead",
		State(99):            "unknown",
	}
	for s, want := range cases {
		assert.Equal(t, want, s.String())
	}
}

func TestPersistentAddr(t *testing.T) {
	assert.Equal(t, "0x5500000000", PersistentAddr(0))
	assert.Equal(t, "0x550000b848", PersistentAddr(0xb848))
}

func TestNewStartsUninitialized(t *testing.T) {
	f := New(Config{QEMUPath: "/bin/true"})
	assert.Equal(t, StateUninitialized, f.State())
	assert.True(t, f.Alive())
}

// stubEmulator writes a shell script that speaks just enough of the
// forkserver wire protocol to exercise the handshake and one iteration:
// a hello word, then for every "go" word it reads it replies with a fixed
// child pid followed by the PersistentOK sentinel.
func stubEmulator(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stub-qemu.sh")
	script := `#!/bin/sh
printf '\0\0\0\0' >&199
while dd if=/proc/self/fd/198 bs=4 count=1 of=/dev/null 2>/dev/null; do
  printf '\x2a\x00\x00\x00' >&199
  printf '\x7f\x13\x00\x00' >&199
done
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestStartHandshakeAndRunIteration(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh available")
	}

	f := New(Config{
		QEMUPath: stubEmulator(t),
		Target:   "/bin/true",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, f.Start(ctx))
	defer f.Close()

	assert.Equal(t, StateIdle, f.State())

	kind, err := f.RunIteration()
	require.NoError(t, err)
	assert.Equal(t, ExitOK, kind)
	assert.Equal(t, StateIdle, f.State())
}

func TestRunIterationRejectsWrongState(t *testing.T) {
	f := New(Config{QEMUPath: "/bin/true"})
	_, err := f.RunIteration()
	assert.Error(t, err)
}

func TestStartFailsWhenQEMUPathMissing(t *testing.T) {
	f := New(Config{QEMUPath: filepath.Join(t.TempDir(), "does-not-exist")})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := f.Start(ctx)
	assert.Error(t, err)
}
