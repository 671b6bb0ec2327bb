package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitterbit/fuzzer-qemu/internal/forkserver"
	"github.com/bitterbit/fuzzer-qemu/internal/observer"
	"github.com/bitterbit/fuzzer-qemu/internal/outfile"
)

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

func TestRunTargetWritesInputAndClearsMap(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh available")
	}

	shm, err := observer.New(64)
	require.NoError(t, err)
	defer shm.Close()
	shm.Bytes()[3] = 0xFF // simulate leftover coverage from a prior run

	outPath := filepath.Join(t.TempDir(), "cur_input")
	of, err := outfile.New(outPath, 1024)
	require.NoError(t, err)
	defer of.Close()

	fs := forkserver.New(forkserver.Config{QEMUPath: stubEmulator(t), Target: "/bin/true"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, fs.Start(ctx))
	defer fs.Close()

	ex := New(fs, of, shm, nil)
	kind, err := ex.RunTarget([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, forkserver.ExitOK, kind)
	assert.Equal(t, byte(0), shm.Bytes()[3], "leftover coverage must be cleared before the run")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
