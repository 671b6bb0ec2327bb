// Package observer implements the shared-memory coverage map the emulator
// writes edge-hit bits into, exported to the child process via environment
// variable the way AFL++'s QEMU mode expects.
package observer

import (
	"fmt"
	"strconv"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ShmEnvVar is the environment variable the emulator reads to attach to the
// coverage shared-memory segment.
const ShmEnvVar = "__AFL_SHM_ID"

// SharedMap owns a SysV shared-memory segment of Size bytes, exposed
// read-only to consumers of Bytes(). Grounded on the mmap-via-raw-syscall
// style of ehrlich-b-go-ublk's internal/queue/runner.go, adapted from
// mapping a char device to attaching a SysV shm segment.
type SharedMap struct {
	size int
	id   int
	addr unsafe.Pointer
}

// New allocates a shared-memory segment of size bytes and attaches it.
func New(size int) (*SharedMap, error) {
	id, _, errno := unix.Syscall(unix.SYS_SHMGET, 0 /* IPC_PRIVATE */, uintptr(size), unix.IPC_CREAT|0o600)
	if errno != 0 {
		return nil, fmt.Errorf("observer: shmget: %w", errno)
	}

	addr, _, errno := unix.Syscall(unix.SYS_SHMAT, id, 0, 0)
	if errno != 0 {
		return nil, fmt.Errorf("observer: shmat: %w", errno)
	}

	return &SharedMap{size: size, id: int(id), addr: unsafe.Pointer(addr)}, nil
}

// ID returns the SysV shmem identifier, published via the environment for
// children to attach to.
func (m *SharedMap) ID() int { return m.id }

// EnvEntry returns the "__AFL_SHM_ID=<id>" entry to add to a child's
// environment before spawning it.
func (m *SharedMap) EnvEntry() string {
	return ShmEnvVar + "=" + strconv.Itoa(m.id)
}

// Bytes exposes the usable range of the map as a byte slice. Callers must
// not retain it past Close.
func (m *SharedMap) Bytes() []byte {
	return unsafe.Slice((*byte)(m.addr), m.size)
}

// UsableCount returns M, the size of the map in bytes.
func (m *SharedMap) UsableCount() int { return m.size }

// Reset zeroes every byte in the usable range. Must be called before every
// execution so invariant 1 (map is zero immediately before the "go" word)
// holds.
func (m *SharedMap) Reset() {
	b := m.Bytes()
	for i := range b {
		b[i] = 0
	}
}

// Close detaches and removes the shared-memory segment.
func (m *SharedMap) Close() error {
	if m.addr == nil {
		return nil
	}
	if _, _, errno := unix.Syscall(unix.SYS_SHMDT, uintptr(m.addr), 0, 0); errno != 0 {
		return fmt.Errorf("observer: shmdt: %w", errno)
	}
	m.addr = nil
	if _, _, errno := unix.Syscall(unix.SYS_SHMCTL, uintptr(m.id), unix.IPC_RMID, 0); errno != 0 {
		return fmt.Errorf("observer: shmctl(IPC_RMID): %w", errno)
	}
	return nil
}
