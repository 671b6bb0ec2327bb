// Package pipe implements the binary-safe anonymous pipe used for the
// forkserver wire protocol, including duplication onto the fixed descriptor
// numbers the AFL++ QEMU forkserver expects.
package pipe

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// Pipe is a unidirectional byte channel with one read end and one write end,
// tracking every fd it has duplicated so Close closes each exactly once.
// Grounded on original_source/fuzzer/src/qemu/pipe.rs's dups: Vec<c_int>.
type Pipe struct {
	name     string
	readFd   int
	writeFd  int
	dupedFds []int
}

// New creates a fresh OS pipe.
func New(name string) (*Pipe, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("pipe %s: create: %w", name, err)
	}
	return &Pipe{name: name, readFd: fds[0], writeFd: fds[1]}, nil
}

// WriteI32 writes exactly 4 bytes in native byte order, failing fatally
// (returning an error) on a short write.
func (p *Pipe) WriteI32(v int32) error {
	var buf [4]byte
	binary.NativeEndian.PutUint32(buf[:], uint32(v))
	n, err := unix.Write(p.writeFd, buf[:])
	if err != nil {
		return fmt.Errorf("pipe %s: write_i32: %w", p.name, err)
	}
	if n != 4 {
		return fmt.Errorf("pipe %s: write_i32: short write (%d/4 bytes)", p.name, n)
	}
	return nil
}

// ReadI32 blocks until it reads exactly 4 bytes in native byte order.
func (p *Pipe) ReadI32() (int32, error) {
	var buf [4]byte
	off := 0
	for off < 4 {
		n, err := unix.Read(p.readFd, buf[off:])
		if err != nil {
			return 0, fmt.Errorf("pipe %s: read_i32: %w", p.name, err)
		}
		if n == 0 {
			return 0, fmt.Errorf("pipe %s: read_i32: short read (%d/4 bytes, EOF)", p.name, off)
		}
		off += n
	}
	return int32(binary.NativeEndian.Uint32(buf[:])), nil
}

// DupRead duplicates the read end onto fd, so a spawned child inherits the
// forkserver protocol endpoint at the expected descriptor number.
func (p *Pipe) DupRead(fd int) error {
	if err := unix.Dup2(p.readFd, fd); err != nil {
		return fmt.Errorf("pipe %s: dup_read(%d): %w", p.name, fd, err)
	}
	p.dupedFds = append(p.dupedFds, fd)
	return nil
}

// DupWrite duplicates the write end onto fd.
func (p *Pipe) DupWrite(fd int) error {
	if err := unix.Dup2(p.writeFd, fd); err != nil {
		return fmt.Errorf("pipe %s: dup_write(%d): %w", p.name, fd, err)
	}
	p.dupedFds = append(p.dupedFds, fd)
	return nil
}

// ReadFd returns the raw read-end file descriptor.
func (p *Pipe) ReadFd() int { return p.readFd }

// WriteFd returns the raw write-end file descriptor.
func (p *Pipe) WriteFd() int { return p.writeFd }

// Close closes every owned and duplicated descriptor exactly once.
func (p *Pipe) Close() error {
	var firstErr error
	closeOnce := func(fd int) {
		if fd < 0 {
			return
		}
		if err := unix.Close(fd); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	closeOnce(p.readFd)
	closeOnce(p.writeFd)
	for _, fd := range p.dupedFds {
		closeOnce(fd)
	}
	p.readFd, p.writeFd, p.dupedFds = -1, -1, nil
	return firstErr
}
