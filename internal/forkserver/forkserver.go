// Package forkserver drives an AFL-compatible QEMU user-mode forkserver:
// spawning the emulator, performing the handshake, issuing per-iteration
// fork requests, and surviving emulator crashes by restarting.
//
// The state machine here plays the same role ehrlich-b-go-ublk's
// internal/queue.Runner TagState machine plays for io_uring completions:
// each iteration moves through a small set of states and every completion
// (here, a status-pipe word or a child-exit notification) drives exactly
// one transition.
package forkserver

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/bitterbit/fuzzer-qemu/internal/constants"
	"github.com/bitterbit/fuzzer-qemu/internal/ferrors"
	"github.com/bitterbit/fuzzer-qemu/internal/interfaces"
	"github.com/bitterbit/fuzzer-qemu/internal/pipe"
)

// forkservFD and statusFD are the descriptor numbers AFL++ QEMU mode expects
// the control and status pipe ends to be duplicated onto (qemuafl/imported/config.h).
const (
	forkservFD = constants.ForkservFD
	statusFD   = constants.StatusFD

	// PersistentOK is the sentinel status value meaning "persistent-mode
	// iteration completed cleanly". Inherited verbatim from the emulator's
	// implementation.
	PersistentOK = constants.PersistentOK

	// persistentBase is added to a resolved ELF symbol address to compute
	// AFL_QEMU_PERSISTENT_ADDR.
	persistentBase = constants.PersistentAddrBase

	// deadExitCode is substituted when a signal-terminated emulator process
	// yields no usable exit code.
	deadExitCode = -128
)

// State is the forkserver's lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateIdle
	StatePendingChildPID
	StatePendingExit
	StateDead
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateIdle:
		return "idle"
	case StatePendingChildPID:
		return "pending_child_pid"
	case StatePendingExit:
		return "pending_exit"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// ExitKind is the result of one forkserver iteration.
type ExitKind int

const (
	ExitOK ExitKind = iota
	ExitCrash
)

// Config configures a new Forkserver.
type Config struct {
	QEMUPath        string
	Target          string
	TargetArgs      []string
	LDLibraryPath   string
	PersistentAddr  string // hex string, e.g. "0x550000b848"; empty disables persistent mode
	ShmEnv          string // "__AFL_SHM_ID=<id>" entry added to the child's environment
	Debug           bool
	Logger          interfaces.Logger
}

// Forkserver owns the emulator process and its two pipes.
type Forkserver struct {
	cfg Config

	controlPipe *pipe.Pipe // read end duplicated onto 198; the driver writes "go" words
	statusPipe  *pipe.Pipe // write end duplicated onto 199; the driver reads status words

	mu    sync.Mutex
	state State

	cmd      *exec.Cmd
	childPID int

	statusCh chan int32 // pipe reader and child watcher both feed this channel
}

// New constructs a Forkserver; it does not spawn the emulator yet.
func New(cfg Config) *Forkserver {
	return &Forkserver{cfg: cfg, state: StateUninitialized}
}

// State returns the current lifecycle state.
func (f *Forkserver) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Start spawns the emulator and performs the initial handshake. Equivalent
// to original_source's Forkserver::start + do_handshake.
func (f *Forkserver) Start(ctx context.Context) error {
	f.statusCh = make(chan int32, 4)
	if err := f.spawn(ctx); err != nil {
		return err
	}
	return f.handshake()
}

// spawn creates the pipes, dups them onto 198/199, launches the emulator,
// and starts the two background forwarders.
func (f *Forkserver) spawn(ctx context.Context) error {
	control, err := pipe.New("control_pipe")
	if err != nil {
		return fmt.Errorf("forkserver: %w", err)
	}
	status, err := pipe.New("status_pipe")
	if err != nil {
		control.Close()
		return fmt.Errorf("forkserver: %w", err)
	}

	args := append([]string{f.cfg.Target}, f.cfg.TargetArgs...)
	cmd := exec.CommandContext(ctx, f.cfg.QEMUPath, args...)
	cmd.Env = append(os.Environ(),
		"QEMU_SET_ENV=LD_LIBRARY_PATH="+f.cfg.LDLibraryPath,
		"AFL_INST_LIBS=1",
	)
	if f.cfg.ShmEnv != "" {
		cmd.Env = append(cmd.Env, f.cfg.ShmEnv)
	}
	if f.cfg.PersistentAddr != "" {
		cmd.Env = append(cmd.Env,
			"AFL_QEMU_PERSISTENT_GPR=1",
			"AFL_QEMU_PERSISTENT_ADDR="+f.cfg.PersistentAddr,
		)
	}
	if f.cfg.Debug {
		cmd.Env = append(cmd.Env, "AFL_DEBUG=1", "AFL_QEMU_DEBUG_MAPS=1")
	} else {
		cmd.Stdout = nil
		cmd.Stderr = nil
	}

	// Pin control's read end and status's write end onto the fixed
	// descriptor numbers AFL++ QEMU mode expects. unix.Dup2 never sets
	// close-on-exec on the new descriptor, so these survive into the
	// child via plain fork+exec inheritance — the same trick
	// original_source's dup_read/dup_write rely on pre-fork.
	if err := control.DupRead(forkservFD); err != nil {
		control.Close()
		status.Close()
		return fmt.Errorf("forkserver: %w", err)
	}
	if err := status.DupWrite(statusFD); err != nil {
		control.Close()
		status.Close()
		return fmt.Errorf("forkserver: %w", err)
	}

	if err := cmd.Start(); err != nil {
		control.Close()
		status.Close()
		return fmt.Errorf("forkserver: spawn qemu: %w", err)
	}

	f.controlPipe = control
	f.statusPipe = status
	f.cmd = cmd

	f.logf("run qemu forkserver: target=%s args=%v", f.cfg.Target, args)

	go f.collectStatusPipe()
	go f.watchChildExit(cmd)

	f.mu.Lock()
	f.state = StateIdle
	f.mu.Unlock()
	return nil
}

// handshake consumes the single hello word the emulator writes after spawn,
// bounded by constants.HandshakeTimeout so a hung emulator cannot block
// startup forever.
func (f *Forkserver) handshake() error {
	select {
	case v := <-f.statusCh:
		if v < 0 {
			return ferrors.New("handshake", ferrors.ErrCodeEmulatorDied, "emulator died before hello")
		}
		f.logf("forkserver is alive, hello=%d", v)
		return nil
	case <-time.After(constants.HandshakeTimeout):
		f.markDead()
		return ferrors.New("handshake", ferrors.ErrCodeEmulatorDied,
			fmt.Sprintf("timed out after %s", constants.HandshakeTimeout))
	}
}

// collectStatusPipe forwards every status-pipe word into statusCh, except
// the first, which is translated to 0 (the hello word is logged but carries
// no protocol meaning).
func (f *Forkserver) collectStatusPipe() {
	first := true
	for {
		v, err := f.statusPipe.ReadI32()
		if err != nil {
			return // pipe closed, forkserver is being torn down
		}
		if first {
			f.statusCh <- 0
			first = false
			continue
		}
		f.statusCh <- v
	}
}

// watchChildExit waits for the emulator process and posts its exit code,
// negated, onto statusCh: a negative value on the channel always means
// "emulator died".
func (f *Forkserver) watchChildExit(cmd *exec.Cmd) {
	err := cmd.Wait()
	code := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
			if code < 0 {
				// signal-terminated with no usable code
				code = -deadExitCode
			}
		} else {
			code = -deadExitCode
		}
	}
	if code < 0 {
		code = -code
	}
	f.statusCh <- -int32(code)
}

// tryReadStatus receives the next word from the multiplexed channel. A
// negative value means the emulator died; it is translated to (0, false).
func (f *Forkserver) tryReadStatus() (int32, bool) {
	v := <-f.statusCh
	if v < 0 {
		f.logf("got error from status pipe: error=%d", -v)
		return 0, false
	}
	return v, true
}

// RunIteration issues one "go" request and returns the resulting ExitKind.
// Ordering is exact: write go -> read child pid -> read exit status.
func (f *Forkserver) RunIteration() (ExitKind, error) {
	f.mu.Lock()
	if f.state != StateIdle {
		f.mu.Unlock()
		return ExitCrash, ferrors.New("run_iteration", ferrors.ErrCodeProtocolViolation,
			fmt.Sprintf("called in state %s", f.state))
	}
	f.state = StatePendingChildPID
	f.mu.Unlock()

	if err := f.controlPipe.WriteI32(0); err != nil {
		f.markDead()
		return ExitCrash, ferrors.Wrap("run_iteration", ferrors.ErrCodeEmulatorDied, err)
	}

	pid, ok := f.tryReadStatus()
	if !ok {
		f.markDead()
		return ExitCrash, nil
	}
	f.childPID = int(pid)

	f.mu.Lock()
	f.state = StatePendingExit
	f.mu.Unlock()

	status, ok := f.tryReadStatus()
	if !ok {
		f.markDead()
		return ExitCrash, nil
	}

	f.mu.Lock()
	f.state = StateIdle
	f.mu.Unlock()

	if status != PersistentOK {
		f.logf("target crashed but qemu is still alive: exit_code=%d", status)
		return ExitCrash, nil
	}
	return ExitOK, nil
}

func (f *Forkserver) markDead() {
	f.mu.Lock()
	f.state = StateDead
	f.mu.Unlock()
}

// Alive reports whether the forkserver is not in StateDead. A Forkserver
// that has not been started yet also reports true.
func (f *Forkserver) Alive() bool {
	return f.State() != StateDead
}

// Restart respawns the emulator and redoes the handshake after a crash,
// pausing constants.RestartBackoff first to avoid a tight crash-restart spin
// against a target that fails immediately on every execution.
func (f *Forkserver) Restart(ctx context.Context) error {
	f.Close()
	select {
	case <-time.After(constants.RestartBackoff):
	case <-ctx.Done():
		return ctx.Err()
	}
	return f.Start(ctx)
}

// Close tears down the pipes and, if still running, the emulator process.
func (f *Forkserver) Close() error {
	if f.cmd != nil && f.cmd.Process != nil {
		_ = f.cmd.Process.Kill()
	}
	var err error
	if f.controlPipe != nil {
		err = f.controlPipe.Close()
	}
	if f.statusPipe != nil {
		if e := f.statusPipe.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// PersistentAddr computes AFL_QEMU_PERSISTENT_ADDR from a resolved symbol
// address, per the fixed QEMU_BASE offset used throughout original_source.
func PersistentAddr(symbolAddr uint64) string {
	return fmt.Sprintf("0x%x", symbolAddr+persistentBase)
}

func (f *Forkserver) logf(format string, args ...any) {
	if f.cfg.Logger != nil {
		f.cfg.Logger.Debug(fmt.Sprintf(format, args...))
	}
}
