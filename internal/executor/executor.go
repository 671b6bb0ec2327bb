// Package executor composes a Forkserver, an OutFile, and the shared-memory
// coverage map into a single run_target(input) operation.
package executor

import (
	"fmt"

	"github.com/bitterbit/fuzzer-qemu/internal/forkserver"
	"github.com/bitterbit/fuzzer-qemu/internal/interfaces"
	"github.com/bitterbit/fuzzer-qemu/internal/observer"
	"github.com/bitterbit/fuzzer-qemu/internal/outfile"
)

// Executor runs one test input through the forkserver and reports its
// ExitKind. It holds no coverage-decision logic of its own; callers read the
// shared map via Map() and decode it through internal/feedback.
type Executor struct {
	fs  *forkserver.Forkserver
	out *outfile.OutFile
	shm *observer.SharedMap
	log interfaces.Logger
}

// New composes an already-constructed Forkserver, OutFile, and SharedMap.
func New(fs *forkserver.Forkserver, out *outfile.OutFile, shm *observer.SharedMap, log interfaces.Logger) *Executor {
	return &Executor{fs: fs, out: out, shm: shm, log: log}
}

// Map returns the coverage bytes from the last execution.
func (e *Executor) Map() []byte { return e.shm.Bytes() }

// RunTarget writes input into the OutFile, clears the coverage map, issues
// one forkserver iteration, and rewinds the OutFile. A dead emulator is
// reported as forkserver.ExitCrash rather than propagated as an error,
// matching the executor's contract of returning Ok or Crash only; the fuzz
// loop is responsible for noticing forkserver.Alive()==false and restarting
// before the next RunTarget call.
func (e *Executor) RunTarget(input []byte) (forkserver.ExitKind, error) {
	if err := e.out.WriteBuf(input); err != nil {
		return forkserver.ExitCrash, fmt.Errorf("executor: write input: %w", err)
	}
	e.shm.Reset()

	kind, err := e.fs.RunIteration()
	if err != nil {
		if e.log != nil {
			e.log.Warn("forkserver iteration failed", "error", err)
		}
		kind = forkserver.ExitCrash
	}

	if rerr := e.out.Rewind(); rerr != nil && e.log != nil {
		e.log.Warn("rewind outfile failed", "error", rerr)
	}
	return kind, nil
}
