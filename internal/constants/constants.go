// Package constants collects the fuzzer's magic numbers in one place, the
// way ehrlich-b-go-ublk's internal/constants does for its device defaults.
package constants

import "time"

// Protocol constants shared by the forkserver driver and the emulator
// environment it spawns.
const (
	// ForkservFD is the descriptor number the emulator expects the
	// control pipe's read end duplicated onto.
	ForkservFD = 198

	// StatusFD is the descriptor number the emulator expects the status
	// pipe's write end duplicated onto.
	StatusFD = 199

	// PersistentOK is the status value meaning "persistent-mode iteration
	// completed without the target crashing".
	PersistentOK = 4991

	// PersistentAddrBase is added to a resolved ELF symbol's value to
	// compute AFL_QEMU_PERSISTENT_ADDR.
	PersistentAddrBase = 0x5500000000
)

// Default configuration values, mirrored by internal/config's zero-value
// fallbacks so a missing config.ini key never produces a zero-sized map or
// empty output paths.
const (
	// DefaultMapSize is M, the coverage bitmap size in bytes, when
	// config.ini omits map_size.
	DefaultMapSize = 1024

	// DefaultPersistentSym is the ELF symbol resolved for
	// AFL_QEMU_PERSISTENT_ADDR when config.ini omits persistent_sym.
	DefaultPersistentSym = "main"

	// DefaultCrashPath and DefaultCorpusPath are the on-disk directories
	// solutions and seeds live in when config.ini omits them.
	DefaultCrashPath  = "./crashes"
	DefaultCorpusPath = "./corpus"

	// DefaultOutFileMaxLen bounds the scratch file the fuzzer writes the
	// current mutated input to for the emulator to read; inputs longer than
	// this are truncated.
	DefaultOutFileMaxLen = 1 << 20
)

// Timing constants for the fuzz loop and emulator lifecycle.
//
// The forkserver protocol itself is synchronous and has no timeouts of its
// own; these bound the surrounding orchestration, where a wedged or
// crash-looping emulator must not hang the loop forever.
const (
	// HandshakeTimeout bounds how long Start waits for the emulator's
	// hello word before giving up and reporting it dead on arrival.
	HandshakeTimeout = 10 * time.Second

	// RestartBackoff is the pause between a detected emulator death and
	// the next restart attempt, avoiding a tight crash-restart spin.
	RestartBackoff = 50 * time.Millisecond
)
