package fuzzqemu

import "github.com/bitterbit/fuzzer-qemu/internal/constants"

// Re-exported so callers configuring a run need only import the root
// package, matching ehrlich-b-go-ublk's re-export of internal/constants.
const (
	DefaultMapSize       = constants.DefaultMapSize
	DefaultPersistentSym = constants.DefaultPersistentSym
	DefaultCrashPath     = constants.DefaultCrashPath
	DefaultCorpusPath    = constants.DefaultCorpusPath
	DefaultOutFileMaxLen = constants.DefaultOutFileMaxLen
	ForkservFD           = constants.ForkservFD
	StatusFD             = constants.StatusFD
	PersistentOK         = constants.PersistentOK
)
