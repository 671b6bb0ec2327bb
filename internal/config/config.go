// Package config loads the fuzzer's INI configuration file.
package config

import (
	"fmt"

	"github.com/go-ini/ini"
)

// Config holds the [general] section of the fuzzer's INI config file,
// grounded on original_source/fuzzer/src/config.rs's field set and defaults.
type Config struct {
	MapSize       int    // power-of-two shared-memory map size, default 1024
	PersistentSym string // ELF symbol resolved for the persistent-loop address, default "main"
	QEMUPath      string // required: path to the AFL++ QEMU user-mode binary
	LDLibraryPath string // optional: forwarded via QEMU_SET_ENV
	CrashPath     string // default "./crashes"
	CorpusPath    string // default "./corpus"
	QueuePath     string // optional: on-disk queue directory
	PlotPath      string // optional: enables plot_path/global.dat stats sink
}

const (
	defaultMapSize       = 1024
	defaultPersistentSym = "main"
	defaultCrashPath     = "./crashes"
	defaultCorpusPath    = "./corpus"
)

// Parse reads and validates the INI file at path.
func Parse(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to load %s: %w", path, err)
	}

	section := file.Section("general")

	cfg := &Config{
		MapSize:       section.Key("map_size").MustInt(defaultMapSize),
		PersistentSym: section.Key("persistent_sym").MustString(defaultPersistentSym),
		QEMUPath:      section.Key("qemu_path").String(),
		LDLibraryPath: section.Key("ld_library_path").String(),
		CrashPath:     section.Key("crash_path").MustString(defaultCrashPath),
		CorpusPath:    section.Key("corpus_path").MustString(defaultCorpusPath),
		QueuePath:     section.Key("queue_path").String(),
		PlotPath:      section.Key("plot_path").String(),
	}

	if cfg.QEMUPath == "" {
		return nil, fmt.Errorf("config: qemu_path is required")
	}
	if cfg.MapSize <= 0 {
		return nil, fmt.Errorf("config: map_size must be positive, got %d", cfg.MapSize)
	}

	return cfg, nil
}
