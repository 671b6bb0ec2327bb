package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.ini")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestParseDefaults(t *testing.T) {
	path := writeConfig(t, "[general]\nqemu_path=/bin/qemu-aarch64\n")
	cfg, err := Parse(path)
	require.NoError(t, err)

	assert.Equal(t, "/bin/qemu-aarch64", cfg.QEMUPath)
	assert.Equal(t, defaultMapSize, cfg.MapSize)
	assert.Equal(t, defaultPersistentSym, cfg.PersistentSym)
	assert.Equal(t, defaultCrashPath, cfg.CrashPath)
	assert.Equal(t, defaultCorpusPath, cfg.CorpusPath)
	assert.Empty(t, cfg.QueuePath)
	assert.Empty(t, cfg.PlotPath)
}

func TestParseOverrides(t *testing.T) {
	path := writeConfig(t, `[general]
map_size=4096
persistent_sym=fuzz_target
qemu_path=/bin/qemu-arm
ld_library_path=/fuzz/lib
crash_path=/tmp/crashes
corpus_path=/tmp/corpus
queue_path=/tmp/queue
plot_path=/tmp/plots
`)
	cfg, err := Parse(path)
	require.NoError(t, err)

	assert.Equal(t, 4096, cfg.MapSize)
	assert.Equal(t, "fuzz_target", cfg.PersistentSym)
	assert.Equal(t, "/fuzz/lib", cfg.LDLibraryPath)
	assert.Equal(t, "/tmp/plots", cfg.PlotPath)
}

func TestParseMissingQEMUPathFails(t *testing.T) {
	path := writeConfig(t, "[general]\nmap_size=1024\n")
	_, err := Parse(path)
	require.Error(t, err)
}

func TestParseMissingFileFails(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nope.ini"))
	require.Error(t, err)
}
