// Package statsink implements the plot-file sink supplemented from
// original_source/fuzzer/src/stats.rs's PlotMultiStats::write_global_plot:
// a row of run-wide statistics appended to plot_path/global.dat at most
// once per wall-clock second.
package statsink

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bitterbit/fuzzer-qemu/internal/metrics"
)

const header = "time total_execs exec/sec corpus_size crashes\n"

// PlotSink appends one row per wall-clock second to plot_path/global.dat.
type PlotSink struct {
	path      string
	file      *os.File
	startTime time.Time
	lastWrite time.Time
}

// New opens plotDir/global.dat for appending, creating it with a header row
// if it does not exist yet.
func New(plotDir string) (*PlotSink, error) {
	if err := os.MkdirAll(plotDir, 0o755); err != nil {
		return nil, fmt.Errorf("statsink: create dir %s: %w", plotDir, err)
	}
	path := filepath.Join(plotDir, "global.dat")

	_, statErr := os.Stat(path)
	needsHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("statsink: open %s: %w", path, err)
	}
	if needsHeader {
		if _, err := f.WriteString(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("statsink: write header: %w", err)
		}
	}
	return &PlotSink{path: path, file: f, startTime: time.Now()}, nil
}

// MaybeWrite appends one row from snap's counters if at least one
// wall-clock second has elapsed since the last write; it is a no-op
// otherwise, implementing the "at most one row per second" gate.
func (p *PlotSink) MaybeWrite(snap metrics.Snapshot) error {
	now := time.Now()
	if !p.lastWrite.IsZero() && now.Sub(p.lastWrite) < time.Second {
		return nil
	}
	p.lastWrite = now

	elapsed := int64(now.Sub(p.startTime).Seconds())
	line := fmt.Sprintf("%d %.0f %.2f %.0f %.0f\n",
		elapsed, snap.ExecsTotal, snap.ExecsPerSec, snap.CorpusSize, snap.CrashesTotal)
	if _, err := p.file.WriteString(line); err != nil {
		return fmt.Errorf("statsink: write row: %w", err)
	}
	return p.file.Sync()
}

// Close closes the underlying file.
func (p *PlotSink) Close() error {
	return p.file.Close()
}
