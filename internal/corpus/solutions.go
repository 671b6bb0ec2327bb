package corpus

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Solutions persists accepted crashes to a directory, one file per crash,
// with collision-free names — replacing original_source's placeholder
// `format!("out-{}", 123456789)` (explicitly marked as a TODO there) with
// real random names.
type Solutions struct {
	dir   string
	items []*Testcase
}

// NewSolutions creates dir if missing and returns a Solutions writing into it.
func NewSolutions(dir string) (*Solutions, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("corpus: create solutions dir %s: %w", dir, err)
	}
	return &Solutions{dir: dir}, nil
}

// Add writes tc's input to a new uniquely named file under dir and records
// the test case in memory.
func (s *Solutions) Add(tc *Testcase) (string, error) {
	name := "crash-" + uuid.NewString()
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, tc.Input, 0o644); err != nil {
		return "", fmt.Errorf("corpus: write solution %s: %w", path, err)
	}
	s.items = append(s.items, tc)
	return path, nil
}

// Len returns the number of accepted solutions.
func (s *Solutions) Len() int { return len(s.items) }

// QueueWriter persists accepted queue entries to a directory, one file per
// entry, mirroring Solutions but for the growing corpus rather than crashes.
type QueueWriter struct {
	dir string
}

// NewQueueWriter creates dir if missing.
func NewQueueWriter(dir string) (*QueueWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("corpus: create queue dir %s: %w", dir, err)
	}
	return &QueueWriter{dir: dir}, nil
}

// Write persists tc's input under a uniquely named file, returning its path.
func (w *QueueWriter) Write(tc *Testcase) (string, error) {
	name := "id-" + uuid.NewString()
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, tc.Input, 0o644); err != nil {
		return "", fmt.Errorf("corpus: write queue entry %s: %w", path, err)
	}
	return path, nil
}
