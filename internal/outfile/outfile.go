// Package outfile implements the fixed-capacity scratch file that holds the
// current mutated input, reused across forkserver iterations.
package outfile

import (
	"fmt"
	"os"
)

// OutFile is a file opened read/write/create with a declared maximum length.
type OutFile struct {
	file   *os.File
	path   string
	maxLen int
}

// New creates (or truncates) the file at path with the given maximum length.
func New(path string, maxLen int) (*OutFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("outfile: open %s: %w", path, err)
	}
	return &OutFile{file: f, path: path, maxLen: maxLen}, nil
}

// Path returns the filesystem path, substituted for "@@" in target argv.
func (o *OutFile) Path() string { return o.path }

// WriteBuf seeks to 0, writes b truncated to min(len(b), maxLen), and flushes.
func (o *OutFile) WriteBuf(b []byte) error {
	if len(b) > o.maxLen {
		b = b[:o.maxLen]
	}
	if _, err := o.file.Seek(0, 0); err != nil {
		return fmt.Errorf("outfile: seek: %w", err)
	}
	if _, err := o.file.Write(b); err != nil {
		return fmt.Errorf("outfile: write: %w", err)
	}
	if err := o.file.Truncate(int64(len(b))); err != nil {
		return fmt.Errorf("outfile: truncate: %w", err)
	}
	return o.file.Sync()
}

// Rewind seeks back to the start of the file.
func (o *OutFile) Rewind() error {
	_, err := o.file.Seek(0, 0)
	if err != nil {
		return fmt.Errorf("outfile: rewind: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (o *OutFile) Close() error {
	return o.file.Close()
}

// SubstituteArgv replaces any literal "@@" token with outPath, appending it
// if no "@@" token is present among args.
func SubstituteArgv(args []string, outPath string) []string {
	out := make([]string, 0, len(args)+1)
	found := false
	for _, a := range args {
		if a == "@@" {
			out = append(out, outPath)
			found = true
			continue
		}
		out = append(out, a)
	}
	if !found {
		out = append(out, outPath)
	}
	return out
}
