// Package elfsym resolves a symbol's value in an ELF binary, used once per
// run to locate the persistent-mode entry point before the forkserver
// starts. Grounded on stdlib debug/elf: no third-party ELF parser appears
// anywhere in the retrieval pack, so this component is built directly on
// the standard library.
package elfsym

import (
	"debug/elf"
	"fmt"
)

// Resolve opens the ELF binary at path and returns the value (st_value) of
// the first symbol, in either the dynamic or static symbol table, whose name
// matches exactly.
func Resolve(path, name string) (uint64, error) {
	f, err := elf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("elfsym: open %s: %w", path, err)
	}
	defer f.Close()

	if v, ok := lookup(f, name, (*elf.File).Symbols); ok {
		return v, nil
	}
	if v, ok := lookup(f, name, (*elf.File).DynamicSymbols); ok {
		return v, nil
	}
	return 0, fmt.Errorf("elfsym: symbol %q not found in %s", name, path)
}

func lookup(f *elf.File, name string, table func(*elf.File) ([]elf.Symbol, error)) (uint64, bool) {
	syms, err := table(f)
	if err != nil {
		return 0, false
	}
	for _, s := range syms {
		if s.Name == name {
			return s.Value, true
		}
	}
	return 0, false
}
