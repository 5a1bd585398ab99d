package pico

import (
	"debug/elf"
	"errors"
	"io"
)

// ReadELFRefs collects the contract symbols a stage ELF defines or leaves
// undefined. Objects without a symbol table have no refs.
func ReadELFRefs(r io.ReaderAt) ([]Ref, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	syms, err := f.Symbols()
	if err != nil {
		if errors.Is(err, elf.ErrNoSymbols) {
			return nil, nil
		}
		return nil, err
	}
	var refs []Ref
	for _, sym := range syms {
		if !InContract(sym.Name) {
			continue
		}
		ref := Ref{Name: sym.Name}
		if sym.Section != elf.SHN_UNDEF {
			ref.Defined = true
			ref.Addr = uint32(sym.Value)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// CheckELF fails when a stage references a contract name that is not
// exported, or defines one at another address.
func (e *Exports) CheckELF(r io.ReaderAt) error {
	refs, err := ReadELFRefs(r)
	if err != nil {
		return err
	}
	return e.Resolve(refs)
}
