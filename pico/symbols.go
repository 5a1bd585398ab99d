package pico

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Exported symbol names. The two "_len" symbols carry end addresses; the
// names are kept because both stages already link against them.
const (
	SymFlashOSStart = "_flash_os_start"
	SymFlashOSEnd   = "_flash_os_len"
	SymRAMOSStart   = "_ram_os_start"
	SymRAMOSEnd     = "_ram_os_len"
)

// Symbol is a named absolute address published at link time.
type Symbol struct {
	Name string
	Addr uint32
	// Region is the region the address was derived from.
	Region string
	// Clamped is set when the configured window was larger than the region
	// and the region length was used instead.
	Clamped bool
}

// osWindow returns the end of the OS flash window published to the BIOS,
// capped at limit (0 means uncapped), and whether the cap exceeded the region.
func osWindow(osFlash *Region, limit uint32) (uint64, bool) {
	if limit == 0 {
		return osFlash.End(), false
	}
	return uint64(osFlash.Origin) + uint64(min(limit, osFlash.Length)), limit > osFlash.Length
}

// Exports is the symbol export table of a Table.
type Exports struct {
	symbols []Symbol
}

func deriveExports(t *Table) *Exports {
	osFlash := t.region(RegionOSFlash)
	osRAM := t.region(RegionOSRAM)

	windowEnd, clamped := osWindow(osFlash, t.budget.OSFlashWindow)
	return &Exports{symbols: []Symbol{
		{Name: SymFlashOSStart, Addr: osFlash.Origin, Region: osFlash.Name},
		{Name: SymFlashOSEnd, Addr: uint32(windowEnd), Region: osFlash.Name, Clamped: clamped},
		{Name: SymRAMOSStart, Addr: osRAM.Origin, Region: osRAM.Name},
		{Name: SymRAMOSEnd, Addr: uint32(osRAM.End()), Region: osRAM.Name},
		{Name: StackSymbol, Addr: t.stack, Region: RegionBIOSRAM},
	}}
}

// Symbols returns the exported symbols in publication order.
func (e *Exports) Symbols() []Symbol {
	out := make([]Symbol, len(e.symbols))
	copy(out, e.symbols)
	return out
}

// Lookup returns the address published under name.
func (e *Exports) Lookup(name string) (uint32, error) {
	for _, s := range e.symbols {
		if s.Name == name {
			return s.Addr, nil
		}
	}
	return 0, &SymbolResolutionError{Name: name}
}

// Ref is a stage's use of a contract symbol: either an undefined reference
// or its own definition of the address.
type Ref struct {
	Name    string
	Defined bool
	Addr    uint32
}

// InContract reports whether name belongs to the exported namespace.
func InContract(name string) bool {
	return name == StackSymbol || strings.Contains(name, "_os_")
}

// Resolve checks every ref against the table and reports all failures.
func (e *Exports) Resolve(refs []Ref) error {
	var errs []error
	for _, ref := range refs {
		addr, err := e.Lookup(ref.Name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ref.Defined && ref.Addr != addr {
			errs = append(errs, &SymbolMismatchError{Name: ref.Name, Expected: addr, Actual: ref.Addr})
		}
	}
	return errors.Join(errs...)
}

type jsonSymbol struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Region  string `json:"region"`
	Clamped bool   `json:"clamped,omitempty"`
}

type jsonExports struct {
	Symbols []jsonSymbol `json:"symbols"`
}

// WriteJSON writes the table for tools that do not read linker scripts.
func (e *Exports) WriteJSON(w io.Writer) error {
	var out jsonExports
	for _, s := range e.symbols {
		out.Symbols = append(out.Symbols, jsonSymbol{
			Name:    s.Name,
			Address: fmt.Sprintf("0x%08x", s.Addr),
			Region:  s.Region,
			Clamped: s.Clamped,
		})
	}
	b, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
