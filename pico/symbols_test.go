package pico

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestExportsDefault(t *testing.T) {
	e := mustTable(t, DefaultDevice(), DefaultBudget()).Exports()

	want := map[string]uint32{
		SymFlashOSStart: 0x1002_0000,
		SymFlashOSEnd:   0x1006_0000,
		SymRAMOSStart:   0x2000_0000,
		SymRAMOSEnd:     0x2003_C000,
		StackSymbol:     0x2004_0000,
	}
	syms := e.Symbols()
	if len(syms) != len(want) {
		t.Fatalf("len(Symbols()) = %d, want %d", len(syms), len(want))
	}
	for _, s := range syms {
		if s.Addr != want[s.Name] {
			t.Errorf("%s = 0x%08X, want 0x%08X", s.Name, s.Addr, want[s.Name])
		}
		if s.Clamped {
			t.Errorf("%s is clamped", s.Name)
		}
	}
}

func TestExportsWindowNeverExceedsRegion(t *testing.T) {
	d := DefaultDevice()
	for _, biosFlash := range []uint32{0x1_FF00, 0x1C_0000, 0x1F_FE00} {
		for _, window := range []uint32{0, 0x100, 0x4_0000, 0x100_0000} {
			b := DefaultBudget()
			b.BIOSFlash = biosFlash
			b.OSFlashWindow = window
			tab := mustTable(t, d, b)
			osFlash := mustRegion(t, tab, RegionOSFlash)

			end, err := tab.Exports().Lookup(SymFlashOSEnd)
			if err != nil {
				t.Fatal(err)
			}
			limit := osFlash.Length
			if window != 0 {
				limit = min(window, osFlash.Length)
			}
			if end != osFlash.Origin+limit {
				t.Errorf("BIOSFlash=0x%X window=0x%X: %s = 0x%08X, want 0x%08X",
					biosFlash, window, SymFlashOSEnd, end, osFlash.Origin+limit)
			}
			if uint64(end) > osFlash.End() {
				t.Errorf("BIOSFlash=0x%X window=0x%X: window end 0x%08X past FLASH_OS", biosFlash, window, end)
			}
		}
	}
}

func TestExportsClamped(t *testing.T) {
	b := DefaultBudget()
	b.BIOSFlash = 0x1F_0000 - 0x100
	tab := mustTable(t, DefaultDevice(), b)

	for _, s := range tab.Exports().Symbols() {
		if s.Name != SymFlashOSEnd {
			continue
		}
		if !s.Clamped {
			t.Error("window larger than FLASH_OS is not reported as clamped")
		}
		if s.Addr != 0x1020_0000 {
			t.Errorf("%s = 0x%08X, want 0x10200000", s.Name, s.Addr)
		}
	}
}

func TestExportsLookupUnknown(t *testing.T) {
	e := mustTable(t, DefaultDevice(), DefaultBudget()).Exports()
	_, err := e.Lookup("_flash_os_size")
	var re *SymbolResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("Lookup() error = %v, want *SymbolResolutionError", err)
	}
	if re.Name != "_flash_os_size" {
		t.Errorf("Name = %q", re.Name)
	}
}

func TestExportsResolve(t *testing.T) {
	e := mustTable(t, DefaultDevice(), DefaultBudget()).Exports()

	tests := []struct {
		name       string
		refs       []Ref
		unresolved []string
		mismatched []string
	}{
		{
			name: "undefined references to exported names",
			refs: []Ref{{Name: SymFlashOSStart}, {Name: SymRAMOSEnd}},
		},
		{
			name: "definitions agreeing with the table",
			refs: []Ref{{Name: SymRAMOSStart, Defined: true, Addr: 0x2000_0000}},
		},
		{
			name:       "name mismatch between stages",
			refs:       []Ref{{Name: "_ram_os_end"}, {Name: SymFlashOSStart}},
			unresolved: []string{"_ram_os_end"},
		},
		{
			name:       "stage built against another budget",
			refs:       []Ref{{Name: SymFlashOSStart, Defined: true, Addr: 0x1001_0000}},
			mismatched: []string{SymFlashOSStart},
		},
		{
			name: "every failure is reported",
			refs: []Ref{
				{Name: "_os_missing"},
				{Name: StackSymbol, Defined: true, Addr: 0x2003_C000},
			},
			unresolved: []string{"_os_missing"},
			mismatched: []string{StackSymbol},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Resolve(tt.refs)
			if len(tt.unresolved)+len(tt.mismatched) == 0 {
				if err != nil {
					t.Fatalf("Resolve() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Resolve() succeeded, want error")
			}
			for _, name := range tt.unresolved {
				if !strings.Contains(err.Error(), "undefined exported symbol \""+name+"\"") {
					t.Errorf("error should name %s, got: %v", name, err)
				}
			}
			for _, name := range tt.mismatched {
				if !strings.Contains(err.Error(), "symbol "+name+":") {
					t.Errorf("error should report mismatch for %s, got: %v", name, err)
				}
			}
			var me *SymbolMismatchError
			if got, want := errors.As(err, &me), len(tt.mismatched) > 0; got != want {
				t.Errorf("errors.As(*SymbolMismatchError) = %v, want %v", got, want)
			}
		})
	}
}

func TestInContract(t *testing.T) {
	for name, want := range map[string]bool{
		SymFlashOSStart: true,
		SymRAMOSEnd:     true,
		StackSymbol:     true,
		"_os_missing":   true,
		"main":          false,
		"_sbss":         false,
	} {
		if got := InContract(name); got != want {
			t.Errorf("InContract(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestExportsWriteJSON(t *testing.T) {
	e := mustTable(t, DefaultDevice(), DefaultBudget()).Exports()
	var buf bytes.Buffer
	if err := e.WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}
	var got jsonExports
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if len(got.Symbols) != 5 {
		t.Fatalf("%d symbols, want 5", len(got.Symbols))
	}
	first := got.Symbols[0]
	if first.Name != SymFlashOSStart || first.Address != "0x10020000" || first.Region != RegionOSFlash {
		t.Errorf("first symbol = %+v", first)
	}
}
