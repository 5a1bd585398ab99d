package pico

import (
	"cmp"
	"fmt"
	"slices"
)

// Region names. They are the MEMORY names both stages' linker scripts use.
const (
	RegionBoot      = "BOOT2"
	RegionBIOSFlash = "FLASH"
	RegionOSFlash   = "FLASH_OS"
	RegionBIOSRAM   = "RAM"
	RegionOSRAM     = "RAM_OS"
)

const addrSpace = uint64(1) << 32

// RAMBank is one bank of internal SRAM.
type RAMBank struct {
	Name    string
	Origin  uint32
	Length  uint32
	Striped bool
}

func (b RAMBank) end() uint64 {
	return uint64(b.Origin) + uint64(b.Length)
}

// Device is the physical memory map of a target.
type Device struct {
	FlashBase uint32
	FlashSize uint32
	// PageSize is the size of the boot blob page at FlashBase.
	PageSize uint32
	RAMBanks []RAMBank
}

// FastBank returns the highest-performance RAM bank: the striped bank if
// the device has one, the largest bank otherwise.
func (d Device) FastBank() (RAMBank, error) {
	if len(d.RAMBanks) == 0 {
		return RAMBank{}, ErrNoRAMBank
	}
	best := d.RAMBanks[0]
	for _, b := range d.RAMBanks[1:] {
		switch {
		case b.Striped && !best.Striped:
			best = b
		case b.Striped == best.Striped && b.Length > best.Length:
			best = b
		}
	}
	return best, nil
}

// limits returns the addressable range [lo, hi) of a memory class.
func (d Device) limits(c Class) (lo, hi uint64) {
	if c == Flash {
		return uint64(d.FlashBase), min(uint64(d.FlashBase)+uint64(d.FlashSize), addrSpace)
	}
	if len(d.RAMBanks) == 0 {
		return 0, 0
	}
	lo, hi = addrSpace, 0
	for _, b := range d.RAMBanks {
		lo = min(lo, uint64(b.Origin))
		hi = max(hi, b.end())
	}
	return lo, min(hi, addrSpace)
}

// Budget is the share of the device the BIOS keeps for itself. The OS gets
// whatever is left.
type Budget struct {
	// BIOSFlash is the BIOS code budget, not counting the boot page.
	BIOSFlash uint32
	// BIOSRAM is carved from the top of the fast RAM bank.
	BIOSRAM uint32
	// OSFlashWindow caps the OS flash span published to the BIOS.
	OSFlashWindow uint32
}

// DefaultDevice returns the RP2040 with 2 MiB of external flash.
func DefaultDevice() Device {
	return Device{
		FlashBase: 0x1000_0000,
		FlashSize: 2048 * 1024,
		PageSize:  256,
		RAMBanks: []RAMBank{
			{Name: "SRAM0-3", Origin: 0x2000_0000, Length: 0x4_0000, Striped: true},
			{Name: "SRAM4", Origin: 0x2004_0000, Length: 0x1000},
			{Name: "SRAM5", Origin: 0x2004_1000, Length: 0x1000},
		},
	}
}

// DefaultBudget returns the Neotron Pico BIOS budget: 128 KiB of flash
// including the boot page, 16 KiB of RAM and a 256 KiB OS window.
func DefaultBudget() Budget {
	return Budget{
		BIOSFlash:     128*1024 - 256,
		BIOSRAM:       16 * 1024,
		OSFlashWindow: 256 * 1024,
	}
}

// Table is the validated region table of one device and budget. It is
// immutable once built.
type Table struct {
	device  Device
	budget  Budget
	regions []*Region
	exports *Exports
	stack   uint32
}

// NewTable partitions d according to b. Budgets that do not fit the device
// are reported as *OverflowError; nothing is truncated.
func NewTable(d Device, b Budget) (*Table, error) {
	if d.FlashSize == 0 {
		return nil, fmt.Errorf("flash: %w", ErrEmptyRegion)
	}
	if d.PageSize == 0 {
		return nil, fmt.Errorf("%s: %w", RegionBoot, ErrEmptyRegion)
	}
	if b.BIOSFlash == 0 {
		return nil, fmt.Errorf("%s: %w", RegionBIOSFlash, ErrEmptyRegion)
	}
	need := uint64(d.PageSize) + uint64(b.BIOSFlash)
	if need > uint64(d.FlashSize) {
		return nil, &OverflowError{Class: Flash, Budget: need, Capacity: uint64(d.FlashSize)}
	}
	if need == uint64(d.FlashSize) {
		return nil, fmt.Errorf("%s: %w", RegionOSFlash, ErrEmptyRegion)
	}

	bank, err := d.FastBank()
	if err != nil {
		return nil, err
	}
	if b.BIOSRAM == 0 {
		return nil, fmt.Errorf("%s: %w", RegionBIOSRAM, ErrEmptyRegion)
	}
	if b.BIOSRAM > bank.Length {
		return nil, &OverflowError{Class: RAM, Budget: uint64(b.BIOSRAM), Capacity: uint64(bank.Length)}
	}
	if b.BIOSRAM == bank.Length {
		return nil, fmt.Errorf("%s: %w", RegionOSRAM, ErrEmptyRegion)
	}

	biosFlash := d.FlashBase + d.PageSize
	osFlash := biosFlash + b.BIOSFlash
	biosRAM := uint32(bank.end() - uint64(b.BIOSRAM))

	regions := []*Region{
		{Name: RegionBoot, Class: Flash, Origin: d.FlashBase, Length: d.PageSize},
		{Name: RegionBIOSFlash, Class: Flash, Origin: biosFlash, Length: b.BIOSFlash},
		{Name: RegionOSFlash, Class: Flash, Origin: osFlash, Length: d.FlashSize - d.PageSize - b.BIOSFlash},
		{Name: RegionBIOSRAM, Class: RAM, Origin: biosRAM, Length: b.BIOSRAM},
		{Name: RegionOSRAM, Class: RAM, Origin: bank.Origin, Length: biosRAM - bank.Origin,
			Perm: PermRead | PermWrite | PermExec},
	}
	if err := Validate(d, regions); err != nil {
		return nil, err
	}
	if bank.end() >= addrSpace {
		// the stack pointer would wrap to zero
		return nil, &RangeError{Region: regions[3], Limit: addrSpace - 1}
	}
	if end, _ := osWindow(regions[2], b.OSFlashWindow); end >= addrSpace {
		// so would the end of the OS flash window
		return nil, &RangeError{Region: regions[2], Limit: addrSpace - 1}
	}

	t := &Table{
		device:  d,
		budget:  b,
		regions: regions,
		stack:   uint32(bank.end()),
	}
	t.exports = deriveExports(t)
	return t, nil
}

// Validate checks that no two regions of the same class overlap and that
// every region lies inside the device's range for its class.
func Validate(d Device, regions []*Region) error {
	idx := map[Class]*regionIndex{}
	for _, r := range regions {
		if r.Length == 0 {
			return fmt.Errorf("%s: %w", r.Name, ErrEmptyRegion)
		}
		lo, hi := d.limits(r.Class)
		if uint64(r.Origin) < lo || r.End() > hi {
			return &RangeError{Region: r, Limit: hi}
		}
		x, ok := idx[r.Class]
		if !ok {
			x = newRegionIndex()
			idx[r.Class] = x
		}
		if hit := x.insert(r); hit != nil {
			return &OverlapError{A: hit, B: r}
		}
	}
	return nil
}

// Device returns the memory map the table was built from.
func (t *Table) Device() Device { return t.device }

// Budget returns the BIOS budget the table was built from.
func (t *Table) Budget() Budget { return t.budget }

// Regions returns a copy of the table in definition order.
func (t *Table) Regions() []Region {
	out := make([]Region, 0, len(t.regions))
	for _, r := range t.regions {
		out = append(out, *r)
	}
	return out
}

// Region looks a region up by name.
func (t *Table) Region(name string) (Region, bool) {
	i := slices.IndexFunc(t.regions, func(r *Region) bool { return r.Name == name })
	if i < 0 {
		return Region{}, false
	}
	return *t.regions[i], true
}

// Class returns the regions of class c ordered by origin.
func (t *Table) Class(c Class) []Region {
	var out []Region
	for _, r := range t.regions {
		if r.Class == c {
			out = append(out, *r)
		}
	}
	slices.SortFunc(out, func(a, b Region) int {
		return cmp.Compare(a.Origin, b.Origin)
	})
	return out
}

func (t *Table) region(name string) *Region {
	for _, r := range t.regions {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Exports returns the symbols published to the other stage.
func (t *Table) Exports() *Exports { return t.exports }
