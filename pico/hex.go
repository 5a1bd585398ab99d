package pico

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/marcinbor85/gohex"
)

// HexFileToBinary flattens an Intel HEX file into the bytes between its
// lowest and highest data address, gaps filled with erased flash (0xFF).
func HexFileToBinary(b []byte) ([]byte, error) {
	img, err := ReadImage(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return img.Binary(), nil
}

// Image is a flash image read from Intel HEX.
type Image struct {
	mem *gohex.Memory
}

// ReadImage parses an Intel HEX image.
func ReadImage(r io.Reader) (*Image, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, err
	}
	return &Image{mem: mem}, nil
}

// NewImage builds an image from raw bytes placed at addr.
func NewImage(addr uint32, data []byte) (*Image, error) {
	mem := gohex.NewMemory()
	if err := mem.AddBinary(addr, data); err != nil {
		return nil, err
	}
	return &Image{mem: mem}, nil
}

// Segments returns the image's data segments ordered by address.
func (img *Image) Segments() []gohex.DataSegment {
	segs := slices.Clone(img.mem.GetDataSegments())
	slices.SortFunc(segs, func(a, b gohex.DataSegment) int {
		return cmp.Compare(a.Address, b.Address)
	})
	return segs
}

// Binary returns the image from its lowest to its highest address.
func (img *Image) Binary() []byte {
	segs := img.Segments()
	if len(segs) == 0 {
		return nil
	}
	lo := segs[0].Address
	var hi uint32
	for _, segment := range segs {
		hi = max(hi, segment.Address+uint32(len(segment.Data)))
	}
	return img.mem.ToBinary(lo, hi-lo, 0xFF)
}

// WriteHex writes the image as Intel HEX.
func (img *Image) WriteHex(w io.Writer) error {
	return img.mem.DumpIntelHex(w, 16)
}

// CheckImage verifies a produced image against the placement policy: its
// lowest byte is the boot blob origin, its first bytes are blob (when
// given), and all of its data lies in flash regions of the table.
func (t *Table) CheckImage(img *Image, blob []byte) error {
	p := t.Placement()
	segs := img.Segments()
	if len(segs) == 0 {
		return &PlacementError{Addr: p.Origin, Reason: "image is empty"}
	}
	if first := segs[0].Address; first != p.Origin {
		return &PlacementError{Addr: first,
			Reason: fmt.Sprintf("image starts below or after the boot blob origin 0x%08X", p.Origin)}
	}
	flash := t.Class(Flash)
	for _, segment := range segs {
		if addr, ok := covered(flash, segment.Address, len(segment.Data)); !ok {
			return &PlacementError{Addr: addr, Reason: "data outside every flash region"}
		}
	}
	if blob == nil {
		return nil
	}
	if err := p.CheckBlob(blob); err != nil {
		return err
	}
	head := img.mem.ToBinary(p.Origin, uint32(len(blob)), 0xFF)
	if !bytes.Equal(head, blob) {
		return &PlacementError{Addr: p.Origin, Reason: "first bytes of the image are not the boot blob"}
	}
	return nil
}

// covered walks [addr, addr+n) through regions sorted by origin and
// returns the first address no region holds.
func covered(regions []Region, addr uint32, n int) (uint32, bool) {
	cur, end := uint64(addr), uint64(addr)+uint64(n)
	for _, r := range regions {
		if cur >= end {
			break
		}
		if cur >= uint64(r.Origin) && cur < r.End() {
			cur = min(end, r.End())
		}
	}
	if cur < end {
		return uint32(cur), false
	}
	return 0, true
}
