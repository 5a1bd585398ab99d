package pico

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/snksoft/crc"
)

// Placement pins the boot blob section at the base of flash, ahead of
// every other code section, whatever order the objects are linked in.
type Placement struct {
	// Section is the input and output section holding the blob.
	Section string
	// Region is the MEMORY region the section goes to.
	Region string
	// Before is the output section the blob is inserted ahead of.
	Before string
	// Symbol is kept alive with EXTERN so the linker cannot drop the blob.
	Symbol  string
	Origin  uint32
	MaxSize uint32
}

// Placement returns the boot blob policy of the table.
func (t *Table) Placement() Placement {
	boot := t.region(RegionBoot)
	return Placement{
		Section: ".boot2",
		Region:  boot.Name,
		Before:  ".text",
		Symbol:  "BOOT2_FIRMWARE",
		Origin:  boot.Origin,
		MaxSize: boot.Length,
	}
}

// CheckBlob fails when the compiled blob does not fit its page. There is no
// overflow into the next region.
func (p Placement) CheckBlob(blob []byte) error {
	if uint64(len(blob)) > uint64(p.MaxSize) {
		return &BootBlobSizeError{Size: len(blob), MaxSize: p.MaxSize}
	}
	return nil
}

// VerifyBlobChecksum checks the boot ROM's acceptance rule: the last four
// bytes of a full page hold the CRC-32/MPEG-2 of the bytes before them,
// little endian.
func (p Placement) VerifyBlobChecksum(blob []byte) error {
	if err := p.CheckBlob(blob); err != nil {
		return err
	}
	if uint32(len(blob)) != p.MaxSize || len(blob) < 4 {
		return fmt.Errorf("boot blob is %d bytes, checksum needs exactly %d: %w",
			len(blob), p.MaxSize, ErrBadChecksum)
	}
	n := len(blob) - 4
	want := binary.LittleEndian.Uint32(blob[n:])
	if got := crc32MPEG2(blob[:n]); got != want {
		return fmt.Errorf("crc 0x%08X, stored 0x%08X: %w", got, want, ErrBadChecksum)
	}
	return nil
}

// SealBlob pads blob to a full page with zeros and appends its checksum.
func (p Placement) SealBlob(blob []byte) ([]byte, error) {
	if p.MaxSize < 4 || uint64(len(blob)) > uint64(p.MaxSize)-4 {
		return nil, &BootBlobSizeError{Size: len(blob) + 4, MaxSize: p.MaxSize}
	}
	out := make([]byte, p.MaxSize)
	copy(out, blob)
	n := len(out) - 4
	binary.LittleEndian.PutUint32(out[n:], crc32MPEG2(out[:n]))
	return out, nil
}

// LoadBlob reads a boot blob as raw bytes or as Intel HEX.
func LoadBlob(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(bytes.TrimSpace(b), []byte{':'}) {
		return HexFileToBinary(b)
	}
	return b, nil
}

// mpeg2 is the CRC-32/MPEG-2 the RP2040 boot ROM checks boot2 with.
var mpeg2 = crc.NewTable(&crc.Parameters{
	Width:      32,
	Polynomial: 0x04C1_1DB7,
	Init:       0xFFFF_FFFF,
	ReflectIn:  false,
	ReflectOut: false,
	FinalXor:   0,
})

func crc32MPEG2(b []byte) uint32 {
	return uint32(mpeg2.CalculateCRC(b))
}
