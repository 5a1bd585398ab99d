package pico

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyRegion        = errors.New("region has zero length")
	ErrNoRAMBank          = errors.New("device has no RAM bank")
	ErrBadChecksum        = errors.New("boot blob checksum mismatch")
	ErrBoardNotRegistered = errors.New("board is not registered")
)

// OverflowError reports stage budgets that do not fit the physical memory.
type OverflowError struct {
	Class    Class
	Budget   uint64
	Capacity uint64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("%s overflow: budgets need %#x bytes, device has %#x",
		e.Class, e.Budget, e.Capacity)
}

// OverlapError reports two regions of the same class sharing addresses.
type OverlapError struct {
	A, B *Region
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("region %s [%#08x-%#08x) overlaps %s [%#08x-%#08x)",
		e.A.Name, e.A.Origin, e.A.End(), e.B.Name, e.B.Origin, e.B.End())
}

// RangeError reports a region reaching past the addressable range of its class.
type RangeError struct {
	Region *Region
	Limit  uint64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("region %s [%#08x-%#08x) exceeds limit %#x",
		e.Region.Name, e.Region.Origin, e.Region.End(), e.Limit)
}

// BootBlobSizeError reports a boot blob larger than its page.
type BootBlobSizeError struct {
	Size    int
	MaxSize uint32
}

func (e *BootBlobSizeError) Error() string {
	return fmt.Sprintf("boot blob is %d bytes: page budget is %d", e.Size, e.MaxSize)
}

// SymbolResolutionError reports a reference to a name that is not exported.
type SymbolResolutionError struct {
	Name string
}

func (e *SymbolResolutionError) Error() string {
	return fmt.Sprintf("undefined exported symbol %q", e.Name)
}

// SymbolMismatchError reports a stage that defines an exported name at a
// different address than the table.
type SymbolMismatchError struct {
	Name     string
	Expected uint32
	Actual   uint32
}

func (e *SymbolMismatchError) Error() string {
	return fmt.Sprintf("symbol %s: table has 0x%08X, stage has 0x%08X",
		e.Name, e.Expected, e.Actual)
}

// PlacementError reports image data that breaks the boot blob placement.
type PlacementError struct {
	Addr   uint32
	Reason string
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("placement violation at 0x%08X: %s", e.Addr, e.Reason)
}
