package pico

import (
	"context"
	"fmt"

	"github.com/q0jt/go-pico/pico/config"
	"github.com/q0jt/go-pico/pico/config/board"
)

// DefaultConfigPath is where the board memory maps live in this repository.
const DefaultConfigPath = "./pkl/config.pkl"

func loadMemConfig(ctx context.Context, path string) (*config.MemoryConfig, error) {
	mem, err := config.LoadFromPath(ctx, path)
	if err != nil {
		return nil, err
	}
	return mem, nil
}

func getMemConfWithBoard(mem *config.MemoryConfig, b board.Board) (*config.MemoryLayout, error) {
	for name, layout := range mem.Layouts {
		if name != b {
			continue
		}
		return layout, nil
	}
	return nil, fmt.Errorf("%s: %w", b, ErrBoardNotRegistered)
}

// ParseBoard maps a board name to its config key.
func ParseBoard(name string) (board.Board, error) {
	var b board.Board
	if err := b.UnmarshalBinary([]byte(name)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBoardNotRegistered, err)
	}
	return b, nil
}

// LoadLayout evaluates the Pkl config at path and returns the memory map
// and budget of one board.
func LoadLayout(ctx context.Context, path string, b board.Board) (Device, Budget, error) {
	mem, err := loadMemConfig(ctx, path)
	if err != nil {
		return Device{}, Budget{}, err
	}
	layout, err := getMemConfWithBoard(mem, b)
	if err != nil {
		return Device{}, Budget{}, err
	}
	d, bud := FromConfig(layout)
	return d, bud, nil
}

// FromConfig converts an evaluated layout into a Device and Budget.
func FromConfig(l *config.MemoryLayout) (Device, Budget) {
	d := Device{
		FlashBase: l.FlashBase,
		FlashSize: l.FlashSize,
		PageSize:  l.BootPageSize,
	}
	for _, bank := range l.RamBanks {
		if bank == nil {
			continue
		}
		d.RAMBanks = append(d.RAMBanks, RAMBank{
			Name:    bank.Name,
			Origin:  bank.Origin,
			Length:  bank.Length,
			Striped: bank.Striped,
		})
	}
	return d, Budget{
		BIOSFlash:     l.BiosFlashSize,
		BIOSRAM:       l.BiosRamSize,
		OSFlashWindow: l.OsFlashWindow,
	}
}
