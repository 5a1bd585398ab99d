package pico

import (
	"strings"

	"github.com/google/btree"
)

// Class is the memory class a region belongs to. Regions only conflict
// with regions of the same class.
type Class int

const (
	Flash Class = iota
	RAM
)

func (c Class) String() string {
	switch c {
	case Flash:
		return "flash"
	case RAM:
		return "ram"
	}
	return "unknown"
}

// Perm is a subset of {read, write, execute}. The zero value leaves the
// permissions to the placement of the sections in the region.
type Perm uint8

const (
	PermRead Perm = 1 << iota
	PermWrite
	PermExec
)

// String renders p in linker MEMORY attribute order, e.g. "rwx".
func (p Perm) String() string {
	var b strings.Builder
	if p&PermRead != 0 {
		b.WriteByte('r')
	}
	if p&PermWrite != 0 {
		b.WriteByte('w')
	}
	if p&PermExec != 0 {
		b.WriteByte('x')
	}
	return b.String()
}

// Region is a named, contiguous span of address space.
type Region struct {
	Name   string
	Class  Class
	Origin uint32
	Length uint32
	Perm   Perm
}

// End returns the first address past the region. It is 64 bits wide so
// that a region ending at the top of the 32-bit space is representable.
func (r *Region) End() uint64 {
	return uint64(r.Origin) + uint64(r.Length)
}

// Contains reports whether addr lies inside the region.
func (r *Region) Contains(addr uint32) bool {
	return addr >= r.Origin && uint64(addr) < r.End()
}

type regionItem struct {
	*Region
}

func (a regionItem) Less(than btree.Item) bool {
	b := than.(regionItem)
	if a.Origin != b.Origin {
		return a.Origin < b.Origin
	}
	return a.Name < b.Name
}

// regionIndex keeps the regions of one class ordered by origin.
type regionIndex struct {
	tree *btree.BTree
}

func newRegionIndex() *regionIndex {
	return &regionIndex{tree: btree.New(4)}
}

// insert adds r and returns the first already indexed region it overlaps.
func (x *regionIndex) insert(r *Region) *Region {
	item := regionItem{r}
	var hit *Region
	x.tree.DescendLessOrEqual(item, func(i btree.Item) bool {
		prev := i.(regionItem)
		if prev.End() > uint64(r.Origin) {
			hit = prev.Region
		}
		return false
	})
	if hit != nil {
		return hit
	}
	x.tree.AscendGreaterOrEqual(item, func(i btree.Item) bool {
		next := i.(regionItem)
		if uint64(next.Origin) < r.End() {
			hit = next.Region
		}
		return false
	})
	if hit != nil {
		return hit
	}
	x.tree.ReplaceOrInsert(item)
	return nil
}
