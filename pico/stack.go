package pico

// StackSymbol is the initial stack pointer the reset handler loads.
const StackSymbol = "_stack_start"

// StackPointer returns the initial stack pointer of the BIOS, the end of
// its RAM region. The stack is full-descending.
func (t *Table) StackPointer() uint32 {
	return t.stack
}
