package mmio

// EXTI is the external interrupt/event controller.
type EXTI struct{ base uintptr }

const (
	offEXTI_IMR  = 0x00
	offEXTI_EMR  = 0x04
	offEXTI_RTSR = 0x08
	offEXTI_FTSR = 0x0C
	offEXTI_PR   = 0x14
)

func (e EXTI) IMR() *Register32  { return reg32(e.base + offEXTI_IMR) }
func (e EXTI) RTSR() *Register32 { return reg32(e.base + offEXTI_RTSR) }
func (e EXTI) FTSR() *Register32 { return reg32(e.base + offEXTI_FTSR) }
func (e EXTI) PR() *Register32   { return reg32(e.base + offEXTI_PR) }

// Line returns the bit mask for EXTI line n.
func Line(n uint) uint32 { return 1 << n }

// Mask disables the given EXTI lines in the interrupt mask register.
func (e EXTI) Mask(lines uint32) { e.IMR().ClearBits(lines) }

// Unmask enables the given EXTI lines in the interrupt mask register.
func (e EXTI) Unmask(lines uint32) { e.IMR().SetBits(lines) }

// EnableFalling configures the given lines to trigger on a falling edge.
func (e EXTI) EnableFalling(lines uint32) { e.FTSR().SetBits(lines) }

// Pending returns the set of lines in PR whose pending bit is set.
func (e EXTI) Pending(lines uint32) uint32 { return e.PR().Get() & lines }

// ClearPending clears the pending bit for the given lines (PR is
// write-1-to-clear).
func (e EXTI) ClearPending(lines uint32) { e.PR().Set(lines) }
