package mmio

// AFIO is the alternate-function I/O register bank; only the external
// interrupt line mux (EXTICR) is used by this firmware.
type AFIO struct{ base uintptr }

const offAFIO_EXTICR1 = 0x08 // EXTICR[0..3] at 0x08, 0x0C, 0x10, 0x14

// EXTICR returns register n (0..3), covering EXTI lines [4n, 4n+3].
func (a AFIO) EXTICR(n uint) *Register32 {
	return reg32(a.base + offAFIO_EXTICR1 + uintptr(n)*4)
}

// SetEXTISource routes EXTI line (0..15) to GPIO port portCode
// (0=A, 1=B, 2=C, ...), preserving the other three lines in the same
// EXTICR register.
func (a AFIO) SetEXTISource(line uint, portCode uint32) {
	reg := a.EXTICR(line / 4)
	shift := (line % 4) * 4
	mask := uint32(0xF) << shift
	reg.Set((reg.Get() &^ mask) | (portCode << shift))
}

// GPIO port codes for EXTICR.
const (
	EXTISourcePortA = 0
	EXTISourcePortB = 1
	EXTISourcePortC = 2
)
