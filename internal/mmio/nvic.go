package mmio

// NVIC is the Cortex-M3 nested vectored interrupt controller.
type NVIC struct{ base uintptr }

const (
	offNVIC_ISER = 0x000
	offNVIC_ICER = 0x080
)

func (n NVIC) iser(bank uint) *Register32 { return reg32(n.base + offNVIC_ISER + uintptr(bank)*4) }
func (n NVIC) icer(bank uint) *Register32 { return reg32(n.base + offNVIC_ICER + uintptr(bank)*4) }

// EXTI9_5 and EXTI15_10 are the IRQ numbers this firmware enables; the
// peripheral interrupts not used by the core (USB_LP, etc.) are left to
// the board collaborator.
const (
	IRQEXTI9_5   = 23
	IRQEXTI15_10 = 40
	IRQUSBLPCANRX0 = 20
)

// Enable unmasks irq at the NVIC.
func (n NVIC) Enable(irq uint) {
	n.iser(irq / 32).Set(1 << (irq % 32))
}

// Disable masks irq at the NVIC.
func (n NVIC) Disable(irq uint) {
	n.icer(irq / 32).Set(1 << (irq % 32))
}
