// Package board supplies the stand-ins for the collaborators the core
// firmware consumes but does not own: clock-tree bring-up, the
// microsecond/millisecond timer, and atomic GPIO set/clear/toggle. These
// exist outside the mouse's protocol and sensor logic; a real port only
// has to meet their stated contract.
package board

import "github.com/ardnew/paw3395-mouse/internal/mmio"

// Port names a GPIO bank for GPIOSet/Clear/Toggle.
type Port uint8

const (
	PortA Port = iota
	PortB
)

// Board owns the peripheral handle and wires the excluded collaborators
// against it: clock bring-up, TIM2-based delay, and BSRR-equivalent GPIO.
type Board struct {
	p *mmio.Peripherals
}

// New wraps a peripheral handle (from mmio.Take or mmio.NewSimulated).
func New(p *mmio.Peripherals) *Board {
	return &Board{p: p}
}

// SetSysclk72MHz brings the clock tree up to SYSCLK = 72 MHz, APB1 =
// 36 MHz, USB prescaler = /1.5 (48 MHz), flash latency = 2 wait states,
// and enables the peripheral clocks this firmware needs (AFIO, GPIOA,
// GPIOB, SPI1, TIM2). The PLL/flash-latency bring-up itself is excluded
// from this repo's scope (board startup code, not core firmware logic);
// only the peripheral clock gating below is real.
func (b *Board) SetSysclk72MHz() {
	b.p.RCC.APB2ENR().SetBits(mmio.RCC_APB2ENR_AFIOEN | mmio.RCC_APB2ENR_IOPAEN | mmio.RCC_APB2ENR_IOPBEN | mmio.RCC_APB2ENR_SPI1EN)
	b.p.RCC.APB1ENR().SetBits(mmio.RCC_APB1ENR_TIM2EN)
}

// SetupTimer configures TIM2 as a free-running 1 MHz tick source for
// DelayUS/DelayMS, mirroring the original firmware's tim_setup: PSC = 71
// off a 72 MHz APB1 timer clock gives a 1 MHz counter, then CEN starts it.
func (b *Board) SetupTimer() {
	t := b.p.TIM2
	t.PSC().Set(71)
	t.EGR().Set(mmio.TIM_EGR_UG)
	t.CR1().SetBits(mmio.TIM_CR1_CEN)
}

// DelayUS busy-waits for at least us microseconds on the free-running
// TIM2 counter.
func (b *Board) DelayUS(us uint16) {
	t := b.p.TIM2
	t.CNT().Set(0)
	for t.CNT().Get() < uint32(us) {
	}
}

// DelayMS busy-waits for at least ms milliseconds, one 1000us tick at a
// time (TIM2's counter is 16-bit wide in practice, so a single multi-ms
// wait would overflow).
func (b *Board) DelayMS(ms uint32) {
	for ; ms > 0; ms-- {
		b.DelayUS(1000)
	}
}

// Pin binds a single GPIO mask on a board to satisfy paw3395.ChipSelect
// (or any other single-pin digital output consumer).
type Pin struct {
	b    *Board
	port Port
	mask uint32
}

// NewPin returns a bound GPIO pin on port, identified by mask (use
// mmio.Pin(n) to build it).
func (b *Board) NewPin(port Port, mask uint32) Pin {
	return Pin{b: b, port: port, mask: mask}
}

// Select drives the pin low (active-low chip select).
func (p Pin) Select() { p.b.GPIOClear(p.port, p.mask) }

// Deselect drives the pin high.
func (p Pin) Deselect() { p.b.GPIOSet(p.port, p.mask) }

func (b *Board) gpio(port Port) mmio.GPIO {
	if port == PortB {
		return b.p.GPIOB
	}
	return b.p.GPIOA
}

// GPIOSet drives the given pin mask high via the BSRR set-half.
func (b *Board) GPIOSet(port Port, mask uint32) { b.gpio(port).Set(mask) }

// GPIOClear drives the given pin mask low via the BSRR reset-half.
func (b *Board) GPIOClear(port Port, mask uint32) { b.gpio(port).Clear(mask) }

// GPIOToggle flips the given pin mask's output state. BSRR has no atomic
// toggle half, so this reads ODR first; callers must not rely on it being
// glitch-free against a concurrent ISR touching the same port.
func (b *Board) GPIOToggle(port Port, mask uint32) {
	g := b.gpio(port)
	cur := g.ODR().Get() & mask
	g.Set(mask &^ cur)
	g.Clear(cur)
}
