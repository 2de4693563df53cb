// Package button implements the zero-latency SPDT button debouncer: each
// switch's NO (normally-open) and NC (normally-closed) contacts are wired
// to separate EXTI lines, and only one of the pair is ever armed at a
// time. Break-before-make contact physics guarantees the NO edge that
// announces a press always precedes the NC edge that would otherwise
// re-arm it, so the very first edge of a transition is trustworthy and
// later contact bounce on the now-disarmed line is simply never seen.
package button

import (
	"sync/atomic"

	"github.com/ardnew/paw3395-mouse/internal/mmio"
)

// EXTI line numbers wired to each contact, per the board's pin map (PA8
// = R_NO, PA9 = L_NO, PA10 = L_NC, PB12 = R_NC).
const (
	lineRNO = 8
	lineLNO = 9
	lineLNC = 10
	lineRNC = 12
)

// Debouncer owns the EXTI/AFIO/NVIC wiring for both buttons and
// publishes their debounced state as atomic booleans, set from the EXTI
// ISRs and read from the report-generation path.
type Debouncer struct {
	afio mmio.AFIO
	exti mmio.EXTI
	nvic mmio.NVIC

	lClick atomic.Bool
	rClick atomic.Bool
}

// New wraps the AFIO/EXTI/NVIC register views used to arm and service
// the button lines.
func New(afio mmio.AFIO, exti mmio.EXTI, nvic mmio.NVIC) *Debouncer {
	return &Debouncer{afio: afio, exti: exti, nvic: nvic}
}

// Setup routes EXTI lines 8-10 to port A and line 12 to port B, arms the
// NO line of each button (NC starts masked), enables falling-edge
// triggers on all four lines, clears any spurious pending bits, and
// unmasks both EXTI vectors at the NVIC.
func (d *Debouncer) Setup() {
	d.afio.SetEXTISource(lineRNO, mmio.EXTISourcePortA)
	d.afio.SetEXTISource(lineLNO, mmio.EXTISourcePortA)
	d.afio.SetEXTISource(lineLNC, mmio.EXTISourcePortA)
	d.afio.SetEXTISource(lineRNC, mmio.EXTISourcePortB)

	d.exti.Unmask(mmio.Line(lineLNO))
	d.exti.Mask(mmio.Line(lineLNC))
	d.exti.Unmask(mmio.Line(lineRNO))
	d.exti.Mask(mmio.Line(lineRNC))

	lines := mmio.Line(lineRNO) | mmio.Line(lineLNO) | mmio.Line(lineLNC) | mmio.Line(lineRNC)
	d.exti.EnableFalling(lines)
	d.exti.ClearPending(lines)

	d.nvic.Enable(mmio.IRQEXTI9_5)
	d.nvic.Enable(mmio.IRQEXTI15_10)
}

// HandleEXTI9_5 services the EXTI9_5 vector: a falling edge on L_NO
// (line 9) means the left button was just pressed, and on R_NO (line 8)
// that the right button was just pressed. Each edge disarms its own
// line and arms the opposite (NC) contact so only a release can fire
// next.
func (d *Debouncer) HandleEXTI9_5() {
	if d.exti.Pending(mmio.Line(lineLNO)) != 0 {
		d.exti.Mask(mmio.Line(lineLNO))
		d.exti.Unmask(mmio.Line(lineLNC))
		d.exti.ClearPending(mmio.Line(lineLNO) | mmio.Line(lineLNC))
		d.lClick.Store(true)
	}
	if d.exti.Pending(mmio.Line(lineRNO)) != 0 {
		d.exti.Mask(mmio.Line(lineRNO))
		d.exti.Unmask(mmio.Line(lineRNC))
		d.exti.ClearPending(mmio.Line(lineRNO) | mmio.Line(lineRNC))
		d.rClick.Store(true)
	}
}

// HandleEXTI15_10 services the EXTI15_10 vector: a falling edge on L_NC
// (line 10) means the left button was just released, and on R_NC (line
// 12) that the right button was just released. Each edge re-arms the NO
// contact so the next press can be seen.
func (d *Debouncer) HandleEXTI15_10() {
	if d.exti.Pending(mmio.Line(lineLNC)) != 0 {
		d.exti.Mask(mmio.Line(lineLNC))
		d.exti.Unmask(mmio.Line(lineLNO))
		d.exti.ClearPending(mmio.Line(lineLNO) | mmio.Line(lineLNC))
		d.lClick.Store(false)
	}
	if d.exti.Pending(mmio.Line(lineRNC)) != 0 {
		d.exti.Mask(mmio.Line(lineRNC))
		d.exti.Unmask(mmio.Line(lineRNO))
		d.exti.ClearPending(mmio.Line(lineRNO) | mmio.Line(lineRNC))
		d.rClick.Store(false)
	}
}

// LClick reports the debounced left-button state.
func (d *Debouncer) LClick() bool { return d.lClick.Load() }

// RClick reports the debounced right-button state.
func (d *Debouncer) RClick() bool { return d.rClick.Load() }
