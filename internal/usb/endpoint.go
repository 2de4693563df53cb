package usb

import (
	"github.com/ardnew/paw3395-mouse/internal/mmio"
	"github.com/ardnew/paw3395-mouse/pkg"
)

// EPType enumerates the endpoint types the peripheral's EP_TYPE field
// encodes, mapped from the USB class attribute values used in the
// configuration descriptor.
type EPType int

const (
	EPTypeControl EPType = iota
	EPTypeISO
	EPTypeBulk
	EPTypeInterrupt
)

func (t EPType) encode() uint16 {
	switch t {
	case EPTypeBulk:
		return mmio.USB_EPR_EP_TYPE_BULK
	case EPTypeISO:
		return mmio.USB_EPR_EP_TYPE_ISO
	case EPTypeInterrupt:
		return mmio.USB_EPR_EP_TYPE_INTERRUPT
	default:
		return mmio.USB_EPR_EP_TYPE_CONTROL
	}
}

// Endpoints owns the PMA allocator and the EPR register view, and
// implements the setup_ep operation plus packet copy primitives.
type Endpoints struct {
	usb   mmio.USB
	alloc *Allocator
}

// NewEndpoints wraps a USB register view.
func NewEndpoints(u mmio.USB) *Endpoints {
	return &Endpoints{usb: u, alloc: NewAllocator(u)}
}

// Reset rewinds the PMA bump cursor, called on every bus reset before
// endpoint 0 is re-configured.
func (e *Endpoints) Reset() { e.alloc.Reset() }

// PMATop exposes the bump allocator's current cursor.
func (e *Endpoints) PMATop() uint16 { return e.alloc.Top() }

// SetupEP configures one direction of an endpoint: addr's bit 7 selects
// IN (TX buffer, initial STAT_TX=NAK) or OUT (RX buffer, initial
// STAT_RX=VALID); addr's low 4 bits are the endpoint number. EA and
// EP_TYPE are programmed unconditionally since both directions of a
// bidirectional endpoint (endpoint 0) share them. Returns a
// *pkg.ProgrammerError-wrapped pkg.ErrNoMemory if the PMA bump cursor
// would overflow.
func (e *Endpoints) SetupEP(addr uint8, epType EPType, maxSize uint16) error {
	ep := uint(addr & 0x0F)
	in := addr&0x80 != 0

	e.usb.SetEA(ep, uint16(ep))
	e.usb.SetEPType(ep, epType.encode())

	if in {
		if err := e.alloc.allocTX(ep, maxSize); err != nil {
			return err
		}
		e.usb.ClearDTOGTX(ep)
		e.usb.SetStatTX(ep, mmio.USB_EPR_STAT_TX_NAK)
		return nil
	}
	if _, err := e.alloc.allocRX(ep, maxSize); err != nil {
		return err
	}
	e.usb.ClearDTOGRX(ep)
	e.usb.SetStatRX(ep, mmio.USB_EPR_STAT_RX_VALID)
	return nil
}

// SetupEP0 brings up the bidirectional control endpoint, allocating
// both RX and TX buffers of maxSize and deterministically NAKing TX
// while arming RX. A PMA overflow here is a boot-time programming
// mistake, not a runtime condition, so it panics via pkg.MustFit.
func (e *Endpoints) SetupEP0(maxSize uint16) {
	pkg.MustFit(e.SetupEP(0x00, EPTypeControl, maxSize) == nil, "setup_ep(0, OUT)", pkg.ErrNoMemory)
	pkg.MustFit(e.SetupEP(0x80, EPTypeControl, maxSize) == nil, "setup_ep(0, IN)", pkg.ErrNoMemory)
}

// WritePacket copies data into endpoint ep's TX buffer 16 bits at a
// time, programs TX_COUNT, and marks the endpoint VALID so the next IN
// token sends it. It returns pkg.ErrBusy without touching the buffer if
// the endpoint is still VALID from a prior write the host hasn't picked
// up yet.
func (e *Endpoints) WritePacket(ep uint, data []byte) (int, error) {
	if e.usb.StatTX(ep) == mmio.USB_EPR_STAT_TX_VALID {
		return 0, pkg.ErrBusy
	}
	addr := e.usb.PMACell(uint16(ep)*8 + cellTXADDR).Get()
	n := len(data)
	for i := 0; i < n; i += 2 {
		lo := uint16(data[i])
		hi := uint16(0)
		if i+1 < n {
			hi = uint16(data[i+1])
		}
		e.usb.PMACell(addr + uint16(i)).Set(lo | hi<<8)
	}
	e.usb.PMACell(uint16(ep)*8 + cellTXCOUNT).Set(uint16(n))
	e.usb.SetStatTX(ep, mmio.USB_EPR_STAT_TX_VALID)
	return n, nil
}

// ReadPacket copies up to len(buf) bytes out of endpoint ep's RX buffer
// (bounded by the RX_COUNT reported by hardware), clears CTR_RX, and
// re-arms RX as VALID. It returns pkg.ErrBusy if RX is still VALID
// (nothing received yet to read).
func (e *Endpoints) ReadPacket(ep uint, buf []byte) (int, error) {
	if e.usb.StatRX(ep) == mmio.USB_EPR_STAT_RX_VALID {
		return 0, pkg.ErrBusy
	}
	count := e.usb.PMACell(uint16(ep)*8+cellRXCOUNT).Get() & 0x3FF
	addr := e.usb.PMACell(uint16(ep)*8 + cellRXADDR).Get()

	n := int(count)
	if n > len(buf) {
		n = len(buf)
	}
	for i := 0; i < n; i += 2 {
		word := e.usb.PMACell(addr + uint16(i)).Get()
		buf[i] = uint8(word)
		if i+1 < n {
			buf[i+1] = uint8(word >> 8)
		}
	}
	e.usb.ClearCTRRX(ep)
	e.usb.SetStatRX(ep, mmio.USB_EPR_STAT_RX_VALID)
	return n, nil
}
