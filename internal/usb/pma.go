package usb

import (
	"github.com/ardnew/paw3395-mouse/internal/mmio"
	"github.com/ardnew/paw3395-mouse/pkg"
)

const (
	pmaSize    = 512
	btableSize = 0x40 // 8 endpoints * 4 cells * 2 bytes

	cellTXADDR  = 0
	cellTXCOUNT = 2
	cellRXADDR  = 4
	cellRXCOUNT = 6
)

// Allocator bump-allocates endpoint buffers inside the USB peripheral's
// 512-byte packet memory and programs the corresponding
// buffer-descriptor-table cells. The cursor (top) never decreases
// except on Reset.
type Allocator struct {
	usb mmio.USB
	top uint16
}

// NewAllocator wraps a USB register view and resets the bump cursor.
func NewAllocator(u mmio.USB) *Allocator {
	a := &Allocator{usb: u}
	a.Reset()
	return a
}

// Reset rewinds the bump cursor to the first byte past the
// buffer-descriptor table, mirroring what the enumeration core does on
// every bus reset.
func (a *Allocator) Reset() { a.top = btableSize }

// Top returns the current bump cursor, for tests asserting monotonicity.
func (a *Allocator) Top() uint16 { return a.top }

func (a *Allocator) btCell(ep uint, cellOff uint16) *mmio.Register16 {
	return a.usb.PMACell(uint16(ep)*8 + cellOff)
}

// allocTX reserves size bytes for endpoint ep's TX buffer and programs
// TX_ADDR; TX_COUNT starts at 0 until the first packet is written.
func (a *Allocator) allocTX(ep uint, size uint16) error {
	if a.top+size > pmaSize {
		return pkg.ErrNoMemory
	}
	addr := a.top
	a.top += size
	a.btCell(ep, cellTXADDR).Set(addr)
	a.btCell(ep, cellTXCOUNT).Set(0)
	return nil
}

// allocRX reserves a rounded-up buffer for endpoint ep's RX direction
// and programs RX_ADDR/RX_COUNT (the BL_SIZE/NUM_BLOCK allocation
// descriptor), returning the actual allocated size.
func (a *Allocator) allocRX(ep uint, size uint16) (uint16, error) {
	actual, code := rxAllocDescriptor(size)
	if a.top+actual > pmaSize {
		return 0, pkg.ErrNoMemory
	}
	addr := a.top
	a.top += actual
	a.btCell(ep, cellRXADDR).Set(addr)
	a.btCell(ep, cellRXCOUNT).Set(code)
	return actual, nil
}

// rxAllocDescriptor computes the BL_SIZE/NUM_BLOCK encoding for an RX
// buffer of at least size bytes: block size 2 bytes (NUM_BLOCK =
// ceil(size/2)) when size <= 62, else block size 32 bytes (NUM_BLOCK =
// ceil(size/32)-1, BL_SIZE set). It returns the actual rounded-up size
// alongside the register code.
func rxAllocDescriptor(size uint16) (actual, code uint16) {
	if size <= 62 {
		numBlock := (size + 1) / 2
		return numBlock * 2, numBlock << 10
	}
	numBlock := (size + 31) / 32
	return numBlock * 32, 1<<15 | (numBlock-1)<<10
}

// rxAllocSize decodes an RX_COUNT allocation descriptor back to the
// buffer size it describes.
func rxAllocSize(code uint16) uint16 {
	numBlock := (code >> 10) & 0x1F
	if code&(1<<15) != 0 {
		return (numBlock + 1) * 32
	}
	return numBlock * 2
}
