package mmio

// USB is the on-chip USB full-speed device peripheral: the eight
// endpoint control registers plus CNTR/ISTR/FNR/DADDR/BTABLE, and a
// handle to its 512-byte packet memory area (PMA).
type USB struct {
	base    uintptr
	pmaBase uintptr
}

const (
	offUSB_EPR0   = 0x00 // EPR[n] at 0x00 + 4*n, n=0..7
	offUSB_CNTR   = 0x40
	offUSB_ISTR   = 0x44
	offUSB_FNR    = 0x48
	offUSB_DADDR  = 0x4C
	offUSB_BTABLE = 0x50
)

// EPR returns endpoint register n (0..7).
func (u USB) EPR(n uint) *Register16 { return reg16(u.base + offUSB_EPR0 + uintptr(n)*4) }
func (u USB) CNTR() *Register16      { return reg16(u.base + offUSB_CNTR) }
func (u USB) ISTR() *Register16      { return reg16(u.base + offUSB_ISTR) }
func (u USB) FNR() *Register16       { return reg16(u.base + offUSB_FNR) }
func (u USB) DADDR() *Register16     { return reg16(u.base + offUSB_DADDR) }
func (u USB) BTABLE() *Register16    { return reg16(u.base + offUSB_BTABLE) }

// PMACell returns a register view of the 16-bit PMA cell whose byte
// offset within the (non-doubled) packet memory is off. The CPU sees
// packet memory at a 2x stride: PMA byte offset x lives at
// pmaBase + 2*x, and each 16-bit cell is zero-padded to a 32-bit bus
// slot, so consecutive cells are 4 bytes apart on the CPU side.
func (u USB) PMACell(off uint16) *Register16 {
	return reg16(u.pmaBase + 2*uintptr(off))
}

// CNTR bits.
const (
	USB_CNTR_FRES   = 1 << 0
	USB_CNTR_PDWN   = 1 << 1
	USB_CNTR_CTRM   = 1 << 10
	USB_CNTR_RESETM = 1 << 13
	USB_CNTR_SUSPM  = 1 << 14
	USB_CNTR_WKUPM  = 1 << 15
)

// ISTR bits and fields.
const (
	USB_ISTR_EP_ID_Msk = 0x000F
	USB_ISTR_DIR       = 1 << 4
	USB_ISTR_WKUP      = 1 << 10
	USB_ISTR_SUSP      = 1 << 11
	USB_ISTR_RESET     = 1 << 12
	USB_ISTR_SOF       = 1 << 13
	USB_ISTR_CTR       = 1 << 15
)

// DADDR bits.
const (
	USB_DADDR_ADDR_Msk = 0x7F
	USB_DADDR_EF       = 1 << 7
)

// EPR field masks and shifts.
const (
	USB_EPR_EA_Msk      = 0x000F
	USB_EPR_STAT_TX_Msk = 0x0030
	USB_EPR_DTOG_TX     = 1 << 6
	USB_EPR_CTR_TX      = 1 << 7
	USB_EPR_EP_KIND     = 1 << 8
	USB_EPR_EP_TYPE_Msk = 0x0600
	USB_EPR_SETUP       = 1 << 11
	USB_EPR_STAT_RX_Msk = 0x3000
	USB_EPR_DTOG_RX     = 1 << 14
	USB_EPR_CTR_RX      = 1 << 15

	// NonToggleMsk covers every field that is a plain read/write bit:
	// EA, EP_TYPE, EP_KIND, SETUP (read-only but harmless to preserve).
	// Writing 0 to every toggle bit (STAT_TX, DTOG_TX, STAT_RX, DTOG_RX)
	// and 1 to every rc_w0 bit (CTR_TX, CTR_RX) leaves them unperturbed.
	USB_EPR_NonToggleMsk = USB_EPR_EA_Msk | USB_EPR_EP_TYPE_Msk | USB_EPR_EP_KIND | USB_EPR_SETUP
	USB_EPR_RCW0Msk      = USB_EPR_CTR_TX | USB_EPR_CTR_RX
)

// EP_TYPE values (shifted into place).
const (
	USB_EPR_EP_TYPE_BULK       = 0b00 << 9
	USB_EPR_EP_TYPE_CONTROL    = 0b01 << 9
	USB_EPR_EP_TYPE_ISO        = 0b10 << 9
	USB_EPR_EP_TYPE_INTERRUPT  = 0b11 << 9
)

// STAT_TX / STAT_RX values (shifted into place for each field).
const (
	USB_EPR_STAT_TX_DISABLED = 0b00 << 4
	USB_EPR_STAT_TX_STALL    = 0b01 << 4
	USB_EPR_STAT_TX_NAK      = 0b10 << 4
	USB_EPR_STAT_TX_VALID    = 0b11 << 4

	USB_EPR_STAT_RX_DISABLED = 0b00 << 12
	USB_EPR_STAT_RX_STALL    = 0b01 << 12
	USB_EPR_STAT_RX_NAK      = 0b10 << 12
	USB_EPR_STAT_RX_VALID    = 0b11 << 12
)

// SetEA writes the endpoint address field, preserving every other
// non-toggle field and every rc_w0 bit.
func (u USB) SetEA(ep uint, addr uint16) {
	r := u.EPR(ep)
	cur := r.Get() & USB_EPR_NonToggleMsk &^ USB_EPR_EA_Msk
	r.Set(cur | addr | USB_EPR_RCW0Msk)
}

// SetEPType writes the EP_TYPE field, preserving every other non-toggle
// field and every rc_w0 bit.
func (u USB) SetEPType(ep uint, epType uint16) {
	r := u.EPR(ep)
	cur := r.Get() & USB_EPR_NonToggleMsk &^ USB_EPR_EP_TYPE_Msk
	r.Set(cur | epType | USB_EPR_RCW0Msk)
}

// setToggleField implements the XOR write idiom shared by STAT_TX,
// STAT_RX, DTOG_TX, and DTOG_RX: read the register masked to the
// preserved non-toggle bits plus the target field, XOR in the desired
// bits, and write back with the rc_w0 bits forced to 1 (no-op/preserve).
func (u USB) setToggleField(ep uint, fieldMsk, bits uint16) {
	r := u.EPR(ep)
	masked := r.Get() & (USB_EPR_NonToggleMsk | fieldMsk)
	r.Set((masked ^ bits) | USB_EPR_RCW0Msk)
}

// SetStatTX sets the STAT_TX field to the given target value.
func (u USB) SetStatTX(ep uint, status uint16) {
	u.setToggleField(ep, USB_EPR_STAT_TX_Msk, status)
}

// SetStatRX sets the STAT_RX field to the given target value.
func (u USB) SetStatRX(ep uint, status uint16) {
	u.setToggleField(ep, USB_EPR_STAT_RX_Msk, status)
}

// StatTX returns the current STAT_TX field value.
func (u USB) StatTX(ep uint) uint16 { return u.EPR(ep).Get() & USB_EPR_STAT_TX_Msk }

// StatRX returns the current STAT_RX field value.
func (u USB) StatRX(ep uint) uint16 { return u.EPR(ep).Get() & USB_EPR_STAT_RX_Msk }

// ClearCTRRX clears CTR_RX while preserving CTR_TX and every toggle bit.
func (u USB) ClearCTRRX(ep uint) {
	r := u.EPR(ep)
	cur := r.Get() & (USB_EPR_NonToggleMsk &^ USB_EPR_CTR_RX)
	r.Set(cur | USB_EPR_CTR_TX)
}

// ClearCTRTX clears CTR_TX while preserving CTR_RX and every toggle bit.
func (u USB) ClearCTRTX(ep uint) {
	r := u.EPR(ep)
	cur := r.Get() & (USB_EPR_NonToggleMsk &^ USB_EPR_CTR_TX)
	r.Set(cur | USB_EPR_CTR_RX)
}

// HasSetup reports whether the SETUP bit is set for endpoint ep.
func (u USB) HasSetup(ep uint) bool { return u.EPR(ep).Get()&USB_EPR_SETUP != 0 }

// ClearDTOGTX forces DTOG_TX to 0 regardless of its current value, by
// XOR-ing the bit with itself.
func (u USB) ClearDTOGTX(ep uint) {
	cur := u.EPR(ep).Get() & USB_EPR_DTOG_TX
	u.setToggleField(ep, USB_EPR_DTOG_TX, cur)
}

// ClearDTOGRX forces DTOG_RX to 0 regardless of its current value, by
// XOR-ing the bit with itself.
func (u USB) ClearDTOGRX(ep uint) {
	cur := u.EPR(ep).Get() & USB_EPR_DTOG_RX
	u.setToggleField(ep, USB_EPR_DTOG_RX, cur)
}
