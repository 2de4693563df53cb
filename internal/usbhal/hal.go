// Package usbhal implements [hal.DeviceHAL] over the STM32F103 USB
// full-speed device peripheral.
//
// The original firmware never wires a real NVIC interrupt for USB: its
// main loop calls usb_handle_event in a plain for(;;) and lets ISTR/EPR
// polling do the work. This HAL keeps that shape. Each blocking method
// busy-polls the one endpoint register it cares about (and, on the
// control endpoint's goroutine, ISTR's RESET bit) instead of routing
// through a shared interrupt-style dispatch table, since every EP0
// method here is only ever called sequentially from the device stack's
// control-transfer goroutine, and the single HID report endpoint is
// only ever touched from the report-pump goroutine.
package usbhal

import (
	"context"
	"sync/atomic"

	"github.com/ardnew/paw3395-mouse/device/hal"
	"github.com/ardnew/paw3395-mouse/internal/mmio"
	"github.com/ardnew/paw3395-mouse/internal/usb"
	"github.com/ardnew/paw3395-mouse/pkg"
)

// pinDPlus is PA12, the bluepill's USB D+ line. There is no
// software-controlled pull-up on this part; re-enumeration is forced by
// briefly driving D+ low as a plain GPIO before handing the pin back to
// the USB peripheral.
const pinDPlus = 12

// Delayer provides the microsecond busy-wait used for the D+
// re-enumeration pulse.
type Delayer interface {
	DelayUS(us uint16)
}

// HAL implements hal.DeviceHAL against one USB peripheral instance.
type HAL struct {
	usb   mmio.USB
	rcc   mmio.RCC
	gpioA mmio.GPIO
	ep    *usb.Endpoints
	delay Delayer

	maxPacketSize0 uint16
	connected      atomic.Bool
}

// New wraps the register views and endpoint allocator used to drive the
// USB peripheral. maxPacketSize0 is EP0's packet size (64 for this
// device, matching its device descriptor).
func New(u mmio.USB, rcc mmio.RCC, gpioA mmio.GPIO, delay Delayer, maxPacketSize0 uint16) *HAL {
	return &HAL{
		usb:            u,
		rcc:            rcc,
		gpioA:          gpioA,
		ep:             usb.NewEndpoints(u),
		delay:          delay,
		maxPacketSize0: maxPacketSize0,
	}
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Init enables the USB peripheral clock. The bus itself stays detached
// until Start pulses D+.
func (h *HAL) Init(ctx context.Context) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	h.rcc.APB1ENR().SetBits(mmio.RCC_APB1ENR_USBEN)
	h.delay.DelayUS(100)
	pkg.LogDebug(pkg.ComponentHAL, "usb peripheral clock enabled")
	return nil
}

// Start pulses D+ low to force the host to notice a fresh attach, then
// brings CNTR/BTABLE/ISTR up and configures EP0.
func (h *HAL) Start() error {
	h.rcc.APB1ENR().ClearBits(mmio.RCC_APB1ENR_USBEN)
	h.gpioA.SetCNF(pinDPlus, mmio.CNFMODE_OUTPUT_GP_OPENDRAIN_2MHZ)
	h.gpioA.Clear(mmio.Pin(pinDPlus))
	h.delay.DelayUS(2000)
	h.gpioA.Set(mmio.Pin(pinDPlus))
	h.delay.DelayUS(100)
	h.rcc.APB1ENR().SetBits(mmio.RCC_APB1ENR_USBEN)

	h.usb.CNTR().Set(0)
	h.usb.BTABLE().Set(0)
	h.usb.ISTR().Set(0)
	h.ep.Reset()
	h.ep.SetupEP0(h.maxPacketSize0)
	h.usb.DADDR().Set(mmio.USB_DADDR_EF)
	h.usb.CNTR().Set(mmio.USB_CNTR_RESETM | mmio.USB_CNTR_CTRM | mmio.USB_CNTR_SUSPM | mmio.USB_CNTR_WKUPM)

	pkg.LogInfo(pkg.ComponentHAL, "usb started")
	return nil
}

// Stop detaches from the bus and powers the transceiver down.
func (h *HAL) Stop() error {
	h.usb.CNTR().Set(mmio.USB_CNTR_FRES)
	h.usb.ISTR().Set(0)
	h.usb.CNTR().Set(mmio.USB_CNTR_FRES | mmio.USB_CNTR_PDWN)
	h.rcc.APB1ENR().ClearBits(mmio.RCC_APB1ENR_USBEN)
	h.connected.Store(false)
	return nil
}

// handleReset rewinds the PMA allocator, re-configures EP0, and resets
// the device address, mirroring the original driver's bus-reset path.
func (h *HAL) handleReset() {
	h.ep.Reset()
	h.ep.SetupEP0(h.maxPacketSize0)
	h.usb.DADDR().Set(mmio.USB_DADDR_EF)
	h.connected.Store(true)
	pkg.LogDebug(pkg.ComponentHAL, "usb bus reset")
}

func (h *HAL) ackISTR(bit uint16) {
	h.usb.ISTR().Set(h.usb.ISTR().Get() &^ bit)
}

// SetAddress programs DADDR. The caller (the device stack) has already
// completed the status stage for SET_ADDRESS before calling this, per
// USB 2.0 9.4.6.
func (h *HAL) SetAddress(address uint8) error {
	h.usb.DADDR().Set((uint16(address) & mmio.USB_DADDR_ADDR_Msk) | mmio.USB_DADDR_EF)
	return nil
}

// epTypeOf maps a USB class attribute's transfer-type bits (identical
// numbering to usb.EPType) onto the peripheral's EP_TYPE encoding.
func epTypeOf(attributes uint8) usb.EPType {
	return usb.EPType(attributes & 0x03)
}

// ConfigureEndpoints brings up every non-control endpoint in endpoints
// (the mouse has exactly one: the HID interrupt IN). A nil/empty slice
// disables endpoints 1-7 and rewinds the PMA allocator back to just
// past EP0, mirroring SET_CONFIGURATION(0) returning to the Address
// state.
func (h *HAL) ConfigureEndpoints(endpoints []hal.EndpointConfig) error {
	for ep := uint(1); ep < 8; ep++ {
		h.usb.SetStatTX(ep, mmio.USB_EPR_STAT_TX_DISABLED)
		h.usb.SetStatRX(ep, mmio.USB_EPR_STAT_RX_DISABLED)
	}
	h.ep.Reset()
	h.ep.SetupEP0(h.maxPacketSize0)

	for i := range endpoints {
		cfg := &endpoints[i]
		if err := h.ep.SetupEP(cfg.Address, epTypeOf(cfg.Attributes), cfg.MaxPacketSize); err != nil {
			return err
		}
	}
	return nil
}

// ReadSetup busy-polls EP0 for a SETUP transaction, handling a bus
// reset inline if ISTR reports one first.
func (h *HAL) ReadSetup(ctx context.Context, out *hal.SetupPacket) error {
	var buf [hal.SetupPacketSize]byte
	for {
		if err := ctxErr(ctx); err != nil {
			return err
		}

		if istr := h.usb.ISTR().Get(); istr&mmio.USB_ISTR_RESET != 0 {
			h.ackISTR(mmio.USB_ISTR_RESET)
			h.handleReset()
			return pkg.ErrReset
		} else if istr&(mmio.USB_ISTR_SUSP|mmio.USB_ISTR_WKUP) != 0 {
			// Suspend/wakeup masks are enabled for parity with the
			// peripheral's reset defaults; this firmware has no reduced
			// power state to enter, so just acknowledge and move on.
			h.ackISTR(mmio.USB_ISTR_SUSP | mmio.USB_ISTR_WKUP)
		}

		e := h.usb.EPR(0).Get()
		if e&mmio.USB_EPR_CTR_RX == 0 {
			continue
		}
		if e&mmio.USB_EPR_SETUP == 0 {
			// A stray OUT arrived with no SETUP in front of it (a
			// previous control transfer's host abandoned early); drain
			// it so it doesn't block the next real SETUP.
			h.ep.ReadPacket(0, buf[:0])
			continue
		}

		n, err := h.ep.ReadPacket(0, buf[:])
		if err != nil || n != hal.SetupPacketSize {
			continue
		}
		if !hal.ParseSetupPacket(buf[:n], out) {
			continue
		}
		return nil
	}
}

// sendEP0Packet waits for EP0 TX to be free, writes chunk, then waits
// for the host to ack it before returning.
func (h *HAL) sendEP0Packet(ctx context.Context, chunk []byte) error {
	for {
		if err := ctxErr(ctx); err != nil {
			return err
		}
		if _, err := h.ep.WritePacket(0, chunk); err == nil {
			break
		} else if err != pkg.ErrBusy {
			return err
		}
	}
	for {
		if err := ctxErr(ctx); err != nil {
			return err
		}
		if h.usb.EPR(0).Get()&mmio.USB_EPR_CTR_TX != 0 {
			h.usb.ClearCTRTX(0)
			return nil
		}
	}
}

// WriteEP0 sends data as a sequence of EP0-sized packets.
func (h *HAL) WriteEP0(ctx context.Context, data []byte) error {
	off := 0
	for {
		end := off + int(h.maxPacketSize0)
		if end > len(data) {
			end = len(data)
		}
		if err := h.sendEP0Packet(ctx, data[off:end]); err != nil {
			return err
		}
		off = end
		if off >= len(data) {
			return nil
		}
	}
}

// ReadEP0 waits for an OUT transaction on EP0 (a data stage packet or
// the host's zero-length status ack) and copies it into buf.
func (h *HAL) ReadEP0(ctx context.Context, buf []byte) (int, error) {
	for {
		if err := ctxErr(ctx); err != nil {
			return 0, err
		}
		e := h.usb.EPR(0).Get()
		if e&mmio.USB_EPR_CTR_RX == 0 {
			continue
		}
		if e&mmio.USB_EPR_SETUP != 0 {
			// The host abandoned this transfer and started a new one;
			// leave it pending for the next ReadSetup.
			return 0, pkg.ErrProtocol
		}
		return h.ep.ReadPacket(0, buf)
	}
}

// StallEP0 stalls both directions of the control endpoint.
func (h *HAL) StallEP0() error {
	h.usb.SetStatTX(0, mmio.USB_EPR_STAT_TX_STALL)
	h.usb.SetStatRX(0, mmio.USB_EPR_STAT_RX_STALL)
	return nil
}

// AckEP0 sends the zero-length status-stage packet.
func (h *HAL) AckEP0() error {
	return h.sendEP0Packet(context.Background(), nil)
}

// Read waits for an OUT transaction on a data endpoint and copies it
// into buf. The mouse has no OUT data endpoints, but the HAL implements
// this generically for any future class driver.
func (h *HAL) Read(ctx context.Context, address uint8, buf []byte) (int, error) {
	ep := uint(address & 0x0F)
	for {
		if err := ctxErr(ctx); err != nil {
			return 0, err
		}
		if h.usb.EPR(ep).Get()&mmio.USB_EPR_CTR_RX != 0 {
			return h.ep.ReadPacket(ep, buf)
		}
	}
}

// Write sends data on an IN data endpoint (the HID report endpoint),
// blocking until the host has acknowledged it.
func (h *HAL) Write(ctx context.Context, address uint8, data []byte) (int, error) {
	ep := uint(address & 0x0F)
	for {
		if err := ctxErr(ctx); err != nil {
			return 0, err
		}
		n, err := h.ep.WritePacket(ep, data)
		if err == pkg.ErrBusy {
			continue
		}
		if err != nil {
			return 0, err
		}
		for {
			if err := ctxErr(ctx); err != nil {
				return 0, err
			}
			if h.usb.EPR(ep).Get()&mmio.USB_EPR_CTR_TX != 0 {
				h.usb.ClearCTRTX(ep)
				return n, nil
			}
		}
	}
}

// Stall stalls the given endpoint.
func (h *HAL) Stall(address uint8) error {
	ep := uint(address & 0x0F)
	if address&0x80 != 0 {
		h.usb.SetStatTX(ep, mmio.USB_EPR_STAT_TX_STALL)
	} else {
		h.usb.SetStatRX(ep, mmio.USB_EPR_STAT_RX_STALL)
	}
	return nil
}

// ClearStall clears a stall condition and resets the data toggle, then
// re-arms the endpoint for its normal direction.
func (h *HAL) ClearStall(address uint8) error {
	ep := uint(address & 0x0F)
	if address&0x80 != 0 {
		h.usb.ClearDTOGTX(ep)
		h.usb.SetStatTX(ep, mmio.USB_EPR_STAT_TX_NAK)
	} else {
		h.usb.ClearDTOGRX(ep)
		h.usb.SetStatRX(ep, mmio.USB_EPR_STAT_RX_VALID)
	}
	return nil
}

// IsConnected reports whether a bus reset has been observed since Start.
func (h *HAL) IsConnected() bool { return h.connected.Load() }

// GetSpeed always reports full speed; this peripheral has no other mode.
func (h *HAL) GetSpeed() hal.Speed { return hal.SpeedFull }

// WaitConnect blocks until the first bus reset is observed.
func (h *HAL) WaitConnect(ctx context.Context) error {
	for !h.connected.Load() {
		if err := ctxErr(ctx); err != nil {
			return err
		}
	}
	return nil
}

// WaitDisconnect blocks until the context is cancelled. This part has
// no VBUS-sense pin, so software has no way to observe a physical
// disconnect; only a cancelled context ends this wait.
func (h *HAL) WaitDisconnect(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
