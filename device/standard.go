package device

import (
	"encoding/binary"

	"github.com/ardnew/paw3395-mouse/pkg"
)

// MaxDescriptorResponseSize is the maximum size for descriptor responses.
// This covers the largest typical configuration descriptor.
const MaxDescriptorResponseSize = 512

// requestHandlerFunc answers one standard control request for a given
// recipient. A nil error means the response (possibly nil, for a
// status-only ack) is final; pkg.ErrInvalidRequest tells HandleSetup the
// request is recognized but currently rejected.
type requestHandlerFunc func(setup *SetupPacket) ([]byte, error)

// requestKey identifies a standard request by recipient and request code,
// the same (recipient, bRequest) pair original_source/14-usbhid/src/usbhid.c
// matches against when it walks its ep0 handler table looking for the first
// entry whose mask/match bits fit an incoming SETUP packet.
type requestKey struct {
	recipient uint8
	request   uint8
}

// StandardRequestHandler answers the chapter 9 control requests this
// single-configuration, full-speed-only mouse ever receives. Requests are
// registered into a table keyed by recipient and request code rather than
// dispatched through a nested switch, mirroring the reference firmware's
// usb_register_ep0_req_handler idiom: adding a request means adding a table
// entry, not editing a dispatch tree.
type StandardRequestHandler struct {
	device *Device

	handlers map[requestKey]requestHandlerFunc

	// Pre-allocated response buffer to avoid allocations on the hot path.
	// The slice HandleSetup returns references this buffer.
	responseBuf [MaxDescriptorResponseSize]byte
}

// NewStandardRequestHandler builds the request table for dev.
func NewStandardRequestHandler(dev *Device) *StandardRequestHandler {
	h := &StandardRequestHandler{device: dev}
	h.handlers = map[requestKey]requestHandlerFunc{
		{RequestRecipientDevice, RequestGetStatus}:        h.getDeviceStatus,
		{RequestRecipientDevice, RequestClearFeature}:     h.clearDeviceFeature,
		{RequestRecipientDevice, RequestSetFeature}:       h.setDeviceFeature,
		{RequestRecipientDevice, RequestSetAddress}:       h.setAddress,
		{RequestRecipientDevice, RequestGetDescriptor}:    h.getDescriptor,
		{RequestRecipientDevice, RequestGetConfiguration}: h.getConfiguration,
		{RequestRecipientDevice, RequestSetConfiguration}: h.setConfiguration,

		{RequestRecipientInterface, RequestGetStatus}:    h.getInterfaceStatus,
		{RequestRecipientInterface, RequestGetInterface}: h.getInterface,
		{RequestRecipientInterface, RequestSetInterface}: h.setInterface,

		{RequestRecipientEndpoint, RequestGetStatus}:    h.getEndpointStatus,
		{RequestRecipientEndpoint, RequestClearFeature}: h.clearEndpointFeature,
		{RequestRecipientEndpoint, RequestSetFeature}:   h.setEndpointFeature,
	}
	return h
}

// HandleSetup looks up setup's (recipient, request) in the table and
// invokes the matching handler. An unregistered combination - including
// every request this mouse has no use for, such as SYNCH_FRAME or a
// device qualifier lookup on a part that never negotiates high speed -
// falls straight through to pkg.ErrInvalidRequest, the same defer-to-caller
// behavior usbhid.c gets from USB_REQ_DEFER.
func (h *StandardRequestHandler) HandleSetup(setup *SetupPacket, data []byte) ([]byte, error) {
	if !setup.IsStandard() {
		return nil, pkg.ErrInvalidRequest
	}

	fn, ok := h.handlers[requestKey{setup.Recipient(), setup.Request}]
	if !ok {
		return nil, pkg.ErrInvalidRequest
	}
	return fn(setup)
}

// getDeviceStatus returns device status (2 bytes).
func (h *StandardRequestHandler) getDeviceStatus(setup *SetupPacket) ([]byte, error) {
	if setup.Length < 2 {
		return nil, pkg.ErrInvalidRequest
	}

	status := h.device.GetStatus()
	binary.LittleEndian.PutUint16(h.responseBuf[:2], uint16(status))
	return h.responseBuf[:2], nil
}

// clearDeviceFeature clears a device feature. Remote wakeup is the only
// one this mouse exposes; it is never armed on the FS-only D+ pull-up
// trick this stack uses for reconnect, but the host is still free to ask.
func (h *StandardRequestHandler) clearDeviceFeature(setup *SetupPacket) ([]byte, error) {
	if setup.Value != FeatureDeviceRemoteWakeup {
		return nil, pkg.ErrInvalidRequest
	}
	h.device.EnableRemoteWakeup(false)
	return nil, nil
}

// setDeviceFeature sets a device feature.
func (h *StandardRequestHandler) setDeviceFeature(setup *SetupPacket) ([]byte, error) {
	switch setup.Value {
	case FeatureDeviceRemoteWakeup:
		h.device.EnableRemoteWakeup(true)
		return nil, nil
	case FeatureTestMode:
		return nil, pkg.ErrNotSupported
	default:
		return nil, pkg.ErrInvalidRequest
	}
}

// setAddress handles SET_ADDRESS. The new address only takes effect once
// the status stage completes (see Stack.completeSetup); the 7-bit mask
// matches the reserved top bit of wValue per USB 2.0 9.4.6.
func (h *StandardRequestHandler) setAddress(setup *SetupPacket) ([]byte, error) {
	address := uint8(setup.Value & 0x7F)
	if err := h.device.SetAddress(address); err != nil {
		return nil, err
	}
	return nil, nil
}

// getDescriptor handles GET_DESCRIPTOR for the three descriptor types a
// full-speed, single-configuration device actually serves. There is no
// device-qualifier or other-speed-configuration branch: this part never
// negotiates anything but full speed, so those USB 2.0 dual-speed
// descriptors have no value to report.
func (h *StandardRequestHandler) getDescriptor(setup *SetupPacket) ([]byte, error) {
	descType := setup.DescriptorType()
	descIndex := setup.DescriptorIndex()
	maxLen := int(setup.Length)

	var n int

	switch descType {
	case DescriptorTypeDevice:
		n = h.device.Descriptor.MarshalTo(h.responseBuf[:])

	case DescriptorTypeConfiguration:
		config := h.device.GetConfiguration(descIndex + 1)
		if config == nil {
			return nil, pkg.ErrInvalidRequest
		}
		n = config.MarshalTo(h.responseBuf[:])

	case DescriptorTypeString:
		data := h.device.GetString(descIndex)
		if data == nil {
			return nil, pkg.ErrInvalidRequest
		}
		// String descriptors are pre-encoded, copy to response buffer
		n = copy(h.responseBuf[:], data)

	default:
		return nil, pkg.ErrInvalidRequest
	}

	if n == 0 {
		return nil, pkg.ErrBufferTooSmall
	}

	if n > maxLen {
		n = maxLen
	}
	return h.responseBuf[:n], nil
}

// getConfiguration handles GET_CONFIGURATION request.
func (h *StandardRequestHandler) getConfiguration(setup *SetupPacket) ([]byte, error) {
	config := h.device.ActiveConfiguration()
	if config == nil {
		return []byte{0}, nil
	}
	return []byte{config.Value}, nil
}

// setConfiguration handles SET_CONFIGURATION request.
func (h *StandardRequestHandler) setConfiguration(setup *SetupPacket) ([]byte, error) {
	configValue := uint8(setup.Value & 0xFF)
	if err := h.device.SetConfiguration(configValue); err != nil {
		return nil, err
	}
	return nil, nil
}

// getInterfaceStatus returns interface status (2 bytes, always zero).
func (h *StandardRequestHandler) getInterfaceStatus(setup *SetupPacket) ([]byte, error) {
	if setup.Length < 2 {
		return nil, pkg.ErrInvalidRequest
	}

	ifaceNum := setup.InterfaceNumber()
	if h.device.GetInterface(ifaceNum) == nil {
		return nil, pkg.ErrInvalidRequest
	}

	// Interface status is reserved (zero)
	return []byte{0, 0}, nil
}

// getInterface handles GET_INTERFACE. The HID interface has exactly one
// alternate setting (0); the host still needs a valid answer, since some
// stacks query it unconditionally during enumeration.
func (h *StandardRequestHandler) getInterface(setup *SetupPacket) ([]byte, error) {
	ifaceNum := setup.InterfaceNumber()
	iface := h.device.GetInterface(ifaceNum)
	if iface == nil {
		return nil, pkg.ErrInvalidRequest
	}
	return []byte{iface.AlternateSetting}, nil
}

// setInterface handles SET_INTERFACE request.
func (h *StandardRequestHandler) setInterface(setup *SetupPacket) ([]byte, error) {
	ifaceNum := setup.InterfaceNumber()
	altSetting := uint8(setup.Value & 0xFF)

	iface := h.device.GetInterface(ifaceNum)
	if iface == nil {
		return nil, pkg.ErrInvalidRequest
	}

	if err := iface.SetAlternate(altSetting); err != nil {
		return nil, err
	}
	return nil, nil
}

// getEndpointStatus returns endpoint status (2 bytes).
func (h *StandardRequestHandler) getEndpointStatus(setup *SetupPacket) ([]byte, error) {
	if setup.Length < 2 {
		return nil, pkg.ErrInvalidRequest
	}

	epAddr := setup.EndpointAddress()
	ep := h.device.GetEndpoint(epAddr)
	if ep == nil {
		return nil, pkg.ErrInvalidEndpoint
	}

	var status uint16
	if ep.IsStalled() {
		status = 1 // Halt bit
	}
	binary.LittleEndian.PutUint16(h.responseBuf[:2], status)
	return h.responseBuf[:2], nil
}

// clearEndpointFeature clears an endpoint feature: ENDPOINT_HALT on the
// interrupt IN endpoint, the one a host uses to recover from a stall
// without a full bus reset.
func (h *StandardRequestHandler) clearEndpointFeature(setup *SetupPacket) ([]byte, error) {
	if setup.Value != FeatureEndpointHalt {
		return nil, pkg.ErrInvalidRequest
	}

	epAddr := setup.EndpointAddress()
	ep := h.device.GetEndpoint(epAddr)
	if ep == nil {
		return nil, pkg.ErrInvalidEndpoint
	}

	ep.SetStall(false)
	ep.ResetDataToggle()
	return nil, nil
}

// setEndpointFeature sets an endpoint feature.
func (h *StandardRequestHandler) setEndpointFeature(setup *SetupPacket) ([]byte, error) {
	if setup.Value != FeatureEndpointHalt {
		return nil, pkg.ErrInvalidRequest
	}

	epAddr := setup.EndpointAddress()
	ep := h.device.GetEndpoint(epAddr)
	if ep == nil {
		return nil, pkg.ErrInvalidEndpoint
	}

	ep.SetStall(true)
	return nil, nil
}
