package hid

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ardnew/paw3395-mouse/device"
	hidclass "github.com/ardnew/paw3395-mouse/device/class/hid"
	"github.com/ardnew/paw3395-mouse/internal/paw3395"
	"github.com/ardnew/paw3395-mouse/pkg"
)

// DefaultInterval is the endpoint's default bInterval in milliseconds,
// matching the reference firmware's final, hardware-integrated revision
// (original_source/16-mouse/src/mouse.c sets bInterval = 0x1).
const DefaultInterval = 1

// DefaultDPI is the sensor resolution programmed at boot.
const DefaultDPI = 800

// EndpointAddress is the interrupt IN endpoint the mouse report is
// delivered on.
const EndpointAddress = 0x81

// MotionFunc samples one motion delta. SensorMotion adapts a real
// PAW3395 sensor to it; tests inject a scripted generator directly,
// matching the self-test oscillator of an earlier firmware revision
// (original_source/14-usbhid/src/usbhid.c).
type MotionFunc func() (dx, dy int16)

// SensorMotion adapts a PAW3395 sensor to MotionFunc by reading one
// motion burst per call.
func SensorMotion(s *paw3395.Sensor) MotionFunc {
	var buf [paw3395.BurstSize]byte
	return func() (int16, int16) {
		s.MotionBurst(buf[:])
		return paw3395.Delta(buf[:])
	}
}

// Buttons reports the debounced left/right button state; satisfied by
// internal/button.Debouncer.
type Buttons interface {
	LClick() bool
	RClick() bool
}

// DPISetter programs sensor resolution; satisfied by *paw3395.Sensor.
type DPISetter interface {
	SetDPI(cpi uint16)
}

// Driver is the HID class application: it owns the report descriptor,
// the class driver's endpoint plumbing, and the periodic report pump
// that replaces the reference firmware's CTR_IN-chained send_hid_report.
type Driver struct {
	hid     *hidclass.HID
	buttons Buttons
	motion  MotionFunc
	dpi     DPISetter

	intervalMS atomic.Uint32
	stack      *device.Stack
}

// New builds the HID driver over a real PAW3395 sensor and button
// debouncer.
func New(sensor *paw3395.Sensor, buttons Buttons) *Driver {
	return NewWithGenerator(SensorMotion(sensor), buttons, sensor)
}

// NewWithGenerator builds the HID driver with a caller-supplied motion
// source instead of a real sensor, so host-side tests can script motion
// without silicon.
func NewWithGenerator(motion MotionFunc, buttons Buttons, dpi DPISetter) *Driver {
	d := &Driver{
		hid:     hidclass.New(ReportDescriptor),
		buttons: buttons,
		motion:  motion,
		dpi:     dpi,
	}
	d.intervalMS.Store(DefaultInterval)
	return d
}

// ClassDriver returns the underlying device.ClassDriver, for attaching
// to the HID interface via Interface.SetClassDriver.
func (d *Driver) ClassDriver() device.ClassDriver { return d.hid }

// ConfigureDevice adds the HID interface and its interrupt IN endpoint
// (sized to the 7-byte report, not the class driver helper's generic
// 8-byte default) to a device builder, and attaches this driver as the
// interface's class driver once the device is built.
func (d *Driver) ConfigureDevice(builder *device.DeviceBuilder) *device.DeviceBuilder {
	builder.AddInterface(hidclass.ClassHID, hidclass.SubclassNone, hidclass.ProtocolNone).
		AddEndpoint(EndpointAddress, device.EndpointTypeInterrupt, ReportSize)
	return builder
}

// Attach binds the driver to its interface's endpoint (set up by
// ConfigureDevice) within configValue, registers the vendor DPI/
// bInterval request, and starts the report pump. Mirrors
// hid_set_configuration's three jobs: bind endpoint 0x81, register a
// report-descriptor override (here, the class driver's own
// HandleSetup), and prime the first report.
func (d *Driver) Attach(ctx context.Context, stack *device.Stack, configValue, ifaceNum uint8) error {
	config := stack.Device().GetConfiguration(configValue)
	if config == nil {
		return pkg.ErrInvalidRequest
	}
	iface := config.GetInterface(ifaceNum)
	if iface == nil {
		return pkg.ErrInvalidRequest
	}
	if ep := iface.GetEndpoint(EndpointAddress); ep != nil {
		ep.Interval = uint8(d.intervalMS.Load())
	}
	d.hid.SetStack(stack)
	if err := iface.SetClassDriver(d.hid); err != nil {
		return err
	}

	d.stack = stack
	stack.SetVendorHandler(d.handleVendorRequest)
	go d.pump(ctx)
	return nil
}

// handleVendorRequest implements the vendor-specific DPI/bInterval
// request: bmRequestType=0x40, bRequest=0x01, wValue=dpi, wIndex=
// bInterval. A nonzero wIndex requests a new polling interval, applied
// by restarting the stack rather than by a physical disconnect.
func (d *Driver) handleVendorRequest(setup *device.SetupPacket, data []byte) ([]byte, bool, error) {
	const (
		vendorRequestType = device.RequestDirectionHostToDevice | device.RequestTypeVendor | device.RequestRecipientDevice
		vendorRequest     = 0x01
	)
	if setup.RequestType != vendorRequestType || setup.Request != vendorRequest {
		return nil, false, nil
	}

	dpi := setup.Value
	bInterval := uint8(setup.Index)

	pkg.LogInfo(pkg.ComponentHID, "vendor DPI request", "dpi", dpi, "bInterval", bInterval)

	if dpi > 0 {
		d.dpi.SetDPI(dpi)
	}
	if bInterval > 0 {
		d.intervalMS.Store(uint32(bInterval))
		if ep := d.stack.Device().GetEndpoint(EndpointAddress); ep != nil {
			ep.Interval = bInterval
		}
		d.restart()
	}

	return nil, true, nil
}

// restart queues a full stack restart so the new bInterval takes effect,
// mirroring the reference firmware's usb_stop -> usb_init -> usb_start
// sequence. Run asynchronously: the caller is the control-transfer
// goroutine itself, mid-dispatch, and Stop cancels the context that
// goroutine is blocking on.
func (d *Driver) restart() {
	stack := d.stack
	go func() {
		if err := stack.Stop(); err != nil {
			pkg.LogWarn(pkg.ComponentHID, "restart: stop failed", "error", err)
			return
		}
		if err := stack.Start(context.Background()); err != nil {
			pkg.LogWarn(pkg.ComponentHID, "restart: start failed", "error", err)
		}
	}()
}

// pump is the report generator: it sends one HID report per configured
// interval, sampling the motion source and button state on each tick.
// This replaces the reference firmware's CTR_IN-chained send_hid_report
// (each IN completion re-arming the next send) with a single goroutine
// that paces itself and blocks in SendReport until the HAL reports the
// previous packet acked.
func (d *Driver) pump(ctx context.Context) {
	var report Report
	var buf [ReportSize]byte

	ticker := time.NewTicker(time.Duration(d.intervalMS.Load()) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if interval := time.Duration(d.intervalMS.Load()) * time.Millisecond; interval > 0 {
			ticker.Reset(interval)
		}

		dx, dy := d.motion()

		report.Buttons = 0
		if d.buttons.LClick() {
			report.Buttons |= ButtonLeft
		}
		if d.buttons.RClick() {
			report.Buttons |= ButtonRight
		}
		report.X = dx
		report.Y = dy
		report.Wheel = 0

		report.MarshalTo(buf[:])
		if err := d.hid.SendReport(ctx, buf[:]); err != nil {
			if ctx.Err() != nil {
				return
			}
			pkg.LogWarn(pkg.ComponentHID, "send report failed", "error", err)
		}
	}
}
