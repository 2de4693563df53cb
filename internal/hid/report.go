// Package hid implements the mouse's HID class behavior: the 7-byte
// report layout, the boot-style report descriptor, and the periodic
// report generator that samples the PAW3395 motion burst and the button
// debouncer's published state once per report interval.
package hid

import "encoding/binary"

// ReportSize is the size in bytes of one HID input report.
const ReportSize = 7

// Button bits in Report.Buttons (byte 0, bits 0-1; bits 2-7 are padding).
const (
	ButtonLeft  = 1 << 0
	ButtonRight = 1 << 1
)

// Report is the 7-byte mouse input report: one button byte followed by
// three little-endian int16 axes (X, Y, wheel).
type Report struct {
	Buttons uint8
	X       int16
	Y       int16
	Wheel   int16
}

// MarshalTo writes the report to buf, which must be at least ReportSize
// bytes. Returns the number of bytes written, or 0 if buf is too small.
func (r *Report) MarshalTo(buf []byte) int {
	if len(buf) < ReportSize {
		return 0
	}
	buf[0] = r.Buttons
	binary.LittleEndian.PutUint16(buf[1:3], uint16(r.X))
	binary.LittleEndian.PutUint16(buf[3:5], uint16(r.Y))
	binary.LittleEndian.PutUint16(buf[5:7], uint16(r.Wheel))
	return ReportSize
}

// ReportDescriptor is the boot-style 2-button mouse report descriptor
// with 16-bit relative X/Y/wheel axes and a trailing Motion Wakeup usage,
// byte-identical to the reference firmware's hid_mouse_report_descriptor.
var ReportDescriptor = []byte{
	0x05, 0x01, //       USAGE_PAGE (Generic Desktop)
	0x09, 0x02, //       USAGE (Mouse)
	0xa1, 0x01, //       COLLECTION (Application)
	0x09, 0x01, //         USAGE (Pointer)
	0xa1, 0x00, //         COLLECTION (Physical)
	0x05, 0x09, //           USAGE_PAGE (Button)
	0x19, 0x01, //           USAGE_MINIMUM (Button 1)
	0x29, 0x02, //           USAGE_MAXIMUM (Button 2)
	0x15, 0x00, //           LOGICAL_MINIMUM (0)
	0x25, 0x01, //           LOGICAL_MAXIMUM (1)
	0x95, 0x02, //           REPORT_COUNT (2)
	0x75, 0x01, //           REPORT_SIZE (1)
	0x81, 0x02, //           INPUT (Data,Var,Abs)
	0x95, 0x01, //           REPORT_COUNT (1)
	0x75, 0x06, //           REPORT_SIZE (6)
	0x81, 0x01, //           INPUT (Cnst,Ary,Abs)
	0x05, 0x01, //           USAGE_PAGE (Generic Desktop)
	0x09, 0x30, //           USAGE (X)
	0x09, 0x31, //           USAGE (Y)
	0x09, 0x38, //           USAGE (Wheel)
	0x16, 0x01, 0x80, //     LOGICAL_MINIMUM (-32767)
	0x26, 0xff, 0x7f, //     LOGICAL_MAXIMUM (32767)
	0x95, 0x03, //           REPORT_COUNT (3)
	0x75, 0x10, //           REPORT_SIZE (16)
	0x81, 0x06, //           INPUT (Data,Var,Rel)
	0xc0, //               END_COLLECTION
	0x09, 0x3c, //         USAGE (Motion Wakeup)
	0xc0, //             END_COLLECTION
}
