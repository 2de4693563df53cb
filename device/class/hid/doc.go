// Package hid implements the USB Human Interface Device class driver this
// firmware attaches to its single interface: a report-protocol, no-boot-
// subclass device whose report descriptor is supplied by the caller
// (internal/hid builds one for a 7-byte mouse report).
//
// # Architecture
//
// The HID interface carries one Interrupt IN endpoint for input reports
// and the HID/Report class descriptors GET_DESCRIPTOR serves alongside the
// standard device/configuration/string descriptors. There is no Interrupt
// OUT endpoint: this mouse takes no host-to-device reports.
//
// # Usage
//
//	driver := hid.New(reportDescriptor)
//	iface.SetClassDriver(driver)
//	driver.SetStack(stack)
//	stack.Start(ctx)
//	driver.SendReport(ctx, reportBytes)
package hid
