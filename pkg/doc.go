// Package pkg provides shared utilities for the PAW3395 mouse firmware.
//
// This package contains common functionality used across the register
// façade, the protocol core, and the application layer, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error types for the USB/sensor protocol taxonomy
//   - Component identifiers for log filtering
//   - A ProgrammerError assertion helper for boot-time invariants
//
// The package is designed to have zero external dependencies, relying
// only on the Go standard library.
//
// # Logging
//
// The logging subsystem wraps [log/slog] with firmware-specific context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentUSB, "device configured", "config", 1)
//
// # Errors
//
// Common errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrStall) {
//	    // Handle endpoint stall
//	}
//
// Boot-time invariants use [MustFit], which panics with a
// [ProgrammerError] rather than propagating an error value, since there
// is no sensible recovery from a misconfigured peripheral table.
package pkg
