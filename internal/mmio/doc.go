// Package mmio provides typed views of the STM32F103 memory-mapped
// peripheral registers used by this firmware: RCC, GPIO, AFIO, EXTI, NVIC,
// SPI1, and the USB full-speed device peripheral (including its packet
// memory area).
//
// Every peripheral is a struct of register-word accessors anchored at a
// base address; no field holds a stdlib numeric type wrapped in anything
// fancier than [Register8]/[Register16]/[Register32], matching the raw
// volatile-word style of the reference C headers this façade is grounded
// on. Under a TinyGo build these registers alias [runtime/volatile]'s
// register types and the base addresses are the real SoC addresses. Under
// the host `go test` toolchain (where runtime/volatile does not exist)
// the same field/method surface is backed by a plain, non-volatile word —
// sufficient for a single-goroutine simulated register bank in tests,
// never used on real hardware.
//
// The peripheral singletons are obtained once via [Take]; nothing else in
// this module constructs them against the real base addresses, which
// keeps the "process-singleton, take-once token" discipline the firmware
// depends on (see DESIGN.md).
package mmio
