//go:build !tinygo

package mmio

// Register8/16/32 simulate the [runtime/volatile] register types for the
// host test toolchain, which has no runtime/volatile package. They are
// never used on real hardware; property tests construct peripheral
// structs over an ordinary Go-heap buffer standing in for the register
// bank (see e.g. mmio_test.go). Reads and writes are plain memory
// accesses: a write stores its value as-is, with none of the
// toggle-on-write-1, write-0-to-clear or BSRR set/reset behavior of the
// real registers.

type Register8 struct{ v uint8 }

func (r *Register8) Get() uint8           { return r.v }
func (r *Register8) Set(v uint8)          { r.v = v }
func (r *Register8) SetBits(bits uint8)   { r.v |= bits }
func (r *Register8) ClearBits(bits uint8) { r.v &^= bits }
func (r *Register8) HasBits(bits uint8) bool {
	return r.v&bits != 0
}

type Register16 struct{ v uint16 }

func (r *Register16) Get() uint16           { return r.v }
func (r *Register16) Set(v uint16)          { r.v = v }
func (r *Register16) SetBits(bits uint16)   { r.v |= bits }
func (r *Register16) ClearBits(bits uint16) { r.v &^= bits }
func (r *Register16) HasBits(bits uint16) bool {
	return r.v&bits != 0
}

type Register32 struct{ v uint32 }

func (r *Register32) Get() uint32           { return r.v }
func (r *Register32) Set(v uint32)          { r.v = v }
func (r *Register32) SetBits(bits uint32)   { r.v |= bits }
func (r *Register32) ClearBits(bits uint32) { r.v &^= bits }
func (r *Register32) HasBits(bits uint32) bool {
	return r.v&bits != 0
}
