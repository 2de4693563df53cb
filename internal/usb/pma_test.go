package usb

import (
	"testing"

	"github.com/ardnew/paw3395-mouse/internal/mmio"
)

func newTestUSBRegs() mmio.USB {
	regs := make([]byte, 0x54)
	pma := make([]byte, 512)
	p := mmio.NewSimulated(nil, nil, nil, nil, nil, nil, regs, pma)
	return p.USB
}

func TestRXAllocDescriptorRounding(t *testing.T) {
	cases := []struct {
		size  uint16
		exact bool
	}{
		{0, true}, {1, true}, {2, true}, {62, true},
		{63, true}, {64, true}, {511, true}, {512, true},
	}
	for _, c := range cases {
		actual, code := rxAllocDescriptor(c.size)
		if actual < c.size {
			t.Errorf("size %d: actual %d < size", c.size, actual)
		}
		if c.size <= 62 {
			if actual%2 != 0 {
				t.Errorf("size %d: actual %d not a multiple of 2", c.size, actual)
			}
		} else if actual%32 != 0 {
			t.Errorf("size %d: actual %d not a multiple of 32", c.size, actual)
		}
		if got := rxAllocSize(code); got != actual {
			t.Errorf("size %d: code decodes to %d, want %d", c.size, got, actual)
		}
	}
}

func TestAllocatorMonotonicityAcrossRepeatedSetup(t *testing.T) {
	u := newTestUSBRegs()
	a := NewAllocator(u)

	run := func() []uint16 {
		a.Reset()
		var cursors []uint16
		if err := a.allocTX(0, 8); err != nil {
			t.Fatal(err)
		}
		cursors = append(cursors, a.Top())
		if _, err := a.allocRX(0, 8); err != nil {
			t.Fatal(err)
		}
		cursors = append(cursors, a.Top())
		if err := a.allocTX(1, 7); err != nil {
			t.Fatal(err)
		}
		cursors = append(cursors, a.Top())
		return cursors
	}

	first := run()
	second := run()
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("cursor[%d] = %d on first pass, %d on second", i, first[i], second[i])
		}
		if i > 0 && first[i] < first[i-1] {
			t.Errorf("cursor decreased at step %d", i)
		}
	}
	if first[len(first)-1] > pmaSize {
		t.Errorf("cursor %d exceeds PMA size %d", first[len(first)-1], pmaSize)
	}
}

func TestAllocatorRefusesOverflow(t *testing.T) {
	u := newTestUSBRegs()
	a := NewAllocator(u)

	if err := a.allocTX(0, pmaSize); err == nil {
		t.Fatal("expected overflow error")
	}
	if a.Top() != btableSize {
		t.Error("cursor should be unchanged after a refused allocation")
	}
}
