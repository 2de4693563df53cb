package mmio

import (
	"sync"
	"unsafe"
)

// Peripheral base addresses (STM32F103, RM0008).
const (
	BaseRCC  uintptr = 0x40021000
	BaseAFIO uintptr = 0x40010000
	BaseEXTI uintptr = 0x40010400
	BaseGPIOA uintptr = 0x40010800
	BaseGPIOB uintptr = 0x40010C00
	BaseGPIOC uintptr = 0x40011000
	BaseSPI1 uintptr = 0x40013000
	BaseUSB  uintptr = 0x40005C00
	BasePMA  uintptr = 0x40006000
	BaseNVIC uintptr = 0xE000E100
	BaseTIM2 uintptr = 0x40000000
)

func reg8(addr uintptr) *Register8   { return (*Register8)(unsafe.Pointer(addr)) }
func reg16(addr uintptr) *Register16 { return (*Register16)(unsafe.Pointer(addr)) }
func reg32(addr uintptr) *Register32 { return (*Register32)(unsafe.Pointer(addr)) }

// Peripherals is the process-wide handle to every register bank the
// firmware touches. It is obtained exactly once via [Take]; nothing else
// constructs one against the real base addresses, so there is never more
// than one live view of a given peripheral in production firmware.
type Peripherals struct {
	RCC  RCC
	AFIO AFIO
	EXTI EXTI
	GPIOA GPIO
	GPIOB GPIO
	SPI1 SPI
	USB  USB
	NVIC NVIC
	TIM2 TIM
}

var (
	takeOnce sync.Once
	taken    *Peripherals
)

// Take returns the process-singleton peripheral handle, constructed
// against the real SoC base addresses. Calling it more than once panics:
// there is exactly one instance of each register bank in the universe and
// every caller must share it, per the take-once-token design in
// DESIGN.md.
func Take() *Peripherals {
	ok := false
	takeOnce.Do(func() {
		taken = newPeripherals(BaseRCC, BaseAFIO, BaseEXTI, BaseGPIOA, BaseGPIOB, BaseSPI1, BaseUSB, BasePMA, BaseNVIC, BaseTIM2)
		ok = true
	})
	if !ok {
		panic("mmio: Take called more than once")
	}
	return taken
}

// NewSimulated builds a Peripherals view over caller-supplied backing
// buffers instead of the real SoC addresses, for host-side property
// tests that exercise the register façade without touching silicon. Each
// buffer must be large enough to hold the peripheral's register block;
// callers are responsible for sizing and zeroing them.
func NewSimulated(rcc, afio, exti, gpioA, gpioB, spi1, usb, pma []byte) *Peripherals {
	return NewSimulatedWithTimer(rcc, afio, exti, gpioA, gpioB, spi1, usb, pma, nil)
}

var (
	simMu      sync.Mutex
	simBacking [][]byte
)

// NewSimulatedWithTimer is NewSimulated plus a backing buffer for TIM2, for
// tests that also exercise the board collaborator's delay stand-ins.
func NewSimulatedWithTimer(rcc, afio, exti, gpioA, gpioB, spi1, usb, pma, tim2 []byte) *Peripherals {
	base := func(b []byte) uintptr {
		if len(b) == 0 {
			return 0
		}
		return uintptr(unsafe.Pointer(&b[0]))
	}
	// NVIC has no test-relevant behavior of its own here (Enable/Disable
	// are fire-and-forget unmasks); give it a private scratch buffer so
	// button/usb tests that call through Setup() don't write to a null
	// simulated base.
	nvicScratch := make([]byte, 0x100)
	// The views hold only uintptr bases, which neither keep a buffer alive
	// nor keep it off a goroutine stack; retaining the slices here does both.
	simMu.Lock()
	simBacking = append(simBacking, rcc, afio, exti, gpioA, gpioB, spi1, usb, pma, tim2, nvicScratch)
	simMu.Unlock()
	return newPeripherals(base(rcc), base(afio), base(exti), base(gpioA), base(gpioB), base(spi1), base(usb), base(pma), base(nvicScratch), base(tim2))
}

func newPeripherals(rccBase, afioBase, extiBase, gpioABase, gpioBBase, spi1Base, usbBase, pmaBase, nvicBase, tim2Base uintptr) *Peripherals {
	return &Peripherals{
		RCC:   RCC{base: rccBase},
		AFIO:  AFIO{base: afioBase},
		EXTI:  EXTI{base: extiBase},
		GPIOA: GPIO{base: gpioABase},
		GPIOB: GPIO{base: gpioBBase},
		SPI1:  SPI{base: spi1Base},
		USB:   USB{base: usbBase, pmaBase: pmaBase},
		NVIC:  NVIC{base: nvicBase},
		TIM2:  TIM{base: tim2Base},
	}
}
