// Package spi drives SPI1 as a full-duplex master for the PAW3395 sensor
// link: chip select is managed in software over plain GPIO, the clock
// runs in mode 3 (CPOL=1, CPHA=1), MSB-first, 8-bit frames.
package spi

import "github.com/ardnew/paw3395-mouse/internal/mmio"

// Master wraps an SPI1 register view.
type Master struct {
	spi mmio.SPI
}

// New wraps an SPI register bank (mmio.Peripherals.SPI1 in production,
// or a simulated view in tests).
func New(spi mmio.SPI) *Master {
	return &Master{spi: spi}
}

// Setup programs CR1/CR2 exactly as the reference firmware does: clock
// divide-by-8, mode 3, 8-bit MSB-first frames, software NSS management,
// master mode, peripheral enabled last.
func (m *Master) Setup() {
	cr1 := m.spi.CR1()
	cr1.Set((cr1.Get() &^ uint32(0b111<<3)) | mmio.SPI_CR1_BR_DIV8)
	cr1.SetBits(mmio.SPI_CR1_CPOL)
	cr1.SetBits(mmio.SPI_CR1_CPHA)
	cr1.ClearBits(mmio.SPI_CR1_DFF)
	cr1.ClearBits(mmio.SPI_CR1_LSBFIRST)

	cr1.SetBits(mmio.SPI_CR1_MSTR)

	cr1.SetBits(mmio.SPI_CR1_SSM)
	m.spi.CR2().ClearBits(mmio.SPI_CR2_SSOE)

	// NSS is managed by board GPIO, not the peripheral; SSI must still be
	// forced high under SSM or MSTR/SPE get silently cleared (rm0008
	// 25.3.3).
	cr1.SetBits(mmio.SPI_CR1_SSI)

	cr1.SetBits(mmio.SPI_CR1_SPE)
}

// Transfer clocks out data and returns whatever comes back on MISO
// during the same frame, busy-waiting on TXE/RXNE. SPI is a shift
// register: every byte written is accompanied by a byte read.
func (m *Master) Transfer(data uint16) uint16 {
	for m.spi.SR().Get()&mmio.SPI_SR_TXE == 0 {
	}
	m.spi.DR().Set(data)
	for m.spi.SR().Get()&mmio.SPI_SR_RXNE == 0 {
	}
	return m.spi.DR().Get()
}
