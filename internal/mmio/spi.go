package mmio

// SPI is the SPIx register bank; this firmware only uses SPI1.
type SPI struct{ base uintptr }

const (
	offSPI_CR1 = 0x00
	offSPI_CR2 = 0x04
	offSPI_SR  = 0x08
	offSPI_DR  = 0x0C
)

func (s SPI) CR1() *Register32 { return reg32(s.base + offSPI_CR1) }
func (s SPI) CR2() *Register32 { return reg32(s.base + offSPI_CR2) }
func (s SPI) SR() *Register32  { return reg32(s.base + offSPI_SR) }
func (s SPI) DR() *Register16  { return reg16(s.base + offSPI_DR) }

// CR1 bits.
const (
	SPI_CR1_CPHA     = 1 << 0
	SPI_CR1_CPOL     = 1 << 1
	SPI_CR1_MSTR     = 1 << 2
	SPI_CR1_BR_DIV8  = 0b010 << 3
	SPI_CR1_SPE      = 1 << 6
	SPI_CR1_LSBFIRST = 1 << 7
	SPI_CR1_SSI      = 1 << 8
	SPI_CR1_SSM      = 1 << 9
	SPI_CR1_DFF      = 1 << 11
)

// CR2 bits.
const SPI_CR2_SSOE = 1 << 2

// SR bits.
const (
	SPI_SR_RXNE = 1 << 0
	SPI_SR_TXE  = 1 << 1
)
