// Command mouse wires together the register façade, SPI transport,
// PAW3395 driver, button debouncer, and USB HID device stack into the
// bluepill firmware image, mirroring
// original_source/16-mouse/src/mouse.c:main.
package main

import (
	"context"

	"github.com/ardnew/paw3395-mouse/device"
	"github.com/ardnew/paw3395-mouse/internal/board"
	"github.com/ardnew/paw3395-mouse/internal/button"
	"github.com/ardnew/paw3395-mouse/internal/hid"
	"github.com/ardnew/paw3395-mouse/internal/mmio"
	"github.com/ardnew/paw3395-mouse/internal/paw3395"
	"github.com/ardnew/paw3395-mouse/internal/spi"
	"github.com/ardnew/paw3395-mouse/internal/usbhal"
	"github.com/ardnew/paw3395-mouse/pkg"
)

const (
	pinLNO = 9  // PA9, L_NO
	pinLNC = 10 // PA10, L_NC
	pinRNO = 8  // PA8, R_NO
	pinRNC = 12 // PB12, R_NC

	pinSPICS   = 4 // PA4, SPI1_CS
	pinSPISCK  = 5 // PA5, SPI1_SCK
	pinSPIMISO = 6 // PA6, SPI1_MISO
	pinSPIMOSI = 7 // PA7, SPI1_MOSI
)

const configValue = 1
const hidInterfaceNumber = 0

// gpioSetup programs the button inputs (pull-up, falling-edge capable)
// and the SPI1 pin block, matching mouse.c's gpio_setup.
func gpioSetup(b *board.Board, p *mmio.Peripherals) {
	p.GPIOA.SetCNF(pinLNC, mmio.CNFMODE_INPUT_PUPD)
	p.GPIOA.Set(mmio.Pin(pinLNC))

	p.GPIOA.SetCNF(pinLNO, mmio.CNFMODE_INPUT_PUPD)
	p.GPIOA.Set(mmio.Pin(pinLNO))

	p.GPIOB.SetCNF(pinRNC, mmio.CNFMODE_INPUT_PUPD)
	p.GPIOB.Set(mmio.Pin(pinRNC))

	p.GPIOA.SetCNF(pinRNO, mmio.CNFMODE_INPUT_PUPD)
	p.GPIOA.Set(mmio.Pin(pinRNO))

	p.GPIOA.SetCNF(pinSPICS, mmio.CNFMODE_OUTPUT_GP_PUSHPULL_50MHZ)
	b.GPIOSet(board.PortA, mmio.Pin(pinSPICS))

	p.GPIOA.SetCNF(pinSPISCK, mmio.CNFMODE_OUTPUT_AF_PUSHPULL_50MHZ)
	p.GPIOA.SetCNF(pinSPIMISO, mmio.CNFMODE_INPUT_FLOAT)
	p.GPIOA.SetCNF(pinSPIMOSI, mmio.CNFMODE_OUTPUT_AF_PUSHPULL_50MHZ)
}

// buildDevice assembles the device descriptor, string table, and
// composite HID configuration, matching mouse.c's device_descriptor /
// hid_mouse_cfg_block / strings.
func buildDevice(hidDriver *hid.Driver) (*device.Device, error) {
	builder := device.NewDeviceBuilder().
		WithDescriptor(&device.DeviceDescriptor{
			Length:         device.DeviceDescriptorSize,
			DescriptorType: device.DescriptorTypeDevice,
			USBVersion:     0x0200,
			MaxPacketSize0: 64,
			VendorID:       0x0483,
			ProductID:      0x572B,
			DeviceVersion:  0x0200,
		}).
		WithStrings("Hiiri Co.", "HID Mouse", "1337").
		AddConfiguration(configValue)

	hidDriver.ConfigureDevice(builder)

	return builder.Build(context.Background())
}

func main() {
	p := mmio.Take()
	b := board.New(p)

	b.SetSysclk72MHz()
	gpioSetup(b, p)
	b.SetupTimer()

	debouncer := button.New(p.AFIO, p.EXTI, p.NVIC)
	debouncer.Setup()

	spiMaster := spi.New(p.SPI1)
	spiMaster.Setup()

	csPin := b.NewPin(board.PortA, mmio.Pin(pinSPICS))
	sensor := paw3395.New(spiMaster, csPin, b)
	sensor.Init()
	sensor.SetDPI(hid.DefaultDPI)

	hidDriver := hid.New(sensor, debouncer)

	dev, err := buildDevice(hidDriver)
	if err != nil {
		pkg.LogError(pkg.ComponentBoard, "device build failed", "error", err)
		panic(err)
	}

	hal := usbhal.New(p.USB, p.RCC, p.GPIOA, b, uint16(dev.Descriptor.MaxPacketSize0))
	stack := device.NewStack(dev, hal)

	stack.SetOnConfigured(func(value uint8) {
		if value != configValue {
			return
		}
		if err := hidDriver.Attach(context.Background(), stack, configValue, hidInterfaceNumber); err != nil {
			pkg.LogError(pkg.ComponentHID, "attach failed", "error", err)
		}
	})

	ctx := context.Background()
	if err := stack.Start(ctx); err != nil {
		pkg.LogError(pkg.ComponentBoard, "usb stack start failed", "error", err)
		panic(err)
	}

	select {}
}
