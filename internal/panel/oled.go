package panel

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/font"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"

	"github.com/hammamikhairi/doorpanel/internal/domain"
	"github.com/hammamikhairi/doorpanel/internal/logger"
)

// Compile-time check.
var _ domain.Panel = (*OLED)(nil)

// OLED drives an SSD1306-compatible monochrome panel over I2C.
type OLED struct {
	log  *logger.Logger
	face font.Face

	mu   sync.Mutex
	bus  i2c.BusCloser
	dev  *ssd1306.Dev
	last []byte // previously pushed bitmap
}

// OpenOLED initializes the host drivers and opens the panel on the named
// I2C bus ("" picks the first one). Any failure to reach the hardware is
// reported as domain.ErrNoDevice.
func OpenOLED(busName string, width, height int, log *logger.Logger) (*OLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: host init: %v", domain.ErrNoDevice, err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("%w: opening i2c bus %q: %v", domain.ErrNoDevice, busName, err)
	}

	opts := ssd1306.DefaultOpts
	opts.W = width
	opts.H = height
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("%w: ssd1306 on %s: %v", domain.ErrNoDevice, bus, err)
	}

	log.Info("oled %dx%d on %s", width, height, bus)
	return &OLED{log: log, face: Face, bus: bus, dev: dev}, nil
}

// Show rasterizes f and pushes it to the panel. Frames identical to the
// previous one are not resent.
func (o *OLED) Show(f domain.Frame) error {
	img, err := Rasterize(f, o.face)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.dev == nil {
		return domain.ErrClosed
	}
	if bytes.Equal(img.Pix, o.last) {
		return nil
	}
	if err := o.dev.Draw(o.dev.Bounds(), img, image.Point{}); err != nil {
		return fmt.Errorf("oled draw: %w", err)
	}
	o.last = append(o.last[:0], img.Pix...)
	return nil
}

// Close blanks the panel and releases the bus.
func (o *OLED) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.dev == nil {
		return nil
	}
	var errs []error
	if err := o.dev.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("oled halt: %w", err))
	}
	if err := o.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing i2c bus: %w", err))
	}
	o.dev = nil
	o.bus = nil
	o.log.Debug("oled closed")
	return errors.Join(errs...)
}
