// Package panel turns frames into pixels and shows them: on the SSD1306
// OLED over I2C, in a terminal simulator, or as log lines when no display
// is attached.
package panel

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/hammamikhairi/doorpanel/internal/domain"
)

// Face is the font every panel draws with. Metrics built from it agree
// with what Rasterize puts on screen.
var Face font.Face = basicfont.Face7x13

// Metrics measures text in Face.
type Metrics struct {
	face font.Face
}

// Compile-time check.
var _ domain.Metrics = (*Metrics)(nil)

// NewMetrics returns metrics for face. A nil face yields metrics that fail
// every measurement.
func NewMetrics(face font.Face) *Metrics {
	return &Metrics{face: face}
}

// MeasureWidth returns the advance width of text in whole pixels.
func (m *Metrics) MeasureWidth(text string) (int, error) {
	if m == nil || m.face == nil {
		return 0, domain.ErrMetricsUnavailable
	}
	return font.MeasureString(m.face, text).Ceil(), nil
}

// Rasterize draws f into a 1-bit image of the frame's size.
func Rasterize(f domain.Frame, face font.Face) (*image1bit.VerticalLSB, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("rasterize: bad frame size %dx%d", f.Width, f.Height)
	}
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, f.Width, f.Height))

	for _, op := range f.Ops {
		switch op.Kind {
		case domain.OpText:
			d := font.Drawer{
				Dst:  img,
				Src:  &image.Uniform{C: image1bit.On},
				Face: face,
				Dot:  fixed.P(op.X, op.Y),
			}
			d.DrawString(op.Text)
		case domain.OpLine:
			line(img, op.X, op.Y, op.X2, op.Y2)
		}
	}
	return img, nil
}

// line plots a Bresenham line. Points outside the image are dropped.
func line(img *image1bit.VerticalLSB, x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		if image.Pt(x0, y0).In(img.Rect) {
			img.SetBit(x0, y0, image1bit.On)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
