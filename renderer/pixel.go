package renderer

import (
	"image/color"

	"github.com/pthm-cable/fluidpanel/fluid"
)

// Pixel is a 16-bit RGB565 panel pixel.
type Pixel uint16

// Quantize maps a colour intensity to a byte. Values outside [0, 1] saturate.
func Quantize(c fluid.Scalar) uint8 {
	if !(c > 0) { // also catches NaN
		return 0
	}
	if c >= 1 {
		return 255
	}
	return uint8(c * 255)
}

// PackRGB565 keeps the top 5, 6 and 5 bits of red, green and blue.
func PackRGB565(r, g, b uint8) Pixel {
	return Pixel(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

// RGBA expands the pixel back to 8 bits per channel, replicating high bits into the
// low ones so full scale maps to 255.
func (p Pixel) RGBA() color.RGBA {
	r := uint8(p>>11) & 0x1F
	g := uint8(p>>5) & 0x3F
	b := uint8(p) & 0x1F
	return color.RGBA{
		R: r<<3 | r>>2,
		G: g<<2 | g>>4,
		B: b<<3 | b>>2,
		A: 0xFF,
	}
}
