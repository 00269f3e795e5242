package terrain

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
)

// Image renders the collision map as 8-bit gray, one pixel per sample, the
// integer part of each height clamped to 0..255. With flip the first pixel
// row is drawn at the bottom, as the game's map viewer does.
func (c *CollisionMap) Image(flip bool) (*image.Gray, error) {
	w, h := c.Width(), c.Height()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for px := 0; px < w; px++ {
		for py := 0; py < h; py++ {
			v, err := c.Pixel(px, py)
			if err != nil {
				return nil, err
			}
			row := py
			if flip {
				row = h - 1 - py
			}
			img.SetGray(px, row, color.Gray{Y: clampByte(v)})
		}
	}
	return img, nil
}

func clampByte(v float64) uint8 {
	n := int(v)
	switch {
	case n < 0:
		return 0
	case n > 255:
		return 255
	default:
		return uint8(n)
	}
}

// WriteImage renders the map and encodes it as "png" or "bmp".
func (c *CollisionMap) WriteImage(w io.Writer, format string, flip bool) error {
	img, err := c.Image(flip)
	if err != nil {
		return err
	}
	switch strings.ToLower(format) {
	case "png":
		return png.Encode(w, img)
	case "bmp":
		return bmp.Encode(w, img)
	default:
		return fmt.Errorf("unsupported image format %q", format)
	}
}
