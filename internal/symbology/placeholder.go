package symbology

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

// FormatPlaceholder marks an image that stands in for a barcode while no
// ticket is loaded.
const FormatPlaceholder Format = "placeholder"

var placeholderStripe = color.Gray{Y: 0xd8}

// Placeholder draws a striped loading image of the given size.
func Placeholder(width, height int) (Image, error) {
	if width <= 0 || height <= 0 {
		return Image{}, fmt.Errorf("%w: placeholder size %dx%d", ErrGenerate, width, height)
	}

	img := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	stripe := max(height/8, 1)
	for y := 0; y < height; y += 2 * stripe {
		rect := image.Rect(0, y, width, min(y+stripe, height))
		draw.Draw(img, rect, image.NewUniform(placeholderStripe), image.Point{}, draw.Src)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Image{}, fmt.Errorf("%w: png: %v", ErrGenerate, err)
	}
	return Image{
		Format: FormatPlaceholder,
		PNG:    buf.Bytes(),
		Width:  width,
		Height: height,
	}, nil
}
