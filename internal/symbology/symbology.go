// Package symbology renders barcode payloads into PNG images.
package symbology

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/pdf417"
	qrcode "github.com/skip2/go-qrcode"
)

// Format is a barcode symbology.
type Format string

const (
	FormatQR     Format = "qr"
	FormatPDF417 Format = "pdf417"
)

const (
	DefaultSize = 320
	// PDF417 images are padded to at most this width to height ratio.
	pdf417AspectRatio = 4
	// Error correction level of PDF417 symbols.
	pdf417SecurityLevel = 2
)

var (
	ErrGenerate     = errors.New("symbology: generation failed")
	ErrEmptyContent = fmt.Errorf("%w: empty content", ErrGenerate)
)

// Image is a rendered barcode.
type Image struct {
	Format  Format
	Content string
	PNG     []byte
	Width   int
	Height  int
}

// Renderer turns barcode content into images.
type Renderer interface {
	RenderQR(content string) (Image, error)
	RenderPDF417(content string) (Image, error)
}

// Render dispatches on format.
func Render(r Renderer, format Format, content string) (Image, error) {
	switch format {
	case FormatQR:
		return r.RenderQR(content)
	case FormatPDF417:
		return r.RenderPDF417(content)
	}
	return Image{}, fmt.Errorf("%w: unknown format %q", ErrGenerate, format)
}

// PNGRenderer renders QR codes with go-qrcode and PDF417 symbols with
// boombuler/barcode.
type PNGRenderer struct {
	// Size is the QR side length and the minimum PDF417 width, in pixels.
	Size int
}

func NewPNGRenderer(size int) *PNGRenderer {
	if size <= 0 {
		size = DefaultSize
	}
	return &PNGRenderer{Size: size}
}

func (r *PNGRenderer) RenderQR(content string) (Image, error) {
	if content == "" {
		return Image{}, ErrEmptyContent
	}
	// High is the 25% recovery level.
	data, err := qrcode.Encode(content, qrcode.High, r.Size)
	if err != nil {
		return Image{}, fmt.Errorf("%w: qr: %v", ErrGenerate, err)
	}
	return Image{
		Format:  FormatQR,
		Content: content,
		PNG:     data,
		Width:   r.Size,
		Height:  r.Size,
	}, nil
}

func (r *PNGRenderer) RenderPDF417(content string) (Image, error) {
	if content == "" {
		return Image{}, ErrEmptyContent
	}
	bc, err := pdf417.Encode(content, pdf417SecurityLevel)
	if err != nil {
		return Image{}, fmt.Errorf("%w: pdf417: %v", ErrGenerate, err)
	}

	width, height := pdf417Dimensions(bc.Bounds(), r.Size)
	scaled, err := barcode.Scale(bc, width, height)
	if err != nil {
		return Image{}, fmt.Errorf("%w: pdf417 scale: %v", ErrGenerate, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return Image{}, fmt.Errorf("%w: png: %v", ErrGenerate, err)
	}
	return Image{
		Format:  FormatPDF417,
		Content: content,
		PNG:     buf.Bytes(),
		Width:   width,
		Height:  height,
	}, nil
}

// pdf417Dimensions scales the symbol by a whole factor so it is at least
// minWidth wide, then pads the height up to the aspect ratio.
func pdf417Dimensions(bounds image.Rectangle, minWidth int) (int, int) {
	w, h := bounds.Dx(), bounds.Dy()
	factor := 1
	if w < minWidth {
		factor = minWidth / w
	}
	width, height := w*factor, h*factor
	if minHeight := width / pdf417AspectRatio; height < minHeight {
		height = minHeight
	}
	return width, height
}
