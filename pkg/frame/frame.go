// Package frame defines the raw image exchanged between capture, preprocessing and display.
package frame

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrShape is returned when an image does not have the expected layout.
var ErrShape = errors.New("frame: malformed image shape")

// ChannelOrder is the byte order of the colour channels in a pixel.
type ChannelOrder int

const (
	// BGR is the order produced by OpenCV capture and decode.
	BGR ChannelOrder = iota
	// RGB is the order produced by the Go image decoders.
	RGB
)

func (o ChannelOrder) String() string {
	switch o {
	case BGR:
		return "bgr"
	case RGB:
		return "rgb"
	default:
		return fmt.Sprintf("order(%d)", int(o))
	}
}

// RawImage is an 8-bit pixel grid stored row-major, channel-last (HWC).
type RawImage struct {
	Width    int
	Height   int
	Channels int
	Order    ChannelOrder
	Pix      []byte
}

// Validate checks that the image is a well-formed 3-channel grid.
func (r RawImage) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrShape, r.Width, r.Height)
	}
	if r.Channels != 3 {
		return fmt.Errorf("%w: want 3 channels, got %d", ErrShape, r.Channels)
	}
	if want := r.Width * r.Height * r.Channels; len(r.Pix) != want {
		return fmt.Errorf("%w: want %d bytes for %dx%dx%d, got %d",
			ErrShape, want, r.Width, r.Height, r.Channels, len(r.Pix))
	}
	return nil
}

// Clone returns a deep copy so callers can draw on it without touching the original.
func (r RawImage) Clone() RawImage {
	c := r
	c.Pix = append([]byte(nil), r.Pix...)
	return c
}

// RGBAt returns the pixel at (x, y) as r, g, b regardless of channel order.
func (r RawImage) RGBAt(x, y int) (uint8, uint8, uint8) {
	i := (y*r.Width + x) * r.Channels
	if r.Order == BGR {
		return r.Pix[i+2], r.Pix[i+1], r.Pix[i]
	}
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

// ToRGBA converts a valid 3-channel image to an *image.RGBA.
func (r RawImage) ToRGBA() (*image.RGBA, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			cr, cg, cb := r.RGBAt(x, y)
			o := img.PixOffset(x, y)
			img.Pix[o+0] = cr
			img.Pix[o+1] = cg
			img.Pix[o+2] = cb
			img.Pix[o+3] = 0xff
		}
	}
	return img, nil
}

// FromImage converts any decoded image to an RGB RawImage. Alpha is dropped.
func FromImage(img image.Image) RawImage {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			i := (y*w + x) * 3
			pix[i], pix[i+1], pix[i+2] = c.R, c.G, c.B
		}
	}
	return RawImage{Width: w, Height: h, Channels: 3, Order: RGB, Pix: pix}
}

// Solid returns a w×h image filled with one colour, given as r, g, b, in the requested order.
func Solid(w, h int, order ChannelOrder, r, g, b uint8) RawImage {
	pix := make([]byte, w*h*3)
	for i := 0; i < len(pix); i += 3 {
		if order == BGR {
			pix[i], pix[i+1], pix[i+2] = b, g, r
		} else {
			pix[i], pix[i+1], pix[i+2] = r, g, b
		}
	}
	return RawImage{Width: w, Height: h, Channels: 3, Order: order, Pix: pix}
}
