// Package preprocess turns raw frames into the normalized tensors expected by
// ImageNet-style classification networks.
package preprocess

import (
	"errors"
	"fmt"
	"image"

	"github.com/nfnt/resize"
	"github.com/teslashibe/go-recognition/pkg/frame"
)

// ImageNet input size and per-channel statistics (RGB order).
const ImageSize = 224

var (
	ImageNetMean = [3]float32{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// ErrInvalidConfig is returned by Validate for unusable settings.
var ErrInvalidConfig = errors.New("preprocess: invalid config")

// Tensor is a dense float32 tensor in NCHW layout.
type Tensor struct {
	Shape [4]int
	Data  []float32
}

// Len returns the number of elements implied by the shape.
func (t Tensor) Len() int {
	return t.Shape[0] * t.Shape[1] * t.Shape[2] * t.Shape[3]
}

// At returns the element at (n, c, y, x).
func (t Tensor) At(n, c, y, x int) float32 {
	_, C, H, W := t.Shape[0], t.Shape[1], t.Shape[2], t.Shape[3]
	return t.Data[((n*C+c)*H+y)*W+x]
}

// Shape64 returns the shape as int64, the form the inference runtimes want.
func (t Tensor) Shape64() []int64 {
	return []int64{int64(t.Shape[0]), int64(t.Shape[1]), int64(t.Shape[2]), int64(t.Shape[3])}
}

// Config holds the resize and normalization settings.
type Config struct {
	Size          int                          // Square output edge in pixels
	Mean          [3]float32                   // Subtracted after scaling to [0,1], RGB order
	Std           [3]float32                   // Divisor after mean subtraction, RGB order
	Interpolation resize.InterpolationFunction // Resize filter
}

// DefaultConfig returns the ImageNet settings: 224×224, bilinear, ImageNet mean/std.
func DefaultConfig() Config {
	return Config{
		Size:          ImageSize,
		Mean:          ImageNetMean,
		Std:           ImageNetStd,
		Interpolation: resize.Bilinear,
	}
}

// Validate checks the config values.
func (c Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidConfig, c.Size)
	}
	for i, s := range c.Std {
		if s == 0 {
			return fmt.Errorf("%w: std[%d] is zero", ErrInvalidConfig, i)
		}
	}
	return nil
}

// Preprocessor converts RawImages into NCHW tensors. It holds no per-call state.
type Preprocessor struct {
	cfg Config
}

// New creates a preprocessor.
func New(cfg Config) (*Preprocessor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Preprocessor{cfg: cfg}, nil
}

// Config returns the settings in use.
func (p *Preprocessor) Config() Config {
	return p.cfg
}

// Preprocess swaps to RGB, resizes to Size×Size without keeping aspect, scales to
// [0,1], normalizes per channel and returns a (1, 3, Size, Size) tensor.
// Malformed images fail with an error wrapping frame.ErrShape.
func (p *Preprocessor) Preprocess(img frame.RawImage) (Tensor, error) {
	rgba, err := img.ToRGBA()
	if err != nil {
		return Tensor{}, fmt.Errorf("preprocess: %w", err)
	}

	size := p.cfg.Size
	var resized image.Image = rgba
	if img.Width != size || img.Height != size {
		resized = resize.Resize(uint(size), uint(size), rgba, p.cfg.Interpolation)
	}

	t := Tensor{
		Shape: [4]int{1, 3, size, size},
		Data:  make([]float32, 3*size*size),
	}
	plane := size * size
	b := resized.Bounds()
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, bl := rgb8(resized, b.Min.X+x, b.Min.Y+y)
			i := y*size + x
			t.Data[i] = (float32(r)/255 - p.cfg.Mean[0]) / p.cfg.Std[0]
			t.Data[plane+i] = (float32(g)/255 - p.cfg.Mean[1]) / p.cfg.Std[1]
			t.Data[2*plane+i] = (float32(bl)/255 - p.cfg.Mean[2]) / p.cfg.Std[2]
		}
	}
	return t, nil
}

func rgb8(img image.Image, x, y int) (uint8, uint8, uint8) {
	if rgba, ok := img.(*image.RGBA); ok {
		c := rgba.RGBAAt(x, y)
		return c.R, c.G, c.B
	}
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}
