package capture

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-recognition/pkg/frame"
)

// FromMat copies an 8-bit 3-channel Mat into a BGR frame.
func FromMat(m gocv.Mat) (frame.RawImage, error) {
	if m.Empty() {
		return frame.RawImage{}, fmt.Errorf("%w: empty mat", frame.ErrShape)
	}
	if m.Type() != gocv.MatTypeCV8UC3 {
		return frame.RawImage{}, fmt.Errorf("%w: mat type %v, want CV_8UC3", frame.ErrShape, m.Type())
	}

	src := m
	if !m.IsContinuous() {
		src = m.Clone()
		defer src.Close()
	}

	img := frame.RawImage{
		Width:    src.Cols(),
		Height:   src.Rows(),
		Channels: 3,
		Order:    frame.BGR,
		Pix:      src.ToBytes(),
	}
	return img, img.Validate()
}

// ToMat builds a BGR Mat from a frame. The caller must Close it.
func ToMat(img frame.RawImage) (gocv.Mat, error) {
	if err := img.Validate(); err != nil {
		return gocv.Mat{}, err
	}

	pix := img.Pix
	if img.Order == frame.RGB {
		pix = make([]byte, len(img.Pix))
		for i := 0; i < len(pix); i += 3 {
			pix[i], pix[i+1], pix[i+2] = img.Pix[i+2], img.Pix[i+1], img.Pix[i]
		}
	}

	mat, err := gocv.NewMatFromBytes(img.Height, img.Width, gocv.MatTypeCV8UC3, pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("build mat: %w", err)
	}
	return mat, nil
}
