package present

import (
	"fmt"
	"image"
	"sync"

	"github.com/fogleman/gg"
	"github.com/teslashibe/go-recognition/pkg/frame"
	"golang.org/x/image/font/basicfont"
)

// Caption placement, matching the OpenCV overlay: baseline origin at (10, 30), red.
const (
	CaptionX = 10
	CaptionY = 30
)

// Annotate draws caption onto an RGBA copy of img. img itself is not modified.
func Annotate(img frame.RawImage, caption string) (*image.RGBA, error) {
	rgba, err := img.ToRGBA()
	if err != nil {
		return nil, err
	}
	dc := gg.NewContextForRGBA(rgba)
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetRGB(1, 0, 0)
	// Two passes one pixel apart approximate a stroke thickness of 2.
	dc.DrawString(caption, CaptionX, CaptionY)
	dc.DrawString(caption, CaptionX+1, CaptionY)
	return rgba, nil
}

// PNGSurface is a headless surface that writes each annotated frame to a file.
type PNGSurface struct {
	Path string

	mu     sync.Mutex
	frames int
}

// NewPNGSurface returns a surface writing to path.
func NewPNGSurface(path string) *PNGSurface {
	return &PNGSurface{Path: path}
}

// Show writes the annotated frame, overwriting the previous one. It never asks to quit.
func (s *PNGSurface) Show(img frame.RawImage, caption string, mode Mode) (bool, error) {
	annotated, err := Annotate(img, caption)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := gg.SavePNG(s.Path, annotated); err != nil {
		return false, fmt.Errorf("save %s: %w", s.Path, err)
	}
	s.frames++
	return false, nil
}

// Frames returns how many frames have been written.
func (s *PNGSurface) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}
