// Package display shows annotated frames in an OpenCV window.
package display

import (
	"image"
	"image/color"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-recognition/internal/log"
	"github.com/teslashibe/go-recognition/pkg/capture"
	"github.com/teslashibe/go-recognition/pkg/frame"
	"github.com/teslashibe/go-recognition/pkg/present"
)

// DefaultTitle is the window title.
const DefaultTitle = "Classification"

// Config controls how the caption is drawn.
type Config struct {
	Title     string
	Origin    image.Point
	Font      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
}

// DefaultConfig draws red Hershey simplex text at (10, 30).
func DefaultConfig() Config {
	return Config{
		Title:     DefaultTitle,
		Origin:    image.Pt(present.CaptionX, present.CaptionY),
		Font:      gocv.FontHersheySimplex,
		Scale:     0.8,
		Color:     color.RGBA{R: 255, A: 255},
		Thickness: 2,
	}
}

// Window is a present.Surface backed by a gocv window.
type Window struct {
	cfg    Config
	win    *gocv.Window
	logger *slog.Logger
	mu     sync.Mutex
}

// NewWindow opens the window. The caller must Close it.
func NewWindow(cfg Config, logger *slog.Logger) *Window {
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	return &Window{
		cfg:    cfg,
		win:    gocv.NewWindow(cfg.Title),
		logger: log.Or(logger),
	}
}

// Overlay draws caption onto mat in place.
func Overlay(mat *gocv.Mat, caption string, cfg Config) {
	gocv.PutText(mat, caption, cfg.Origin, cfg.Font, cfg.Scale, cfg.Color, cfg.Thickness)
}

// Show draws the caption on a copy of img and displays it. In single mode it
// blocks until a key is pressed; in live mode it polls for a key.
func (w *Window) Show(img frame.RawImage, caption string, mode present.Mode) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	mat, err := capture.ToMat(img)
	if err != nil {
		return false, err
	}
	defer mat.Close()

	// ToMat may share img's buffer; draw on a clone.
	canvas := mat.Clone()
	defer canvas.Close()

	Overlay(&canvas, caption, w.cfg)
	w.win.IMShow(canvas)

	if mode == present.ModeSingle {
		key := w.win.WaitKey(0)
		w.logger.Debug("window closed by key", "key", key)
		return true, nil
	}
	return w.win.WaitKey(1) >= 0, nil
}

// Close destroys the window.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.win.Close()
}
