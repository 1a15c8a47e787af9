package display

import (
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ChartWindow shows rendered charts and keeps the event loop alive for a
// pause after each refresh. It satisfies plot.Sink.
type ChartWindow struct {
	win   *gocv.Window
	pause time.Duration
	mu    sync.Mutex
}

// NewChartWindow opens a window titled title.
func NewChartWindow(title string, pause time.Duration) *ChartWindow {
	return &ChartWindow{win: gocv.NewWindow(title), pause: pause}
}

// ShowChart implements plot.Sink.
func (w *ChartWindow) ShowChart(img image.Image) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("convert chart: %w", err)
	}
	defer mat.Close()

	w.win.IMShow(mat)
	delay := int(w.pause / time.Millisecond)
	if delay < 1 {
		delay = 1
	}
	w.win.WaitKey(delay)
	return nil
}

// Close destroys the window.
func (w *ChartWindow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.win.Close()
}
