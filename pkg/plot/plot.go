// Package plot draws the training-score chart: per-game scores and their
// running mean against the number of games played.
package plot

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"strconv"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/teslashibe/go-recognition/internal/log"
)

// ErrNoScores is returned when a series is empty.
var ErrNoScores = errors.New("plot: no scores to plot")

// Series colors, matplotlib's first two cycle entries.
var (
	ScoreColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	MeanColor  = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
)

const (
	XLabel = "Number of Games"
	YLabel = "Score"

	marginLeft   = 60.0
	marginRight  = 30.0
	marginTop    = 40.0
	marginBottom = 50.0
	tickCount    = 5
)

// Title returns the chart title for a model name.
func Title(name string) string {
	if name == "" {
		return "Training..."
	}
	return "Training " + name + "..."
}

// FormatValue renders a point annotation the way the score is logged.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Render draws the chart into a new width×height image.
func Render(scores, means []float64, name string, width, height int) (*image.RGBA, error) {
	if len(scores) == 0 || len(means) == 0 {
		return nil, ErrNoScores
	}
	if width <= 2*int(marginLeft) || height <= int(marginTop+marginBottom)+10 {
		return nil, fmt.Errorf("plot: canvas %dx%d too small", width, height)
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	x0, y0 := marginLeft, marginTop
	w := float64(width) - marginLeft - marginRight
	h := float64(height) - marginTop - marginBottom

	n := max(len(scores), len(means))
	xmax := float64(max(n-1, 1))
	ymax := niceMax(math.Max(maxOf(scores), maxOf(means)))

	px := func(i int) float64 { return x0 + float64(i)/xmax*w }
	py := func(v float64) float64 { return y0 + h - math.Max(v, 0)/ymax*h }

	// Axes box and ticks.
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawRectangle(x0, y0, w, h)
	dc.Stroke()
	for i := 0; i <= tickCount; i++ {
		xv := xmax * float64(i) / tickCount
		x := x0 + w*float64(i)/tickCount
		dc.DrawLine(x, y0+h, x, y0+h+4)
		dc.Stroke()
		dc.DrawStringAnchored(FormatValue(math.Round(xv*10)/10), x, y0+h+16, 0.5, 0)

		yv := ymax * float64(i) / tickCount
		y := y0 + h - h*float64(i)/tickCount
		dc.DrawLine(x0-4, y, x0, y)
		dc.Stroke()
		dc.DrawStringAnchored(FormatValue(math.Round(yv*10)/10), x0-8, y, 1, 0.35)
	}

	dc.DrawStringAnchored(Title(name), float64(width)/2, marginTop/2, 0.5, 0.5)
	dc.DrawStringAnchored(XLabel, x0+w/2, float64(height)-12, 0.5, 0)
	dc.Push()
	dc.RotateAbout(-math.Pi/2, 14, y0+h/2)
	dc.DrawStringAnchored(YLabel, 14, y0+h/2, 0.5, 0.5)
	dc.Pop()

	drawSeries(dc, scores, ScoreColor, px, py)
	drawSeries(dc, means, MeanColor, px, py)

	// Annotate the last point of each series.
	dc.SetRGB(0, 0, 0)
	last := scores[len(scores)-1]
	dc.DrawString(FormatValue(last), px(len(scores)-1), py(last))
	lastMean := means[len(means)-1]
	dc.DrawString(FormatValue(lastMean), px(len(means)-1), py(lastMean))

	rgba, ok := dc.Image().(*image.RGBA)
	if !ok {
		return nil, fmt.Errorf("plot: unexpected image type %T", dc.Image())
	}
	return rgba, nil
}

func drawSeries(dc *gg.Context, values []float64, c color.Color, px func(int) float64, py func(float64) float64) {
	dc.SetColor(c)
	dc.SetLineWidth(2)
	if len(values) == 1 {
		dc.DrawCircle(px(0), py(values[0]), 2)
		dc.Fill()
		return
	}
	dc.MoveTo(px(0), py(values[0]))
	for i := 1; i < len(values); i++ {
		dc.LineTo(px(i), py(values[i]))
	}
	dc.Stroke()
}

func maxOf(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		if v > m && !math.IsInf(v, 0) {
			m = v
		}
	}
	return m
}

// niceMax pads the top of the y axis. The axis always starts at zero.
func niceMax(v float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return 1
	}
	return v * 1.1
}

// Sink displays or stores a rendered chart.
type Sink interface {
	ShowChart(img image.Image) error
}

// Config sizes the chart.
type Config struct {
	Width  int
	Height int
}

// DefaultConfig returns a 640×480 chart.
func DefaultConfig() Config {
	return Config{Width: 640, Height: 480}
}

// Plotter redraws the chart on every call and hands it to a sink.
type Plotter struct {
	cfg    Config
	sink   Sink
	logger *slog.Logger

	mu    sync.Mutex
	draws int
}

// New creates a plotter. logger may be nil.
func New(cfg Config, sink Sink, logger *slog.Logger) *Plotter {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg = DefaultConfig()
	}
	return &Plotter{cfg: cfg, sink: sink, logger: log.Or(logger).With("component", "plot")}
}

// Plot clears and redraws the chart for the given series, then refreshes the sink.
func (p *Plotter) Plot(scores, means []float64, name string) error {
	img, err := Render(scores, means, name, p.cfg.Width, p.cfg.Height)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.draws++
	p.logger.Debug("chart redrawn", "games", len(scores), "draws", p.draws)
	if p.sink == nil {
		return nil
	}
	if err := p.sink.ShowChart(img); err != nil {
		return fmt.Errorf("plot: show chart: %w", err)
	}
	return nil
}

// Draws returns how many charts were rendered.
func (p *Plotter) Draws() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draws
}

// PNGSink writes each chart to Path, overwriting the previous one.
type PNGSink struct {
	Path string
}

// ShowChart implements Sink.
func (s PNGSink) ShowChart(img image.Image) error {
	return gg.SavePNG(s.Path, img)
}
