// Package present renders ranked classifications as a text report and hands the
// annotated frame to a display surface.
package present

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/teslashibe/go-recognition/internal/log"
	"github.com/teslashibe/go-recognition/pkg/frame"
	"github.com/teslashibe/go-recognition/pkg/labels"
	"github.com/teslashibe/go-recognition/pkg/rank"
)

// DefaultTopK is the number of predictions in the report.
const DefaultTopK = 5

// ErrLabelMismatch is returned when the probability vector and label table differ in size.
var ErrLabelMismatch = errors.New("present: probability vector does not match label table")

// Mode selects how the surface refreshes.
type Mode int

const (
	// ModeSingle shows one image and waits for the viewer.
	ModeSingle Mode = iota
	// ModeLive refreshes without blocking and polls for a quit key.
	ModeLive
)

func (m Mode) String() string {
	if m == ModeLive {
		return "live"
	}
	return "single"
}

// Surface displays a frame with a caption drawn on a copy of it.
type Surface interface {
	// Show draws caption onto a copy of img and displays it.
	// It returns true when the viewer asked to stop.
	Show(img frame.RawImage, caption string, mode Mode) (quit bool, err error)
}

// Prediction is one ranked, labeled class.
type Prediction struct {
	Rank        int     `json:"rank"`
	Index       int     `json:"index"`
	Label       string  `json:"label"`
	Probability float32 `json:"probability"`
}

// Percent returns the probability as a percentage.
func (p Prediction) Percent() float32 {
	return p.Probability * 100
}

// Presenter writes reports and drives a surface. The label table is injected.
type Presenter struct {
	labels  *labels.Table
	out     io.Writer
	surface Surface
	topK    int
	logger  *slog.Logger
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithTopK sets how many predictions are reported.
func WithTopK(k int) Option {
	return func(p *Presenter) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Presenter) { p.logger = l }
}

// New creates a Presenter. surface may be nil for report-only use.
func New(table *labels.Table, out io.Writer, surface Surface, opts ...Option) *Presenter {
	p := &Presenter{
		labels:  table,
		out:     out,
		surface: surface,
		topK:    DefaultTopK,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = log.Or(p.logger)
	return p
}

// Predictions returns the top k ranked predictions, at most min(k, N).
func (p *Presenter) Predictions(res rank.Result, k int) ([]Prediction, error) {
	if res.Len() != p.labels.Len() {
		return nil, fmt.Errorf("%w: %d probabilities, %d labels", ErrLabelMismatch, res.Len(), p.labels.Len())
	}
	top := res.Top(k)
	preds := make([]Prediction, len(top))
	for i, idx := range top {
		preds[i] = Prediction{
			Rank:        i,
			Index:       idx,
			Label:       p.labels.Label(idx),
			Probability: res.Probabilities[idx],
		}
	}
	return preds, nil
}

// Report writes one line per prediction: "0. tabby: 65.90%".
func Report(w io.Writer, preds []Prediction) error {
	for _, pr := range preds {
		if _, err := fmt.Fprintf(w, "%d. %s: %.2f%%\n", pr.Rank, pr.Label, pr.Percent()); err != nil {
			return err
		}
	}
	return nil
}

// Caption formats the overlay text for the top prediction.
func Caption(pr Prediction) string {
	return fmt.Sprintf("Label: %s, %.2f%%", pr.Label, pr.Percent())
}

// Present reports the top predictions and shows orig with the top label.
// It returns true when the surface asked to quit.
func (p *Presenter) Present(res rank.Result, orig frame.RawImage, mode Mode) (bool, error) {
	preds, err := p.Predictions(res, p.topK)
	if err != nil {
		return false, err
	}
	if err := Report(p.out, preds); err != nil {
		return false, fmt.Errorf("write report: %w", err)
	}
	if len(preds) == 0 || p.surface == nil {
		return false, nil
	}

	caption := Caption(preds[0])
	p.logger.Debug("presenting", "caption", caption, "mode", mode.String())
	quit, err := p.surface.Show(orig, caption, mode)
	if err != nil {
		return false, fmt.Errorf("display: %w", err)
	}
	return quit, nil
}
