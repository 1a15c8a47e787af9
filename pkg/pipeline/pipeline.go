// Package pipeline wires preprocessing, the network, ranking and presentation
// into the single-image and live classification loops.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-recognition/internal/log"
	"github.com/teslashibe/go-recognition/pkg/frame"
	"github.com/teslashibe/go-recognition/pkg/oracle"
	"github.com/teslashibe/go-recognition/pkg/preprocess"
	"github.com/teslashibe/go-recognition/pkg/present"
	"github.com/teslashibe/go-recognition/pkg/rank"
)

// Source yields frames for the live loop.
type Source interface {
	Read() (frame.RawImage, error)
	Close() error
}

// Classification is the outcome of one pass through the pipeline.
type Classification struct {
	Model       string               `json:"model"`
	Width       int                  `json:"width"`
	Height      int                  `json:"height"`
	Predictions []present.Prediction `json:"predictions"`
	Elapsed     time.Duration        `json:"elapsed_ns"`
	At          time.Time            `json:"at"`
	Result      rank.Result          `json:"-"`
}

// Top returns the best prediction, if any.
func (c Classification) Top() (present.Prediction, bool) {
	if len(c.Predictions) == 0 {
		return present.Prediction{}, false
	}
	return c.Predictions[0], true
}

// Observer receives every successful classification.
type Observer func(Classification)

// Pipeline runs frames through the classifier. Classify is safe for
// concurrent use; the run loops are meant for one goroutine.
type Pipeline struct {
	pre       *preprocess.Preprocessor
	oracle    oracle.Classifier
	presenter *present.Presenter
	model     oracle.Model
	topK      int
	logger    *slog.Logger

	mu        sync.RWMutex
	observers []Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver registers fn for every classification.
func WithObserver(fn Observer) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.observers = append(p.observers, fn)
		}
	}
}

// WithModel records which network the oracle runs, for reporting.
func WithModel(m oracle.Model) Option {
	return func(p *Pipeline) { p.model = m }
}

// WithTopK sets how many predictions a Classification carries.
func WithTopK(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline. The oracle is borrowed; the caller closes it.
func New(pre *preprocess.Preprocessor, orc oracle.Classifier, presenter *present.Presenter, opts ...Option) (*Pipeline, error) {
	if pre == nil || orc == nil || presenter == nil {
		return nil, errors.New("pipeline: preprocessor, oracle and presenter are required")
	}
	p := &Pipeline{
		pre:       pre,
		oracle:    orc,
		presenter: presenter,
		model:     oracle.DefaultModel,
		topK:      present.DefaultTopK,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = log.Or(p.logger).With("component", "pipeline")
	return p, nil
}

// Model returns the configured model.
func (p *Pipeline) Model() oracle.Model {
	return p.model
}

// Observe registers fn after construction.
func (p *Pipeline) Observe(fn Observer) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	p.observers = append(p.observers, fn)
	p.mu.Unlock()
}

// Classify runs preprocess, the oracle and the ranker on img.
func (p *Pipeline) Classify(ctx context.Context, img frame.RawImage) (Classification, error) {
	start := time.Now()

	tensor, err := p.pre.Preprocess(img)
	if err != nil {
		return Classification{}, err
	}
	scores, err := p.oracle.Classify(ctx, tensor)
	if err != nil {
		return Classification{}, fmt.Errorf("classify: %w", err)
	}
	res, err := rank.Rank(scores)
	if err != nil {
		return Classification{}, err
	}
	preds, err := p.presenter.Predictions(res, p.topK)
	if err != nil {
		return Classification{}, err
	}

	c := Classification{
		Model:       p.model.String(),
		Width:       img.Width,
		Height:      img.Height,
		Predictions: preds,
		Elapsed:     time.Since(start),
		At:          start,
		Result:      res,
	}
	if top, ok := c.Top(); ok {
		p.logger.Debug("classified", "label", top.Label, "probability", top.Probability, "elapsed", c.Elapsed)
	}

	p.mu.RLock()
	observers := p.observers
	p.mu.RUnlock()
	for _, fn := range observers {
		fn(c)
	}
	return c, nil
}

// RunImage classifies one image, reports it and shows it until the viewer
// dismisses the surface.
func (p *Pipeline) RunImage(ctx context.Context, img frame.RawImage) error {
	p.logger.Info("classifying image", "width", img.Width, "height", img.Height)
	c, err := p.Classify(ctx, img)
	if err != nil {
		return err
	}
	if _, err := p.presenter.Present(c.Result, img, present.ModeSingle); err != nil {
		return err
	}
	return nil
}

// RunLive classifies frames from src until the surface reports a quit key
// or ctx is cancelled. A failed read ends the loop with an error.
func (p *Pipeline) RunLive(ctx context.Context, src Source) error {
	p.logger.Info("starting live classification")
	frames := 0
	defer func() {
		p.logger.Info("live classification stopped", "frames", frames)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		img, err := src.Read()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		frames++

		c, err := p.Classify(ctx, img)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		quit, err := p.presenter.Present(c.Result, img, present.ModeLive)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}
