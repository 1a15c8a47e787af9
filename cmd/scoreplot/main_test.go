package main

import (
	"context"
	"image"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-recognition/internal/log"
	"github.com/teslashibe/go-recognition/pkg/plot"
)

type countingSink struct{ n int }

func (s *countingSink) ShowChart(image.Image) error {
	s.n++
	return nil
}

func TestRun_RedrawsPerScore(t *testing.T) {
	sink := &countingSink{}
	p := plot.New(plot.Config{Width: 320, Height: 240}, sink, log.Discard())

	err := run(context.Background(), strings.NewReader("1\n\n3\nabc\n2\n"), p, "dqn", log.Discard())
	require.NoError(t, err)
	assert.Equal(t, 3, sink.n)
}

func TestRun_NoScores(t *testing.T) {
	p := plot.New(plot.DefaultConfig(), &countingSink{}, log.Discard())
	err := run(context.Background(), strings.NewReader("\n\n"), p, "", log.Discard())
	assert.ErrorIs(t, err, plot.ErrNoScores)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &countingSink{}
	p := plot.New(plot.DefaultConfig(), sink, log.Discard())
	require.NoError(t, run(ctx, strings.NewReader("1\n2\n"), p, "", log.Discard()))
	assert.Zero(t, sink.n)
}

func TestRun_SkipsNonFinite(t *testing.T) {
	tests := []struct {
		name  string
		input string
		plots int
	}{
		{"nan", "1\nNaN\n2\n", 2},
		{"inf", "+Inf\n-inf\n4\n", 1},
		{"only non-finite", "nan\ninf\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &countingSink{}
			p := plot.New(plot.Config{Width: 320, Height: 240}, sink, log.Discard())
			err := run(context.Background(), strings.NewReader(tt.input), p, "", log.Discard())
			if tt.plots == 0 {
				assert.ErrorIs(t, err, plot.ErrNoScores)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.plots, sink.n)
		})
	}
}

func TestRun_CancelWhileInputIdle(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	p := plot.New(plot.DefaultConfig(), &countingSink{}, log.Discard())

	done := make(chan error, 1)
	go func() { done <- run(ctx, pr, p, "", log.Discard()) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run kept waiting for input after cancel")
	}
}
