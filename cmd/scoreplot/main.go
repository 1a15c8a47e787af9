// scoreplot reads one training score per line and redraws the score and
// running-mean chart after every game.
//
//	./train | scoreplot --name dqn
//	scoreplot --input scores.txt --output chart.png
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/akamensky/argparse"

	"github.com/teslashibe/go-recognition/internal/config"
	"github.com/teslashibe/go-recognition/internal/log"
	"github.com/teslashibe/go-recognition/pkg/display"
	"github.com/teslashibe/go-recognition/pkg/plot"
)

func main() {
	settings := config.Load()

	parser := argparse.NewParser("scoreplot", "Plot training scores and their running mean")
	input := parser.String("", "input", &argparse.Options{Help: "Score file, one number per line (default stdin)"})
	name := parser.String("n", "name", &argparse.Options{Help: "Model name shown in the title"})
	output := parser.String("o", "output", &argparse.Options{Help: "Write the chart to this PNG instead of opening a window"})
	width := parser.Int("", "width", &argparse.Options{Help: "Chart width in pixels", Default: plot.DefaultConfig().Width})
	height := parser.Int("", "height", &argparse.Options{Help: "Chart height in pixels", Default: plot.DefaultConfig().Height})
	pause := parser.String("", "pause", &argparse.Options{Help: "Window refresh pause", Default: "1s"})
	logLevel := parser.Selector("", "log-level", []string{"debug", "info", "warn", "error"}, &argparse.Options{Help: "Log level", Default: settings.LogLevel})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Fprint(os.Stderr, parser.Usage(err))
		os.Exit(1)
	}

	log.Init(*logLevel)
	logger := log.L()

	pauseDur, err := time.ParseDuration(*pause)
	if err != nil {
		logger.Error("invalid pause", "pause", *pause, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var r io.Reader = os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			logger.Error("open input", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		r = f
	}

	var sink plot.Sink
	if *output != "" {
		sink = plot.PNGSink{Path: *output}
	} else {
		win := display.NewChartWindow(plot.Title(*name), pauseDur)
		defer win.Close()
		sink = win
	}

	plotter := plot.New(plot.Config{Width: *width, Height: *height}, sink, logger)
	if err := run(ctx, r, plotter, *name, logger); err != nil {
		logger.Error("scoreplot failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// scanLines sends every line of r on the returned channel. The error
// channel receives the scanner result once r is exhausted.
func scanLines(ctx context.Context, r io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()
	return lines, errc
}

// run feeds each parsed score to the plotter together with the running mean.
// It returns as soon as ctx is cancelled, even while r is idle.
func run(ctx context.Context, r io.Reader, plotter *plot.Plotter, name string, logger *slog.Logger) error {
	var scores, means []float64
	total := 0.0

	lines, errc := scanLines(ctx, r)
	line := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		var text string
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case text, ok = <-lines:
		}
		if !ok {
			break
		}

		line++
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			logger.Warn("skipping unparsable score", "line", line, "text", text)
			continue
		}

		scores = append(scores, v)
		total += v
		means = append(means, total/float64(len(scores)))

		if err := plotter.Plot(scores, means, name); err != nil {
			return err
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	if err := <-errc; err != nil {
		return fmt.Errorf("read scores: %w", err)
	}
	if len(scores) == 0 {
		return plot.ErrNoScores
	}
	logger.Info("done", "games", len(scores), "mean", means[len(means)-1])
	return nil
}
