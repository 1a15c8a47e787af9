// classify labels an image file or a live camera feed with a pretrained
// ImageNet network and prints the top predictions.
//
//	classify -i cat.jpg -m resnet
//	classify -d 0 -b onnxruntime --http :8080
//	classify -i cat.jpg --loop --http :8080
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/akamensky/argparse"

	"github.com/teslashibe/go-recognition/internal/config"
	"github.com/teslashibe/go-recognition/internal/log"
	"github.com/teslashibe/go-recognition/pkg/capture"
	"github.com/teslashibe/go-recognition/pkg/display"
	"github.com/teslashibe/go-recognition/pkg/labels"
	"github.com/teslashibe/go-recognition/pkg/oracle"
	"github.com/teslashibe/go-recognition/pkg/oracle/backends"
	"github.com/teslashibe/go-recognition/pkg/pipeline"
	"github.com/teslashibe/go-recognition/pkg/preprocess"
	"github.com/teslashibe/go-recognition/pkg/present"
	"github.com/teslashibe/go-recognition/pkg/web"
)

type options struct {
	image     string
	model     oracle.Model
	backend   oracle.Backend
	labels    string
	modelsDir string
	device    int
	capture   capture.DeviceConfig
	topK      int
	output    string
	httpAddr  string
	remoteURL string
	onnxLib   string
	loop      bool
}

func main() {
	settings := config.Load()

	parser := argparse.NewParser("classify", "Classify an image or camera feed with a pretrained ImageNet network")
	imagePath := parser.String("i", "image", &argparse.Options{Help: "Image file to classify (omit for live capture)"})
	modelName := parser.Selector("m", "model", oracle.ModelNames(), &argparse.Options{Help: "Network to use", Default: oracle.DefaultModel.String()})
	backendName := parser.Selector("b", "backend", oracle.BackendNames(), &argparse.Options{Help: "How to run the network", Default: settings.Backend})
	labelsPath := parser.String("l", "labels", &argparse.Options{Help: "Class label file, one per line", Default: settings.LabelsPath})
	modelsDir := parser.String("", "models-dir", &argparse.Options{Help: "Directory holding <model>.onnx files", Default: settings.ModelsDir})
	device := parser.Int("d", "device", &argparse.Options{Help: "Capture device index for live mode", Default: settings.Device})
	resolution := parser.Selector("r", "resolution", capture.PresetNames(), &argparse.Options{Help: "Capture mode for live mode", Default: capture.PresetNative})
	topK := parser.Int("k", "top", &argparse.Options{Help: "Number of predictions to print", Default: present.DefaultTopK})
	output := parser.String("o", "output", &argparse.Options{Help: "Write the annotated frame to this PNG instead of opening a window"})
	httpAddr := parser.String("", "http", &argparse.Options{Help: "Serve the web API on this address (e.g. :8080)"})
	remoteURL := parser.String("", "remote-url", &argparse.Options{Help: "Inference service for the remote backend", Default: settings.RemoteURL})
	onnxLib := parser.String("", "onnx-lib", &argparse.Options{Help: "onnxruntime shared library path", Default: settings.OnnxLib})
	loop := parser.Flag("", "loop", &argparse.Options{Help: "Classify the image repeatedly in live mode until a key is pressed"})
	logLevel := parser.Selector("", "log-level", []string{"debug", "info", "warn", "error"}, &argparse.Options{Help: "Log level", Default: settings.LogLevel})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Fprint(os.Stderr, parser.Usage(err))
		os.Exit(1)
	}

	log.Init(*logLevel)
	logger := log.L()

	model, err := oracle.ParseModel(*modelName)
	if err != nil {
		logger.Error("invalid model", "error", err)
		os.Exit(1)
	}
	backend, err := oracle.ParseBackend(*backendName)
	if err != nil {
		logger.Error("invalid backend", "error", err)
		os.Exit(1)
	}
	deviceCfg, err := capture.Preset(*resolution)
	if err != nil {
		logger.Error("invalid resolution", "error", err)
		os.Exit(1)
	}
	if *loop && *imagePath == "" {
		logger.Error("--loop needs an image")
		os.Exit(1)
	}
	if *topK <= 0 {
		logger.Error("top must be positive", "top", *topK)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := options{
		image:     *imagePath,
		model:     model,
		backend:   backend,
		labels:    *labelsPath,
		modelsDir: *modelsDir,
		device:    *device,
		capture:   deviceCfg,
		topK:      *topK,
		output:    *output,
		httpAddr:  *httpAddr,
		remoteURL: *remoteURL,
		onnxLib:   *onnxLib,
		loop:      *loop,
	}
	if err := run(ctx, opts, logger); err != nil {
		logger.Error("classify failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	logger.Info("loading labels", "path", opts.labels)
	table, err := labels.Load(opts.labels)
	if err != nil {
		return err
	}

	pre, err := preprocess.New(preprocess.DefaultConfig())
	if err != nil {
		return err
	}

	spec := oracle.Spec{
		Model:         opts.model,
		Path:          opts.model.PathIn(opts.modelsDir),
		InputSize:     preprocess.ImageSize,
		NumClasses:    table.Len(),
		RemoteURL:     opts.remoteURL,
		SharedLibrary: opts.onnxLib,
		Logger:        logger,
	}
	logger.Info("loading model", "model", opts.model.String(), "backend", opts.backend.String())
	orc, err := backends.Open(opts.backend, spec)
	if err != nil {
		return err
	}
	defer orc.Close()

	var surface present.Surface
	if opts.output != "" {
		surface = present.NewPNGSurface(opts.output)
	} else {
		win := display.NewWindow(display.DefaultConfig(), logger)
		defer win.Close()
		surface = win
	}

	presenter := present.New(table, os.Stdout, surface, present.WithTopK(opts.topK), present.WithLogger(logger))
	pipe, err := pipeline.New(pre, orc, presenter,
		pipeline.WithModel(opts.model),
		pipeline.WithTopK(opts.topK),
		pipeline.WithLogger(logger))
	if err != nil {
		return err
	}

	if opts.httpAddr != "" {
		srv := web.NewServer(opts.httpAddr, pipe, web.WithLogger(logger))
		pipe.Observe(srv.Publish)
		srv.StartAsync(ctx)
	}

	if opts.image != "" && opts.loop {
		logger.Info("looping image", "path", opts.image)
		src, err := capture.OpenFile(opts.image)
		if err != nil {
			return err
		}
		defer src.Close()
		return pipe.RunLive(ctx, src)
	}

	if opts.image != "" {
		logger.Info("loading image", "path", opts.image)
		img, err := capture.LoadImage(opts.image)
		if err != nil {
			return err
		}
		if err := pipe.RunImage(ctx, img); err != nil {
			return err
		}
		if opts.httpAddr != "" {
			logger.Info("image done, web API still serving (Ctrl+C to stop)")
			<-ctx.Done()
		}
		return nil
	}

	src, err := capture.OpenDevice(opts.device, opts.capture, logger)
	if err != nil {
		return err
	}
	defer src.Close()
	return pipe.RunLive(ctx, src)
}
