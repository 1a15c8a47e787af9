// Package opencv runs ONNX classification networks with the OpenCV DNN module.
package opencv

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"unsafe"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-recognition/internal/log"
	"github.com/teslashibe/go-recognition/pkg/oracle"
	"github.com/teslashibe/go-recognition/pkg/preprocess"
)

// Classifier wraps a gocv.Net loaded from an ONNX export.
type Classifier struct {
	net    gocv.Net
	spec   oracle.Spec
	logger *slog.Logger
	mu     sync.Mutex
	closed bool
}

// New loads spec.Path into the DNN module.
func New(spec oracle.Spec) (*Classifier, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := spec.CheckModelFile(); err != nil {
		return nil, err
	}

	net := gocv.ReadNetFromONNX(spec.Path)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load %s model from %s", spec.Model, spec.Path)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	logger := log.Or(spec.Logger).With("backend", oracle.OpenCV.String(), "model", spec.Model.String())
	logger.Info("model loaded", "path", spec.Path, "architecture", spec.Model.Architecture())

	return &Classifier{
		net:    net,
		spec:   spec,
		logger: logger,
	}, nil
}

// Classify runs one forward pass. The DNN module is not safe for concurrent
// use, so calls are serialized.
func (c *Classifier) Classify(ctx context.Context, t preprocess.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(t.Data) == 0 || len(t.Data) != t.Len() {
		return nil, fmt.Errorf("tensor data length %d does not match shape %v", len(t.Data), t.Shape)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, oracle.ErrClosed
	}

	raw := unsafe.Slice((*byte)(unsafe.Pointer(&t.Data[0])), len(t.Data)*4)
	blob, err := gocv.NewMatWithSizesFromBytes(t.Shape[:], gocv.MatTypeCV32F, raw)
	if err != nil {
		return nil, fmt.Errorf("build input blob: %w", err)
	}
	defer blob.Close()

	c.net.SetInput(blob, "")
	output := c.net.Forward("")
	defer output.Close()
	runtime.KeepAlive(t.Data)

	if output.Empty() {
		return nil, fmt.Errorf("%w: empty forward result", oracle.ErrBadOutput)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", oracle.ErrBadOutput, err)
	}
	if len(data) != c.spec.NumClasses {
		return nil, fmt.Errorf("%w: got %d scores, want %d", oracle.ErrBadOutput, len(data), c.spec.NumClasses)
	}

	scores := make([]float32, len(data))
	copy(scores, data)
	return scores, nil
}

// Close releases the network.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.net.Close()
}
