// Package onnx runs classification networks with ONNX Runtime.
package onnx

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/teslashibe/go-recognition/internal/log"
	"github.com/teslashibe/go-recognition/pkg/oracle"
	"github.com/teslashibe/go-recognition/pkg/preprocess"
)

// The runtime environment is process-wide; sessions share it.
var (
	envMu   sync.Mutex
	envRefs int
)

func acquireEnvironment(sharedLibrary string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 && !ort.IsInitialized() {
		if sharedLibrary != "" {
			ort.SetSharedLibraryPath(sharedLibrary)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}
	envRefs++
	return nil
}

func releaseEnvironment() {
	envMu.Lock()
	defer envMu.Unlock()
	envRefs--
	if envRefs == 0 {
		_ = ort.DestroyEnvironment()
	}
}

// Classifier owns one ONNX Runtime session and its bound tensors.
type Classifier struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	spec         oracle.Spec
	logger       *slog.Logger

	mu     sync.Mutex
	closed bool
}

// New opens a session for spec.Path with a (1, 3, InputSize, InputSize)
// input and a (1, NumClasses) output.
func New(spec oracle.Spec) (*Classifier, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := spec.CheckModelFile(); err != nil {
		return nil, err
	}
	if err := acquireEnvironment(spec.SharedLibrary); err != nil {
		return nil, err
	}

	c, err := open(spec)
	if err != nil {
		releaseEnvironment()
		return nil, err
	}
	return c, nil
}

func open(spec oracle.Spec) (*Classifier, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("read model io info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("%w: model has %d inputs and %d outputs, want 1 and 1",
			oracle.ErrBadOutput, len(inputs), len(outputs))
	}

	size := int64(spec.InputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(spec.NumClasses)))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(spec.Path,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	logger := log.Or(spec.Logger).With("backend", oracle.ONNXRuntime.String(), "model", spec.Model.String())
	logger.Info("model loaded",
		"path", spec.Path,
		"architecture", spec.Model.Architecture(),
		"input", inputs[0].Name,
		"output", outputs[0].Name)

	return &Classifier{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		spec:         spec,
		logger:       logger,
	}, nil
}

// Classify copies t into the bound input tensor and runs the session.
func (c *Classifier) Classify(ctx context.Context, t preprocess.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, oracle.ErrClosed
	}

	in := c.inputTensor.GetData()
	if len(t.Data) != len(in) {
		return nil, fmt.Errorf("tensor has %d elements, session expects %d", len(t.Data), len(in))
	}
	copy(in, t.Data)

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := c.outputTensor.GetData()
	scores := make([]float32, len(out))
	copy(scores, out)
	return scores, nil
}

// Close destroys the session and tensors, and the environment once no
// session is left.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var firstErr error
	if err := c.session.Destroy(); err != nil {
		firstErr = err
	}
	if err := c.inputTensor.Destroy(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.outputTensor.Destroy(); err != nil && firstErr == nil {
		firstErr = err
	}
	releaseEnvironment()
	return firstErr
}
