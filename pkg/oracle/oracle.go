// Package oracle wraps pretrained classification networks behind a single interface.
//
// A Classifier maps a normalized (1, 3, H, W) tensor to one raw score per class.
// The network itself is opaque; backends differ only in how they run it:
//
//	opencv       gocv DNN module reading an ONNX export     (pkg/oracle/opencv)
//	onnxruntime  ONNX Runtime session                        (pkg/oracle/onnx)
//	remote       HTTP inference service                      (this package)
//
// Backends that need cgo live in their own packages; pkg/oracle/backends ties
// them to the Backend enumeration.
package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/teslashibe/go-recognition/pkg/preprocess"
)

// Classifier is a pretrained classification network.
type Classifier interface {
	// Classify runs the network on t and returns raw scores, one per class.
	Classify(ctx context.Context, t preprocess.Tensor) ([]float32, error)

	// Close releases resources. The classifier is unusable afterwards.
	Close() error
}

// Backend selects how a model is executed.
type Backend int

const (
	OpenCV Backend = iota
	ONNXRuntime
	Remote
)

var backendNames = [...]string{
	OpenCV:      "opencv",
	ONNXRuntime: "onnxruntime",
	Remote:      "remote",
}

// BackendNames returns the accepted backend names.
func BackendNames() []string {
	return append([]string(nil), backendNames[:]...)
}

// ParseBackend maps a name to a Backend.
func ParseBackend(name string) (Backend, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range backendNames {
		if s == n {
			return Backend(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownBackend, name, strings.Join(backendNames[:], ", "))
}

func (b Backend) String() string {
	if b < 0 || int(b) >= len(backendNames) {
		return fmt.Sprintf("backend(%d)", int(b))
	}
	return backendNames[b]
}

// Spec describes the network to open.
type Spec struct {
	Model         Model
	Path          string       // Model file (local backends)
	InputSize     int          // Square input edge, normally 224
	NumClasses    int          // Expected output length, normally the label count
	RemoteURL     string       // Endpoint for the remote backend
	SharedLibrary string       // Optional onnxruntime shared library path
	Logger        *slog.Logger // Optional; defaults to the global logger
}

// Validate checks the fields every backend needs.
func (s Spec) Validate() error {
	if !s.Model.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownModel, int(s.Model))
	}
	if s.InputSize <= 0 {
		return fmt.Errorf("oracle: input size must be positive, got %d", s.InputSize)
	}
	if s.NumClasses <= 0 {
		return fmt.Errorf("oracle: class count must be positive, got %d", s.NumClasses)
	}
	return nil
}

// CheckModelFile returns ErrModelNotFound when Path does not exist.
func (s Spec) CheckModelFile() error {
	if _, err := os.Stat(s.Path); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrModelNotFound, s.Path)
	} else if err != nil {
		return fmt.Errorf("stat model file: %w", err)
	}
	return nil
}

// Factory opens a classifier for a spec.
type Factory func(spec Spec) (Classifier, error)
