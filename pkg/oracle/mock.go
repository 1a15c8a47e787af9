package oracle

import (
	"context"
	"sync"

	"github.com/teslashibe/go-recognition/pkg/preprocess"
)

// Mock implements Classifier for testing.
type Mock struct {
	// ClassifyFunc is called when Classify is invoked.
	ClassifyFunc func(ctx context.Context, t preprocess.Tensor) ([]float32, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu     sync.Mutex
	calls  int
	closed bool
}

// NewMock returns a mock that always produces scores.
func NewMock(scores ...float32) *Mock {
	return &Mock{
		ClassifyFunc: func(ctx context.Context, t preprocess.Tensor) ([]float32, error) {
			return append([]float32(nil), scores...), nil
		},
	}
}

// WithError returns a mock whose Classify always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		ClassifyFunc: func(ctx context.Context, t preprocess.Tensor) ([]float32, error) {
			return nil, err
		},
	}
}

// Classify implements Classifier.
func (m *Mock) Classify(ctx context.Context, t preprocess.Tensor) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	fn := m.ClassifyFunc
	m.mu.Unlock()
	if fn == nil {
		return nil, ErrBadOutput
	}
	return fn(ctx, t)
}

// Close implements Classifier.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	fn := m.CloseFunc
	m.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return nil
}

// Calls returns how many times Classify was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
