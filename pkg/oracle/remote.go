package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/teslashibe/go-recognition/internal/httpc"
	"github.com/teslashibe/go-recognition/internal/log"
	"github.com/teslashibe/go-recognition/pkg/preprocess"
)

// RemoteRequest is the JSON body sent to a remote inference service.
type RemoteRequest struct {
	Model string    `json:"model"`
	Shape []int64   `json:"shape"`
	Input []float32 `json:"input"`
}

// RemoteResponse is the JSON body expected back.
type RemoteResponse struct {
	Scores []float32 `json:"scores"`
}

// RemoteClassifier posts tensors to an HTTP service that runs the network.
type RemoteClassifier struct {
	url        string
	model      Model
	numClasses int
	client     *http.Client
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewRemote creates a classifier for the service at spec.RemoteURL.
// client may be nil to use the shared httpc client.
func NewRemote(spec Spec, client *http.Client) (*RemoteClassifier, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.RemoteURL == "" {
		return nil, fmt.Errorf("oracle: remote backend needs a URL")
	}
	if client == nil {
		client = httpc.Client
	}
	return &RemoteClassifier{
		url:        spec.RemoteURL,
		model:      spec.Model,
		numClasses: spec.NumClasses,
		client:     client,
		logger:     log.Or(spec.Logger).With("backend", Remote.String(), "model", spec.Model.String()),
	}, nil
}

// Classify sends the tensor and decodes the scores.
func (r *RemoteClassifier) Classify(ctx context.Context, t preprocess.Tensor) ([]float32, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	resp, err := httpc.PostJSON(ctx, r.client, r.url, RemoteRequest{
		Model: r.model.String(),
		Shape: t.Shape64(),
		Input: t.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body), URL: r.url}
	}

	var out RemoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Scores) != r.numClasses {
		return nil, fmt.Errorf("%w: got %d scores, want %d", ErrBadOutput, len(out.Scores), r.numClasses)
	}
	r.logger.Debug("remote classification", "scores", len(out.Scores))
	return out.Scores, nil
}

// Close marks the classifier closed. Idle connections belong to the shared client.
func (r *RemoteClassifier) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
