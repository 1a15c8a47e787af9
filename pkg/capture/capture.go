// Package capture produces frames from image files and capture devices.
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-recognition/internal/log"
	"github.com/teslashibe/go-recognition/pkg/frame"
)

var (
	// ErrReadFailed is returned when a frame cannot be read or decoded.
	ErrReadFailed = errors.New("capture: failed to read frame")

	// ErrImageNotFound is returned when the image path does not exist.
	ErrImageNotFound = errors.New("capture: image not found")

	// ErrDeviceUnavailable is returned when a capture device cannot be opened.
	ErrDeviceUnavailable = errors.New("capture: device unavailable")
)

// LoadImage decodes one image file as a BGR frame.
func LoadImage(path string) (frame.RawImage, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return frame.RawImage{}, fmt.Errorf("%w: %s", ErrImageNotFound, path)
	}

	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()
	if mat.Empty() {
		return frame.RawImage{}, fmt.Errorf("%w: cannot decode %s", ErrReadFailed, path)
	}
	return FromMat(mat)
}

// FileSource serves a single decoded image forever, so a still image can
// drive the live loop. Every Read returns a fresh copy.
type FileSource struct {
	Path string
	img  frame.RawImage
}

// OpenFile decodes path once.
func OpenFile(path string) (*FileSource, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{Path: path, img: img}, nil
}

// Read returns a copy of the decoded image.
func (s *FileSource) Read() (frame.RawImage, error) {
	return s.img.Clone(), nil
}

// Close is a no-op.
func (s *FileSource) Close() error { return nil }

// DeviceSource reads frames from a camera.
type DeviceSource struct {
	ID int

	mu     sync.Mutex
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	logger *slog.Logger
	closed bool
}

// OpenDevice opens capture device id and requests the mode in cfg. The
// caller must Close it.
func OpenDevice(id int, cfg DeviceConfig, logger *slog.Logger) (*DeviceSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	vc, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrDeviceUnavailable, id, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: device %d", ErrDeviceUnavailable, id)
	}
	if cfg.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.FPS > 0 {
		vc.Set(gocv.VideoCaptureFPS, cfg.FPS)
	}

	logger = log.Or(logger).With("device", id)
	logger.Info("capture device opened",
		"width", vc.Get(gocv.VideoCaptureFrameWidth),
		"height", vc.Get(gocv.VideoCaptureFrameHeight),
		"fps", vc.Get(gocv.VideoCaptureFPS))

	return &DeviceSource{
		ID:     id,
		vc:     vc,
		mat:    gocv.NewMat(),
		logger: logger,
	}, nil
}

// Read grabs the next frame. An unreadable or empty frame is an error.
func (s *DeviceSource) Read() (frame.RawImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return frame.RawImage{}, fmt.Errorf("%w: device %d closed", ErrReadFailed, s.ID)
	}
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		return frame.RawImage{}, fmt.Errorf("%w: device %d", ErrReadFailed, s.ID)
	}
	return FromMat(s.mat)
}

// Close releases the device. Safe to call more than once.
func (s *DeviceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug("capture device released")
	if err := s.mat.Close(); err != nil {
		s.vc.Close()
		return err
	}
	return s.vc.Close()
}
