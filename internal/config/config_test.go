package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"RECOGNITION_LABELS", "RECOGNITION_MODELS_DIR", "RECOGNITION_DEVICE",
		"RECOGNITION_BACKEND", "RECOGNITION_REMOTE_URL", "RECOGNITION_ONNX_LIBRARY", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	s := Load()
	assert.Equal(t, DefaultLabelsPath, s.LabelsPath)
	assert.Equal(t, DefaultModelsDir, s.ModelsDir)
	assert.Equal(t, DefaultDevice, s.Device)
	assert.Equal(t, DefaultBackend, s.Backend)
	assert.Equal(t, DefaultRemoteURL, s.RemoteURL)
	assert.Equal(t, DefaultLogLevel, s.LogLevel)
	assert.Empty(t, s.OnnxLib)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("RECOGNITION_LABELS", "/tmp/labels.txt")
	t.Setenv("RECOGNITION_MODELS_DIR", "/opt/models")
	t.Setenv("RECOGNITION_DEVICE", "2")
	t.Setenv("RECOGNITION_BACKEND", "onnxruntime")
	t.Setenv("RECOGNITION_ONNX_LIBRARY", "/usr/lib/libonnxruntime.so")
	t.Setenv("LOG_LEVEL", "debug")

	s := Load()
	assert.Equal(t, "/tmp/labels.txt", s.LabelsPath)
	assert.Equal(t, "/opt/models", s.ModelsDir)
	assert.Equal(t, 2, s.Device)
	assert.Equal(t, "onnxruntime", s.Backend)
	assert.Equal(t, "/usr/lib/libonnxruntime.so", s.OnnxLib)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestLoad_BadDeviceFallsBack(t *testing.T) {
	t.Setenv("RECOGNITION_DEVICE", "webcam")
	assert.Equal(t, DefaultDevice, Load().Device)
}
