// Package config provides environment-backed defaults for go-recognition commands.
// Command-line flags take precedence over everything read here.
package config

import (
	"os"
	"strconv"
)

// Default settings used when neither a flag nor an environment variable is set.
const (
	DefaultLabelsPath = "imagenet_classes.txt"
	DefaultModelsDir  = "models"
	DefaultDevice     = 0
	DefaultBackend    = "opencv"
	DefaultRemoteURL  = "http://localhost:5000/classify"
	DefaultLogLevel   = "info"
)

// Settings holds the environment view of the classifier configuration.
type Settings struct {
	LabelsPath string
	ModelsDir  string
	Device     int
	Backend    string
	RemoteURL  string
	OnnxLib    string // Optional onnxruntime shared library path
	LogLevel   string
}

// Load reads settings from the environment, falling back to defaults.
func Load() Settings {
	return Settings{
		LabelsPath: getEnv("RECOGNITION_LABELS", DefaultLabelsPath),
		ModelsDir:  getEnv("RECOGNITION_MODELS_DIR", DefaultModelsDir),
		Device:     getEnvInt("RECOGNITION_DEVICE", DefaultDevice),
		Backend:    getEnv("RECOGNITION_BACKEND", DefaultBackend),
		RemoteURL:  getEnv("RECOGNITION_REMOTE_URL", DefaultRemoteURL),
		OnnxLib:    os.Getenv("RECOGNITION_ONNX_LIBRARY"),
		LogLevel:   getEnv("LOG_LEVEL", DefaultLogLevel),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt ignores values that do not parse as integers.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
