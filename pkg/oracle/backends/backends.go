// Package backends maps oracle.Backend values to their constructors.
package backends

import (
	"fmt"

	"github.com/teslashibe/go-recognition/pkg/oracle"
	"github.com/teslashibe/go-recognition/pkg/oracle/onnx"
	"github.com/teslashibe/go-recognition/pkg/oracle/opencv"
)

var factories = map[oracle.Backend]oracle.Factory{
	oracle.OpenCV: func(spec oracle.Spec) (oracle.Classifier, error) {
		c, err := opencv.New(spec)
		if err != nil {
			return nil, err
		}
		return c, nil
	},
	oracle.ONNXRuntime: func(spec oracle.Spec) (oracle.Classifier, error) {
		c, err := onnx.New(spec)
		if err != nil {
			return nil, err
		}
		return c, nil
	},
	oracle.Remote: func(spec oracle.Spec) (oracle.Classifier, error) {
		c, err := oracle.NewRemote(spec, nil)
		if err != nil {
			return nil, err
		}
		return c, nil
	},
}

// Factory returns the constructor for b.
func Factory(b oracle.Backend) (oracle.Factory, error) {
	f, ok := factories[b]
	if !ok {
		return nil, fmt.Errorf("%w: %s", oracle.ErrUnknownBackend, b)
	}
	return f, nil
}

// Open builds a classifier for spec on backend b.
func Open(b oracle.Backend, spec oracle.Spec) (oracle.Classifier, error) {
	f, err := Factory(b)
	if err != nil {
		return nil, err
	}
	c, err := f(spec)
	if err != nil {
		return nil, fmt.Errorf("open %s model on %s: %w", spec.Model, b, err)
	}
	return c, nil
}
