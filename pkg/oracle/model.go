package oracle

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Model identifies one of the supported pretrained classification networks.
// The set is closed; parse user input with ParseModel.
type Model int

const (
	VGG16 Model = iota
	VGG19
	Inception
	DenseNet
	ResNet
)

// DefaultModel is used when no model is requested.
const DefaultModel = VGG16

var modelNames = [...]string{
	VGG16:     "vgg16",
	VGG19:     "vgg19",
	Inception: "inception",
	DenseNet:  "densenet",
	ResNet:    "resnet",
}

// Architecture descriptions, for logs and the web API.
var modelArchitectures = [...]string{
	VGG16:     "VGG-16",
	VGG19:     "VGG-19",
	Inception: "Inception v3",
	DenseNet:  "DenseNet-121",
	ResNet:    "ResNet-50",
}

// Models returns every supported model in declaration order.
func Models() []Model {
	return []Model{VGG16, VGG19, Inception, DenseNet, ResNet}
}

// ModelNames returns the accepted command-line names.
func ModelNames() []string {
	return append([]string(nil), modelNames[:]...)
}

// ParseModel maps a name to a Model. Matching ignores case and surrounding space.
func ParseModel(name string) (Model, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range modelNames {
		if s == n {
			return Model(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownModel, name, strings.Join(modelNames[:], ", "))
}

// Valid reports whether m is one of the declared models.
func (m Model) Valid() bool {
	return m >= 0 && int(m) < len(modelNames)
}

func (m Model) String() string {
	if !m.Valid() {
		return fmt.Sprintf("model(%d)", int(m))
	}
	return modelNames[m]
}

// Architecture returns a human-readable network name.
func (m Model) Architecture() string {
	if !m.Valid() {
		return m.String()
	}
	return modelArchitectures[m]
}

// Filename is the exported ONNX file for the model, e.g. "resnet.onnx".
func (m Model) Filename() string {
	return m.String() + ".onnx"
}

// PathIn returns the model file inside dir.
func (m Model) PathIn(dir string) string {
	return filepath.Join(dir, m.Filename())
}

// MarshalText implements encoding.TextMarshaler.
func (m Model) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownModel, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Model) UnmarshalText(b []byte) error {
	parsed, err := ParseModel(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
