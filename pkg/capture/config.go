package capture

import (
	"fmt"
	"sort"
)

// DeviceConfig requests a capture mode from the camera. Zero values leave the
// driver default in place; drivers may pick the nearest supported mode.
type DeviceConfig struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`
}

// Preset names for common capture modes.
const (
	PresetNative = "native"
	Preset480p   = "480p"
	Preset720p   = "720p"
	Preset1080p  = "1080p"
)

var presets = map[string]DeviceConfig{
	PresetNative: {},
	Preset480p:   {Width: 640, Height: 480, FPS: 30},
	Preset720p:   {Width: 1280, Height: 720, FPS: 30},
	Preset1080p:  {Width: 1920, Height: 1080, FPS: 30},
}

// DefaultDeviceConfig keeps whatever mode the driver opens with.
func DefaultDeviceConfig() DeviceConfig {
	return presets[PresetNative]
}

// PresetNames returns the preset names in a stable order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset looks up a named capture mode.
func Preset(name string) (DeviceConfig, error) {
	cfg, ok := presets[name]
	if !ok {
		return DeviceConfig{}, fmt.Errorf("capture: unknown preset %q", name)
	}
	return cfg, nil
}

// Validate rejects negative or half-specified sizes.
func (c DeviceConfig) Validate() error {
	if c.Width < 0 || c.Height < 0 || c.FPS < 0 {
		return fmt.Errorf("capture: negative device setting %+v", c)
	}
	if (c.Width == 0) != (c.Height == 0) {
		return fmt.Errorf("capture: width and height must be set together, got %dx%d", c.Width, c.Height)
	}
	return nil
}
