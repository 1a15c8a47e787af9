package frame

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		img     RawImage
		wantErr bool
	}{
		{"valid", Solid(4, 3, BGR, 1, 2, 3), false},
		{"grayscale", RawImage{Width: 4, Height: 3, Channels: 1, Pix: make([]byte, 12)}, true},
		{"four channels", RawImage{Width: 2, Height: 2, Channels: 4, Pix: make([]byte, 16)}, true},
		{"short buffer", RawImage{Width: 4, Height: 3, Channels: 3, Pix: make([]byte, 10)}, true},
		{"zero size", RawImage{Channels: 3}, true},
		{"nil pixels", RawImage{Width: 1, Height: 1, Channels: 3}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.img.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrShape)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSolid_ChannelOrder(t *testing.T) {
	bgr := Solid(1, 1, BGR, 10, 20, 30)
	assert.Equal(t, []byte{30, 20, 10}, bgr.Pix)

	rgb := Solid(1, 1, RGB, 10, 20, 30)
	assert.Equal(t, []byte{10, 20, 30}, rgb.Pix)

	for _, img := range []RawImage{bgr, rgb} {
		r, g, b := img.RGBAt(0, 0)
		assert.Equal(t, [3]uint8{10, 20, 30}, [3]uint8{r, g, b}, img.Order.String())
	}
}

func TestClone_IsDeep(t *testing.T) {
	orig := Solid(2, 2, BGR, 0, 0, 0)
	c := orig.Clone()
	c.Pix[0] = 255
	assert.Equal(t, byte(0), orig.Pix[0])
}

func TestFromImage_RoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.Set(0, 0, color.NRGBA{R: 255, A: 255})
	src.Set(2, 1, color.NRGBA{B: 200, G: 100, A: 255})

	raw := FromImage(src)
	require.NoError(t, raw.Validate())
	assert.Equal(t, RGB, raw.Order)

	r, g, b := raw.RGBAt(0, 0)
	assert.Equal(t, [3]uint8{255, 0, 0}, [3]uint8{r, g, b})
	r, g, b = raw.RGBAt(2, 1)
	assert.Equal(t, [3]uint8{0, 100, 200}, [3]uint8{r, g, b})

	rgba, err := raw.ToRGBA()
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0, G: 100, B: 200, A: 255}, rgba.RGBAAt(2, 1))
}

func TestToRGBA_RejectsMalformed(t *testing.T) {
	_, err := RawImage{Width: 2, Height: 2, Channels: 1, Pix: make([]byte, 4)}.ToRGBA()
	assert.ErrorIs(t, err, ErrShape)
}
