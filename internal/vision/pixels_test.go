package vision

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sauceRed  = color.NRGBA{R: 200, G: 30, B: 30, A: 255}
	trayWhite = color.NRGBA{R: 250, G: 250, B: 250, A: 255}
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestIsFoodPixel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		r, g, b, a uint8
		want       bool
	}{
		{"saturated red", 200, 30, 30, 255, true},
		{"green salad", 60, 160, 50, 255, true},
		{"white tray", 250, 250, 250, 255, false},
		{"gray tray", 128, 128, 128, 255, false},
		{"black shadow", 10, 10, 10, 255, false},
		{"transparent", 200, 30, 30, 99, false},
		{"alpha at threshold", 200, 30, 30, 100, true},
		{"diff exactly 25", 100, 125, 100, 255, false},
		{"diff 26", 100, 126, 100, 255, true},
		// brightness (30+30+60)/3 = 40, not above 40
		{"brightness at lower bound", 30, 30, 60, 255, false},
		// brightness (255+255+225)/3 = 245, not below 245
		{"brightness at upper bound", 255, 255, 225, 255, false},
		{"bright but colourful", 255, 240, 200, 255, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsFoodPixel(tt.r, tt.g, tt.b, tt.a))
		})
	}
}

func TestCountFoodPixels(t *testing.T) {
	t.Parallel()

	img := solid(10, 10, trayWhite)
	for y := 0; y < 4; y++ {
		for x := 0; x < 5; x++ {
			img.SetNRGBA(x, y, sauceRed)
		}
	}
	assert.Equal(t, 20, CountFoodPixels(img))
	assert.Equal(t, 0, CountFoodPixels(solid(10, 10, trayWhite)))
}

func TestCountFoodPixels_SubImage(t *testing.T) {
	t.Parallel()

	img := solid(10, 10, sauceRed)
	sub := img.SubImage(image.Rect(2, 2, 5, 5)).(*image.NRGBA)
	assert.Equal(t, 9, CountFoodPixels(sub))
}

func TestResample_CanonicalSize(t *testing.T) {
	t.Parallel()

	for _, size := range []image.Point{{40, 25}, {300, 300}, {1024, 768}} {
		out := Resample(solid(size.X, size.Y, sauceRed))
		assert.Equal(t, image.Rect(0, 0, CanonicalSize, CanonicalSize), out.Bounds())
	}
}

func TestFoodPixels_ComparableAcrossResolutions(t *testing.T) {
	t.Parallel()

	small, err := FoodPixels(encodePNG(t, solid(120, 80, sauceRed)))
	require.NoError(t, err)
	large, err := FoodPixels(encodePNG(t, solid(900, 1200, sauceRed)))
	require.NoError(t, err)

	assert.Equal(t, CanonicalSize*CanonicalSize, small)
	assert.Equal(t, small, large)
}

func TestFoodPixels_HalfPlate(t *testing.T) {
	t.Parallel()

	img := solid(600, 300, trayWhite)
	for y := 0; y < 300; y++ {
		for x := 0; x < 300; x++ {
			img.SetNRGBA(x, y, sauceRed)
		}
	}
	n, err := FoodPixels(encodePNG(t, img))
	require.NoError(t, err)

	half := CanonicalSize * CanonicalSize / 2
	assert.InDelta(t, half, n, float64(2*CanonicalSize))
}

func TestFoodPixels_EmptyTray(t *testing.T) {
	t.Parallel()

	n, err := FoodPixels(encodePNG(t, solid(200, 200, trayWhite)))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDecode_Failures(t *testing.T) {
	t.Parallel()

	for name, data := range map[string][]byte{
		"empty":   nil,
		"garbage": []byte("definitely not an image"),
	} {
		name, data := name, data
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, _, err := Decode(data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDecode))

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Empty(t, de.Source)
		})
	}
}

func TestDecode_Format(t *testing.T) {
	t.Parallel()

	_, format, err := Decode(encodePNG(t, solid(4, 4, sauceRed)))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}

func TestDecodeError_Message(t *testing.T) {
	t.Parallel()

	err := &DecodeError{Source: "after", Err: errors.New("truncated")}
	assert.Equal(t, "failed to decode after image: truncated", err.Error())
	assert.ErrorIs(t, err, ErrDecode)
}
