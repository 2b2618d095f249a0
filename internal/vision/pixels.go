// Package vision turns tray photos into food pixel counts.
package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// CanonicalSize is the edge length every photo is resampled to before
// classification so counts are comparable across cameras.
const CanonicalSize = 300

const (
	minAlpha        = 100
	minColorfulness = 25
	minBrightness   = 40
	maxBrightness   = 245
)

var ErrDecode = errors.New("image could not be decoded")

// DecodeError reports which photo failed to decode. It matches ErrDecode
// with errors.Is.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("failed to decode image: %v", e.Err)
	}
	return fmt.Sprintf("failed to decode %s image: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// Decode parses an encoded photo (jpeg, png, gif, bmp, tiff or webp).
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", &DecodeError{Err: errors.New("empty buffer")}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &DecodeError{Err: err}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, "", &DecodeError{Err: fmt.Errorf("image has no pixels (%dx%d)", b.Dx(), b.Dy())}
	}
	return img, format, nil
}

// Resample scales img onto a CanonicalSize square. Aspect ratio is not kept,
// the whole photo is stretched to fill the canvas.
func Resample(img image.Image) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, CanonicalSize, CanonicalSize))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// IsFoodPixel reports whether a straight-alpha sample looks like food:
// colourful, neither near black nor near white, and mostly opaque.
func IsFoodPixel(r, g, b, a uint8) bool {
	if a < minAlpha {
		return false
	}
	maxVal := max(r, g, b)
	minVal := min(r, g, b)
	diff := int(maxVal) - int(minVal)
	brightness := float64(int(r)+int(g)+int(b)) / 3
	return diff > minColorfulness && brightness > minBrightness && brightness < maxBrightness
}

// CountFoodPixels counts the food pixels of an already resampled image.
func CountFoodPixels(img *image.NRGBA) int {
	count := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i+3 < len(row); i += 4 {
			if IsFoodPixel(row[i], row[i+1], row[i+2], row[i+3]) {
				count++
			}
		}
	}
	return count
}

// FoodPixels decodes, resamples and classifies one photo.
func FoodPixels(data []byte) (int, error) {
	img, _, err := Decode(data)
	if err != nil {
		return 0, err
	}
	return CountFoodPixels(Resample(img)), nil
}
