// Package imagecodec converts between in-memory images, encoded PNG/JPEG
// buffers, and GenerationService prompt artifacts.
package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const DefaultJPEGQuality = 90

var (
	ErrUnsupportedImage = errors.New("unsupported image representation")
	ErrShapeMismatch    = errors.New("image shapes differ")
	ErrEmptyImage       = errors.New("empty image data")
)

func EncodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("encode png: %w", ErrEmptyImage)
	}
	return activeBackend.encodePNG(img)
}

// EncodeJPEG encodes img at quality 0-100.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("encode jpeg: %w", ErrEmptyImage)
	}
	if quality < 0 || quality > 100 {
		return nil, fmt.Errorf("encode jpeg: quality must be within 0-100, got %d", quality)
	}
	return activeBackend.encodeJPEG(img, quality)
}

// Decode reads an encoded artifact into a color image. The format comes
// from the data's own header.
func Decode(data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return imaging.Clone(img), nil
}

// Mix cross-fades a toward b: a*(1-tween) + b*tween per channel, truncated
// back to 8 bits. Both images must have the same dimensions.
func Mix(a, b image.Image, tween float64) (*image.NRGBA, error) {
	if a == nil || b == nil {
		return nil, ErrEmptyImage
	}
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return nil, fmt.Errorf("%w: %dx%d vs %dx%d", ErrShapeMismatch, ab.Dx(), ab.Dy(), bb.Dx(), bb.Dy())
	}

	na := imaging.Clone(a)
	nb := imaging.Clone(b)
	out := image.NewNRGBA(na.Bounds())
	for i := range na.Pix {
		v := float64(na.Pix[i])*(1.0-tween) + float64(nb.Pix[i])*tween
		out.Pix[i] = truncateUint8(v)
	}
	return out, nil
}

func truncateUint8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
