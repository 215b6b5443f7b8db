package imagecodec

import (
	"fmt"
	"image"

	"github.com/dunamismax/pixelgen/pkg/generation"
)

// Source is an image in one of the representations accepted by ToPrompt:
// a PixelArray or a Picture.
type Source interface {
	isSource()
}

// PixelArray is a raw row-major pixel buffer with 1 (gray), 3 (RGB) or
// 4 (RGBA) interleaved 8-bit channels.
type PixelArray struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// Picture wraps an already decoded image.
type Picture struct {
	Image image.Image
}

func (PixelArray) isSource() {}
func (Picture) isSource() {}

// Image converts the buffer to an image.Image.
func (p PixelArray) Image() (image.Image, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("pixel array has invalid dimensions %dx%d", p.Width, p.Height)
	}
	if want := p.Width * p.Height * p.Channels; len(p.Pix) != want {
		return nil, fmt.Errorf("pixel array holds %d bytes, want %d", len(p.Pix), want)
	}

	rect := image.Rect(0, 0, p.Width, p.Height)
	switch p.Channels {
	case 1:
		img := image.NewGray(rect)
		copy(img.Pix, p.Pix)
		return img, nil
	case 3:
		img := image.NewNRGBA(rect)
		for i, j := 0, 0; i < len(p.Pix); i, j = i+3, j+4 {
			img.Pix[j] = p.Pix[i]
			img.Pix[j+1] = p.Pix[i+1]
			img.Pix[j+2] = p.Pix[i+2]
			img.Pix[j+3] = 0xff
		}
		return img, nil
	case 4:
		img := image.NewNRGBA(rect)
		copy(img.Pix, p.Pix)
		return img, nil
	default:
		return nil, fmt.Errorf("%w: pixel array with %d channels", ErrUnsupportedImage, p.Channels)
	}
}

// ToPrompt encodes src as PNG and wraps it as an init image prompt, or as a
// mask prompt with init unset when mask is true.
func ToPrompt(src Source, mask bool) (*generation.Prompt, error) {
	var (
		img image.Image
		err error
	)
	switch s := src.(type) {
	case PixelArray:
		img, err = s.Image()
	case Picture:
		img = s.Image
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedImage, src)
	}
	if err != nil {
		return nil, err
	}

	data, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}

	artifactType := generation.ArtifactImage
	if mask {
		artifactType = generation.ArtifactMask
	}
	return &generation.Prompt{
		Parameters: &generation.PromptParameters{Init: !mask},
		Artifact: &generation.Artifact{
			Type:   artifactType,
			Mime:   "image/png",
			Binary: data,
		},
	}, nil
}

func ImagePrompt(img image.Image) (*generation.Prompt, error) {
	return ToPrompt(Picture{Image: img}, false)
}

func MaskPrompt(img image.Image) (*generation.Prompt, error) {
	return ToPrompt(Picture{Image: img}, true)
}
