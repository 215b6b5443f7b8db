//go:build !govips || !cgo

package imagecodec

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
)

var activeBackend backend = stdlibBackend{}

func Startup() error {
	return nil
}

func Shutdown() {}

type stdlibBackend struct{}

func (stdlibBackend) encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (stdlibBackend) encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
