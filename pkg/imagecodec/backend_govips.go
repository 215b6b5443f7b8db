//go:build govips && cgo

package imagecodec

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
)

var activeBackend backend = govipsBackend{}

var (
	startupOnce sync.Once
	shutdownMu  sync.Mutex
	started     bool
)

func Startup() error {
	startupOnce.Do(func() {
		vips.Startup(&vips.Config{
			MaxCacheFiles: 0,
			MaxCacheMem:   128 * 1024 * 1024,
			MaxCacheSize:  100,
		})

		shutdownMu.Lock()
		started = true
		shutdownMu.Unlock()
	})
	return nil
}

func Shutdown() {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if !started {
		return
	}
	vips.Shutdown()
	started = false
}

type govipsBackend struct{}

func (govipsBackend) encodePNG(img image.Image) ([]byte, error) {
	ref, err := loadVips(img)
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	data, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return data, nil
}

func (govipsBackend) encodeJPEG(img image.Image, quality int) ([]byte, error) {
	ref, err := loadVips(img)
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	params := vips.NewJpegExportParams()
	params.Quality = max(1, quality)
	data, _, err := ref.ExportJpeg(params)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return data, nil
}

// loadVips hands pixels to libvips through a fast, uncompressed PNG.
func loadVips(img image.Image) (*vips.ImageRef, error) {
	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.NoCompression}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("stage image for libvips: %w", err)
	}
	ref, err := vips.NewImageFromBuffer(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("load image into libvips: %w", err)
	}
	return ref, nil
}
