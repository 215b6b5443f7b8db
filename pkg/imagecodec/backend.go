package imagecodec

import "image"

// backend performs the final compression step. The libvips backend is
// selected with the govips build tag.
type backend interface {
	encodePNG(img image.Image) ([]byte, error)
	encodeJPEG(img image.Image, quality int) ([]byte, error)
}
