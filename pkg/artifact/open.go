// Package artifact walks named generation artifacts and shows the images
// among them.
package artifact

import (
	"fmt"
	"image"
	"iter"

	"github.com/dunamismax/pixelgen/pkg/generation"
	"github.com/dunamismax/pixelgen/pkg/imagecodec"
	"go.uber.org/zap"
)

// Viewer displays a decoded image artifact.
type Viewer interface {
	Show(path string, img image.Image) error
}

type ViewerFunc func(path string, img image.Image) error

func (f ViewerFunc) Show(path string, img image.Image) error {
	return f(path, img)
}

type config struct {
	verbose bool
	logger  *zap.Logger
	onError func(path string, err error)
}

type Option func(*config)

// WithVerbose logs every image as it is opened.
func WithVerbose(logger *zap.Logger) Option {
	return func(c *config) {
		c.verbose = true
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithErrorHandler receives decode and viewer failures. Without one they
// are dropped.
func WithErrorHandler(fn func(path string, err error)) Option {
	return func(c *config) {
		c.onError = fn
	}
}

// Open shows every image artifact of seq through viewer and yields each
// pair unchanged, images or not.
func Open(seq iter.Seq2[string, *generation.Artifact], viewer Viewer, opts ...Option) iter.Seq2[string, *generation.Artifact] {
	cfg := config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(yield func(string, *generation.Artifact) bool) {
		for path, a := range seq {
			if a != nil && a.Type == generation.ArtifactImage && viewer != nil {
				if err := show(path, a, viewer, cfg); err != nil && cfg.onError != nil {
					cfg.onError(path, err)
				}
			}
			if !yield(path, a) {
				return
			}
		}
	}
}

func show(path string, a *generation.Artifact, viewer Viewer, cfg config) error {
	if cfg.verbose {
		cfg.logger.Info(fmt.Sprintf("opening %s", path))
	}
	img, err := imagecodec.Decode(a.Binary)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if err := viewer.Show(path, img); err != nil {
		return fmt.Errorf("show %s: %w", path, err)
	}
	return nil
}
