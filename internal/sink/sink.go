// Package sink writes rendered frames to a local directory or to object
// storage.
package sink

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/dunamismax/pixelgen/pkg/imagecodec"
)

const pngContentType = "image/png"

type Local struct {
	dir string
}

// NewLocal writes frames for one job under root/<jobID>.
func NewLocal(root, jobID string) (*Local, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("output directory is required")
	}
	dir := filepath.Join(root, sanitizePathToken(jobID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Dir() string {
	return l.dir
}

// Write stores img as PNG and returns the file path.
func (l *Local) Write(ctx context.Context, name string, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := imagecodec.EncodePNG(img)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}

	fullPath := filepath.Join(l.dir, sanitizePathToken(name))
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write output file: %w", err)
	}
	return fullPath, nil
}

type ObjectWriter interface {
	WriteObject(ctx context.Context, objectKey string, data []byte, contentType string) error
}

type ObjectStore struct {
	storage ObjectWriter
	prefix  string
}

func NewObjectStore(storage ObjectWriter, prefix string) (*ObjectStore, error) {
	if storage == nil {
		return nil, errors.New("storage client is required")
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = "outputs"
	}
	return &ObjectStore{storage: storage, prefix: prefix}, nil
}

// Write stores img as PNG and returns the object key.
func (s *ObjectStore) Write(ctx context.Context, name string, img image.Image) (string, error) {
	data, err := imagecodec.EncodePNG(img)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}

	objectKey := path.Join(s.prefix, sanitizePathToken(name))
	if err := s.storage.WriteObject(ctx, objectKey, data, pngContentType); err != nil {
		return "", err
	}
	return objectKey, nil
}

// sanitizePathToken replaces every rune that is not a letter, digit, '-',
// '_' or '.' with '_'. The rune count is preserved.
func sanitizePathToken(in string) string {
	in = strings.TrimSpace(in)
	if in == "" || in == "." || in == ".." {
		return "unknown"
	}

	var b strings.Builder
	b.Grow(len(in))
	for _, r := range in {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
