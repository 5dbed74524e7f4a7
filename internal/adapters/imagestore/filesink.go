// Package imagestore persists rendered traces as PNG files.
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// ErrEmptyName is returned when a final render has no file name.
var ErrEmptyName = errors.New("imagestore: empty file name")

// FileSink writes renders into a single output directory. Live previews are
// replaced atomically so readers never observe a partial file.
type FileSink struct {
	dir     string
	encoder png.Encoder
}

// NewFileSink creates the output directory if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}
	return &FileSink{dir: dir, encoder: png.Encoder{CompressionLevel: png.BestSpeed}}, nil
}

// Dir returns the output directory.
func (s *FileSink) Dir() string { return s.dir }

// LiveName is the preview file name of a wand.
func LiveName(wand uint16) string {
	return fmt.Sprintf("live_w%d.png", wand)
}

// WriteLive replaces the wand's preview image and returns its path.
func (s *FileSink) WriteLive(ctx context.Context, wand uint16, img image.Image) (string, error) {
	return s.writeAtomic(ctx, LiveName(wand), img)
}

// WriteFinal writes a finalized render under name and returns its path.
func (s *FileSink) WriteFinal(ctx context.Context, name string, img image.Image) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}
	return s.writeAtomic(ctx, name, img)
}

func (s *FileSink) writeAtomic(ctx context.Context, name string, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}
	dst := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := s.encoder.Encode(tmp, img); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		cleanup()
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return dst, nil
}
