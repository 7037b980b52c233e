// Package storage persists generated images and their thumbnails on the
// local filesystem.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

const thumbWidth = 320

// FileStore persists images onto the local filesystem. It is intended for
// single-node deployments where an object storage service is not available.
type FileStore struct {
	basePath string
}

// NewFileStore initializes a FileStore rooted at basePath, creating the
// images/ and thumbs/ subdirectories.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	for _, dir := range []string{"images", "thumbs"} {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0o755); err != nil {
			return nil, fmt.Errorf("storage: ensure base path: %w", err)
		}
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	return s.basePath
}

// Saved describes one persisted image.
type Saved struct {
	ImageURL string
	ThumbURL string
}

// Save writes the image bytes under a fresh uuid name and generates a
// downscaled JPEG thumbnail alongside it. The returned URLs are the paths
// the image handler serves them under. Thumbnail failures are not fatal:
// an undecodable image keeps its full-size URL as the thumbnail.
func (s *FileStore) Save(ctx context.Context, data []byte, mime string) (Saved, error) {
	if err := ctx.Err(); err != nil {
		return Saved{}, err
	}
	name := uuid.NewString()
	ext := extensionFor(mime)

	imagePath := filepath.Join(s.basePath, "images", name+ext)
	if err := os.WriteFile(imagePath, data, 0o644); err != nil {
		return Saved{}, fmt.Errorf("storage: write image: %w", err)
	}
	saved := Saved{
		ImageURL: "/images/" + name + ext,
		ThumbURL: "/images/" + name + ext,
	}

	thumb, err := makeThumbnail(data)
	if err != nil {
		return saved, nil
	}
	thumbPath := filepath.Join(s.basePath, "thumbs", name+".jpg")
	if err := os.WriteFile(thumbPath, thumb, 0o644); err != nil {
		return saved, nil
	}
	saved.ThumbURL = "/thumbs/" + name + ".jpg"
	return saved, nil
}

// Remove deletes the files behind previously returned URLs. Missing files
// are ignored so history deletion stays idempotent.
func (s *FileStore) Remove(urls ...string) error {
	for _, u := range urls {
		rel, err := sanitizeKey(u)
		if err != nil {
			continue
		}
		path := filepath.Join(s.basePath, filepath.FromSlash(rel))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("storage: remove %s: %w", rel, err)
		}
	}
	return nil
}

// Resolve maps a served URL path back to a filesystem path, rejecting
// anything that would escape the storage root.
func (s *FileStore) Resolve(urlPath string) (string, error) {
	rel, err := sanitizeKey(urlPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(rel)), nil
}

func makeThumbnail(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("storage: decode image: %w", err)
	}
	small := resize.Resize(thumbWidth, 0, src, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, small, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("storage: encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func extensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
