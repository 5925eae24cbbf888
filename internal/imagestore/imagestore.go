// Package imagestore saves product images on local disk and hands back the
// public URL the catalog stores.
package imagestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrUnsupportedImage = errors.New("unsupported image type")

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

type Store struct {
	dir           string
	publicBaseURL string
}

// New prepares the image directory. publicBaseURL is prepended to the served
// path so stored URLs work behind a reverse proxy.
func New(dir string, publicBaseURL string) (*Store, error) {
	if dir == "" {
		dir = "images"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &Store{
		dir:           dir,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Save writes the image under a random name and returns its public URL.
// Names are never derived from user input.
func (s *Store) Save(data []byte, ext string) (string, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if !allowedExtensions[ext] {
		return "", ErrUnsupportedImage
	}
	if len(data) == 0 {
		return "", errors.New("empty image payload")
	}

	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}

	return s.publicBaseURL + "/images/" + name, nil
}
