package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
)

var ErrUploadTooLarge = errors.New("storage: upload too large")

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// Uploads stores customer photos on local disk under generated names.
type Uploads struct {
	dir     string
	maxSize int64
}

func NewUploads(dir string, maxSize int64) *Uploads {
	return &Uploads{dir: dir, maxSize: maxSize}
}

func (u *Uploads) Dir() string {
	return u.dir
}

// Save writes r to a new file named after prefix and returns the file name.
func (u *Uploads) Save(prefix, originalName, contentType string, r io.Reader) (string, error) {
	const operation = "storage.Uploads.Save"

	if err := os.MkdirAll(u.dir, 0755); err != nil {
		return "", fmt.Errorf("%s: failed to create uploads directory: %w", operation, err)
	}

	name := prefix + "_" + ulid.Make().String() + extension(originalName, contentType)
	path := filepath.Join(u.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("%s: %w", operation, err)
	}

	n, err := io.Copy(f, io.LimitReader(r, u.maxSize+1))
	closeErr := f.Close()
	switch {
	case err != nil:
		os.Remove(path)
		return "", fmt.Errorf("%s: write: %w", operation, err)
	case n > u.maxSize:
		os.Remove(path)
		return "", ErrUploadTooLarge
	case closeErr != nil:
		os.Remove(path)
		return "", fmt.Errorf("%s: close: %w", operation, closeErr)
	}
	return name, nil
}

func extension(name, contentType string) string {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range imageExtensions {
		if ext == known || ext == ".jpeg" {
			return ext
		}
	}
	if ext, ok := imageExtensions[contentType]; ok {
		return ext
	}
	return ".jpg"
}
