package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore writes rendered images to a directory the HTTP server exposes under URLPrefix.
type LocalStore struct {
	Dir       string
	URLPrefix string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "renoquote-media")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local media dir: %w", err)
	}
	return &LocalStore{Dir: dir, URLPrefix: "/" + strings.Trim(urlPrefix, "/")}, nil
}

// Save writes the image and returns a server-relative URL.
func (l *LocalStore) Save(_ context.Context, img Image) (Stored, error) {
	if len(img.Data) == 0 {
		return Stored{}, errors.New("image data is required")
	}
	name := uuid.NewString() + Extension(img.MIMEType)
	if err := os.WriteFile(filepath.Join(l.Dir, name), img.Data, 0o644); err != nil {
		return Stored{}, fmt.Errorf("write media file: %w", err)
	}
	return Stored{Key: name, URL: l.URLPrefix + "/" + name}, nil
}
