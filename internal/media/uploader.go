package media

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"renoquote/internal/config"
)

// Image is a rendered image produced by a transformation tier.
type Image struct {
	Data     []byte
	MIMEType string
}

// Stored is the canonical key of a saved image and the URL the browser can load it from.
type Stored struct {
	Key string
	URL string
}

// Store hides where rendered images end up.
type Store interface {
	Save(ctx context.Context, img Image) (Stored, error)
}

type inlineStore struct{}

func (inlineStore) Save(_ context.Context, img Image) (Stored, error) {
	if len(img.Data) == 0 {
		return Stored{}, fmt.Errorf("image data is required")
	}
	return Stored{URL: DataURI(img.MIMEType, img.Data)}, nil
}

// Inline returns a store that embeds images in the response as data URIs.
func Inline() Store {
	return inlineStore{}
}

// New picks S3 when a bucket is configured, then a local directory, then inline data URIs.
func New(ctx context.Context, cfg config.MediaConfig) (Store, error) {
	if cfg.Bucket != "" && cfg.Region != "" {
		store, err := NewS3Store(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	if cfg.LocalDir != "" {
		store, err := NewLocalStore(cfg.LocalDir, "/media")
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return Inline(), nil
}

// Publish saves img and returns its URL. A failing store degrades to an inline data URI.
func Publish(ctx context.Context, store Store, img Image) string {
	if store != nil {
		stored, err := store.Save(ctx, img)
		if err == nil && stored.URL != "" {
			return stored.URL
		}
		if err != nil {
			log.Warn().Err(err).Msg("store rendered image, falling back to inline")
		}
	}
	return DataURI(img.MIMEType, img.Data)
}
