package repository

import (
	"context"
	"net/url"
	"strings"

	"go-ai-image-detector/internal/storage"
)

// HTTPImageRepository implements ImageRepository using the HTTP fetcher,
// falling back to blob storage for Azure blob URLs when configured.
type HTTPImageRepository struct {
	fetcher storage.ImageFetcher
	blobs   storage.BlobStorage
}

// NewHTTPImageRepository creates a new HTTP-based image repository. blobs
// may be nil when Azure storage is not configured.
func NewHTTPImageRepository(fetcher storage.ImageFetcher, blobs storage.BlobStorage) ImageRepository {
	return &HTTPImageRepository{
		fetcher: fetcher,
		blobs:   blobs,
	}
}

// FetchImage retrieves an image from a URL
func (r *HTTPImageRepository) FetchImage(ctx context.Context, imageURL string) (*storage.SourceImage, error) {
	if r.blobs != nil && isBlobURL(imageURL) {
		return r.blobs.GetImage(ctx, imageURL)
	}
	return r.fetcher.FetchImage(ctx, imageURL)
}

// ValidateImageURL validates if the provided URL is acceptable
func (r *HTTPImageRepository) ValidateImageURL(imageURL string) error {
	if imageURL == "" {
		return ErrInvalidImageURL
	}
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return ErrInvalidImageURL
	}
	if parsed.Host == "" {
		return ErrInvalidImageURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidImageURL
	}
	return nil
}

func isBlobURL(imageURL string) bool {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(parsed.Hostname(), ".blob.core.windows.net")
}
