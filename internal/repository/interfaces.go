package repository

import (
	"context"

	"go-ai-image-detector/internal/storage"
)

// ImageRepository defines the interface for image data access operations
type ImageRepository interface {
	// FetchImage retrieves a decoded image plus its original byte length
	FetchImage(ctx context.Context, imageURL string) (*storage.SourceImage, error)

	// ValidateImageURL validates if the provided URL is acceptable
	ValidateImageURL(imageURL string) error
}
