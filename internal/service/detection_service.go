package service

import (
	"context"
	"errors"
	"time"

	"go-ai-image-detector/internal/detector"
	apperrors "go-ai-image-detector/internal/errors"
	"go-ai-image-detector/internal/observer"
	"go-ai-image-detector/internal/repository"
	"go-ai-image-detector/internal/storage"
	"go-ai-image-detector/pkg/models"
)

// DetectionService orchestrates image acquisition and scoring.
type DetectionService interface {
	// AnalyzeURL fetches an image and scores it.
	AnalyzeURL(ctx context.Context, imageURL string) (*models.DetectionResponse, error)

	// AnalyzeUpload decodes raw uploaded bytes and scores them.
	AnalyzeUpload(ctx context.Context, data []byte) (*models.DetectionResponse, error)

	// AnalyzeSource scores an already fetched image.
	AnalyzeSource(ctx context.Context, src *storage.SourceImage) (*models.DetectionResponse, error)

	// AnalyzeBatch scores several URLs concurrently. Per-item failures are
	// reported inline, not as a batch failure.
	AnalyzeBatch(ctx context.Context, imageURLs []string) []models.BatchItem

	// FetchSource retrieves an image without scoring it (session loading).
	FetchSource(ctx context.Context, imageURL string) (*storage.SourceImage, error)

	// FormatReport renders a plain-text report for a detection result.
	FormatReport(result *models.DetectionResponse) string

	ValidateImageURL(imageURL string) error
}

type detectionService struct {
	imageRepo repository.ImageRepository
	detector  detector.Detector
	pool      *detector.WorkerPool
	events    observer.Subject
}

// NewDetectionService creates a detection service. events may be nil when no
// observers are wired.
func NewDetectionService(
	imageRepo repository.ImageRepository,
	d detector.Detector,
	pool *detector.WorkerPool,
	events observer.Subject,
) DetectionService {
	return &detectionService{
		imageRepo: imageRepo,
		detector:  d,
		pool:      pool,
		events:    events,
	}
}

func (s *detectionService) AnalyzeURL(ctx context.Context, imageURL string) (*models.DetectionResponse, error) {
	src, err := s.FetchSource(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	result, err := s.analyze(ctx, src, imageURL)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *detectionService) AnalyzeUpload(ctx context.Context, data []byte) (*models.DetectionResponse, error) {
	src, err := storage.DecodeSourceImage(data)
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to decode uploaded image", err)
	}
	return s.analyze(ctx, src, "")
}

func (s *detectionService) AnalyzeSource(ctx context.Context, src *storage.SourceImage) (*models.DetectionResponse, error) {
	return s.analyze(ctx, src, "")
}

func (s *detectionService) AnalyzeBatch(ctx context.Context, imageURLs []string) []models.BatchItem {
	items := make([]models.BatchItem, len(imageURLs))

	jobs := make([]func(), len(imageURLs))
	for i, imageURL := range imageURLs {
		i, imageURL := i, imageURL
		jobs[i] = func() {
			// Each job runs AnalyzeURL independently; the detector hands
			// every call its own random source.
			result, err := s.AnalyzeURL(ctx, imageURL)
			items[i] = models.BatchItem{ImageURL: imageURL}
			if err != nil {
				items[i].Error = err.Error()
				return
			}
			items[i].Result = result
		}
	}
	s.pool.RunBatch(jobs)

	return items
}

func (s *detectionService) FetchSource(ctx context.Context, imageURL string) (*storage.SourceImage, error) {
	if err := s.ValidateImageURL(imageURL); err != nil {
		return nil, apperrors.NewValidationError("invalid image URL", err)
	}

	src, err := s.imageRepo.FetchImage(ctx, imageURL)
	if err != nil {
		s.notify(ctx, observer.DetectionEvent{
			EventType:    observer.ImageFetchFailed,
			Timestamp:    time.Now(),
			ImageURL:     imageURL,
			ErrorMessage: err.Error(),
		})
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewTimeoutError("image fetch timeout", err)
		}
		return nil, apperrors.NewNetworkError("failed to fetch image", err)
	}

	s.notify(ctx, observer.DetectionEvent{
		EventType: observer.ImageFetched,
		Timestamp: time.Now(),
		ImageURL:  imageURL,
		Success:   true,
	})
	return src, nil
}

func (s *detectionService) ValidateImageURL(imageURL string) error {
	return s.imageRepo.ValidateImageURL(imageURL)
}

func (s *detectionService) analyze(ctx context.Context, src *storage.SourceImage, imageURL string) (*models.DetectionResponse, error) {
	s.notify(ctx, observer.DetectionEvent{
		EventType: observer.DetectionStarted,
		Timestamp: time.Now(),
		ImageURL:  imageURL,
	})

	result, err := s.detector.Score(src.Image, src.ByteLength, detector.DefaultOptions())
	if err != nil {
		s.notify(ctx, observer.DetectionEvent{
			EventType:    observer.DetectionFailed,
			Timestamp:    time.Now(),
			ImageURL:     imageURL,
			ErrorMessage: err.Error(),
		})
		if errors.Is(err, detector.ErrInvalidInput) {
			return nil, apperrors.NewValidationError("invalid image input", err)
		}
		return nil, apperrors.NewProcessingError("image scoring failed", err)
	}

	response := s.convertResult(imageURL, src, &result)

	s.notify(ctx, observer.DetectionEvent{
		EventType:      observer.DetectionCompleted,
		Timestamp:      time.Now(),
		ImageURL:       imageURL,
		ProcessingTime: time.Duration(result.ProcessingTimeSec * float64(time.Second)),
		Success:        true,
		Score:          result.Score,
		Verdict:        response.Verdict,
	})
	return response, nil
}

func (s *detectionService) convertResult(imageURL string, src *storage.SourceImage, result *detector.Result) *models.DetectionResponse {
	verdict := models.VerdictLikelyReal
	if result.AIGenerated {
		verdict = models.VerdictAIGenerated
	}

	return &models.DetectionResponse{
		ImageURL:          imageURL,
		Timestamp:         result.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		ProcessingTimeSec: result.ProcessingTimeSec,
		Score:             result.Score,
		Verdict:           verdict,
		AIGenerated:       result.AIGenerated,
		FileBytes:         src.ByteLength,
		Format:            src.Format,
		Features: models.FeatureMetrics{
			EdgeEnergy:    result.Features.EdgeEnergy,
			ChannelStdDev: result.Features.ChannelStdDev,
			Saturation:    result.Features.Saturation,
			SizeProxyKB:   result.Features.SizeProxyKB,
		},
		Normalized: models.NormalizedFeatures{
			EdgeNorm:       result.Normalized.EdgeNorm,
			StdDevNorm:     result.Normalized.StdDevNorm,
			SaturationNorm: result.Normalized.SaturationNorm,
			SizeNorm:       result.Normalized.SizeNorm,
			RawScore:       result.Normalized.RawScore,
		},
	}
}

func (s *detectionService) notify(ctx context.Context, event observer.DetectionEvent) {
	if s.events != nil {
		s.events.NotifyObservers(ctx, event)
	}
}
