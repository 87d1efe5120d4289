package container

import (
	"fmt"
	"net/http"

	"go-ai-image-detector/internal/config"
	"go-ai-image-detector/internal/detector"
	"go-ai-image-detector/internal/logger"
	"go-ai-image-detector/internal/observer"
	"go-ai-image-detector/internal/repository"
	"go-ai-image-detector/internal/service"
	"go-ai-image-detector/internal/session"
	"go-ai-image-detector/internal/storage"
	"go-ai-image-detector/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config           *config.Config
	imageFetcher     storage.ImageFetcher
	detector         detector.Detector
	workerPool       *detector.WorkerPool
	imageRepository  repository.ImageRepository
	detectionService service.DetectionService
	sessions         *session.Store
	metrics          *observer.MetricsObserver
	handler          http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	imageFetcher := storage.NewHTTPImageFetcher(cfg.MaxUploadBytes)

	var blobs storage.BlobStorage
	if cfg.AzureEnabled() {
		var err error
		blobs, err = storage.NewAzureStorage(cfg.AzureAccountName, cfg.AzureAccountKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize blob storage: %w", err)
		}
	}

	d := detector.New(cfg.DetectorWorkers)

	pool := detector.NewWorkerPool(cfg.DetectorWorkers)
	pool.Start()

	metrics := observer.NewMetricsObserver()
	events := observer.NewPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	imageRepository := repository.NewHTTPImageRepository(imageFetcher, blobs)
	detectionService := service.NewDetectionService(imageRepository, d, pool, events)
	sessions := session.NewStore()
	handler := transport.NewHandler(detectionService, sessions, metrics, cfg)

	return &Container{
		config:           cfg,
		imageFetcher:     imageFetcher,
		detector:         d,
		workerPool:       pool,
		imageRepository:  imageRepository,
		detectionService: detectionService,
		sessions:         sessions,
		metrics:          metrics,
		handler:          handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases pooled resources
func (c *Container) Close() {
	c.workerPool.Close()
}
