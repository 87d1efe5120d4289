package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-ai-image-detector/internal/config"
	apperrors "go-ai-image-detector/internal/errors"
	"go-ai-image-detector/internal/logger"
	"go-ai-image-detector/internal/observer"
	"go-ai-image-detector/internal/service"
	"go-ai-image-detector/internal/session"
	"go-ai-image-detector/internal/storage"
)

// DetectRequest is the JSON body of a single-image detection call.
type DetectRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// BatchDetectRequest is the JSON body of a batch detection call.
type BatchDetectRequest struct {
	URLs []string `json:"urls" binding:"required,min=1,max=32"`
}

// LoadImageRequest loads an image into a session by URL. Uploads use
// multipart form data instead.
type LoadImageRequest struct {
	URL string `json:"url" binding:"required,url"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// NewHandler wires all HTTP routes.
func NewHandler(
	svc service.DetectionService,
	sessions *session.Store,
	metrics *observer.MetricsObserver,
	cfg *config.Config,
) http.Handler {
	r := gin.Default()

	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck)
	r.GET("/metrics", detectionMetrics(metrics))

	r.POST("/detect", detectImage(svc, cfg))
	r.POST("/detect/upload", detectUpload(svc, cfg))
	r.POST("/detect/batch", detectBatch(svc, cfg))

	r.POST("/sessions", createSession(sessions))
	r.GET("/sessions/:id", getSession(sessions))
	r.DELETE("/sessions/:id", deleteSession(sessions))
	r.POST("/sessions/:id/image", loadSessionImage(svc, sessions, cfg))
	r.POST("/sessions/:id/analyze", analyzeSession(svc, sessions, cfg))
	r.GET("/sessions/:id/result", getSessionResult(sessions))
	r.GET("/sessions/:id/report", getSessionReport(svc, sessions))

	return r
}

func detectImage(svc service.DetectionService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req DetectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		result, err := svc.AnalyzeURL(ctx, req.URL)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "detection failed", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"url":     req.URL,
			"score":   result.Score,
			"verdict": result.Verdict,
		}).Info("Detection completed")

		c.JSON(http.StatusOK, result)
	}
}

func detectUpload(svc service.DetectionService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.AnalysisTimeout)
		defer cancel()

		data, err := readUpload(c, cfg.MaxUploadBytes)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid upload", err)
			return
		}

		result, err := svc.AnalyzeUpload(ctx, data)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "detection failed", err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func detectBatch(svc service.DetectionService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req BatchDetectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		items := svc.AnalyzeBatch(ctx, req.URLs)
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func createSession(sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Create()
		c.JSON(http.StatusCreated, s.Snapshot())
	}
}

func getSession(sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookupSession(c, sessions)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, s.Snapshot())
	}
}

func deleteSession(sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions.Delete(c.Param("id"))
		c.Status(http.StatusNoContent)
	}
}

// loadSessionImage accepts either a JSON body with a URL or a multipart
// upload under the "image" field.
func loadSessionImage(svc service.DetectionService, sessions *session.Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.ImageFetchTimeout)
		defer cancel()

		s, ok := lookupSession(c, sessions)
		if !ok {
			return
		}

		src, err := loadSource(ctx, c, svc, cfg)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "failed to load image", err)
			return
		}

		if err := s.LoadImage(src); err != nil {
			respondError(c, http.StatusConflict, "cannot load image", err)
			return
		}
		c.JSON(http.StatusOK, s.Snapshot())
	}
}

func analyzeSession(svc service.DetectionService, sessions *session.Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.AnalysisTimeout)
		defer cancel()

		s, ok := lookupSession(c, sessions)
		if !ok {
			return
		}

		src, err := s.BeginAnalysis()
		if err != nil {
			respondError(c, http.StatusConflict, "cannot analyze", err)
			return
		}

		result, err := svc.AnalyzeSource(ctx, src)
		if err != nil {
			// Keep the image loaded so the client can retry.
			if failErr := s.FailAnalysis(); failErr != nil {
				logger.WithError(failErr).Error("Failed to roll back session state")
			}
			respondError(c, apperrors.GetStatusCode(err), "detection failed", err)
			return
		}

		if err := s.CompleteAnalysis(result); err != nil {
			respondError(c, http.StatusConflict, "cannot store result", err)
			return
		}
		c.JSON(http.StatusOK, s.Snapshot())
	}
}

func getSessionResult(sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookupSession(c, sessions)
		if !ok {
			return
		}

		result := s.Result()
		if result == nil {
			respondError(c, http.StatusNotFound, "no result available",
				fmt.Errorf("session %s is in state %q", s.ID, s.State()))
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func getSessionReport(svc service.DetectionService, sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookupSession(c, sessions)
		if !ok {
			return
		}

		result := s.Result()
		if result == nil {
			respondError(c, http.StatusNotFound, "no result available",
				fmt.Errorf("session %s is in state %q", s.ID, s.State()))
			return
		}
		c.String(http.StatusOK, svc.FormatReport(result))
	}
}

func detectionMetrics(metrics *observer.MetricsObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.Snapshot())
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Helpers

func lookupSession(c *gin.Context, sessions *session.Store) (*session.Session, bool) {
	s, err := sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusNotFound, "unknown session", err)
		return nil, false
	}
	return s, true
}

// loadSource resolves the image for a session load: multipart uploads are
// decoded in place, JSON bodies are fetched by URL.
func loadSource(ctx context.Context, c *gin.Context, svc service.DetectionService, cfg *config.Config) (*storage.SourceImage, error) {
	contentType := c.ContentType()
	if contentType == "multipart/form-data" {
		data, err := readUpload(c, cfg.MaxUploadBytes)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid upload", err)
		}
		src, err := storage.DecodeSourceImage(data)
		if err != nil {
			return nil, apperrors.NewDecodeError("failed to decode uploaded image", err)
		}
		return src, nil
	}

	var req LoadImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apperrors.NewValidationError("invalid request format", err)
	}
	return svc.FetchSource(ctx, req.URL)
}

func readUpload(c *gin.Context, maxBytes int64) ([]byte, error) {
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("missing image field: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("upload exceeds %d byte limit", maxBytes)
	}
	return data, nil
}

// Middleware

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	if appErr, ok := err.(*apperrors.AppError); ok {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
