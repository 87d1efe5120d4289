package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"go-ai-image-detector/internal/detector"
	apperrors "go-ai-image-detector/internal/errors"
	"go-ai-image-detector/internal/observer"
	"go-ai-image-detector/internal/repository"
	"go-ai-image-detector/internal/storage"
	"go-ai-image-detector/pkg/models"
)

type fakeRepo struct {
	src *storage.SourceImage
	err error
}

func (f *fakeRepo) FetchImage(ctx context.Context, imageURL string) (*storage.SourceImage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.src, nil
}

func (f *fakeRepo) ValidateImageURL(imageURL string) error {
	if !strings.HasPrefix(imageURL, "http") {
		return repository.ErrInvalidImageURL
	}
	return nil
}

func uniformSource(w, h int, c color.RGBA, byteLength int64) *storage.SourceImage {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return &storage.SourceImage{Image: img, ByteLength: byteLength, Format: "png"}
}

func newTestService(repo repository.ImageRepository, events observer.Subject) DetectionService {
	pool := detector.NewWorkerPool(2)
	pool.Start()
	return NewDetectionService(repo, detector.New(1), pool, events)
}

func TestAnalyzeURL_Success(t *testing.T) {
	repo := &fakeRepo{src: uniformSource(128, 128, color.RGBA{128, 128, 128, 255}, 102400)}
	svc := newTestService(repo, nil)

	result, err := svc.AnalyzeURL(context.Background(), "http://example.com/image.png")
	require.NoError(t, err)

	require.Equal(t, "http://example.com/image.png", result.ImageURL)
	require.Equal(t, int64(102400), result.FileBytes)
	require.GreaterOrEqual(t, result.Score, 0.0)
	require.LessOrEqual(t, result.Score, 100.0)

	// Uniform mid-gray at 100 KB: raw score 75, jitter at most +-3, so the
	// verdict stays "Likely real" regardless of the draw.
	require.InDelta(t, 75.0, result.Score, 3.0)
	require.Equal(t, models.VerdictLikelyReal, result.Verdict)
	require.False(t, result.AIGenerated)
	require.InDelta(t, 100.0, result.Features.SizeProxyKB, 1e-9)
}

func TestAnalyzeURL_InvalidURL(t *testing.T) {
	svc := newTestService(&fakeRepo{}, nil)

	_, err := svc.AnalyzeURL(context.Background(), "not-a-url")
	require.Error(t, err)
	require.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestAnalyzeURL_FetchFailure(t *testing.T) {
	repo := &fakeRepo{err: repository.ErrImageNotFound}
	svc := newTestService(repo, nil)

	_, err := svc.AnalyzeURL(context.Background(), "http://example.com/missing.png")
	require.Error(t, err)
	require.True(t, apperrors.IsType(err, apperrors.ErrorTypeNetwork))
}

func TestAnalyzeUpload_Success(t *testing.T) {
	svc := newTestService(&fakeRepo{}, nil)

	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.RGBA{200, 50, 50, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	result, err := svc.AnalyzeUpload(context.Background(), buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), result.FileBytes)
	require.Equal(t, "png", result.Format)
}

func TestAnalyzeUpload_DecodeFailure(t *testing.T) {
	svc := newTestService(&fakeRepo{}, nil)

	_, err := svc.AnalyzeUpload(context.Background(), []byte("definitely not an image"))
	require.Error(t, err)
	require.True(t, apperrors.IsType(err, apperrors.ErrorTypeDecode))
}

func TestAnalyzeBatch_MixedResults(t *testing.T) {
	repo := &fakeRepo{src: uniformSource(64, 64, color.RGBA{30, 30, 30, 255}, 2048)}
	svc := newTestService(repo, nil)

	items := svc.AnalyzeBatch(context.Background(), []string{
		"http://example.com/a.png",
		"bad-url",
		"http://example.com/b.png",
	})

	require.Len(t, items, 3)
	require.Equal(t, "http://example.com/a.png", items[0].ImageURL)
	require.NotNil(t, items[0].Result)
	require.Empty(t, items[0].Error)

	require.Nil(t, items[1].Result)
	require.NotEmpty(t, items[1].Error)

	require.NotNil(t, items[2].Result)
}

func TestFormatReport(t *testing.T) {
	svc := newTestService(&fakeRepo{}, nil)

	report := svc.FormatReport(&models.DetectionResponse{
		ImageURL:  "http://example.com/a.png",
		Score:     88.5,
		Verdict:   models.VerdictLikelyReal,
		Timestamp: "2026-08-25T12:00:00Z",
	})

	require.Contains(t, report, "Score:   88.50 / 100")
	require.Contains(t, report, "Verdict: Likely real")
	require.Contains(t, report, "Disclaimer:")
	require.Contains(t, report, "http://example.com/a.png")
}

func TestFormatReport_AIGeneratedVerdict(t *testing.T) {
	svc := newTestService(&fakeRepo{}, nil)

	report := svc.FormatReport(&models.DetectionResponse{
		Score:   93.126,
		Verdict: models.VerdictAIGenerated,
	})

	require.Contains(t, report, "Score:   93.13 / 100")
	require.Contains(t, report, "Verdict: AI-generated")
}

func TestAnalyze_PublishesMetrics(t *testing.T) {
	repo := &fakeRepo{src: uniformSource(64, 64, color.RGBA{10, 120, 220, 255}, 4096)}

	metrics := observer.NewMetricsObserver()
	events := observer.NewPublisher()
	events.Subscribe(metrics)

	svc := newTestService(repo, events)

	_, err := svc.AnalyzeURL(context.Background(), "http://example.com/a.png")
	require.NoError(t, err)

	snap := metrics.Snapshot()
	require.Equal(t, int64(1), snap.TotalDetections)
	require.Equal(t, int64(0), snap.FailedDetections)
	require.Greater(t, snap.MeanScore, 0.0)
}
