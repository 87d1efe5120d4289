package detector

import (
	"errors"
	"image"
	"time"
)

// ErrInvalidInput reports a zero-area buffer or a negative file length. It
// is raised before any feature computation; no partial score is returned.
var ErrInvalidInput = errors.New("invalid detector input")

// Detector scores a still image for AI-generation likelihood from pixel
// statistics alone. No trained model is involved and no accuracy bound is
// guaranteed.
type Detector interface {
	// Score downscales img into a working buffer and scores it with the
	// given options.
	Score(img image.Image, fileByteLength int64, opts Options) (Result, error)

	// ScoreBuffer scores an already prepared PixelBuffer with an explicit
	// random source. This is the core entry point; Score wraps it.
	ScoreBuffer(pb *PixelBuffer, fileByteLength int64, rng RandomSource) (Result, error)
}

// Result is the sole externally visible output of one analysis call.
type Result struct {
	// Score is the AI-generation likelihood in [0,100].
	Score float64 `json:"score"`
	// AIGenerated is true when Score >= 90.
	AIGenerated       bool         `json:"ai_generated"`
	Features          FeatureSet   `json:"features"`
	Normalized        FeatureNorms `json:"normalized"`
	Timestamp         time.Time    `json:"timestamp"`
	ProcessingTimeSec float64      `json:"processing_time_sec"`
}

type coreDetector struct {
	extractor *featureExtractor
	combiner  scoreCombiner
}

// New creates a detector with the given number of statistics workers.
// workers <= 0 uses the CPU count.
func New(workers int) Detector {
	return &coreDetector{extractor: newFeatureExtractor(workers)}
}

func (d *coreDetector) Score(img image.Image, fileByteLength int64, opts Options) (Result, error) {
	pb, err := NewPixelBuffer(img)
	if err != nil {
		return Result{}, err
	}
	return d.ScoreBuffer(pb, fileByteLength, opts.randomSource())
}

func (d *coreDetector) ScoreBuffer(pb *PixelBuffer, fileByteLength int64, rng RandomSource) (Result, error) {
	start := time.Now()

	if rng == nil {
		rng = NewRandomSource()
	}

	features, err := d.extractor.Extract(pb, fileByteLength)
	if err != nil {
		return Result{}, err
	}

	score, norms := d.combiner.Combine(features, rng)

	return Result{
		Score:             score,
		AIGenerated:       IsAIGenerated(score),
		Features:          features,
		Normalized:        norms,
		Timestamp:         start,
		ProcessingTimeSec: time.Since(start).Seconds(),
	}, nil
}
