package detector

import "math"

// Normalization bounds and weights are empirically chosen and kept as the
// literal constants that define detector behavior. Do not re-derive them.
const (
	edgeEnergyCeil    = 150.0
	channelStdDevCeil = 60.0
	saturationFloor   = 0.25
	saturationSpan    = 0.5
	sizeProxyCapKB    = 100.0

	edgeWeight       = 0.45
	stdDevWeight     = 0.30
	saturationWeight = 0.10
	sizeWeight       = 0.15

	// jitterSpan spreads the random term uniformly over [-3, +3].
	jitterSpan = 6.0

	// aiVerdictThreshold is the inclusive score boundary for the
	// "AI-generated" verdict.
	aiVerdictThreshold = 90.0
)

// FeatureNorms exposes the normalized per-feature terms and the pre-jitter
// raw score for diagnostics.
type FeatureNorms struct {
	EdgeNorm       float64 `json:"edge_norm"`
	StdDevNorm     float64 `json:"std_dev_norm"`
	SaturationNorm float64 `json:"saturation_norm"`
	SizeNorm       float64 `json:"size_norm"`
	RawScore       float64 `json:"raw_score"`
}

// scoreCombiner maps a FeatureSet onto the final [0,100] score.
type scoreCombiner struct{}

// Combine normalizes each feature with its fixed linear clamp, applies the
// fixed weights, adds bounded jitter from rng, and clamps to [0,100].
// Lower edge energy and channel variation push the score up: smooth,
// low-variance images read as more likely AI-generated.
func (scoreCombiner) Combine(f FeatureSet, rng RandomSource) (float64, FeatureNorms) {
	norms := FeatureNorms{
		EdgeNorm:       clamp01((edgeEnergyCeil - f.EdgeEnergy) / edgeEnergyCeil),
		StdDevNorm:     clamp01((channelStdDevCeil - f.ChannelStdDev) / channelStdDevCeil),
		SaturationNorm: clamp01((f.Saturation - saturationFloor) / saturationSpan),
		SizeNorm:       clamp01((sizeProxyCapKB - math.Min(f.SizeProxyKB, sizeProxyCapKB)) / sizeProxyCapKB),
	}

	// Each term is stored separately so the compiler cannot fuse the
	// multiply-adds; the 90.0 verdict boundary must round identically on
	// every architecture.
	edgeTerm := edgeWeight * norms.EdgeNorm
	stdTerm := stdDevWeight * norms.StdDevNorm
	satTerm := saturationWeight * norms.SaturationNorm
	sizeTerm := sizeWeight * norms.SizeNorm
	raw := edgeTerm + stdTerm + satTerm + sizeTerm
	norms.RawScore = raw * 100.0

	jitter := (rng.Float64() - 0.5) * jitterSpan
	return clamp(norms.RawScore+jitter, 0, 100), norms
}

// IsAIGenerated applies the verdict threshold. The comparison is inclusive.
func IsAIGenerated(score float64) bool {
	return score >= aiVerdictThreshold
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
