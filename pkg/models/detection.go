package models

// Verdict labels are part of the external contract and must not change.
const (
	VerdictAIGenerated = "AI-generated"
	VerdictLikelyReal  = "Likely real"
)

// FeatureMetrics exposes the raw statistical features behind a score.
type FeatureMetrics struct {
	EdgeEnergy    float64 `json:"edge_energy"`
	ChannelStdDev float64 `json:"channel_std_dev"`
	Saturation    float64 `json:"saturation"`
	SizeProxyKB   float64 `json:"size_proxy_kb"`
}

// NormalizedFeatures exposes the clamped [0,1] terms and the pre-jitter raw
// score.
type NormalizedFeatures struct {
	EdgeNorm       float64 `json:"edge_norm"`
	StdDevNorm     float64 `json:"std_dev_norm"`
	SaturationNorm float64 `json:"saturation_norm"`
	SizeNorm       float64 `json:"size_norm"`
	RawScore       float64 `json:"raw_score"`
}

// DetectionResponse is the externally visible result of one analysis.
type DetectionResponse struct {
	ImageURL          string             `json:"image_url,omitempty"`
	Timestamp         string             `json:"timestamp"`
	ProcessingTimeSec float64            `json:"processing_time_sec"`
	Score             float64            `json:"score"`
	Verdict           string             `json:"verdict"`
	AIGenerated       bool               `json:"ai_generated"`
	FileBytes         int64              `json:"file_bytes"`
	Format            string             `json:"format,omitempty"`
	Features          FeatureMetrics     `json:"features"`
	Normalized        NormalizedFeatures `json:"normalized"`
}

// BatchItem is one entry of a batch detection response. Failed entries carry
// an error message instead of a result.
type BatchItem struct {
	ImageURL string             `json:"image_url"`
	Result   *DetectionResponse `json:"result,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// SessionResponse describes a detection session and its state machine
// position.
type SessionResponse struct {
	ID        string             `json:"id"`
	State     string             `json:"state"`
	CreatedAt string             `json:"created_at"`
	UpdatedAt string             `json:"updated_at"`
	Result    *DetectionResponse `json:"result,omitempty"`
}
