package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-ai-image-detector/pkg/models"
)

// DetectionEvent represents one step of a detection lifecycle
type DetectionEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	ImageURL       string                 `json:"image_url,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	Score          float64                `json:"score,omitempty"`
	Verdict        string                 `json:"verdict,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of detection event
type EventType string

const (
	// DetectionStarted when scoring begins
	DetectionStarted EventType = "detection_started"
	// DetectionCompleted when scoring finishes successfully
	DetectionCompleted EventType = "detection_completed"
	// DetectionFailed when scoring fails
	DetectionFailed EventType = "detection_failed"
	// ImageFetched when image is successfully fetched
	ImageFetched EventType = "image_fetched"
	// ImageFetchFailed when image fetch fails
	ImageFetchFailed EventType = "image_fetch_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event DetectionEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event DetectionEvent)
}

// Publisher is the default Subject implementation
type Publisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewPublisher creates an empty publisher
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Subscribe registers an observer
func (p *Publisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer by name
func (p *Publisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, o := range p.observers {
		if o.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			return
		}
	}
}

// NotifyObservers delivers the event to all observers synchronously
func (p *Publisher) NotifyObservers(ctx context.Context, event DetectionEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, o := range observers {
		o.OnEvent(ctx, event)
	}
}

// LoggingObserver logs detection events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles detection events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event DetectionEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}

	if event.ImageURL != "" {
		fields["image_url"] = event.ImageURL
	}
	if event.EventType == DetectionCompleted {
		fields["score"] = event.Score
		fields["verdict"] = event.Verdict
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	switch event.EventType {
	case DetectionStarted:
		o.logger.WithFields(fields).Info("Detection started")
	case DetectionCompleted:
		o.logger.WithFields(fields).Info("Detection completed")
	case DetectionFailed:
		o.logger.WithFields(fields).Error("Detection failed")
	case ImageFetched:
		o.logger.WithFields(fields).Debug("Image fetched successfully")
	case ImageFetchFailed:
		o.logger.WithFields(fields).Error("Image fetch failed")
	default:
		o.logger.WithFields(fields).Info("Detection event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver aggregates detection statistics
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalDetections     int64
	failedDetections    int64
	aiVerdicts          int64
	scoreSum            float64
	totalProcessingTime time.Duration
}

// MetricsSnapshot is a point-in-time copy of the aggregated counters
type MetricsSnapshot struct {
	TotalDetections  int64         `json:"total_detections"`
	FailedDetections int64         `json:"failed_detections"`
	AIVerdicts       int64         `json:"ai_verdicts"`
	MeanScore        float64       `json:"mean_score"`
	TotalProcessing  time.Duration `json:"total_processing"`
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles detection events by updating counters
func (o *MetricsObserver) OnEvent(ctx context.Context, event DetectionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case DetectionCompleted:
		o.totalDetections++
		o.scoreSum += event.Score
		o.totalProcessingTime += event.ProcessingTime
		if event.Verdict == models.VerdictAIGenerated {
			o.aiVerdicts++
		}
	case DetectionFailed:
		o.totalDetections++
		o.failedDetections++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// Snapshot returns the current counters
func (o *MetricsObserver) Snapshot() MetricsSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	snap := MetricsSnapshot{
		TotalDetections:  o.totalDetections,
		FailedDetections: o.failedDetections,
		AIVerdicts:       o.aiVerdicts,
		TotalProcessing:  o.totalProcessingTime,
	}
	if completed := o.totalDetections - o.failedDetections; completed > 0 {
		snap.MeanScore = o.scoreSum / float64(completed)
	}
	return snap
}
