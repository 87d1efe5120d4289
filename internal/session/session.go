package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-ai-image-detector/internal/storage"
	"go-ai-image-detector/pkg/models"
)

// State is the position of a detection session in its lifecycle.
type State string

const (
	// StateIdle means no image has been loaded yet.
	StateIdle State = "idle"
	// StateImageLoaded means an image is loaded and ready to analyze.
	StateImageLoaded State = "image_loaded"
	// StateAnalyzing means a scoring pass is in flight.
	StateAnalyzing State = "analyzing"
	// StateResultShown means the last analysis finished and its result is
	// available.
	StateResultShown State = "result_shown"
)

// ErrInvalidTransition reports an event that is not legal in the session's
// current state.
var ErrInvalidTransition = errors.New("invalid session state transition")

// Session tracks one user's detection flow through the
// Idle -> ImageLoaded -> Analyzing -> ResultShown state machine.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	state     State
	source    *storage.SourceImage
	result    *models.DetectionResponse
	updatedAt time.Time
}

// New creates a session in the Idle state.
func New() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		state:     StateIdle,
		updatedAt: now,
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LoadImage stores a fetched image and moves to ImageLoaded. Loading is
// legal from every state except Analyzing; loading a new image discards any
// previous result.
func (s *Session) LoadImage(src *storage.SourceImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateAnalyzing {
		return fmt.Errorf("%w: cannot load image while analyzing", ErrInvalidTransition)
	}

	s.source = src
	s.result = nil
	s.transition(StateImageLoaded)
	return nil
}

// BeginAnalysis moves to Analyzing and returns the loaded image. Legal from
// ImageLoaded and from ResultShown (re-analysis of the same image).
func (s *Session) BeginAnalysis() (*storage.SourceImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateImageLoaded && s.state != StateResultShown {
		return nil, fmt.Errorf("%w: cannot analyze from state %q", ErrInvalidTransition, s.state)
	}

	s.transition(StateAnalyzing)
	return s.source, nil
}

// CompleteAnalysis stores the result and moves to ResultShown.
func (s *Session) CompleteAnalysis(result *models.DetectionResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAnalyzing {
		return fmt.Errorf("%w: cannot complete analysis from state %q", ErrInvalidTransition, s.state)
	}

	s.result = result
	s.transition(StateResultShown)
	return nil
}

// FailAnalysis returns to ImageLoaded after a failed scoring pass. The image
// stays loaded so the caller can retry.
func (s *Session) FailAnalysis() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAnalyzing {
		return fmt.Errorf("%w: cannot fail analysis from state %q", ErrInvalidTransition, s.state)
	}

	s.transition(StateImageLoaded)
	return nil
}

// Reset discards the image and result and returns to Idle. Legal from every
// state except Analyzing.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateAnalyzing {
		return fmt.Errorf("%w: cannot reset while analyzing", ErrInvalidTransition)
	}

	s.source = nil
	s.result = nil
	s.transition(StateIdle)
	return nil
}

// Result returns the stored result, or nil when none is available.
func (s *Session) Result() *models.DetectionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Snapshot builds the external representation of the session.
func (s *Session) Snapshot() models.SessionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.SessionResponse{
		ID:        s.ID,
		State:     string(s.state),
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		UpdatedAt: s.updatedAt.Format(time.RFC3339),
		Result:    s.result,
	}
}

// transition must be called with the lock held.
func (s *Session) transition(next State) {
	s.state = next
	s.updatedAt = time.Now()
}
