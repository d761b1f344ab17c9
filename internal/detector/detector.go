package detector

import (
	"errors"
	"time"

	"gocv.io/x/gocv"
)

// ErrServiceNotFound is returned when the MediaPipe service script cannot be located.
var ErrServiceNotFound = errors.New("mediapipe_service.py not found")

// ErrServiceFailed is returned when the service cannot be started or stops
// answering. It is not recoverable by retrying the same frame.
var ErrServiceFailed = errors.New("mediapipe service failed")

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame captured at the given monotonic timestamp
	// and returns the landmarks of the detected hand, or nil if no hand is
	// visible.
	Detect(frame *gocv.Mat, timestamp time.Duration) (*HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands the model tracks. Only the
	// first hand is reported.
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath overrides the location of mediapipe_service.py.
	ScriptPath string

	// Interpreter overrides the Python executable. When empty a virtual
	// environment interpreter is preferred, then python3 on PATH.
	Interpreter string

	// StartTimeout bounds the wait for the service's ready line.
	StartTimeout time.Duration

	// IdleTimeout shuts the service down after this long without requests.
	// Zero disables the idle shutdown.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		StartTimeout:    30 * time.Second,
		IdleTimeout:     30 * time.Second,
	}
}
