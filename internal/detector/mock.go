package detector

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu         sync.Mutex
	hand       *HandLandmarks
	err        error
	calls      int
	timestamps []time.Duration
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHand sets the hand that will be returned by Detect. nil means no hand.
func (m *MockDetector) SetHand(hand *HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hand == nil {
		m.hand = nil
		return
	}
	h := *hand
	m.hand = &h
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hand or error.
func (m *MockDetector) Detect(frame *gocv.Mat, timestamp time.Duration) (*HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.timestamps = append(m.timestamps, timestamp)

	if m.err != nil {
		return nil, m.err
	}
	if m.hand == nil {
		return nil, nil
	}
	h := *m.hand
	return &h, nil
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Timestamps returns the timestamps passed to Detect, in call order.
func (m *MockDetector) Timestamps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.timestamps...)
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// PinchLandmarks returns a preset HandLandmarks with the thumb and index tips
// touching. The tips straddle the frame center, so on a mirrored surface the
// pinch midpoint lands exactly in the middle of the surface. The wrist to
// middle MCP span is 0.2 of the frame height.
func PinchLandmarks() HandLandmarks {
	landmarks := OpenHandLandmarks()

	landmarks.Points[ThumbIP] = Point3D{X: 0.47, Y: 0.55, Z: -0.01}
	landmarks.Points[ThumbTip] = Point3D{X: 0.49, Y: 0.50, Z: -0.02}

	landmarks.Points[IndexPIP] = Point3D{X: 0.53, Y: 0.52, Z: -0.02}
	landmarks.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.50, Z: -0.02}
	landmarks.Points[IndexTip] = Point3D{X: 0.51, Y: 0.50, Z: -0.02}

	return landmarks
}

// PinchLandmarksAt returns PinchLandmarks shifted so the pinch midpoint sits
// at the normalized coordinate (nx, ny).
func PinchLandmarksAt(nx, ny float64) HandLandmarks {
	return PinchLandmarks().Translate(nx-0.5, ny-0.5)
}

// OpenHandLandmarks returns a preset HandLandmarks representing an open hand
// with the thumb spread well away from the index finger.
func OpenHandLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	// Wrist at base
	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	// Index finger extended upward
	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.62, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.50, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.40, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.58, Y: 0.30, Z: 0.0}

	// Middle finger extended upward
	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.60, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.47, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.36, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.25, Z: 0.0}

	// Ring finger extended upward
	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.62, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.43, Y: 0.50, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.40, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.31, Z: 0.0}

	// Pinky finger extended upward
	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.65, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.56, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.48, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.41, Z: 0.0}

	return landmarks
}
