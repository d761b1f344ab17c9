// Package gesture turns one frame's hand landmarks into the pinch signals the
// interaction layer consumes.
package gesture

import (
	"github.com/ayusman/pinchgrab/internal/detector"
	"github.com/ayusman/pinchgrab/internal/geometry"
)

// DefaultPinchThreshold is the thumb-to-index distance, in surface pixels,
// below which a hand counts as pinching. Tunable through configuration.
const DefaultPinchThreshold = 40.0

// Frame is the per-frame gesture snapshot.
//
// PinchMidpoint is non-nil exactly when Pinching is true. HandSpan is only
// computed while pinching and is zero otherwise.
type Frame struct {
	HandDetected  bool
	Pinching      bool
	PinchMidpoint *geometry.Point
	HandSpan      float64
}

// Extract derives a Frame from a detected hand on a surface of the given size.
// A nil hand means no hand was detected this frame.
func Extract(hand *detector.HandLandmarks, width, height int, pinchThreshold float64) Frame {
	if hand == nil {
		return Frame{}
	}

	thumb := surfacePoint(hand, detector.ThumbTip, width, height)
	index := surfacePoint(hand, detector.IndexTip, width, height)

	if geometry.Distance(thumb, index) >= pinchThreshold {
		return Frame{HandDetected: true}
	}

	mid := geometry.Midpoint(thumb, index)
	wrist := surfacePoint(hand, detector.Wrist, width, height)
	middleMCP := surfacePoint(hand, detector.MiddleMCP, width, height)

	return Frame{
		HandDetected:  true,
		Pinching:      true,
		PinchMidpoint: &mid,
		HandSpan:      geometry.Distance(wrist, middleMCP),
	}
}

func surfacePoint(hand *detector.HandLandmarks, idx, width, height int) geometry.Point {
	p := hand.Points[idx]
	return geometry.ToSurfacePoint(p.X, p.Y, width, height)
}

// Extractor binds a pinch threshold so callers only supply per-frame inputs.
type Extractor struct {
	threshold float64
}

// NewExtractor creates an Extractor. Non-positive thresholds fall back to
// DefaultPinchThreshold.
func NewExtractor(threshold float64) *Extractor {
	if threshold <= 0 {
		threshold = DefaultPinchThreshold
	}
	return &Extractor{threshold: threshold}
}

// Threshold returns the pinch threshold in pixels.
func (e *Extractor) Threshold() float64 {
	return e.threshold
}

// Extract derives a Frame using the bound threshold.
func (e *Extractor) Extract(hand *detector.HandLandmarks, width, height int) Frame {
	return Extract(hand, width, height, e.threshold)
}
