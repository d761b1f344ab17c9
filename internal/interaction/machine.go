// Package interaction implements the grab/drag/resize state machine that
// decides, frame by frame, where the object is and how large it is.
package interaction

import (
	"errors"
	"fmt"

	"github.com/ayusman/pinchgrab/internal/geometry"
	"github.com/ayusman/pinchgrab/internal/gesture"
)

// Phase is the externally visible state of the machine.
type Phase int

const (
	// PhaseIdle means the object is at rest and waiting to be grabbed.
	PhaseIdle Phase = iota
	// PhaseDragging means the object follows the pinch point.
	PhaseDragging
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDragging:
		return "dragging"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Config holds the hand-span to radius mapping and release hysteresis.
type Config struct {
	MinHandSpan      float64
	MaxHandSpan      float64
	MinRadius        float64
	MaxRadius        float64
	ReleaseTolerance int
}

// DefaultConfig returns the stock mapping: a 30-250px hand span scales the
// radius between 10 and 80px, and a drag survives 5 frames without a pinch.
func DefaultConfig() Config {
	return Config{
		MinHandSpan:      30,
		MaxHandSpan:      250,
		MinRadius:        10,
		MaxRadius:        80,
		ReleaseTolerance: 5,
	}
}

// Validate rejects configurations the transition function cannot handle.
func (c Config) Validate() error {
	if c.MaxHandSpan <= c.MinHandSpan {
		return fmt.Errorf("max hand span (%g) must be greater than min hand span (%g)", c.MaxHandSpan, c.MinHandSpan)
	}
	if c.MinRadius < 0 {
		return errors.New("min radius must be >= 0")
	}
	if c.MaxRadius < c.MinRadius {
		return fmt.Errorf("max radius (%g) must be >= min radius (%g)", c.MaxRadius, c.MinRadius)
	}
	if c.ReleaseTolerance < 0 {
		return errors.New("release tolerance must be >= 0")
	}
	return nil
}

// RadiusFor maps a hand span to an object radius.
func (c Config) RadiusFor(handSpan float64) float64 {
	return geometry.MapRange(handSpan, c.MinHandSpan, c.MaxHandSpan, c.MinRadius, c.MaxRadius)
}

// State is the object being manipulated.
type State struct {
	Position      geometry.Point
	Radius        float64
	Dragging      bool
	ReleaseMisses int
}

// NewState returns an idle object at center with the given radius.
func NewState(center geometry.Point, radius float64) State {
	return State{Position: center, Radius: radius}
}

// Phase reports whether the object is idle or being dragged.
func (s State) Phase() Phase {
	if s.Dragging {
		return PhaseDragging
	}
	return PhaseIdle
}

// Step applies one gesture frame to the current state and returns the next
// state. It never mutates its input. A pinch without a midpoint counts as an
// open hand.
func Step(current State, g gesture.Frame, cfg Config) State {
	if g.Pinching && g.PinchMidpoint == nil {
		g.Pinching = false
	}
	if !current.Dragging {
		return stepIdle(current, g, cfg)
	}
	return stepDragging(current, g, cfg)
}

func stepIdle(s State, g gesture.Frame, cfg Config) State {
	s.ReleaseMisses = 0

	// Grabbing is gated on the position before this frame's update.
	if !g.Pinching || !geometry.PointInCircle(g.PinchMidpoint, s.Position, s.Radius) {
		return s
	}

	s.Dragging = true
	s.Position = *g.PinchMidpoint
	s.Radius = cfg.RadiusFor(g.HandSpan)
	return s
}

func stepDragging(s State, g gesture.Frame, cfg Config) State {
	switch {
	case g.Pinching:
		s.ReleaseMisses = 0
		s.Position = *g.PinchMidpoint
		s.Radius = cfg.RadiusFor(g.HandSpan)

	case g.HandDetected:
		// Pinch flicker: hold the object for up to ReleaseTolerance frames.
		s.ReleaseMisses++
		if s.ReleaseMisses > cfg.ReleaseTolerance {
			s.Dragging = false
			s.ReleaseMisses = 0
		}

	default:
		// Hand withdrawn: release without grace.
		s.Dragging = false
		s.ReleaseMisses = 0
	}
	return s
}
