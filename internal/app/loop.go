package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/pinchgrab/internal/capture"
	"github.com/ayusman/pinchgrab/internal/detector"
	"github.com/ayusman/pinchgrab/internal/gesture"
	"github.com/ayusman/pinchgrab/internal/interaction"
	"github.com/ayusman/pinchgrab/internal/render"
)

// DefaultRefresh is the display refresh interval at 60 Hz.
const DefaultRefresh = time.Second / 60

// LoopConfig configures a Loop.
type LoopConfig struct {
	Rules        interaction.Config
	InitialState interaction.State
	Refresh      time.Duration
}

// Loop runs the per-refresh cycle: detect on new frames, extract, step and
// draw. The interaction state is owned by the goroutine calling Tick.
type Loop struct {
	source    capture.FrameSource
	detector  detector.Detector
	extractor *gesture.Extractor
	renderer  render.Renderer
	rules     interaction.Config
	refresh   time.Duration
	logger    *slog.Logger
	sessionID string

	// Only touched by the ticking goroutine.
	lastSeq   uint64
	hasResult bool
	lastHand  *detector.HandLandmarks

	mu      sync.RWMutex
	state   interaction.State
	enabled bool
	detects int
}

// NewLoop creates a Loop. A zero Refresh means DefaultRefresh.
func NewLoop(cfg LoopConfig, source capture.FrameSource, d detector.Detector, e *gesture.Extractor, r render.Renderer, logger *slog.Logger) *Loop {
	if cfg.Refresh <= 0 {
		cfg.Refresh = DefaultRefresh
	}
	if logger == nil {
		logger = slog.Default()
	}
	sessionID := uuid.NewString()

	return &Loop{
		source:    source,
		detector:  d,
		extractor: e,
		renderer:  r,
		rules:     cfg.Rules,
		refresh:   cfg.Refresh,
		logger:    logger.With("component", "loop", "session", sessionID),
		sessionID: sessionID,
		state:     cfg.InitialState,
		enabled:   true,
	}
}

// SessionID identifies this run in logs.
func (l *Loop) SessionID() string {
	return l.sessionID
}

// SetEnabled pauses or resumes tracking. While paused the camera view keeps
// updating and the object stays where it is.
func (l *Loop) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.enabled != enabled {
		l.logger.Info("tracking toggled", "enabled", enabled)
	}
	l.enabled = enabled
}

// IsEnabled reports whether tracking is active.
func (l *Loop) IsEnabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabled
}

// State returns a copy of the current object state.
func (l *Loop) State() interaction.State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Detections returns how many times the detector has been called.
func (l *Loop) Detections() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.detects
}

// Tick runs one display refresh. It returns render.ErrClosed once the view
// has been closed and an error wrapping detector.ErrServiceFailed once the
// hand detector is gone.
func (l *Loop) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	frame, ok := l.source.Latest()
	if !ok {
		return nil
	}
	defer frame.Close()

	enabled := l.IsEnabled()

	if enabled && frame.Seq != l.lastSeq {
		l.lastSeq = frame.Seq
		if err := l.detect(&frame); err != nil {
			return err
		}
	}

	if err := l.renderer.Begin(frame.Mat); err != nil {
		return err
	}

	if l.hasResult {
		state := l.State()
		if enabled {
			g := l.extractor.Extract(l.lastHand, frame.Mat.Cols(), frame.Mat.Rows())
			state = l.advance(state, g)
		}

		circle := render.Circle{
			Center: state.Position,
			Radius: state.Radius,
			Active: state.Dragging,
		}
		if err := l.renderer.DrawCircle(circle); err != nil {
			return err
		}
	}

	return l.renderer.Present()
}

// detect runs the detector on frame. A bad frame keeps the previous result;
// only a failed service is returned.
func (l *Loop) detect(frame *capture.Frame) error {
	hand, err := l.detector.Detect(&frame.Mat, frame.Timestamp)

	l.mu.Lock()
	l.detects++
	l.mu.Unlock()

	if errors.Is(err, detector.ErrServiceFailed) {
		return fmt.Errorf("hand detection: %w", err)
	}
	if err != nil {
		l.logger.Warn("hand detection failed", "seq", frame.Seq, "error", err)
		return nil
	}
	l.hasResult = true
	l.lastHand = hand
	return nil
}

func (l *Loop) advance(current interaction.State, g gesture.Frame) interaction.State {
	next := interaction.Step(current, g, l.rules)

	l.mu.Lock()
	l.state = next
	l.mu.Unlock()

	if next.Phase() != current.Phase() {
		l.logger.Info("phase changed",
			"from", current.Phase(),
			"to", next.Phase(),
			"x", next.Position.X,
			"y", next.Position.Y,
			"radius", next.Radius,
		)
	} else if current.Dragging && next.ReleaseMisses > current.ReleaseMisses {
		l.logger.Debug("pinch lost while dragging", "misses", next.ReleaseMisses, "tolerance", l.rules.ReleaseTolerance)
	}

	return next
}

// Run ticks at the refresh interval until ctx is done, the view is closed or
// the hand detector fails. Closing the view is a normal exit and returns nil.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.refresh)
	defer ticker.Stop()

	l.logger.Info("loop started", "refresh", l.refresh)
	defer l.logger.Info("loop stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := l.Tick(ctx)
			switch {
			case err == nil:
			case errors.Is(err, render.ErrClosed):
				return nil
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			case errors.Is(err, detector.ErrServiceFailed):
				l.logger.Error("hand detector failed", "error", err)
				return err
			default:
				l.logger.Warn("tick failed", "error", err)
			}
		}
	}
}
