package capture

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Grabber continuously reads from a Camera into a LatestFrame.
type Grabber struct {
	camera Camera
	cell   *LatestFrame
	logger *slog.Logger
	now    func() time.Time

	// RetryDelay is how long to wait after a failed read.
	RetryDelay time.Duration
}

// NewGrabber creates a Grabber that feeds cell from camera.
func NewGrabber(camera Camera, cell *LatestFrame, logger *slog.Logger) *Grabber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Grabber{
		camera:     camera,
		cell:       cell,
		logger:     logger.With("component", "grabber"),
		now:        time.Now,
		RetryDelay: 100 * time.Millisecond,
	}
}

// Run reads frames until ctx is cancelled or the camera is closed.
// Timestamps are measured from the moment Run starts. Reads are paced at the
// camera's FPS so a source that never blocks is not polled in a busy loop.
func (g *Grabber) Run(ctx context.Context) error {
	start := g.now()
	var lastTS time.Duration

	var interval time.Duration
	if fps := g.camera.FPS(); fps > 0 {
		interval = time.Second / time.Duration(fps)
	}
	next := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if interval > 0 {
			if wait := time.Until(next); wait > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
				}
			}
			// A camera that blocks for longer than interval sets the pace.
			next = next.Add(interval)
			if now := time.Now(); next.Before(now) {
				next = now
			}
		}

		mat, err := g.camera.ReadFrame()
		if err != nil {
			if errors.Is(err, ErrCameraNotOpen) {
				return err
			}
			g.logger.Debug("read frame", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(g.RetryDelay):
			}
			continue
		}

		ts := g.now().Sub(start)
		// Detectors running in video mode require strictly increasing timestamps.
		if ts <= lastTS {
			ts = lastTS + time.Millisecond
		}
		lastTS = ts

		g.cell.Store(*mat, ts)
	}
}
