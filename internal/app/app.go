// Package app wires the camera, hand detector, interaction state machine and
// renderer into the running pinch-grab application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ayusman/pinchgrab/internal/capture"
	"github.com/ayusman/pinchgrab/internal/config"
	"github.com/ayusman/pinchgrab/internal/detector"
	"github.com/ayusman/pinchgrab/internal/gesture"
	"github.com/ayusman/pinchgrab/internal/interaction"
	"github.com/ayusman/pinchgrab/internal/render"
)

// Deps are the hardware-facing components of an App.
type Deps struct {
	Camera   capture.Camera
	Detector detector.Detector
	Renderer render.Renderer
}

// App is the running application.
type App struct {
	config   config.Config
	camera   capture.Camera
	cell     *capture.LatestFrame
	grabber  *capture.Grabber
	detector detector.Detector
	renderer render.Renderer
	loop     *Loop
	logger   *slog.Logger

	mu          sync.Mutex
	stopGrabber context.CancelFunc
	grabberDone chan struct{}
	stopped     bool
}

// New creates an App backed by the real camera, the MediaPipe service and a
// native window. The detector service is started here, so New fails if it
// cannot be found or does not come up.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	d, err := detector.NewMediaPipeDetector(cfg.DetectorSettings(), logger)
	if err != nil {
		return nil, fmt.Errorf("init hand detector: %w", err)
	}

	palette, err := cfg.Palette()
	if err != nil {
		d.Close()
		return nil, err
	}

	if err := d.Start(); err != nil {
		d.Close()
		return nil, fmt.Errorf("start hand detector: %w", err)
	}

	return NewWithDeps(cfg, Deps{
		Camera:   capture.NewCamera(cfg.Camera.Device, cfg.Camera.Width, cfg.Camera.Height),
		Detector: d,
		Renderer: render.NewWindowRenderer(cfg.Display.WindowTitle, palette),
	}, logger)
}

// NewWithDeps creates an App from already constructed components.
func NewWithDeps(cfg config.Config, deps Deps, logger *slog.Logger) (*App, error) {
	if deps.Camera == nil || deps.Detector == nil || deps.Renderer == nil {
		return nil, errors.New("app: camera, detector and renderer are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	cell := capture.NewLatestFrame()
	loop := NewLoop(LoopConfig{
		Rules:        cfg.InteractionRules(),
		InitialState: cfg.InitialState(),
		Refresh:      cfg.RefreshInterval(),
	}, cell, deps.Detector, gesture.NewExtractor(cfg.Gesture.PinchThresholdPx), deps.Renderer, logger)

	return &App{
		config:   cfg,
		camera:   deps.Camera,
		cell:     cell,
		grabber:  capture.NewGrabber(deps.Camera, cell, logger),
		detector: deps.Detector,
		renderer: deps.Renderer,
		loop:     loop,
		logger:   logger.With("component", "app"),
	}, nil
}

// Start opens the camera and begins capturing in the background.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return errors.New("app: already stopped")
	}
	if a.stopGrabber != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	a.camera.SetFPS(a.config.Camera.FPS)

	ctx, cancel := context.WithCancel(context.Background())
	a.stopGrabber = cancel
	a.grabberDone = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		if err := a.grabber.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("capture stopped", "error", err)
		}
	}(a.grabberDone)

	a.logger.Info("capture started",
		"device", a.config.Camera.Device,
		"width", a.config.Camera.Width,
		"height", a.config.Camera.Height,
		"fps", a.config.Camera.FPS,
	)
	return nil
}

// Run starts capture and drives the display loop on the calling goroutine
// until ctx is done or the window is closed. Resources are released on return.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}
	defer a.Stop()

	err := a.loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop halts capture and releases the camera, detector and renderer.
// An App cannot be restarted once stopped.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}
	a.stopped = true

	if a.stopGrabber != nil {
		a.stopGrabber()
		<-a.grabberDone
		a.stopGrabber = nil
		a.grabberDone = nil
	}

	if err := a.camera.Close(); err != nil {
		a.logger.Warn("close camera", "error", err)
	}
	if err := a.detector.Close(); err != nil {
		a.logger.Warn("close detector", "error", err)
	}
	if err := a.renderer.Close(); err != nil {
		a.logger.Warn("close renderer", "error", err)
	}
	a.cell.Close()

	a.logger.Info("stopped")
}

// SetEnabled pauses or resumes hand tracking.
func (a *App) SetEnabled(enabled bool) {
	a.loop.SetEnabled(enabled)
}

// IsEnabled reports whether hand tracking is active.
func (a *App) IsEnabled() bool {
	return a.loop.IsEnabled()
}

// State returns the current object state.
func (a *App) State() interaction.State {
	return a.loop.State()
}

// Loop returns the display loop.
func (a *App) Loop() *Loop {
	return a.loop
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}
