// Package config loads pinchgrab's YAML configuration.
//
// Defaults come from Default, a file may override any of them, and CLI flags
// are applied last through FlagOverrides. Validate is called once all three
// layers are merged.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/pinchgrab/internal/capture"
	"github.com/ayusman/pinchgrab/internal/detector"
	"github.com/ayusman/pinchgrab/internal/geometry"
	"github.com/ayusman/pinchgrab/internal/gesture"
	"github.com/ayusman/pinchgrab/internal/interaction"
	"github.com/ayusman/pinchgrab/internal/logging"
	"github.com/ayusman/pinchgrab/internal/render"
)

// Config is the top-level configuration.
type Config struct {
	Camera      CameraConfig      `yaml:"camera"`
	Detector    DetectorConfig    `yaml:"detector"`
	Gesture     GestureConfig     `yaml:"gesture"`
	Interaction InteractionConfig `yaml:"interaction"`
	Display     DisplayConfig     `yaml:"display"`
	Tray        TrayConfig        `yaml:"tray"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type CameraConfig struct {
	Device int `yaml:"device"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

type DetectorConfig struct {
	MaxHands              int     `yaml:"max_hands"`
	MinConfidence         float64 `yaml:"min_confidence"`
	MinTrackingConfidence float64 `yaml:"min_tracking_confidence"`
	Script                string  `yaml:"script,omitempty"`
	Python                string  `yaml:"python,omitempty"`
	StartTimeoutSec       int     `yaml:"start_timeout_sec"`
	IdleTimeoutSec        int     `yaml:"idle_timeout_sec"`
}

type GestureConfig struct {
	PinchThresholdPx float64 `yaml:"pinch_threshold_px"`
}

// InteractionConfig covers the object's behavior. Positions are in surface
// pixels.
type InteractionConfig struct {
	MinHandSpan      float64 `yaml:"min_hand_span"`
	MaxHandSpan      float64 `yaml:"max_hand_span"`
	MinRadius        float64 `yaml:"min_radius"`
	MaxRadius        float64 `yaml:"max_radius"`
	ReleaseTolerance int     `yaml:"release_tolerance"`
	InitialX         float64 `yaml:"initial_x"`
	InitialY         float64 `yaml:"initial_y"`
	InitialRadius    float64 `yaml:"initial_radius"`
}

type DisplayConfig struct {
	RefreshHz   int    `yaml:"refresh_hz"`
	WindowTitle string `yaml:"window_title"`
	ActiveColor string `yaml:"active_color"`
	IdleColor   string `yaml:"idle_color"`
	OutlinePx   int    `yaml:"outline_px"`
}

type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a fully populated Config.
func Default() Config {
	ic := interaction.DefaultConfig()
	dc := detector.DefaultConfig()

	return Config{
		Camera: CameraConfig{
			Device: 0,
			Width:  capture.DefaultWidth,
			Height: capture.DefaultHeight,
			FPS:    capture.DefaultFPS,
		},
		Detector: DetectorConfig{
			MaxHands:              dc.MaxHands,
			MinConfidence:         dc.MinConfidence,
			MinTrackingConfidence: dc.MinTrackingConf,
			StartTimeoutSec:       int(dc.StartTimeout.Seconds()),
			IdleTimeoutSec:        int(dc.IdleTimeout.Seconds()),
		},
		Gesture: GestureConfig{
			PinchThresholdPx: gesture.DefaultPinchThreshold,
		},
		Interaction: InteractionConfig{
			MinHandSpan:      ic.MinHandSpan,
			MaxHandSpan:      ic.MaxHandSpan,
			MinRadius:        ic.MinRadius,
			MaxRadius:        ic.MaxRadius,
			ReleaseTolerance: ic.ReleaseTolerance,
			InitialX:         320,
			InitialY:         240,
			InitialRadius:    30,
		},
		Display: DisplayConfig{
			RefreshHz:   60,
			WindowTitle: "pinchgrab",
			ActiveColor: "red",
			IdleColor:   "blue",
			OutlinePx:   3,
		},
		Tray: TrayConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFile reads a YAML file on top of the defaults. Unknown fields are
// rejected.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML on top of the defaults.
func Parse(b []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace and comments may follow the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds values set on the command line. Nil fields are left
// alone; non-nil fields are applied even when zero.
type FlagOverrides struct {
	CameraDevice     *int
	LogLevel         *string
	TrayEnabled      *bool
	PinchThreshold   *float64
	ReleaseTolerance *int
	RefreshHz        *int
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.CameraDevice != nil {
		cfg.Camera.Device = *o.CameraDevice
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.TrayEnabled != nil {
		cfg.Tray.Enabled = *o.TrayEnabled
	}
	if o.PinchThreshold != nil {
		cfg.Gesture.PinchThresholdPx = *o.PinchThreshold
	}
	if o.ReleaseTolerance != nil {
		cfg.Interaction.ReleaseTolerance = *o.ReleaseTolerance
	}
	if o.RefreshHz != nil {
		cfg.Display.RefreshHz = *o.RefreshHz
	}
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	// Camera
	if c.Camera.Device < 0 {
		return errors.New("camera.device must be >= 0")
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return errors.New("camera.width and camera.height must be > 0")
	}
	if c.Camera.FPS <= 0 {
		return errors.New("camera.fps must be > 0")
	}

	// Detector
	if c.Detector.MaxHands < 1 {
		return errors.New("detector.max_hands must be >= 1")
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return errors.New("detector.min_confidence must be between 0 and 1")
	}
	if c.Detector.MinTrackingConfidence < 0 || c.Detector.MinTrackingConfidence > 1 {
		return errors.New("detector.min_tracking_confidence must be between 0 and 1")
	}
	if c.Detector.StartTimeoutSec < 1 {
		return errors.New("detector.start_timeout_sec must be >= 1")
	}
	if c.Detector.IdleTimeoutSec < 0 {
		return errors.New("detector.idle_timeout_sec must be >= 0")
	}

	// Gesture
	if c.Gesture.PinchThresholdPx <= 0 {
		return errors.New("gesture.pinch_threshold_px must be > 0")
	}

	// Interaction
	if err := c.InteractionRules().Validate(); err != nil {
		return fmt.Errorf("interaction: %w", err)
	}
	if c.Interaction.InitialRadius < c.Interaction.MinRadius || c.Interaction.InitialRadius > c.Interaction.MaxRadius {
		return errors.New("interaction.initial_radius must be between min_radius and max_radius")
	}

	// Display
	if c.Display.RefreshHz <= 0 || c.Display.RefreshHz > 1000 {
		return errors.New("display.refresh_hz must be between 1 and 1000")
	}
	if _, err := c.Palette(); err != nil {
		return fmt.Errorf("display: %w", err)
	}

	// Logging
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// InteractionRules converts the interaction section for the state machine.
func (c *Config) InteractionRules() interaction.Config {
	return interaction.Config{
		MinHandSpan:      c.Interaction.MinHandSpan,
		MaxHandSpan:      c.Interaction.MaxHandSpan,
		MinRadius:        c.Interaction.MinRadius,
		MaxRadius:        c.Interaction.MaxRadius,
		ReleaseTolerance: c.Interaction.ReleaseTolerance,
	}
}

// InitialState returns the object's state at startup.
func (c *Config) InitialState() interaction.State {
	center := geometry.Point{X: c.Interaction.InitialX, Y: c.Interaction.InitialY}
	return interaction.NewState(center, c.Interaction.InitialRadius)
}

// DetectorSettings converts the detector section.
func (c *Config) DetectorSettings() detector.Config {
	return detector.Config{
		MaxHands:        c.Detector.MaxHands,
		MinConfidence:   c.Detector.MinConfidence,
		MinTrackingConf: c.Detector.MinTrackingConfidence,
		ScriptPath:      ExpandPath(c.Detector.Script),
		Interpreter:     ExpandPath(c.Detector.Python),
		StartTimeout:    time.Duration(c.Detector.StartTimeoutSec) * time.Second,
		IdleTimeout:     time.Duration(c.Detector.IdleTimeoutSec) * time.Second,
	}
}

// Palette resolves the display colors.
func (c *Config) Palette() (render.Palette, error) {
	return render.NewPalette(c.Display.ActiveColor, c.Display.IdleColor, c.Display.OutlinePx)
}

// RefreshInterval is the time between display refreshes.
func (c *Config) RefreshInterval() time.Duration {
	if c.Display.RefreshHz <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.Display.RefreshHz)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
