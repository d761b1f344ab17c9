package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/pinchgrab/internal/app"
	"github.com/ayusman/pinchgrab/internal/config"
	"github.com/ayusman/pinchgrab/internal/logging"
	"github.com/ayusman/pinchgrab/internal/tray"
)

const appName = "pinchgrab"

var (
	cfgFile          string
	cameraDevice     int
	logLevel         string
	trayEnabled      bool
	pinchThreshold   float64
	releaseTolerance int
	refreshHz        int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Grab and drag an on-screen circle with a pinch",
	Long: `pinchgrab shows the webcam mirrored in a window with a circle on top.

Pinch your thumb and index finger over the circle to grab it, move your hand
to drag it and bring your hand closer to the camera to make it bigger.
Opening your fingers or moving your hand out of view drops it.

Configuration is read from ~/.pinchgrab/config.yaml when present. Flags
override the file.`,
	SilenceUsage: true,
	RunE:         run,
}

// Command returns the root cobra command for mounting into a parent CLI.
func Command() *cobra.Command {
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.pinchgrab/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: error, warn, info or debug")

	rootCmd.Flags().IntVar(&cameraDevice, "camera", 0, "camera device index")
	rootCmd.Flags().BoolVar(&trayEnabled, "tray", false, "show a system tray menu")
	rootCmd.Flags().Float64Var(&pinchThreshold, "pinch-threshold", 40, "thumb to index distance in pixels that counts as a pinch")
	rootCmd.Flags().IntVar(&releaseTolerance, "release-tolerance", 5, "refreshes without a pinch before a dragged object is dropped")
	rootCmd.Flags().IntVar(&refreshHz, "refresh-hz", 60, "display refresh rate")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig merges defaults, the config file and any flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	path := cfgFile
	if path == "" {
		path = defaultConfigPath()
	}
	if path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	var o config.FlagOverrides
	if changed(cmd, "camera") {
		o.CameraDevice = &cameraDevice
	}
	if changed(cmd, "log-level") {
		o.LogLevel = &logLevel
	}
	if changed(cmd, "tray") {
		o.TrayEnabled = &trayEnabled
	}
	if changed(cmd, "pinch-threshold") {
		o.PinchThreshold = &pinchThreshold
	}
	if changed(cmd, "release-tolerance") {
		o.ReleaseTolerance = &releaseTolerance
	}
	if changed(cmd, "refresh-hz") {
		o.RefreshHz = &refreshHz
	}
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}

// defaultConfigPath returns ~/.pinchgrab/config.yaml if it exists.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, "."+appName, "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tray.Enabled {
		ctx = startTray(ctx, application, logger)
	}

	logger.Info("pinchgrab running", "session", application.Loop().SessionID())
	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("run failed", "error", err)
		return err
	}
	return nil
}

// startTray registers the tray menu and keeps its state line current. The
// returned context is cancelled when the user picks Quit.
func startTray(ctx context.Context, application *app.App, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(ctx)

	t := tray.New()
	t.OnToggle(application.SetEnabled)
	t.OnQuit(cancel)
	t.Register()

	go func() {
		defer t.Quit()

		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.SetStatus(application.State().Phase().String())
			}
		}
	}()

	logger.Debug("tray registered")
	return ctx
}
