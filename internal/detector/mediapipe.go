package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// On start the service prints one line, {"ready":true} or {"error":"..."}.
// Each request is then an 8-byte big-endian timestamp in milliseconds, a
// 4-byte big-endian payload length and a JPEG payload. The service answers
// with one JSON line per request.
type MediaPipeDetector struct {
	config     Config
	scriptPath string
	pythonPath string
	logger     *slog.Logger
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	mu         sync.Mutex
	started    bool
	idleTimer  *time.Timer
	idleGen    uint64
}

// NewMediaPipeDetector creates a new MediaPipe detector. Call Start to launch
// the service before the first detection.
func NewMediaPipeDetector(config Config, logger *slog.Logger) (*MediaPipeDetector, error) {
	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = findMediaPipeScript()
	} else if _, err := os.Stat(scriptPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, scriptPath)
	}
	if scriptPath == "" {
		return nil, ErrServiceNotFound
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Use virtual environment Python if available
	pythonPath := config.Interpreter
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	return &MediaPipeDetector{
		config:     config,
		scriptPath: scriptPath,
		pythonPath: pythonPath,
		logger:     logger.With("component", "mediapipe"),
	}, nil
}

// Start launches the service and waits until it reports ready. After an idle
// shutdown Detect starts it again on demand.
func (d *MediaPipeDetector) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ensureStarted()
}

// Detect sends a frame to the service and returns the first detected hand.
// Errors wrapping ErrServiceFailed mean the service is gone.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat, timestamp time.Duration) (*HandLandmarks, error) {
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("detect: empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	if err := writeRequest(d.stdin, timestamp, buf.GetBytes()); err != nil {
		d.kill()
		return nil, fmt.Errorf("%w: %w", ErrServiceFailed, err)
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		d.kill()
		return nil, fmt.Errorf("%w: read response: %w", ErrServiceFailed, err)
	}

	d.resetIdleTimer()

	return parseResponse([]byte(line))
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	cmd := exec.Command(d.pythonPath, d.scriptArgs()...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: create stdin pipe: %w", ErrServiceFailed, err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: create stdout pipe: %w", ErrServiceFailed, err)
	}

	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start %s: %w", ErrServiceFailed, d.pythonPath, err)
	}

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	if err := d.awaitReady(); err != nil {
		d.kill()
		return err
	}

	d.logger.Info("mediapipe service started", "python", d.pythonPath, "script", d.scriptPath)
	d.resetIdleTimer()

	return nil
}

// awaitReady reads the service's first line, bounded by StartTimeout.
func (d *MediaPipeDetector) awaitReady() error {
	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)
	go func(r *bufio.Reader) {
		line, err := r.ReadString('\n')
		done <- result{line: line, err: err}
	}(d.stdout)

	timeout := d.config.StartTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().StartTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("%w: waiting for ready: %w", ErrServiceFailed, r.err)
		}
		return parseReady([]byte(r.line))
	case <-timer.C:
		return fmt.Errorf("%w: not ready after %s", ErrServiceFailed, timeout)
	}
}

func (d *MediaPipeDetector) scriptArgs() []string {
	maxHands := d.config.MaxHands
	if maxHands <= 0 {
		maxHands = 1
	}
	return []string{
		d.scriptPath,
		"--max-hands", strconv.Itoa(maxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	}
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	d.stopIdleTimer()

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.clear()
	d.logger.Info("mediapipe service stopped")

	return err
}

// kill stops a service that failed mid-conversation. The next call to
// ensureStarted launches a fresh process.
func (d *MediaPipeDetector) kill() {
	if !d.started {
		return
	}

	d.stopIdleTimer()

	d.stdin.Close()
	if err := d.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		d.logger.Warn("kill mediapipe service", "error", err)
	}
	d.cmd.Wait()
	d.clear()
	d.logger.Warn("mediapipe service killed")
}

func (d *MediaPipeDetector) clear() {
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
}

func (d *MediaPipeDetector) stopIdleTimer() {
	d.idleGen++
	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.config.IdleTimeout <= 0 {
		return
	}
	d.stopIdleTimer()
	gen := d.idleGen
	d.idleTimer = time.AfterFunc(d.config.IdleTimeout, func() {
		d.idleShutdown(gen)
	})
}

// idleShutdown stops the service unless the timer armed at gen has since
// been replaced. A fired timer can still be waiting on mu while Detect
// re-arms it.
func (d *MediaPipeDetector) idleShutdown(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.idleGen || !d.started {
		return
	}
	d.logger.Info("stopping idle mediapipe service", "idle", d.config.IdleTimeout)
	if err := d.shutdown(); err != nil {
		d.logger.Warn("idle shutdown", "error", err)
	}
}

// writeRequest frames one detection request.
func writeRequest(w io.Writer, timestamp time.Duration, jpeg []byte) error {
	header := make([]byte, 12)
	binary.BigEndian.PutUint64(header[:8], uint64(timestamp.Milliseconds()))
	binary.BigEndian.PutUint32(header[8:], uint32(len(jpeg)))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(jpeg); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

// parseResponse decodes one service response line. It returns nil when no
// hand was detected.
func parseResponse(line []byte) (*HandLandmarks, error) {
	var response struct {
		Hands []jsonHand `json:"hands"`
		Error string     `json:"error"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("mediapipe service: %s", response.Error)
	}
	if len(response.Hands) == 0 {
		return nil, nil
	}

	hand, err := response.Hands[0].toHandLandmarks()
	if err != nil {
		return nil, err
	}
	return &hand, nil
}

// parseReady decodes the service's startup line.
func parseReady(line []byte) error {
	var msg struct {
		Ready bool   `json:"ready"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(line, &msg); err != nil {
		return fmt.Errorf("%w: bad ready line %q: %w", ErrServiceFailed, line, err)
	}
	if msg.Error != "" {
		return fmt.Errorf("%w: %s", ErrServiceFailed, msg.Error)
	}
	if !msg.Ready {
		return fmt.Errorf("%w: service did not report ready", ErrServiceFailed)
	}
	return nil
}

func findMediaPipeScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/mediapipe_service.py",
		"../scripts/mediapipe_service.py",
		filepath.Join(execDir, "scripts/mediapipe_service.py"),
		filepath.Join(os.Getenv("HOME"), ".pinchgrab/scripts/mediapipe_service.py"),
	}

	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".pinchgrab/venv/bin/python"),
	}

	return firstExisting(candidates)
}

func firstExisting(candidates []string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

func (h jsonHand) toHandLandmarks() (HandLandmarks, error) {
	if len(h.Points) != NumLandmarks {
		return HandLandmarks{}, fmt.Errorf("parse response: hand has %d landmarks, want %d", len(h.Points), NumLandmarks)
	}

	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	copy(lm.Points[:], h.Points)

	return lm, nil
}
