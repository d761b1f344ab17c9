package render

import (
	"image"
	"math"
	"sync"

	"gocv.io/x/gocv"
)

const (
	keyEscape = 27
	keyQuit   = 'q'
)

// WindowRenderer shows frames in a native OpenCV window.
type WindowRenderer struct {
	window  *gocv.Window
	canvas  gocv.Mat
	palette Palette
	mu      sync.Mutex
	closed  bool
}

// NewWindowRenderer opens a window with the given title.
func NewWindowRenderer(title string, palette Palette) *WindowRenderer {
	return &WindowRenderer{
		window:  gocv.NewWindow(title),
		canvas:  gocv.NewMat(),
		palette: palette,
	}
}

// Begin paints the mirrored frame onto the canvas. The canvas takes the
// frame's size.
func (r *WindowRenderer) Begin(frame gocv.Mat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if frame.Empty() {
		return nil
	}
	gocv.Flip(frame, &r.canvas, 1)
	return nil
}

// DrawCircle draws a filled circle with an outline.
func (r *WindowRenderer) DrawCircle(c Circle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if r.canvas.Empty() {
		return nil
	}

	center := image.Pt(int(math.Round(c.Center.X)), int(math.Round(c.Center.Y)))
	radius := int(math.Round(c.Radius))

	gocv.Circle(&r.canvas, center, radius, r.palette.Fill(c), -1)
	if r.palette.OutlineWidth > 0 {
		gocv.Circle(&r.canvas, center, radius, r.palette.Outline, r.palette.OutlineWidth)
	}
	return nil
}

// Present shows the canvas and polls the keyboard. ESC or q closes the view.
func (r *WindowRenderer) Present() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if !r.canvas.Empty() {
		r.window.IMShow(r.canvas)
	}

	switch r.window.WaitKey(1) {
	case keyEscape, keyQuit:
		r.closed = true
		return ErrClosed
	}
	return nil
}

// Close destroys the window.
func (r *WindowRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	if err := r.canvas.Close(); err != nil {
		return err
	}
	return r.window.Close()
}
