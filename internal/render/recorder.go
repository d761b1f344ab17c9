package render

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// RecordedFrame is one presented frame as seen by a Recorder.
type RecordedFrame struct {
	Size    image.Point
	Circles []Circle
}

// Recorder is a Renderer that keeps every presented frame in memory.
type Recorder struct {
	mu      sync.Mutex
	current *RecordedFrame
	frames  []RecordedFrame
	begins  int

	// CloseAfter makes Present return ErrClosed once this many frames were
	// presented. Zero disables it.
	CloseAfter int
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Begin(frame gocv.Mat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.begins++
	r.current = &RecordedFrame{Size: image.Pt(frame.Cols(), frame.Rows())}
	return nil
}

func (r *Recorder) DrawCircle(c Circle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		r.current = &RecordedFrame{}
	}
	r.current.Circles = append(r.current.Circles, c)
	return nil
}

func (r *Recorder) Present() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		r.frames = append(r.frames, *r.current)
		r.current = nil
	}
	if r.CloseAfter > 0 && len(r.frames) >= r.CloseAfter {
		return ErrClosed
	}
	return nil
}

func (r *Recorder) Close() error { return nil }

// Frames returns the presented frames in order.
func (r *Recorder) Frames() []RecordedFrame {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RecordedFrame, len(r.frames))
	copy(out, r.frames)
	return out
}

// Begins returns how many frames were started.
func (r *Recorder) Begins() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.begins
}

// Last returns the most recently presented frame.
func (r *Recorder) Last() (RecordedFrame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.frames) == 0 {
		return RecordedFrame{}, false
	}
	return r.frames[len(r.frames)-1], true
}
