package capture

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Frame is a snapshot of the most recent camera frame.
//
// Seq increases by one for every stored frame, so a consumer can tell a new
// frame from one it has already processed. Timestamp is monotonic relative to
// the start of capture. The consumer owns Mat and must close it.
type Frame struct {
	Mat       gocv.Mat
	Seq       uint64
	Timestamp time.Duration
}

// Close releases the frame's image.
func (f *Frame) Close() error {
	return f.Mat.Close()
}

// FrameSource provides the latest available frame.
type FrameSource interface {
	Latest() (Frame, bool)
}

// LatestFrame is a single-slot cell holding the newest frame. Writers replace
// the slot; readers clone it. Older frames are dropped, never queued.
type LatestFrame struct {
	mu        sync.Mutex
	mat       gocv.Mat
	seq       uint64
	timestamp time.Duration
	has       bool
}

// NewLatestFrame creates an empty cell.
func NewLatestFrame() *LatestFrame {
	return &LatestFrame{}
}

// Store takes ownership of mat and makes it the latest frame, releasing the
// previous one.
func (l *LatestFrame) Store(mat gocv.Mat, timestamp time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.has {
		l.mat.Close()
	}
	l.mat = mat
	l.timestamp = timestamp
	l.seq++
	l.has = true
}

// Latest returns a copy of the newest frame, or false if none was stored yet.
func (l *LatestFrame) Latest() (Frame, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.has {
		return Frame{}, false
	}
	return Frame{
		Mat:       l.mat.Clone(),
		Seq:       l.seq,
		Timestamp: l.timestamp,
	}, true
}

// Seq returns the sequence number of the newest frame, zero if empty.
func (l *LatestFrame) Seq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// Close releases the held frame.
func (l *LatestFrame) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.has {
		return nil
	}
	l.has = false
	return l.mat.Close()
}
