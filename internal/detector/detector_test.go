package detector

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const epsilon = 1e-9

func TestHandLandmarks_Translate(t *testing.T) {
	hand := PinchLandmarks()
	moved := hand.Translate(0.1, -0.2)

	for i := 0; i < NumLandmarks; i++ {
		if math.Abs(moved.Points[i].X-(hand.Points[i].X+0.1)) > epsilon {
			t.Errorf("point %d X = %f, want %f", i, moved.Points[i].X, hand.Points[i].X+0.1)
		}
		if math.Abs(moved.Points[i].Y-(hand.Points[i].Y-0.2)) > epsilon {
			t.Errorf("point %d Y = %f, want %f", i, moved.Points[i].Y, hand.Points[i].Y-0.2)
		}
		if moved.Points[i].Z != hand.Points[i].Z {
			t.Errorf("point %d Z changed", i)
		}
	}

	if moved.Handedness != hand.Handedness || moved.Score != hand.Score {
		t.Error("expected handedness and score to be preserved")
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns no hand by default", func(t *testing.T) {
		mock := NewMockDetector()

		hand, err := mock.Detect(nil, 0)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hand != nil {
			t.Errorf("expected nil hand, got %+v", hand)
		}
	})

	t.Run("returns configured hand", func(t *testing.T) {
		mock := NewMockDetector()
		expected := PinchLandmarks()
		mock.SetHand(&expected)

		hand, err := mock.Detect(nil, 33*time.Millisecond)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hand == nil {
			t.Fatal("expected a hand")
		}
		if hand.Points[ThumbTip] != expected.Points[ThumbTip] {
			t.Errorf("thumb tip = %+v, want %+v", hand.Points[ThumbTip], expected.Points[ThumbTip])
		}
	})

	t.Run("returned hand is a copy", func(t *testing.T) {
		mock := NewMockDetector()
		expected := PinchLandmarks()
		mock.SetHand(&expected)

		hand, _ := mock.Detect(nil, 0)
		hand.Points[Wrist].X = 42

		again, _ := mock.Detect(nil, 0)
		if again.Points[Wrist].X == 42 {
			t.Error("mutating a returned hand should not affect the mock")
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		hand := PinchLandmarks()
		mock.SetHand(&hand)

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		got, err := mock.Detect(nil, 0)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if got != nil {
			t.Errorf("expected nil hand when error is set, got %+v", got)
		}
	})

	t.Run("records calls and timestamps", func(t *testing.T) {
		mock := NewMockDetector()

		mock.Detect(nil, 10*time.Millisecond)
		mock.Detect(nil, 20*time.Millisecond)

		if mock.Calls() != 2 {
			t.Errorf("Calls() = %d, want 2", mock.Calls())
		}
		ts := mock.Timestamps()
		if len(ts) != 2 || ts[0] != 10*time.Millisecond || ts[1] != 20*time.Millisecond {
			t.Errorf("Timestamps() = %v", ts)
		}
	})

	t.Run("Close returns nil", func(t *testing.T) {
		mock := NewMockDetector()

		if err := mock.Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestPinchLandmarks(t *testing.T) {
	hand := PinchLandmarks()

	t.Run("tips straddle the center", func(t *testing.T) {
		midX := (hand.Points[ThumbTip].X + hand.Points[IndexTip].X) / 2
		midY := (hand.Points[ThumbTip].Y + hand.Points[IndexTip].Y) / 2
		if math.Abs(midX-0.5) > epsilon || math.Abs(midY-0.5) > epsilon {
			t.Errorf("tip midpoint = (%f, %f), want (0.5, 0.5)", midX, midY)
		}
	})

	t.Run("tips are close together", func(t *testing.T) {
		dx := hand.Points[ThumbTip].X - hand.Points[IndexTip].X
		dy := hand.Points[ThumbTip].Y - hand.Points[IndexTip].Y
		if math.Hypot(dx, dy) > 0.05 {
			t.Errorf("thumb and index tips too far apart: %f", math.Hypot(dx, dy))
		}
	})

	t.Run("shifted pinch moves the midpoint", func(t *testing.T) {
		shifted := PinchLandmarksAt(0.25, 0.75)
		midX := (shifted.Points[ThumbTip].X + shifted.Points[IndexTip].X) / 2
		midY := (shifted.Points[ThumbTip].Y + shifted.Points[IndexTip].Y) / 2
		if math.Abs(midX-0.25) > epsilon || math.Abs(midY-0.75) > epsilon {
			t.Errorf("tip midpoint = (%f, %f), want (0.25, 0.75)", midX, midY)
		}
	})
}

func TestOpenHandLandmarks(t *testing.T) {
	hand := OpenHandLandmarks()

	dx := hand.Points[ThumbTip].X - hand.Points[IndexTip].X
	dy := hand.Points[ThumbTip].Y - hand.Points[IndexTip].Y
	if math.Hypot(dx, dy) < 0.2 {
		t.Errorf("open hand thumb and index tips too close: %f", math.Hypot(dx, dy))
	}

	// Fingers extended: tips above their MCP joints
	if hand.Points[IndexTip].Y >= hand.Points[IndexMCP].Y {
		t.Error("index tip should be above index MCP")
	}
	if hand.Points[MiddleTip].Y >= hand.Points[MiddleMCP].Y {
		t.Error("middle tip should be above middle MCP")
	}
}

func TestWriteRequest(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{0xff, 0xd8, 0xff, 0xd9}

	if err := writeRequest(&buf, 1500*time.Millisecond, payload); err != nil {
		t.Fatalf("writeRequest() error = %v", err)
	}

	data := buf.Bytes()
	if len(data) != 12+len(payload) {
		t.Fatalf("request length = %d, want %d", len(data), 12+len(payload))
	}
	if ts := binary.BigEndian.Uint64(data[:8]); ts != 1500 {
		t.Errorf("timestamp = %d, want 1500", ts)
	}
	if n := binary.BigEndian.Uint32(data[8:12]); n != uint32(len(payload)) {
		t.Errorf("length = %d, want %d", n, len(payload))
	}
	if !bytes.Equal(data[12:], payload) {
		t.Errorf("payload = %v, want %v", data[12:], payload)
	}
}

func TestParseResponse(t *testing.T) {
	t.Run("no hands", func(t *testing.T) {
		hand, err := parseResponse([]byte(`{"hands":[]}` + "\n"))
		if err != nil {
			t.Fatalf("parseResponse() error = %v", err)
		}
		if hand != nil {
			t.Errorf("expected nil hand, got %+v", hand)
		}
	})

	t.Run("first hand is returned", func(t *testing.T) {
		first := PinchLandmarks()
		first.Handedness = "Left"
		first.Score = 0.8
		second := OpenHandLandmarks()

		line, err := json.Marshal(map[string]any{"hands": []HandLandmarks{first, second}})
		if err != nil {
			t.Fatalf("failed to marshal response: %v", err)
		}

		hand, err := parseResponse(line)
		if err != nil {
			t.Fatalf("parseResponse() error = %v", err)
		}
		if hand == nil {
			t.Fatal("expected a hand")
		}
		if hand.Handedness != "Left" || hand.Score != 0.8 {
			t.Errorf("hand = %s/%f, want Left/0.8", hand.Handedness, hand.Score)
		}
		if hand.Points != first.Points {
			t.Errorf("points = %+v, want %+v", hand.Points, first.Points)
		}
	})

	t.Run("incomplete hand is rejected", func(t *testing.T) {
		tests := []struct {
			name   string
			points string
		}{
			{"empty", `[]`},
			{"two points", `[{"x":0.1,"y":0.2,"z":0.3},{"x":0.4,"y":0.5,"z":0.6}]`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				line := `{"hands":[{"points":` + tt.points + `,"handedness":"Right","score":0.9}]}`
				hand, err := parseResponse([]byte(line))
				if err == nil {
					t.Errorf("expected error, got hand %+v", hand)
				}
				if hand != nil {
					t.Errorf("expected nil hand, got %+v", hand)
				}
			})
		}
	})

	t.Run("too many points is rejected", func(t *testing.T) {
		points := make([]Point3D, NumLandmarks+1)
		line, _ := json.Marshal(map[string]any{"hands": []any{map[string]any{"points": points}}})
		if _, err := parseResponse(line); err == nil {
			t.Error("expected error for a hand with extra landmarks")
		}
	})

	t.Run("service error", func(t *testing.T) {
		if _, err := parseResponse([]byte(`{"error":"model not loaded"}`)); err == nil {
			t.Error("expected error for service error response")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := parseResponse([]byte("not json")); err == nil {
			t.Error("expected error for invalid JSON")
		}
	})
}

func TestNewMediaPipeDetector(t *testing.T) {
	t.Run("missing explicit script fails", func(t *testing.T) {
		_, err := NewMediaPipeDetector(Config{ScriptPath: filepath.Join(t.TempDir(), "missing.py")}, nil)
		if !errors.Is(err, ErrServiceNotFound) {
			t.Errorf("expected ErrServiceNotFound, got %v", err)
		}
	})

	t.Run("explicit script is used", func(t *testing.T) {
		script := filepath.Join(t.TempDir(), "mediapipe_service.py")
		if err := os.WriteFile(script, []byte("# service\n"), 0644); err != nil {
			t.Fatalf("failed to write script: %v", err)
		}

		cfg := DefaultConfig()
		cfg.ScriptPath = script
		d, err := NewMediaPipeDetector(cfg, nil)
		if err != nil {
			t.Fatalf("NewMediaPipeDetector() error = %v", err)
		}
		defer d.Close()

		args := d.scriptArgs()
		if args[0] != script {
			t.Errorf("script arg = %s, want %s", args[0], script)
		}
		if args[1] != "--max-hands" || args[2] != "1" {
			t.Errorf("expected --max-hands 1, got %v", args[1:3])
		}
	})

	t.Run("Close before start is a no-op", func(t *testing.T) {
		d := &MediaPipeDetector{}
		if err := d.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
}

func TestParseReady(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr bool
	}{
		{"ready", `{"ready":true}`, false},
		{"service error", `{"error":"No module named 'mediapipe'"}`, true},
		{"not ready", `{"ready":false}`, true},
		{"garbage", "Traceback (most recent call last):", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseReady([]byte(tt.line + "\n"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseReady() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrServiceFailed) {
				t.Errorf("expected ErrServiceFailed, got %v", err)
			}
		})
	}
}
