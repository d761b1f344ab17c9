package geometry

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func TestToSurfacePoint(t *testing.T) {
	tests := []struct {
		name          string
		nx, ny        float64
		width, height int
		want          Point
	}{
		{
			name:   "mirrors x axis",
			nx:     0.25,
			ny:     0.5,
			width:  640,
			height: 480,
			want:   Point{X: 480, Y: 240},
		},
		{
			name:   "left edge maps to right edge",
			nx:     0,
			ny:     0,
			width:  640,
			height: 480,
			want:   Point{X: 640, Y: 0},
		},
		{
			name:   "right edge maps to left edge",
			nx:     1,
			ny:     1,
			width:  1280,
			height: 720,
			want:   Point{X: 0, Y: 720},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToSurfacePoint(tt.nx, tt.ny, tt.width, tt.height)
			if math.Abs(got.X-tt.want.X) > epsilon || math.Abs(got.Y-tt.want.Y) > epsilon {
				t.Errorf("ToSurfacePoint(%v, %v) = %+v, want %+v", tt.nx, tt.ny, got, tt.want)
			}
		})
	}
}

func TestDistance(t *testing.T) {
	if got := Distance(Point{X: 0, Y: 0}, Point{X: 3, Y: 4}); math.Abs(got-5) > epsilon {
		t.Errorf("Distance() = %f, want 5", got)
	}
	if got := Distance(Point{X: 7, Y: 7}, Point{X: 7, Y: 7}); got != 0 {
		t.Errorf("Distance() of identical points = %f, want 0", got)
	}
}

func TestMidpoint(t *testing.T) {
	got := Midpoint(Point{X: 100, Y: 200}, Point{X: 120, Y: 180})
	want := Point{X: 110, Y: 190}
	if got != want {
		t.Errorf("Midpoint() = %+v, want %+v", got, want)
	}
}

func TestPointInCircle(t *testing.T) {
	center := Point{X: 320, Y: 240}

	t.Run("nil point is outside", func(t *testing.T) {
		if PointInCircle(nil, center, 30) {
			t.Error("expected nil point to be outside")
		}
	})

	t.Run("center is inside", func(t *testing.T) {
		p := center
		if !PointInCircle(&p, center, 30) {
			t.Error("expected center to be inside")
		}
	})

	t.Run("boundary is outside", func(t *testing.T) {
		p := Point{X: 350, Y: 240}
		if PointInCircle(&p, center, 30) {
			t.Error("expected point exactly on the circle to be outside")
		}
	})

	t.Run("zero radius contains nothing", func(t *testing.T) {
		p := center
		if PointInCircle(&p, center, 0) {
			t.Error("expected zero radius circle to contain nothing")
		}
	})

	t.Run("far point is outside", func(t *testing.T) {
		p := Point{X: 0, Y: 0}
		if PointInCircle(&p, center, 30) {
			t.Error("expected far point to be outside")
		}
	})
}

func TestMapRange(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{name: "lower bound", value: 30, want: 10},
		{name: "upper bound", value: 250, want: 80},
		{name: "below range clamps", value: 10, want: 10},
		{name: "above range clamps", value: 1000, want: 80},
		{name: "midpoint", value: 140, want: 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapRange(tt.value, 30, 250, 10, 80)
			if math.Abs(got-tt.want) > epsilon {
				t.Errorf("MapRange(%v, 30, 250, 10, 80) = %f, want %f", tt.value, got, tt.want)
			}
		})
	}
}
