// Package geometry provides the pixel-space math used by the pinch interaction:
// landmark-to-surface conversion, distances, circle hit tests and range mapping.
package geometry

import "math"

// Point is a 2D point in surface (pixel) coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ToSurfacePoint converts a normalized landmark coordinate into surface pixels.
// The X axis is mirrored so that points line up with a selfie-view display.
func ToSurfacePoint(nx, ny float64, width, height int) Point {
	return Point{
		X: (1 - nx) * float64(width),
		Y: ny * float64(height),
	}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point) Point {
	return Point{
		X: (a.X + b.X) / 2,
		Y: (a.Y + b.Y) / 2,
	}
}

// PointInCircle reports whether p lies strictly inside the circle.
// A nil point is never inside.
func PointInCircle(p *Point, center Point, radius float64) bool {
	if p == nil {
		return false
	}
	return Distance(*p, center) < radius
}

// MapRange linearly maps value from [inMin, inMax] onto [outMin, outMax] and
// clamps the result to the output range. inMax must be greater than inMin.
func MapRange(value, inMin, inMax, outMin, outMax float64) float64 {
	normalized := (value - inMin) / (inMax - inMin)
	mapped := normalized*(outMax-outMin) + outMin
	return math.Max(outMin, math.Min(outMax, mapped))
}
