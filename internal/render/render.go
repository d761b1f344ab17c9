// Package render draws the camera view and the manipulated object.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"gocv.io/x/gocv"
	"golang.org/x/image/colornames"

	"github.com/ayusman/pinchgrab/internal/geometry"
)

// ErrClosed is returned by Present once the user has closed the view.
var ErrClosed = errors.New("render: view closed")

// Renderer is a drawing surface that shows one frame per refresh.
//
// Begin sizes the surface to frame and paints it mirrored horizontally.
// DrawCircle draws on top of the current frame, in surface coordinates.
// Present shows the composed frame.
type Renderer interface {
	Begin(frame gocv.Mat) error
	DrawCircle(c Circle) error
	Present() error
	Close() error
}

// Circle is the manipulated object as it should appear on screen.
type Circle struct {
	Center geometry.Point
	Radius float64
	Active bool
}

// Palette holds the colors used to draw the object.
type Palette struct {
	Active       color.RGBA
	Idle         color.RGBA
	Outline      color.RGBA
	OutlineWidth int
}

// DefaultPalette returns red while dragging, blue at rest, with a 3 px white outline.
func DefaultPalette() Palette {
	return Palette{
		Active:       colornames.Red,
		Idle:         colornames.Blue,
		Outline:      colornames.White,
		OutlineWidth: 3,
	}
}

// Fill returns the fill color for c.
func (p Palette) Fill(c Circle) color.RGBA {
	if c.Active {
		return p.Active
	}
	return p.Idle
}

// ParseColor resolves an SVG color name such as "red" or "steelblue".
func ParseColor(name string) (color.RGBA, error) {
	c, ok := colornames.Map[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return color.RGBA{}, fmt.Errorf("unknown color %q", name)
	}
	return c, nil
}

// NewPalette builds a palette from color names.
func NewPalette(active, idle string, outlineWidth int) (Palette, error) {
	p := DefaultPalette()

	var err error
	if p.Active, err = ParseColor(active); err != nil {
		return Palette{}, fmt.Errorf("active color: %w", err)
	}
	if p.Idle, err = ParseColor(idle); err != nil {
		return Palette{}, fmt.Errorf("idle color: %w", err)
	}
	if outlineWidth < 0 {
		return Palette{}, fmt.Errorf("outline width must be non-negative, got %d", outlineWidth)
	}
	p.OutlineWidth = outlineWidth

	return p, nil
}
