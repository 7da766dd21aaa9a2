package capture

import (
	"image"
	"math"
)

// Point is a pointer position in viewport pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a selection rectangle in viewport pixels. X/Y is always the
// top-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Pixels snaps the rectangle onto the integer pixel grid.
func (r Rect) Pixels() image.Rectangle {
	x0 := int(math.Round(r.X))
	y0 := int(math.Round(r.Y))
	return image.Rect(x0, y0, x0+int(math.Round(r.Width)), y0+int(math.Round(r.Height)))
}

// normalizeRect builds the rectangle spanned by a drag from start to p,
// independent of drag direction.
func normalizeRect(start, p Point) Rect {
	w := p.X - start.X
	h := p.Y - start.Y
	r := Rect{X: start.X, Y: start.Y, Width: math.Abs(w), Height: math.Abs(h)}
	if w < 0 {
		r.X = p.X
	}
	if h < 0 {
		r.Y = p.Y
	}
	return r
}
