package capture

import (
	"image"
	"math"
)

// Surface is one rendered page bitmap placed in the viewport.
type Surface struct {
	Page   int
	Origin image.Point // viewport position of the bitmap's top-left pixel
	Pixels image.Image
}

// Bounds returns the surface rectangle in viewport coordinates.
func (s Surface) Bounds() image.Rectangle {
	if s.Pixels == nil {
		return image.Rectangle{}
	}
	b := s.Pixels.Bounds()
	return image.Rect(0, 0, b.Dx(), b.Dy()).Add(s.Origin)
}

func (s Surface) contains(p Point) bool {
	b := s.Bounds()
	x := int(math.Floor(p.X))
	y := int(math.Floor(p.Y))
	return image.Pt(x, y).In(b)
}

// Mode selects how the locator enumerates candidate surfaces.
type Mode int

const (
	// ModeSingleSurface picks the topmost surface directly beneath the point.
	// Surfaces later in the slice are stacked above earlier ones.
	ModeSingleSurface Mode = iota
	// ModeWholePage walks every surface in the viewer container in layout order.
	ModeWholePage
)

func ParseMode(s string) Mode {
	switch s {
	case "whole", "whole_page", "whole-page", "multi":
		return ModeWholePage
	default:
		return ModeSingleSurface
	}
}

func (m Mode) String() string {
	if m == ModeWholePage {
		return "whole_page"
	}
	return "single_surface"
}

type Locator struct {
	Mode Mode
}

// Locate returns the surface whose bounds contain p.
func (l Locator) Locate(surfaces []Surface, p Point) (Surface, error) {
	if l.Mode == ModeWholePage {
		for _, s := range surfaces {
			if s.contains(p) {
				return s, nil
			}
		}
		return Surface{}, ErrNoSurface
	}
	for i := len(surfaces) - 1; i >= 0; i-- {
		if surfaces[i].contains(p) {
			return surfaces[i], nil
		}
	}
	return Surface{}, ErrNoSurface
}
