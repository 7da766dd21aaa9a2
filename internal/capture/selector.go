package capture

import (
	"fmt"
	"strings"
)

// MinSelectionSize is the smallest width and height, in pixels, that a
// finished drag must reach to be captured.
const MinSelectionSize = 10

// Selector tracks one pointer drag over the document surface.
// The zero value is ready to use.
type Selector struct {
	start  Point
	rect   Rect
	active bool
}

// Begin starts tracking at p, discarding any previous selection.
func (s *Selector) Begin(p Point) {
	s.start = p
	s.rect = Rect{X: p.X, Y: p.Y}
	s.active = true
}

// Move updates the selection; it is a no-op when no drag is in progress.
func (s *Selector) Move(p Point) bool {
	if !s.active {
		return false
	}
	s.rect = normalizeRect(s.start, p)
	return true
}

// End finalizes the drag. ok is false when nothing was being tracked or the
// rectangle is below MinSelectionSize in either dimension.
func (s *Selector) End() (Rect, bool) {
	if !s.active {
		return Rect{}, false
	}
	r := s.rect
	s.reset()
	if r.Width < MinSelectionSize || r.Height < MinSelectionSize {
		return Rect{}, false
	}
	return r, true
}

// Cancel discards any in-progress selection.
func (s *Selector) Cancel() {
	s.reset()
}

func (s *Selector) Active() bool { return s.active }

// Current returns the in-progress rectangle, for drawing the overlay.
func (s *Selector) Current() (Rect, bool) {
	return s.rect, s.active
}

func (s *Selector) reset() {
	s.start = Point{}
	s.rect = Rect{}
	s.active = false
}

// GestureEvent is one serialized pointer event from the viewer overlay.
type GestureEvent struct {
	Type string  `json:"type"` // down, move, up, cancel
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// ReplayGesture feeds events through a fresh Selector and returns the
// finalized rectangle. Events after the first release are ignored.
func ReplayGesture(events []GestureEvent) (Rect, error) {
	var sel Selector
	canceled := false
	for _, ev := range events {
		p := Point{X: ev.X, Y: ev.Y}
		switch strings.ToLower(strings.TrimSpace(ev.Type)) {
		case "down":
			sel.Begin(p)
			canceled = false
		case "move":
			sel.Move(p)
		case "up":
			if !sel.Active() {
				if canceled {
					return Rect{}, ErrSelectionCanceled
				}
				return Rect{}, ErrGestureIncomplete
			}
			sel.Move(p)
			r, ok := sel.End()
			if !ok {
				return Rect{}, ErrSelectionTooSmall
			}
			return r, nil
		case "cancel", "escape":
			sel.Cancel()
			canceled = true
		default:
			return Rect{}, fmt.Errorf("capture: unknown gesture event %q", ev.Type)
		}
	}
	if canceled {
		return Rect{}, ErrSelectionCanceled
	}
	return Rect{}, ErrGestureIncomplete
}
