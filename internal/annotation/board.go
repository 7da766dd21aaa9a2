package annotation

import (
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DragDistance and HoldDuration gate the click/drag decision: a press
	// becomes a drag once the pointer moved strictly more than DragDistance
	// pixels or was held strictly longer than HoldDuration.
	DragDistance = 5.0
	HoldDuration = 150 * time.Millisecond

	DefaultWidth  = 200.0
	DefaultHeight = 60.0
	MinWidth      = 100.0
	MinHeight     = 40.0
)

var (
	ErrNotFound = errors.New("annotation not found")
	ErrModeOff  = errors.New("annotation mode is off")
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Annotation is a sticky note pinned to one document of the viewer.
// Width and Height are zero until the note is first resized.
type Annotation struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Text   string  `json:"text"`
	Page   int     `json:"fileIndex"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

type State int

const (
	StateDeleted State = iota
	StateIdle
	StateSelected
	StateEditing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelected:
		return "selected"
	case StateEditing:
		return "editing"
	default:
		return "deleted"
	}
}

type press struct {
	id       string
	at       time.Time
	origin   Point
	dragging bool
	offset   Point
}

type resize struct {
	id     string
	origin Point
	width  float64
	height float64
}

// Board holds the annotations of one viewer and the pointer state machine
// that edits them.
type Board struct {
	mu       sync.Mutex
	now      func() time.Time
	mode     bool
	page     int
	notes    []*Annotation
	selected string
	editing  string
	press    *press
	resize   *resize
}

type Option func(*Board)

// WithClock replaces time.Now for press timing.
func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

func NewBoard(opts ...Option) *Board {
	b := &Board{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Board) SetMode(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mode = on
	if !on {
		b.press = nil
		b.resize = nil
	}
}

func (b *Board) Mode() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

// SetPage switches the document new annotations are attached to.
func (b *Board) SetPage(page int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.page = page
}

// ClickEmpty handles a click on empty document space. With a selection or
// an open editor the click only clears them; otherwise a blank note is
// created at p and opened for editing.
func (b *Board) ClickEmpty(p Point) (Annotation, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.mode {
		return Annotation{}, false, ErrModeOff
	}
	if b.selected != "" || b.editing != "" {
		b.selected, b.editing = "", ""
		return Annotation{}, false, nil
	}
	a := &Annotation{ID: uuid.NewString(), X: p.X, Y: p.Y, Page: b.page}
	b.notes = append(b.notes, a)
	b.selected, b.editing = a.ID, a.ID
	return *a, true, nil
}

// PointerDown presses on an existing annotation and selects it. at is the
// client event time; the zero time means now.
func (b *Board) PointerDown(id string, p Point, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.mode {
		return ErrModeOff
	}
	if b.find(id) == nil {
		return ErrNotFound
	}
	b.selected = id
	b.press = &press{id: id, at: b.stamp(at), origin: p}
	return nil
}

// PointerMove advances a press. It reports the moved annotation once the
// press has turned into a drag. Hold time is measured between the event
// times of the down and the move.
func (b *Board) PointerMove(p Point, at time.Time) (Annotation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pr := b.press
	if pr == nil {
		return Annotation{}, false
	}
	if !pr.dragging {
		if b.selected == "" {
			return Annotation{}, false
		}
		elapsed := b.stamp(at).Sub(pr.at)
		dist := math.Hypot(p.X-pr.origin.X, p.Y-pr.origin.Y)
		if elapsed <= HoldDuration && dist <= DragDistance {
			return Annotation{}, false
		}
		a := b.find(b.selected)
		if a == nil {
			b.press = nil
			return Annotation{}, false
		}
		pr.id = a.ID
		pr.dragging = true
		pr.offset = Point{X: p.X - a.X, Y: p.Y - a.Y}
	}
	a := b.find(pr.id)
	if a == nil {
		b.press = nil
		return Annotation{}, false
	}
	a.X = p.X - pr.offset.X
	a.Y = p.Y - pr.offset.Y
	return *a, true
}

// PointerUp ends a press. A press that never became a drag was a click and
// leaves the annotation selected.
func (b *Board) PointerUp() (dragged bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.press == nil {
		return false
	}
	dragged = b.press.dragging
	b.press = nil
	return dragged
}

func (b *Board) DoubleClick(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.mode {
		return ErrModeOff
	}
	if b.find(id) == nil {
		return ErrNotFound
	}
	b.editing = id
	b.selected = id
	return nil
}

func (b *Board) Edit(id, text string) (Annotation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.find(id)
	if a == nil {
		return Annotation{}, ErrNotFound
	}
	a.Text = text
	return *a, nil
}

// Blur closes the editor. A note left blank is deleted.
func (b *Board) Blur(id string) (deleted bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.find(id)
	if a == nil {
		return false, ErrNotFound
	}
	if b.editing == id {
		b.editing = ""
	}
	if strings.TrimSpace(a.Text) == "" {
		b.remove(id)
		return true, nil
	}
	return false, nil
}

// ResizeStart grabs the resize handle. Size is taken from the note or the
// defaults when it was never resized.
func (b *Board) ResizeStart(id string, p Point) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.mode {
		return ErrModeOff
	}
	a := b.find(id)
	if a == nil {
		return ErrNotFound
	}
	w, h := a.Width, a.Height
	if w == 0 {
		w = DefaultWidth
	}
	if h == 0 {
		h = DefaultHeight
	}
	b.resize = &resize{id: id, origin: p, width: w, height: h}
	return nil
}

func (b *Board) ResizeMove(p Point) (Annotation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rs := b.resize
	if rs == nil {
		return Annotation{}, false
	}
	a := b.find(rs.id)
	if a == nil {
		b.resize = nil
		return Annotation{}, false
	}
	a.Width = math.Max(MinWidth, rs.width+p.X-rs.origin.X)
	a.Height = math.Max(MinHeight, rs.height+p.Y-rs.origin.Y)
	return *a, true
}

func (b *Board) ResizeEnd() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resize = nil
}

func (b *Board) Delete(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.remove(id) {
		return ErrNotFound
	}
	return nil
}

// List returns the annotations attached to page, in creation order.
func (b *Board) List(page int) []Annotation {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Annotation, 0, len(b.notes))
	for _, a := range b.notes {
		if a.Page == page {
			out = append(out, *a)
		}
	}
	return out
}

func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.notes)
}

func (b *Board) State(id string) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.find(id) == nil:
		return StateDeleted
	case b.editing == id:
		return StateEditing
	case b.selected == id:
		return StateSelected
	default:
		return StateIdle
	}
}

// Clear drops every annotation and all pointer state.
func (b *Board) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notes = nil
	b.selected, b.editing = "", ""
	b.press, b.resize = nil, nil
}

func (b *Board) stamp(at time.Time) time.Time {
	if at.IsZero() {
		return b.now()
	}
	return at
}

func (b *Board) find(id string) *Annotation {
	for _, a := range b.notes {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (b *Board) remove(id string) bool {
	for i, a := range b.notes {
		if a.ID != id {
			continue
		}
		b.notes = append(b.notes[:i], b.notes[i+1:]...)
		if b.selected == id {
			b.selected = ""
		}
		if b.editing == id {
			b.editing = ""
		}
		if b.press != nil && b.press.id == id {
			b.press = nil
		}
		if b.resize != nil && b.resize.id == id {
			b.resize = nil
		}
		return true
	}
	return false
}
