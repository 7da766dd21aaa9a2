package annotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }
func newClock() *clock                   { return &clock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)} }

func newTestBoard(c *clock) *Board {
	b := NewBoard(WithClock(c.now))
	b.SetMode(true)
	return b
}

// createNote makes a committed, idle note at (x, y).
func createNote(t *testing.T, b *Board, x, y float64, text string) Annotation {
	t.Helper()
	a, created, err := b.ClickEmpty(Point{X: x, Y: y})
	require.NoError(t, err)
	require.True(t, created)
	_, err = b.Edit(a.ID, text)
	require.NoError(t, err)
	deleted, err := b.Blur(a.ID)
	require.NoError(t, err)
	require.False(t, deleted)
	_, _, err = b.ClickEmpty(Point{})
	require.NoError(t, err)
	return a
}

func TestClickEmptyCreatesEditingNote(t *testing.T) {
	b := newTestBoard(newClock())
	b.SetPage(2)

	a, created, err := b.ClickEmpty(Point{X: 120, Y: 340})
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, 2, a.Page)
	assert.Equal(t, "", a.Text)
	assert.Equal(t, StateEditing, b.State(a.ID))
	assert.Len(t, b.List(2), 1)
	assert.Empty(t, b.List(0))
}

func TestClickEmptyWhileSelectedOnlyDeselects(t *testing.T) {
	b := newTestBoard(newClock())
	a := createNote(t, b, 10, 10, "note")
	require.NoError(t, b.PointerDown(a.ID, Point{X: 10, Y: 10}, time.Time{}))
	b.PointerUp()
	require.Equal(t, StateSelected, b.State(a.ID))

	_, created, err := b.ClickEmpty(Point{X: 300, Y: 300})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, StateIdle, b.State(a.ID))
	assert.Equal(t, 1, b.Len())
}

func TestClickEmptyRequiresMode(t *testing.T) {
	b := NewBoard()
	_, _, err := b.ClickEmpty(Point{})
	assert.ErrorIs(t, err, ErrModeOff)
	assert.ErrorIs(t, b.PointerDown("x", Point{}, time.Time{}), ErrModeOff)
}

func TestPressBecomesDrag(t *testing.T) {
	tests := []struct {
		name    string
		hold    time.Duration
		move    Point
		dragged bool
	}{
		{"quick click", 50 * time.Millisecond, Point{X: 102, Y: 101}, false},
		{"exactly 150ms is still a click", 150 * time.Millisecond, Point{X: 100, Y: 100}, false},
		{"exactly 5px is still a click", 10 * time.Millisecond, Point{X: 105, Y: 100}, false},
		{"held past 150ms", 151 * time.Millisecond, Point{X: 100, Y: 100}, true},
		{"moved past 5px", 10 * time.Millisecond, Point{X: 104, Y: 104}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClock()
			b := newTestBoard(c)
			a := createNote(t, b, 90, 95, "drag me")

			require.NoError(t, b.PointerDown(a.ID, Point{X: 100, Y: 100}, time.Time{}))
			c.advance(tt.hold)
			_, moved := b.PointerMove(tt.move, time.Time{})
			assert.Equal(t, tt.dragged, moved)
			assert.Equal(t, tt.dragged, b.PointerUp())
			assert.Equal(t, StateSelected, b.State(a.ID))
		})
	}
}

func TestPressUsesEventTimes(t *testing.T) {
	c := newClock()
	b := newTestBoard(c)
	a := createNote(t, b, 90, 95, "drag me")

	down := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, b.PointerDown(a.ID, Point{X: 100, Y: 100}, down))
	c.advance(time.Second)
	_, moved := b.PointerMove(Point{X: 100, Y: 100}, down.Add(10*time.Millisecond))
	assert.False(t, moved, "late arrival does not count as holding")
	assert.False(t, b.PointerUp())

	require.NoError(t, b.PointerDown(a.ID, Point{X: 100, Y: 100}, down))
	_, moved = b.PointerMove(Point{X: 100, Y: 100}, down.Add(200*time.Millisecond))
	assert.True(t, moved)
	assert.True(t, b.PointerUp())
}

func TestDragKeepsGrabOffset(t *testing.T) {
	c := newClock()
	b := newTestBoard(c)
	a := createNote(t, b, 90, 95, "drag me")

	require.NoError(t, b.PointerDown(a.ID, Point{X: 100, Y: 100}, time.Time{}))
	got, ok := b.PointerMove(Point{X: 110, Y: 100}, time.Time{})
	require.True(t, ok)
	assert.Equal(t, 90.0, got.X, "drag starts without jumping")
	assert.Equal(t, 95.0, got.Y)

	got, ok = b.PointerMove(Point{X: 150, Y: 180}, time.Time{})
	require.True(t, ok)
	assert.Equal(t, 130.0, got.X)
	assert.Equal(t, 175.0, got.Y)

	require.True(t, b.PointerUp())
	_, ok = b.PointerMove(Point{X: 400, Y: 400}, time.Time{})
	assert.False(t, ok)
	assert.Equal(t, 130.0, b.List(0)[0].X)
}

func TestBlurDeletesBlankNote(t *testing.T) {
	b := newTestBoard(newClock())
	a, _, err := b.ClickEmpty(Point{X: 1, Y: 1})
	require.NoError(t, err)
	_, err = b.Edit(a.ID, "   \n")
	require.NoError(t, err)

	deleted, err := b.Blur(a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, StateDeleted, b.State(a.ID))
	assert.Zero(t, b.Len())

	// the next empty click creates instead of deselecting
	_, created, err := b.ClickEmpty(Point{X: 5, Y: 5})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestBlurKeepsWrittenNote(t *testing.T) {
	b := newTestBoard(newClock())
	a, _, _ := b.ClickEmpty(Point{})
	_, err := b.Edit(a.ID, "demand shifts right")
	require.NoError(t, err)
	deleted, err := b.Blur(a.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, StateSelected, b.State(a.ID))

	require.NoError(t, b.DoubleClick(a.ID))
	assert.Equal(t, StateEditing, b.State(a.ID))
}

func TestResizeUsesDefaultsAndMinimums(t *testing.T) {
	b := newTestBoard(newClock())
	a := createNote(t, b, 0, 0, "resize me")

	require.NoError(t, b.ResizeStart(a.ID, Point{X: 200, Y: 60}))
	got, ok := b.ResizeMove(Point{X: 250, Y: 100})
	require.True(t, ok)
	assert.Equal(t, 250.0, got.Width)
	assert.Equal(t, 100.0, got.Height)

	got, _ = b.ResizeMove(Point{X: 0, Y: 0})
	assert.Equal(t, MinWidth, got.Width)
	assert.Equal(t, MinHeight, got.Height)
	b.ResizeEnd()

	_, ok = b.ResizeMove(Point{X: 900, Y: 900})
	assert.False(t, ok)

	require.NoError(t, b.ResizeStart(a.ID, Point{X: 0, Y: 0}))
	got, _ = b.ResizeMove(Point{X: 30, Y: 5})
	assert.Equal(t, 130.0, got.Width, "second resize starts from the stored size")
	assert.Equal(t, 45.0, got.Height)
}

func TestDeleteAndClear(t *testing.T) {
	b := newTestBoard(newClock())
	a := createNote(t, b, 0, 0, "one")
	createNote(t, b, 10, 10, "two")

	require.NoError(t, b.Delete(a.ID))
	assert.ErrorIs(t, b.Delete(a.ID), ErrNotFound)
	assert.Equal(t, 1, b.Len())

	b.Clear()
	assert.Zero(t, b.Len())
}
