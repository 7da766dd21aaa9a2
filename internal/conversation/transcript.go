package conversation

import (
	"strings"
	"sync"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// DiagramNote is the transcript text standing in for a captured screenshot.
const DiagramNote = "sent a diagram or something"

const (
	speechSeparator  = " "
	diagramSeparator = ", "
)

type Entry struct {
	Role      Role      `json:"role"`
	Text      string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

// TranscriptListener receives a snapshot after every change.
type TranscriptListener interface {
	TranscriptChanged(entries []Entry)
}

// TranscriptListenerFunc adapts a plain function to TranscriptListener.
type TranscriptListenerFunc func(entries []Entry)

func (f TranscriptListenerFunc) TranscriptChanged(entries []Entry) { f(entries) }

// Transcript is an append-only list of role-tagged entries where consecutive
// entries of the same role are merged into one.
type Transcript struct {
	mu        sync.Mutex
	entries   []Entry
	listeners map[int]TranscriptListener
	nextID    int
	now       func() time.Time
}

func NewTranscript() *Transcript {
	return &Transcript{listeners: make(map[int]TranscriptListener), now: time.Now}
}

// Subscribe registers l and returns a function that removes it.
func (t *Transcript) Subscribe(l TranscriptListener) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = l
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.listeners, id)
	}
}

// AddSpeech records spoken or typed text. Blank text is ignored.
func (t *Transcript) AddSpeech(role Role, text string) bool {
	return t.add(role, text, speechSeparator)
}

// AddDiagram records that the user showed the agent a captured image.
func (t *Transcript) AddDiagram() bool {
	return t.add(RoleUser, DiagramNote, diagramSeparator)
}

func (t *Transcript) add(role Role, text, sep string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	t.mu.Lock()
	now := t.now()
	if n := len(t.entries); n > 0 && t.entries[n-1].Role == role {
		last := &t.entries[n-1]
		last.Text = last.Text + sep + text
		last.CreatedAt = now
	} else {
		t.entries = append(t.entries, Entry{Role: role, Text: text, CreatedAt: now})
	}
	snapshot, listeners := t.snapshotLocked()
	t.mu.Unlock()

	notify(listeners, snapshot)
	return true
}

func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Entry(nil), t.entries...)
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Clear drops every entry; listeners see an empty snapshot.
func (t *Transcript) Clear() {
	t.mu.Lock()
	if len(t.entries) == 0 {
		t.mu.Unlock()
		return
	}
	t.entries = nil
	snapshot, listeners := t.snapshotLocked()
	t.mu.Unlock()
	notify(listeners, snapshot)
}

func (t *Transcript) snapshotLocked() ([]Entry, []TranscriptListener) {
	listeners := make([]TranscriptListener, 0, len(t.listeners))
	for _, l := range t.listeners {
		listeners = append(listeners, l)
	}
	return append([]Entry(nil), t.entries...), listeners
}

func notify(listeners []TranscriptListener, entries []Entry) {
	for _, l := range listeners {
		l.TranscriptChanged(entries)
	}
}
