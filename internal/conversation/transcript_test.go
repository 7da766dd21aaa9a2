package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t *Transcript) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	t.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func TestTranscriptCoalescesSameRole(t *testing.T) {
	tr := NewTranscript()
	fixedClock(tr)

	tr.AddSpeech(RoleAgent, "Hello!")
	tr.AddSpeech(RoleAgent, "How can I help?")
	tr.AddSpeech(RoleUser, "Explain this")
	tr.AddSpeech(RoleAgent, "Sure.")

	entries := tr.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "Hello! How can I help?", entries[0].Text)
	assert.Equal(t, RoleAgent, entries[0].Role)
	assert.Equal(t, 2*time.Second, entries[0].CreatedAt.Sub(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Explain this", entries[1].Text)
	assert.Equal(t, "Sure.", entries[2].Text)
}

func TestTranscriptDiagramNotesJoinWithComma(t *testing.T) {
	tr := NewTranscript()
	tr.AddDiagram()
	tr.AddDiagram()
	entries := tr.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "sent a diagram or something, sent a diagram or something", entries[0].Text)

	tr.AddSpeech(RoleUser, "what is this?")
	assert.Equal(t, "sent a diagram or something, sent a diagram or something what is this?", tr.Entries()[0].Text)
}

func TestTranscriptIgnoresBlankText(t *testing.T) {
	tr := NewTranscript()
	assert.False(t, tr.AddSpeech(RoleAgent, ""))
	assert.False(t, tr.AddSpeech(RoleAgent, "  \n\t"))
	assert.Zero(t, tr.Len())
}

func TestTranscriptListeners(t *testing.T) {
	tr := NewTranscript()
	var seen [][]Entry
	unsubscribe := tr.Subscribe(TranscriptListenerFunc(func(entries []Entry) {
		seen = append(seen, entries)
	}))

	tr.AddSpeech(RoleUser, "hi")
	tr.AddSpeech(RoleUser, "")
	tr.Clear()
	require.Len(t, seen, 2)
	assert.Len(t, seen[0], 1)
	assert.Empty(t, seen[1])

	unsubscribe()
	tr.AddSpeech(RoleUser, "again")
	assert.Len(t, seen, 2)
}
