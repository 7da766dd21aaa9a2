package conversation

import "context"

// Event is one message delivered by the voice session. Source decides the
// transcript role. Events carrying Audio are agent speech and never reach
// the transcript.
type Event struct {
	Source Role
	Text   string
	Audio  []byte
}

// Session is a live voice-agent conversation.
type Session interface {
	SendUserMessage(ctx context.Context, text string) error
	// SendAudio streams one chunk of microphone audio.
	SendAudio(ctx context.Context, chunk []byte) error
	SetMicMuted(muted bool)
	// Events is closed when the session ends.
	Events() <-chan Event
	Close() error
}
