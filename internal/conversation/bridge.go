package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"studytutor/internal/capture"
)

// ErrNoSession is returned when a message is sent with no live session.
var ErrNoSession = errors.New("no active conversation")

// DiagramMessage frames a screenshot description for the agent.
func DiagramMessage(analysis string) string {
	return fmt.Sprintf("I've highlighted a diagram in my textbook. Here's what it contains:\n\n%s\n\n"+
		"Please start your response with \"Of course! I'll explain the [diagram type] diagram for you!\" "+
		"where you identify what type of diagram this is based on the content, then explain it to me. "+
		"Remember, this is always a diagram, never an excerpt or text passage.", analysis)
}

// Bridge forwards capture results into the live session and records session
// events in the transcript.
type Bridge struct {
	transcript *Transcript
	log        zerolog.Logger

	mu      sync.Mutex
	session Session
	muted   bool
	audio   func([]byte)
}

var _ capture.Observer = (*Bridge)(nil)

func NewBridge(transcript *Transcript, log zerolog.Logger) *Bridge {
	return &Bridge{transcript: transcript, log: log}
}

func (b *Bridge) Transcript() *Transcript { return b.transcript }

// Attach makes s the active session. It fails if one is already attached.
func (b *Bridge) Attach(s Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session != nil {
		return errors.New("conversation already active")
	}
	b.session = s
	b.muted = false
	return nil
}

// Detach clears and returns the active session.
func (b *Bridge) Detach() Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.session
	b.session = nil
	return s
}

func (b *Bridge) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session != nil
}

// Session returns the active session or nil.
func (b *Bridge) Session() Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

// Pump feeds every event of s into the transcript until the session closes
// its event stream or ctx is done. When the stream ends on its own the
// session is detached and the transcript cleared.
func (b *Bridge) Pump(ctx context.Context, s Session) {
	events := s.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				b.mu.Lock()
				ended := b.session == s
				if ended {
					b.session = nil
					b.muted = false
				}
				b.mu.Unlock()
				if ended {
					b.transcript.Clear()
				}
				b.log.Info().Msg("conversation disconnected")
				return
			}
			b.HandleEvent(ev)
		}
	}
}

// OnAudio sets the receiver of agent speech chunks.
func (b *Bridge) OnAudio(fn func(chunk []byte)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audio = fn
}

// SetMicMuted mutes or unmutes the microphone of the live session.
func (b *Bridge) SetMicMuted(muted bool) error {
	b.mu.Lock()
	s := b.session
	if s != nil {
		b.muted = muted
	}
	b.mu.Unlock()
	if s == nil {
		return ErrNoSession
	}
	s.SetMicMuted(muted)
	return nil
}

func (b *Bridge) MicMuted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.muted
}

// SendAudio forwards a microphone chunk to the live session. While muted the
// chunk is dropped and sent reports false.
func (b *Bridge) SendAudio(ctx context.Context, chunk []byte) (sent bool, err error) {
	b.mu.Lock()
	s, muted := b.session, b.muted
	b.mu.Unlock()
	if s == nil {
		return false, ErrNoSession
	}
	if muted || len(chunk) == 0 {
		return false, nil
	}
	if err := s.SendAudio(ctx, chunk); err != nil {
		return false, err
	}
	return true, nil
}

// HandleEvent records ev under the role named by its source tag. Audio is
// handed to the OnAudio receiver instead.
func (b *Bridge) HandleEvent(ev Event) {
	if len(ev.Audio) > 0 {
		b.mu.Lock()
		fn := b.audio
		b.mu.Unlock()
		if fn != nil {
			fn(ev.Audio)
		}
		return
	}
	switch ev.Source {
	case RoleUser, RoleAgent:
	default:
		b.log.Warn().Str("source", string(ev.Source)).Msg("ignoring message with unknown source")
		return
	}
	b.transcript.AddSpeech(ev.Source, ev.Text)
}

// Send forwards a typed user message to the live session.
func (b *Bridge) Send(ctx context.Context, text string) error {
	s := b.Session()
	if s == nil {
		return ErrNoSession
	}
	if err := s.SendUserMessage(ctx, text); err != nil {
		return err
	}
	b.transcript.AddSpeech(RoleUser, text)
	return nil
}

// CaptureStarted only logs. Nothing reaches the agent until a description
// exists, so a capture that fails never leaves it waiting.
func (b *Bridge) CaptureStarted(context.Context) {
	b.log.Debug().Bool("session", b.Active()).Msg("screenshot being processed")
}

func (b *Bridge) CaptureAnalyzed(ctx context.Context, res capture.Result) {
	s := b.Session()
	if s == nil {
		b.log.Warn().Int("page", res.Page).Msg("screenshot taken but conversation not active, dropping analysis")
		return
	}
	b.transcript.AddDiagram()
	if err := s.SendUserMessage(ctx, DiagramMessage(res.Analysis)); err != nil {
		b.log.Error().Err(err).Msg("failed to send screenshot to conversation")
	}
}

func (b *Bridge) CaptureFailed(_ context.Context, err error) {
	b.log.Debug().Err(err).Msg("capture failed, nothing forwarded")
}
