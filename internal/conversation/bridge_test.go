package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studytutor/internal/capture"
)

type fakeSession struct {
	mu     sync.Mutex
	sent   []string
	audio  [][]byte
	muted  bool
	events chan Event
	err    error
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan Event, 8)}
}

func (s *fakeSession) SendUserMessage(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, text)
	return nil
}

func (s *fakeSession) SendAudio(_ context.Context, chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = append(s.audio, chunk)
	return nil
}

func (s *fakeSession) SetMicMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
}
func (s *fakeSession) Events() <-chan Event { return s.events }
func (s *fakeSession) Close() error         { return nil }

func (s *fakeSession) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func TestBridgeForwardsAnalysisToSession(t *testing.T) {
	b := NewBridge(NewTranscript(), zerolog.Nop())
	s := newFakeSession()
	require.NoError(t, b.Attach(s))

	ctx := context.Background()
	b.CaptureStarted(ctx)
	b.CaptureAnalyzed(ctx, capture.Result{Analysis: "Figure 3: supply curve"})

	sent := s.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "Here's what it contains:\n\nFigure 3: supply curve\n\n")
	assert.Contains(t, sent[0], "this is always a diagram")

	entries := b.Transcript().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, RoleUser, entries[0].Role)
	assert.Equal(t, DiagramNote, entries[0].Text)
}

func TestBridgeDropsAnalysisWithoutSession(t *testing.T) {
	b := NewBridge(NewTranscript(), zerolog.Nop())

	b.CaptureStarted(context.Background())
	b.CaptureAnalyzed(context.Background(), capture.Result{Analysis: "late"})
	assert.Zero(t, b.Transcript().Len())

	// a session attached later does not receive the old analysis
	s := newFakeSession()
	require.NoError(t, b.Attach(s))
	assert.Empty(t, s.messages())
}

func TestBridgeFailedCaptureLeavesTranscript(t *testing.T) {
	b := NewBridge(NewTranscript(), zerolog.Nop())
	s := newFakeSession()
	require.NoError(t, b.Attach(s))

	b.CaptureStarted(context.Background())
	b.CaptureFailed(context.Background(), errors.New("upstream 500"))

	assert.Zero(t, b.Transcript().Len())
	assert.Empty(t, s.messages())
}

func TestBridgeCaptureWithoutSurfaceSendsNothing(t *testing.T) {
	b := NewBridge(NewTranscript(), zerolog.Nop())
	s := newFakeSession()
	require.NoError(t, b.Attach(s))

	calls := 0
	p := capture.NewPipeline(capture.Locator{Mode: capture.ModeWholePage}, describerFunc(func(context.Context, string) (string, error) {
		calls++
		return "diagram", nil
	}), zerolog.Nop())
	p.Observe(b)

	_, err := p.Run(context.Background(), nil, []capture.GestureEvent{
		{Type: "down", X: 0, Y: 0},
		{Type: "move", X: 100, Y: 100},
		{Type: "up", X: 100, Y: 100},
	})
	assert.ErrorIs(t, err, capture.ErrNoSurface)
	assert.Zero(t, calls)
	assert.Empty(t, s.messages())
	assert.Zero(t, b.Transcript().Len())
}

func TestBridgeAudioHonorsMute(t *testing.T) {
	b := NewBridge(NewTranscript(), zerolog.Nop())
	ctx := context.Background()

	_, err := b.SendAudio(ctx, []byte{1})
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, b.SetMicMuted(true), ErrNoSession)

	s := newFakeSession()
	require.NoError(t, b.Attach(s))
	sent, err := b.SendAudio(ctx, []byte{1, 2})
	require.NoError(t, err)
	assert.True(t, sent)

	require.NoError(t, b.SetMicMuted(true))
	assert.True(t, b.MicMuted())
	sent, err = b.SendAudio(ctx, []byte{3})
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, b.SetMicMuted(false))
	_, err = b.SendAudio(ctx, []byte{4})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{1, 2}, {4}}, s.audio)
}

func TestBridgeRoutesAgentAudio(t *testing.T) {
	b := NewBridge(NewTranscript(), zerolog.Nop())
	var got [][]byte
	b.OnAudio(func(chunk []byte) { got = append(got, chunk) })

	b.HandleEvent(Event{Source: RoleAgent, Audio: []byte{9, 9}})
	assert.Equal(t, [][]byte{{9, 9}}, got)
	assert.Zero(t, b.Transcript().Len())
}

func TestBridgeSingleSession(t *testing.T) {
	b := NewBridge(NewTranscript(), zerolog.Nop())
	require.NoError(t, b.Attach(newFakeSession()))
	assert.Error(t, b.Attach(newFakeSession()))
	assert.NotNil(t, b.Detach())
	assert.False(t, b.Active())
	assert.Nil(t, b.Detach())
}

func TestBridgeHandleEventUsesSourceTag(t *testing.T) {
	b := NewBridge(NewTranscript(), zerolog.Nop())
	b.HandleEvent(Event{Source: RoleAgent, Text: "Of course!"})
	b.HandleEvent(Event{Source: RoleAgent, Text: "I'll explain the supply diagram."})
	b.HandleEvent(Event{Source: RoleUser, Text: "thanks"})
	b.HandleEvent(Event{Source: "system", Text: "ignored"})
	b.HandleEvent(Event{Source: RoleUser, Text: " "})

	entries := b.Transcript().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Of course! I'll explain the supply diagram.", entries[0].Text)
	assert.Equal(t, RoleUser, entries[1].Role)
}

func TestBridgePumpDetachesOnDisconnect(t *testing.T) {
	b := NewBridge(NewTranscript(), zerolog.Nop())
	s := newFakeSession()
	require.NoError(t, b.Attach(s))

	done := make(chan struct{})
	go func() {
		b.Pump(context.Background(), s)
		close(done)
	}()

	s.events <- Event{Source: RoleAgent, Text: "Hello! I'm Kirb"}
	require.Eventually(t, func() bool { return b.Transcript().Len() == 1 }, time.Second, 5*time.Millisecond)
	close(s.events)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not return")
	}
	assert.False(t, b.Active())
	assert.Zero(t, b.Transcript().Len())
}

func TestBridgeSend(t *testing.T) {
	b := NewBridge(NewTranscript(), zerolog.Nop())
	assert.ErrorIs(t, b.Send(context.Background(), "hi"), ErrNoSession)

	s := newFakeSession()
	require.NoError(t, b.Attach(s))
	require.NoError(t, b.Send(context.Background(), "what is elasticity?"))
	assert.Equal(t, []string{"what is elasticity?"}, s.messages())
	assert.Equal(t, 1, b.Transcript().Len())
}

// Scenario: capture through the pipeline, then the agent answers in two parts.
func TestCaptureToTranscriptEndToEnd(t *testing.T) {
	b := NewBridge(NewTranscript(), zerolog.Nop())
	s := newFakeSession()
	require.NoError(t, b.Attach(s))

	p := capture.NewPipeline(capture.Locator{}, describerFunc(func(context.Context, string) (string, error) {
		return "Figure 3: supply curve", nil
	}), zerolog.Nop())
	p.Observe(b)

	surfaces := []capture.Surface{{Pixels: blankPage(400, 400)}}
	_, err := p.Capture(context.Background(), surfaces, capture.Rect{X: 20, Y: 30, Width: 200, Height: 150})
	require.NoError(t, err)

	b.HandleEvent(Event{Source: RoleAgent, Text: "Of course! I'll explain the supply curve diagram for you!"})
	b.HandleEvent(Event{Source: RoleAgent, Text: "It shows price against quantity."})

	entries := b.Transcript().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, DiagramNote, entries[0].Text)
	assert.Equal(t, RoleAgent, entries[1].Role)
	assert.Len(t, s.messages(), 1)

	// failed relay: no transcript change, flags cleared
	failing := capture.NewPipeline(capture.Locator{}, describerFunc(func(context.Context, string) (string, error) {
		return "", errors.New("status 500")
	}), zerolog.Nop())
	failing.Observe(b)
	_, err = failing.Capture(context.Background(), surfaces, capture.Rect{Width: 50, Height: 50})
	require.Error(t, err)
	assert.False(t, failing.State().Analyzing)
	assert.Len(t, b.Transcript().Entries(), 2)
	assert.Len(t, s.messages(), 1)
}
