package viewer

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"studytutor/internal/annotation"
	"studytutor/internal/capture"
	"studytutor/internal/conversation"
	"studytutor/internal/voiceagent"
)

const (
	MinScale  = 0.5
	MaxScale  = 1.7
	ScaleStep = 0.2
)

// FeedEvent is pushed to viewer watchers (the websocket feed).
type FeedEvent struct {
	Type     string               `json:"type"`
	Entries  []conversation.Entry `json:"entries,omitempty"`
	State    *capture.State       `json:"state,omitempty"`
	Analysis string               `json:"analysis,omitempty"`
	Error    string               `json:"error,omitempty"`
	// Audio is agent speech, sent to the feed as a binary frame.
	Audio []byte `json:"-"`
}

const (
	FeedTranscript   = "transcript"
	FeedCaptureState = "capture_state"
	FeedCaptured     = "captured"
	FeedCaptureError = "capture_error"
	FeedConnection   = "connection"
	FeedAudio        = "audio"
)

// Snapshot is the externally visible state of a viewer.
type Snapshot struct {
	ID               string        `json:"id"`
	Files            []FileRef     `json:"files"`
	CurrentFile      int           `json:"currentFileIndex"`
	Scale            float64       `json:"scale"`
	AgentID          string        `json:"agentId,omitempty"`
	KnowledgeBaseIDs []string      `json:"knowledgeBaseIds"`
	Creating         bool          `json:"isCreating"`
	Connected        bool          `json:"isConnected"`
	MicMuted         bool          `json:"isMuted"`
	Capture          capture.State `json:"capture"`
	AnnotationMode   bool          `json:"annotationMode"`
	LastAnalysis     string        `json:"lastAnalysis,omitempty"`
}

// Viewer is one mounted document session.
type Viewer struct {
	ID      string
	handoff Handoff
	log     zerolog.Logger

	pipeline *capture.Pipeline
	bridge   *conversation.Bridge
	board    *annotation.Board

	mu         sync.Mutex
	current    int
	scale      float64
	agentID    string
	kbDocs     []voiceagent.Document
	creating   bool
	starting   bool
	stops      int
	surfaces   map[int]capture.Surface
	pumpCancel context.CancelFunc
	watchers   map[int]func(FeedEvent)
	nextWatch  int

	closeOnce sync.Once
}

func newViewer(id string, h Handoff, locator capture.Locator, describer capture.Describer, log zerolog.Logger) *Viewer {
	v := &Viewer{
		ID:       id,
		handoff:  h,
		log:      log,
		bridge:   conversation.NewBridge(conversation.NewTranscript(), log),
		board:    annotation.NewBoard(),
		scale:    1.0,
		surfaces: make(map[int]capture.Surface),
		watchers: make(map[int]func(FeedEvent)),
	}
	v.pipeline = capture.NewPipeline(locator, describer, log)
	v.pipeline.Observe(v.bridge)
	v.pipeline.Observe(v)
	v.bridge.OnAudio(func(chunk []byte) {
		v.publish(FeedEvent{Type: FeedAudio, Audio: chunk})
	})
	v.bridge.Transcript().Subscribe(conversation.TranscriptListenerFunc(func(entries []conversation.Entry) {
		v.publish(FeedEvent{Type: FeedTranscript, Entries: entries})
	}))
	return v
}

func (v *Viewer) Files() []FileRef { return append([]FileRef(nil), v.handoff.Files...) }

func (v *Viewer) Board() *annotation.Board { return v.board }

func (v *Viewer) Bridge() *conversation.Bridge { return v.bridge }

func (v *Viewer) Snapshot() Snapshot {
	v.mu.Lock()
	s := Snapshot{
		ID:               v.ID,
		Files:            v.Files(),
		CurrentFile:      v.current,
		Scale:            v.scale,
		AgentID:          v.agentID,
		KnowledgeBaseIDs: docIDs(v.kbDocs),
		Creating:         v.creating,
	}
	v.mu.Unlock()
	s.Connected = v.bridge.Active()
	s.MicMuted = v.bridge.MicMuted()
	s.Capture = v.pipeline.State()
	s.AnnotationMode = v.board.Mode()
	if last, ok := v.pipeline.Last(); ok {
		s.LastAnalysis = last.Analysis
	}
	return s
}

// Watch registers fn for feed events and returns a function that removes it.
// fn must not block.
func (v *Viewer) Watch(fn func(FeedEvent)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextWatch
	v.nextWatch++
	v.watchers[id] = fn
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.watchers, id)
	}
}

func (v *Viewer) publish(ev FeedEvent) {
	v.mu.Lock()
	fns := make([]func(FeedEvent), 0, len(v.watchers))
	for _, fn := range v.watchers {
		fns = append(fns, fn)
	}
	v.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (v *Viewer) CaptureStarted(context.Context) {}

func (v *Viewer) CaptureAnalyzed(_ context.Context, res capture.Result) {
	v.publish(FeedEvent{Type: FeedCaptured, Analysis: res.Analysis})
}

func (v *Viewer) CaptureFailed(_ context.Context, err error) {
	v.publish(FeedEvent{Type: FeedCaptureError, Error: err.Error()})
}

func (v *Viewer) CaptureStateChanged(s capture.State) {
	v.publish(FeedEvent{Type: FeedCaptureState, State: &s})
}

// Navigate moves between uploaded files, staying within bounds.
func (v *Viewer) Navigate(delta int) int {
	v.mu.Lock()
	next := v.current + delta
	if next >= 0 && next < len(v.handoff.Files) {
		v.current = next
	}
	cur := v.current
	v.mu.Unlock()
	v.board.SetPage(cur)
	return cur
}

// Zoom changes the scale by steps within [MinScale, MaxScale]; steps == 0
// resets to 1.
func (v *Viewer) Zoom(steps int) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if steps == 0 {
		v.scale = 1.0
		return v.scale
	}
	s := v.scale + float64(steps)*ScaleStep
	s = math.Round(s*10) / 10
	v.scale = math.Min(MaxScale, math.Max(MinScale, s))
	return v.scale
}

// PutSurface stores the rendered bitmap of page, replacing an older one.
func (v *Viewer) PutSurface(s capture.Surface) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.surfaces[s.Page] = s
}

// ClearSurfaces drops every rendered bitmap, e.g. after a zoom.
func (v *Viewer) ClearSurfaces() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.surfaces = make(map[int]capture.Surface)
}

// Surfaces returns the rendered bitmaps in layout order.
func (v *Viewer) Surfaces() []capture.Surface {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]capture.Surface, 0, len(v.surfaces))
	for _, s := range v.surfaces {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	return out
}

// Capture replays a selection gesture over the current surfaces.
func (v *Viewer) Capture(ctx context.Context, gesture []capture.GestureEvent) (*capture.Result, error) {
	return v.pipeline.Run(ctx, v.Surfaces(), gesture)
}

// SendAudio forwards a microphone chunk to the live conversation. Chunks
// are dropped while the microphone is muted.
func (v *Viewer) SendAudio(ctx context.Context, chunk []byte) (bool, error) {
	sent, err := v.bridge.SendAudio(ctx, chunk)
	if errors.Is(err, conversation.ErrNoSession) {
		return false, ErrNoSession
	}
	return sent, err
}

func (v *Viewer) Transcript() []conversation.Entry {
	return v.bridge.Transcript().Entries()
}

func docIDs(docs []voiceagent.Document) []string {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids
}
