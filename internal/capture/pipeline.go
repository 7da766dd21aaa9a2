package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Describer turns an encoded image (data URI or bare base64) into text.
type Describer interface {
	Describe(ctx context.Context, encoded string) (string, error)
}

// Observer is told about capture progress. Implementations must not block.
type Observer interface {
	CaptureStarted(ctx context.Context)
	CaptureAnalyzed(ctx context.Context, res Result)
	CaptureFailed(ctx context.Context, err error)
}

// StateObserver is optionally implemented by observers that render the
// capturing/analyzing indicators.
type StateObserver interface {
	CaptureStateChanged(s State)
}

// State is the busy-flag pair shown in the UI: capturing covers the local
// crop, analyzing covers the network-bound relay call.
type State struct {
	Capturing bool `json:"capturing"`
	Analyzing bool `json:"analyzing"`
}

func (s State) Busy() bool { return s.Capturing || s.Analyzing }

// Result is one completed capture.
type Result struct {
	Rect     Rect      `json:"rect"`
	Page     int       `json:"page"`
	Image    []byte    `json:"-"`
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Analysis string    `json:"analysis"`
	At       time.Time `json:"at"`
}

// Pipeline runs select → locate → crop → describe for one viewer. At most
// one capture is in flight; a second request fails with ErrCaptureInFlight.
type Pipeline struct {
	locator   Locator
	describer Describer
	log       zerolog.Logger
	now       func() time.Time

	mu        sync.Mutex
	state     State
	last      *Result
	observers []Observer
}

func NewPipeline(locator Locator, describer Describer, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		locator:   locator,
		describer: describer,
		log:       log,
		now:       time.Now,
	}
}

// Observe registers o for every subsequent capture.
func (p *Pipeline) Observe(o Observer) {
	if o == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, o)
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Last returns the most recent successful capture, if any.
func (p *Pipeline) Last() (Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return Result{}, false
	}
	return *p.last, true
}

// Run replays a pointer gesture and captures the resulting selection.
func (p *Pipeline) Run(ctx context.Context, surfaces []Surface, gesture []GestureEvent) (*Result, error) {
	if p.State().Busy() {
		return nil, ErrCaptureInFlight
	}
	rect, err := ReplayGesture(gesture)
	if err != nil {
		return nil, err
	}
	return p.Capture(ctx, surfaces, rect)
}

// Capture crops rect out of the surface beneath its center and relays it.
func (p *Pipeline) Capture(ctx context.Context, surfaces []Surface, rect Rect) (*Result, error) {
	if rect.Width < MinSelectionSize || rect.Height < MinSelectionSize {
		return nil, ErrSelectionTooSmall
	}
	if !p.begin() {
		return nil, ErrCaptureInFlight
	}

	observers := p.snapshotObservers()
	for _, o := range observers {
		o.CaptureStarted(ctx)
	}

	res, err := p.capture(ctx, surfaces, rect)
	p.setState(State{})
	if err != nil {
		p.log.Error().Err(err).Msg("screenshot capture failed")
		for _, o := range observers {
			o.CaptureFailed(ctx, err)
		}
		return nil, err
	}

	p.mu.Lock()
	p.last = res
	p.mu.Unlock()
	for _, o := range observers {
		o.CaptureAnalyzed(ctx, *res)
	}
	return res, nil
}

func (p *Pipeline) capture(ctx context.Context, surfaces []Surface, rect Rect) (*Result, error) {
	surface, err := p.locator.Locate(surfaces, rect.Center())
	if err != nil {
		return nil, err
	}
	img, err := Crop(surface, rect)
	if err != nil {
		return nil, fmt.Errorf("crop: %w", err)
	}
	encoded, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}

	p.setState(State{Analyzing: true})
	p.log.Debug().
		Int("page", surface.Page).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("sending screenshot for analysis")

	text, err := p.describer.Describe(ctx, DataURI(encoded))
	if err != nil {
		return nil, fmt.Errorf("analyze screenshot: %w", err)
	}
	return &Result{
		Rect:     rect,
		Page:     surface.Page,
		Image:    encoded,
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
		Analysis: text,
		At:       p.now(),
	}, nil
}

func (p *Pipeline) begin() bool {
	p.mu.Lock()
	if p.state.Busy() {
		p.mu.Unlock()
		return false
	}
	p.state = State{Capturing: true}
	observers := append([]Observer(nil), p.observers...)
	p.mu.Unlock()
	notifyState(observers, State{Capturing: true})
	return true
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	observers := append([]Observer(nil), p.observers...)
	p.mu.Unlock()
	notifyState(observers, s)
}

func notifyState(observers []Observer, s State) {
	for _, o := range observers {
		if so, ok := o.(StateObserver); ok {
			so.CaptureStateChanged(s)
		}
	}
}

func (p *Pipeline) snapshotObservers() []Observer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Observer(nil), p.observers...)
}
