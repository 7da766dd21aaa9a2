package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"studytutor/internal/conversation"
	"studytutor/internal/gateway/repository/upload"
	"studytutor/internal/knowledge"
	"studytutor/internal/viewer"
	"studytutor/internal/voiceagent"
)

type fakeDescriber struct {
	mu    sync.Mutex
	text  string
	err   error
	calls []string
}

func (f *fakeDescriber) Describe(_ context.Context, encoded string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, encoded)
	return f.text, f.err
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte, _ string) (string, error) {
	return f.text, f.err
}

type fakeBuilder struct {
	mu    sync.Mutex
	files [][]knowledge.File
	err   error
}

func (f *fakeBuilder) Build(_ context.Context, files []knowledge.File) (knowledge.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return knowledge.Result{}, f.err
	}
	f.files = append(f.files, files)
	id := "doc-" + string(rune('a'+len(f.files)-1))
	return knowledge.Result{Document: voiceagent.Document{ID: id, Name: "Uploaded Documents"}, FilesProcessed: len(files)}, nil
}

type fakePlatform struct {
	mu          sync.Mutex
	specs       []voiceagent.AgentSpec
	deletedDocs []string
	deletedAgts []string
	deleteErr   error
	audio       string
}

func (f *fakePlatform) DeleteDocument(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedDocs = append(f.deletedDocs, id)
	return f.deleteErr
}

func (f *fakePlatform) CreateAgent(_ context.Context, spec voiceagent.AgentSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.specs = append(f.specs, spec)
	return "agent-1", nil
}

func (f *fakePlatform) DeleteAgent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedAgts = append(f.deletedAgts, id)
	return f.deleteErr
}

func (f *fakePlatform) Speak(_ context.Context, text string) (*voiceagent.Speech, error) {
	return &voiceagent.Speech{Body: io.NopCloser(strings.NewReader(f.audio + text)), ContentType: "audio/mpeg"}, nil
}

type fakeSession struct {
	mu     sync.Mutex
	sent   []string
	audio  [][]byte
	muted  bool
	events chan conversation.Event
	closed bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan conversation.Event, 8)}
}

func (s *fakeSession) SendUserMessage(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	return nil
}

func (s *fakeSession) SendAudio(_ context.Context, chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = append(s.audio, chunk)
	return nil
}

func (s *fakeSession) audioChunks() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.audio...)
}

func (s *fakeSession) SetMicMuted(m bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = m
}

func (s *fakeSession) Events() <-chan conversation.Event { return s.events }

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

type harness struct {
	svc       *viewer.Service
	describer *fakeDescriber
	builder   *fakeBuilder
	platform  *fakePlatform
	session   *fakeSession
	viewers   *ViewerHandler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		describer: &fakeDescriber{text: "A bar chart of rainfall by month."},
		builder:   &fakeBuilder{},
		platform:  &fakePlatform{},
		session:   newFakeSession(),
	}
	h.svc = viewer.NewService(viewer.Config{
		Handoffs:  viewer.NewHandoffRegistry(8, time.Minute, nil),
		Uploads:   upload.NewMemoryStore(),
		Knowledge: h.builder,
		Platform:  h.platform,
		Dial: func(context.Context, string) (conversation.Session, error) {
			return h.session, nil
		},
		Describer: h.describer,
		Log:       zerolog.Nop(),
	})
	h.viewers = NewViewerHandler(h.svc, zerolog.Nop())
	return h
}

func (h *harness) mount(t *testing.T) *viewer.Viewer {
	t.Helper()
	hand, err := h.svc.Upload(context.Background(), []knowledge.File{
		{Name: "biology.pdf", MIMEType: "application/pdf", Data: []byte("%PDF-bio")},
		{Name: "diagram.png", MIMEType: "image/png", Data: pngBytes(t, 4, 4)},
	})
	require.NoError(t, err)
	v, err := h.svc.Mount(context.Background(), hand.ID)
	require.NoError(t, err)
	return v
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func decodeBody[T any](t *testing.T, r io.Reader) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(r).Decode(&out))
	return out
}

type formFile struct {
	field, name, contentType string
	data                     []byte
}

func multipartBody(t *testing.T, files ...formFile) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		hdr.Set("Content-Type", f.contentType)
		w, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = w.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func withID(r *http.Request, id string) *http.Request {
	r.SetPathValue("id", id)
	return r
}
