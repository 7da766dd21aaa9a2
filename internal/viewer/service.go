package viewer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"studytutor/internal/capture"
	"studytutor/internal/conversation"
	"studytutor/internal/gateway/repository/upload"
	"studytutor/internal/knowledge"
	"studytutor/internal/voiceagent"
)

// Platform is the part of the voice-agent API the viewer needs.
type Platform interface {
	DeleteDocument(ctx context.Context, id string) error
	CreateAgent(ctx context.Context, spec voiceagent.AgentSpec) (string, error)
	DeleteAgent(ctx context.Context, id string) error
}

// KnowledgeBuilder turns files into a knowledge-base document.
type KnowledgeBuilder interface {
	Build(ctx context.Context, files []knowledge.File) (knowledge.Result, error)
}

// DialFunc opens a live conversation with an agent.
type DialFunc func(ctx context.Context, agentID string) (conversation.Session, error)

type Config struct {
	Handoffs    *HandoffRegistry
	Uploads     upload.Store
	Knowledge   KnowledgeBuilder
	Platform    Platform
	Dial        DialFunc
	Describer   capture.Describer
	CaptureMode capture.Mode
	MaxViewers  int
	TTL         time.Duration
	Log         zerolog.Logger
}

// Service owns every mounted viewer. Idle viewers expire after the TTL and
// are torn down like an explicit Close.
type Service struct {
	cfg     Config
	viewers *expirable.LRU[string, *Viewer]
	log     zerolog.Logger
}

func NewService(cfg Config) *Service {
	if cfg.MaxViewers <= 0 {
		cfg.MaxViewers = 64
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Hour
	}
	s := &Service{cfg: cfg, log: cfg.Log}
	s.viewers = expirable.NewLRU[string, *Viewer](cfg.MaxViewers, func(id string, v *Viewer) {
		go s.teardown(context.Background(), v)
	}, cfg.TTL)
	return s
}

// Mount consumes a handoff and opens a viewer over its files.
func (s *Service) Mount(ctx context.Context, handoffID string) (*Viewer, error) {
	h, err := s.cfg.Handoffs.Consume(strings.TrimSpace(handoffID))
	if err != nil {
		return nil, err
	}
	if len(h.Files) == 0 {
		return nil, ErrNoFiles
	}
	id := uuid.NewString()
	log := s.log.With().Str("viewer_id", id).Logger()
	v := newViewer(id, h, capture.Locator{Mode: s.cfg.CaptureMode}, s.cfg.Describer, log)
	s.viewers.Add(id, v)
	log.Info().Int("files", len(h.Files)).Msg("viewer mounted")
	return v, nil
}

// Get returns the viewer and refreshes its idle timer.
func (s *Service) Get(id string) (*Viewer, error) {
	v, ok := s.viewers.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	s.viewers.Add(id, v)
	return v, nil
}

func (s *Service) Len() int { return s.viewers.Len() }

// Close tears the viewer down: conversation, agent, knowledge base,
// annotations and uploads.
func (s *Service) Close(ctx context.Context, id string) error {
	v, ok := s.viewers.Peek(id)
	if !ok {
		return ErrNotFound
	}
	err := s.teardown(ctx, v)
	s.viewers.Remove(id)
	return err
}

// CloseAll tears down every mounted viewer and waits for each teardown.
func (s *Service) CloseAll(ctx context.Context) error {
	var errs []error
	for _, id := range s.viewers.Keys() {
		v, ok := s.viewers.Peek(id)
		if !ok {
			continue
		}
		if err := s.teardown(ctx, v); err != nil {
			errs = append(errs, fmt.Errorf("close viewer %s: %w", id, err))
		}
		s.viewers.Remove(id)
	}
	return errors.Join(errs...)
}

func (s *Service) teardown(ctx context.Context, v *Viewer) error {
	var err error
	v.closeOnce.Do(func() {
		err = s.stop(ctx, v)
		v.board.Clear()
		v.ClearSurfaces()
		if s.cfg.Uploads != nil {
			if derr := s.cfg.Uploads.DeleteAll(ctx, v.handoff.ID); derr != nil {
				err = errors.Join(err, fmt.Errorf("delete uploads: %w", derr))
			}
		}
		v.log.Info().Err(err).Msg("viewer closed")
	})
	return err
}

// FileContent returns the raw bytes of the index-th uploaded file.
func (s *Service) FileContent(ctx context.Context, v *Viewer, index int) (FileRef, []byte, error) {
	if index < 0 || index >= len(v.handoff.Files) {
		return FileRef{}, nil, ErrFileIndex
	}
	ref := v.handoff.Files[index]
	data, err := s.cfg.Uploads.Get(ctx, v.handoff.ID, ref.Key)
	if err != nil {
		return FileRef{}, nil, err
	}
	return ref, data, nil
}

// CreateAgent uploads every file as its own knowledge-base document and
// creates a tutor over them. Documents created before a failure stay
// recorded so a later stop deletes them.
func (s *Service) CreateAgent(ctx context.Context, v *Viewer) (string, error) {
	v.mu.Lock()
	switch {
	case v.creating:
		v.mu.Unlock()
		return "", ErrBusy
	case v.agentID != "":
		v.mu.Unlock()
		return "", ErrAgentExists
	}
	v.creating = true
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		v.creating = false
		v.mu.Unlock()
	}()

	names := make([]string, 0, len(v.handoff.Files))
	for i, ref := range v.handoff.Files {
		_, data, err := s.FileContent(ctx, v, i)
		if err != nil {
			return "", fmt.Errorf("load %s: %w", ref.Name, err)
		}
		res, err := s.cfg.Knowledge.Build(ctx, []knowledge.File{{Name: ref.Name, MIMEType: ref.MIMEType, Data: data}})
		if err != nil {
			return "", fmt.Errorf("create knowledge base for %s: %w", ref.Name, err)
		}
		v.mu.Lock()
		v.kbDocs = append(v.kbDocs, res.Document)
		v.mu.Unlock()
		names = append(names, strings.ReplaceAll(ref.Name, ".pdf", ""))
	}

	v.mu.Lock()
	docs := append([]voiceagent.Document(nil), v.kbDocs...)
	v.mu.Unlock()

	agentID, err := s.cfg.Platform.CreateAgent(ctx, voiceagent.AgentSpec{KnowledgeBase: docs, FileNames: names})
	if err != nil {
		return "", fmt.Errorf("create agent: %w", err)
	}
	v.mu.Lock()
	v.agentID = agentID
	v.mu.Unlock()
	return agentID, nil
}

// StartConversation opens the single live session of the viewer.
func (s *Service) StartConversation(ctx context.Context, v *Viewer) error {
	v.mu.Lock()
	switch {
	case v.agentID == "":
		v.mu.Unlock()
		return ErrNoAgent
	case v.starting:
		v.mu.Unlock()
		return ErrBusy
	case v.bridge.Active():
		v.mu.Unlock()
		return ErrSessionActive
	}
	v.starting = true
	agentID := v.agentID
	stops := v.stops
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		v.starting = false
		v.mu.Unlock()
	}()

	sess, err := s.cfg.Dial(ctx, agentID)
	if err != nil {
		return fmt.Errorf("start conversation: %w", err)
	}
	v.mu.Lock()
	stopped := v.stops != stops
	v.mu.Unlock()
	if stopped {
		_ = sess.Close()
		return ErrStopped
	}
	if err := v.bridge.Attach(sess); err != nil {
		_ = sess.Close()
		return ErrSessionActive
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	v.mu.Lock()
	v.pumpCancel = cancel
	v.mu.Unlock()
	go func() {
		v.bridge.Pump(pumpCtx, sess)
		v.publish(FeedEvent{Type: FeedConnection})
	}()
	v.publish(FeedEvent{Type: FeedConnection})
	v.log.Info().Str("agent_id", agentID).Msg("conversation started")
	return nil
}

// StopConversation ends the session, deletes the agent and every
// knowledge-base document. Every deletion is attempted; failures are joined.
func (s *Service) StopConversation(ctx context.Context, v *Viewer) error {
	return s.stop(ctx, v)
}

func (s *Service) stop(ctx context.Context, v *Viewer) error {
	var errs []error

	v.mu.Lock()
	v.stops++
	v.mu.Unlock()

	if sess := v.bridge.Detach(); sess != nil {
		if err := sess.Close(); err != nil {
			errs = append(errs, fmt.Errorf("end session: %w", err))
		}
	}
	v.mu.Lock()
	if v.pumpCancel != nil {
		v.pumpCancel()
		v.pumpCancel = nil
	}
	agentID := v.agentID
	docs := append([]voiceagent.Document(nil), v.kbDocs...)
	v.mu.Unlock()

	if agentID != "" {
		if err := s.cfg.Platform.DeleteAgent(ctx, agentID); err != nil {
			errs = append(errs, fmt.Errorf("delete agent: %w", err))
		} else {
			agentID = ""
		}
	}
	var remaining []voiceagent.Document
	for _, doc := range docs {
		if err := s.cfg.Platform.DeleteDocument(ctx, doc.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete knowledge base %s: %w", doc.ID, err))
			remaining = append(remaining, doc)
		}
	}

	v.mu.Lock()
	v.agentID = agentID
	v.kbDocs = remaining
	v.mu.Unlock()
	v.bridge.Transcript().Clear()
	v.publish(FeedEvent{Type: FeedConnection})

	err := errors.Join(errs...)
	if err != nil {
		v.log.Error().Err(err).Msg("failed to stop conversation")
	}
	return err
}

// SetMicMuted toggles the microphone of the live session.
func (s *Service) SetMicMuted(v *Viewer, muted bool) error {
	if err := v.bridge.SetMicMuted(muted); err != nil {
		return ErrNoSession
	}
	v.publish(FeedEvent{Type: FeedConnection})
	return nil
}
