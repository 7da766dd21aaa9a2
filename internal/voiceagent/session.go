package voiceagent

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"studytutor/internal/conversation"
)

const (
	sessionWriteWait = 10 * time.Second
	sessionPongWait  = 60 * time.Second
	sessionPingEvery = (sessionPongWait * 9) / 10
)

// ErrSessionClosed is returned when sending on a closed session.
var ErrSessionClosed = errors.New("voice session closed")

type sessionInbound struct {
	Type                   string `json:"type"`
	UserTranscriptionEvent *struct {
		UserTranscript string `json:"user_transcript"`
	} `json:"user_transcription_event,omitempty"`
	AgentResponseEvent *struct {
		AgentResponse string `json:"agent_response"`
	} `json:"agent_response_event,omitempty"`
	PingEvent *struct {
		EventID int `json:"event_id"`
	} `json:"ping_event,omitempty"`
	AudioEvent *struct {
		Audio   string `json:"audio_base_64"`
		EventID int    `json:"event_id"`
	} `json:"audio_event,omitempty"`
}

type userMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type pong struct {
	Type    string `json:"type"`
	EventID int    `json:"event_id"`
}

type audioChunk struct {
	UserAudioChunk string `json:"user_audio_chunk"`
}

// Session is a live conversational-AI websocket.
type Session struct {
	conn   *websocket.Conn
	log    zerolog.Logger
	muted  atomic.Bool
	events chan conversation.Event

	writeCh    chan any
	ctx        context.Context
	cancel     context.CancelFunc
	writerDone chan struct{}
	readerDone chan struct{}
	closeOnce  sync.Once
}

var _ conversation.Session = (*Session)(nil)

// Dial opens a conversation with agentID.
func (c *Client) Dial(ctx context.Context, agentID string) (*Session, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, fmt.Errorf("agent id is required")
	}
	u, err := url.Parse(c.cfg.WSURL)
	if err != nil {
		return nil, fmt.Errorf("parse session url: %w", err)
	}
	q := u.Query()
	q.Set("agent_id", agentID)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set(apiKeyHeader, c.cfg.APIKey)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && resp.StatusCode/100 != 2 {
			defer resp.Body.Close()
			return nil, readAPIError("start conversation", resp)
		}
		return nil, fmt.Errorf("start conversation: %w", err)
	}
	return newSession(conn, c.log.With().Str("agent_id", agentID).Logger()), nil
}

func newSession(conn *websocket.Conn, log zerolog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		conn:       conn,
		log:        log,
		events:     make(chan conversation.Event, 64),
		writeCh:    make(chan any, 32),
		ctx:        ctx,
		cancel:     cancel,
		writerDone: make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	_ = conn.SetReadDeadline(time.Now().Add(sessionPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(sessionPongWait))
	})
	go s.writeLoop()
	go s.readLoop()
	s.log.Info().Msg("connected to agent")
	return s
}

func (s *Session) Events() <-chan conversation.Event { return s.events }

func (s *Session) SetMicMuted(muted bool) { s.muted.Store(muted) }

func (s *Session) MicMuted() bool { return s.muted.Load() }

// SendUserMessage injects text as if the user had said it.
func (s *Session) SendUserMessage(ctx context.Context, text string) error {
	return s.enqueue(ctx, userMessage{Type: "user_message", Text: text})
}

// SendAudio streams a chunk of microphone audio. Chunks are dropped while
// the microphone is muted.
func (s *Session) SendAudio(ctx context.Context, chunk []byte) error {
	if s.muted.Load() {
		return nil
	}
	return s.enqueue(ctx, audioChunk{UserAudioChunk: base64.StdEncoding.EncodeToString(chunk)})
}

func (s *Session) enqueue(ctx context.Context, msg any) error {
	select {
	case <-s.ctx.Done():
		return ErrSessionClosed
	default:
	}
	select {
	case s.writeCh <- msg:
		return nil
	case <-s.ctx.Done():
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the session and waits for its goroutines.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.writerDone
		deadline := time.Now().Add(sessionWriteWait)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = s.conn.Close()
		<-s.readerDone
		s.log.Info().Msg("disconnected from agent")
	})
	return err
}

func (s *Session) writeLoop() {
	defer close(s.writerDone)
	ticker := time.NewTicker(sessionPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case out := <-s.writeCh:
			if err := s.conn.SetWriteDeadline(time.Now().Add(sessionWriteWait)); err != nil {
				s.cancel()
				return
			}
			if err := s.conn.WriteJSON(out); err != nil {
				s.log.Warn().Err(err).Msg("voice session write failed")
				s.cancel()
				return
			}
		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(sessionWriteWait)); err != nil {
				s.cancel()
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.cancel()
				return
			}
		}
	}
}

func (s *Session) readLoop() {
	defer close(s.readerDone)
	defer close(s.events)
	defer s.cancel()

	for {
		var in sessionInbound
		if err := s.conn.ReadJSON(&in); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && s.ctx.Err() == nil {
				s.log.Warn().Err(err).Msg("voice session read failed")
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(sessionPongWait))

		switch in.Type {
		case "ping":
			if in.PingEvent != nil {
				_ = s.enqueue(s.ctx, pong{Type: "pong", EventID: in.PingEvent.EventID})
			}
		case "user_transcript":
			if in.UserTranscriptionEvent != nil {
				s.emit(conversation.Event{Source: conversation.RoleUser, Text: in.UserTranscriptionEvent.UserTranscript})
			}
		case "agent_response":
			if in.AgentResponseEvent != nil {
				s.emit(conversation.Event{Source: conversation.RoleAgent, Text: in.AgentResponseEvent.AgentResponse})
			}
		case "audio":
			if in.AudioEvent == nil {
				continue
			}
			chunk, err := base64.StdEncoding.DecodeString(in.AudioEvent.Audio)
			if err != nil {
				s.log.Warn().Err(err).Int("event_id", in.AudioEvent.EventID).Msg("dropping undecodable agent audio")
				continue
			}
			s.emit(conversation.Event{Source: conversation.RoleAgent, Audio: chunk})
		default:
			s.log.Debug().Str("type", in.Type).Msg("ignoring session event")
		}
	}
}

func (s *Session) emit(ev conversation.Event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}
