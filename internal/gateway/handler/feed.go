package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"studytutor/internal/viewer"
)

const (
	feedWSWriteWait = 10 * time.Second
	feedWSPongWait  = 60 * time.Second
	feedWSPingEvery = (feedWSPongWait * 9) / 10
)

var feedWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type feedWSInbound struct {
	Type string `json:"type"`
}

type feedWSOutbound struct {
	viewer.FeedEvent
	Viewer *viewer.Snapshot `json:"viewer,omitempty"`
}

// HandleFeed streams transcript and capture events of one viewer. A snapshot
// is sent right after subscribing so late subscribers start in sync. Binary
// frames carry audio: inbound frames are microphone chunks for the live
// conversation, outbound frames are agent speech.
func (h *ViewerHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r)
	if !ok {
		return
	}

	conn, err := feedWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(feedWSPongWait)); err != nil {
		h.log.Warn().Err(err).Msg("feed ws set read deadline failed")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedWSPongWait))
	})

	writeCh := make(chan feedWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(feedWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(feedWSWriteWait)); err != nil {
					return
				}
				if err := writeFeedWS(conn, out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(feedWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	unwatch := v.Watch(func(ev viewer.FeedEvent) {
		out := feedWSOutbound{FeedEvent: ev}
		if ev.Type == viewer.FeedConnection {
			s := v.Snapshot()
			out.Viewer = &s
		}
		pushFeedWS(writeCh, out)
	})
	defer unwatch()

	snap := v.Snapshot()
	pushFeedWS(writeCh, feedWSOutbound{FeedEvent: viewer.FeedEvent{Type: "snapshot", Entries: v.Transcript()}, Viewer: &snap})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			cancel()
			<-writerDone
			return
		}
		if kind == websocket.BinaryMessage {
			if _, err := v.SendAudio(ctx, data); err != nil {
				pushFeedWS(writeCh, feedWSOutbound{FeedEvent: viewer.FeedEvent{Type: "error", Error: err.Error()}})
			}
			continue
		}
		var in feedWSInbound
		if err := json.Unmarshal(data, &in); err != nil {
			pushFeedWS(writeCh, feedWSOutbound{FeedEvent: viewer.FeedEvent{Type: "error", Error: "invalid message"}})
			continue
		}
		switch in.Type {
		case "ping":
			pushFeedWS(writeCh, feedWSOutbound{FeedEvent: viewer.FeedEvent{Type: "pong"}})
		case "snapshot":
			s := v.Snapshot()
			pushFeedWS(writeCh, feedWSOutbound{FeedEvent: viewer.FeedEvent{Type: "snapshot", Entries: v.Transcript()}, Viewer: &s})
		default:
			pushFeedWS(writeCh, feedWSOutbound{FeedEvent: viewer.FeedEvent{Type: "error", Error: "unsupported type: " + in.Type}})
		}
	}
}

// writeFeedWS sends agent audio as a binary frame and everything else as
// JSON.
func writeFeedWS(conn *websocket.Conn, out feedWSOutbound) error {
	if out.Type == viewer.FeedAudio {
		return conn.WriteMessage(websocket.BinaryMessage, out.Audio)
	}
	return conn.WriteJSON(out)
}

// pushFeedWS never blocks: when the client lags, the oldest queued event
// is dropped.
func pushFeedWS(writeCh chan feedWSOutbound, out feedWSOutbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
