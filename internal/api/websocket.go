package api

import (
	"net/http"
	"time"

	"github.com/dgallion1/docspeak/internal/playback"
	"github.com/dgallion1/docspeak/internal/speech"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Clients authenticate with the API key, not cookies.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// eventMessage is the wire form of a playback event.
type eventMessage struct {
	Type  string         `json:"type"`
	State playback.State `json:"state"`
	Index int            `json:"index"`
	Total int            `json:"total"`
	Text  string         `json:"text,omitempty"`
	Error string         `json:"error,omitempty"`
	Code  speech.Code    `json:"code,omitempty"`
	At    time.Time      `json:"at"`
}

func newEventMessage(ev playback.Event) eventMessage {
	msg := eventMessage{
		Type:  "state",
		State: ev.State,
		Index: ev.Index,
		Total: ev.Total,
		Text:  ev.Text,
		At:    ev.At,
	}
	if ev.Text != "" {
		msg.Type = "chunk"
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
		msg.Code = speech.CodeOf(ev.Err)
	}
	return msg
}

// handlePlaybackEvents streams engine events over a websocket, starting with
// the current status.
func (s *Server) handlePlaybackEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := s.engine.Subscribe(64)
	defer unsubscribe()

	// The reader only handles control frames and notices the peer leaving.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	st := s.engine.Status()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(map[string]any{"type": "status", "status": st}); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(newEventMessage(ev)); err != nil {
				s.log.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-s.ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}
