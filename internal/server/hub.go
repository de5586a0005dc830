package server

import (
	"encoding/json"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/thruflo/taskdeck/internal/logging"
)

const (
	// subscriberBuffer is the number of views queued per websocket client
	// before newer views are dropped for it.
	subscriberBuffer = 16

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// viewMessage is the payload of every view pushed to a client.
type viewMessage struct {
	HTML string `json:"html"`
}

// hub fans committed views out to the websocket clients of one session.
type hub struct {
	mu     sync.Mutex
	subs   map[chan []byte]struct{}
	last   []byte
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[chan []byte]struct{})}
}

// publish encodes view and queues it for every subscriber. Slow subscribers
// miss views rather than block the publisher.
func (h *hub) publish(view template.HTML) {
	msg, err := json.Marshal(viewMessage{HTML: string(view)})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.last = msg
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// subscribe registers a client. The latest view, if any, is queued first.
// ok is false once the hub is closed.
func (h *hub) subscribe() (ch chan []byte, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	ch = make(chan []byte, subscriberBuffer)
	if h.last != nil {
		ch <- h.last
	}
	h.subs[ch] = struct{}{}
	return ch, true
}

func (h *hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// close disconnects every client.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *hub) clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// serveWS upgrades the connection and streams views until the client goes
// away or the hub is closed.
func (h *hub) serveWS(w http.ResponseWriter, r *http.Request, logger *logging.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch, ok := h.subscribe()
	if !ok {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
		return
	}
	defer h.unsubscribe(ch)

	// Clients only send control frames; reading surfaces their close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
