// Package events relays game lifecycle events to websocket subscribers,
// the way the board viewer follows a running game.
//
// The hub keeps no game state. Each event is serialized once at publish
// time and fanned out to per-subscriber queues; a subscriber that falls
// behind loses events rather than slowing the game.
package events

import (
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/brensch/snekserve/game"
)

const (
	queueSize      = 32
	writeWait      = 5 * time.Second
	maxSubscribers = 64
)

// Kind names the lifecycle operation an event was produced by.
type Kind string

const (
	KindStart Kind = "start"
	KindMove  Kind = "move"
	KindEnd   Kind = "end"
)

// Event is one lifecycle notification as sent over the wire.
type Event struct {
	Type Kind            `json:"type"`
	Turn int             `json:"turn"`
	Time time.Time       `json:"time"`
	Move game.Direction  `json:"move,omitempty"`
	Game json.RawMessage `json:"game"`
}

// NewEvent snapshots state into an Event. The event does not reference
// state afterwards.
func NewEvent(kind Kind, state *game.GameState, move game.Direction) (Event, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type: kind,
		Turn: state.Turn,
		Time: time.Now().UTC(),
		Move: move,
		Game: raw,
	}, nil
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub is an http.Handler that upgrades requests to websocket subscriptions.
type Hub struct {
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	subs    map[*subscriber]struct{}
	closed  bool
	dropped uint64
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		subs: make(map[*subscriber]struct{}),
	}
}

// Publish encodes ev and queues it for every subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encode event", "type", ev.Type, "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.send <- msg:
		default:
			h.dropped++
		}
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns how many queued messages were discarded for slow subscribers.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	sub := &subscriber{conn: conn, send: make(chan []byte, queueSize)}
	if !h.add(sub) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscriber limit reached"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	h.logger.Debug("subscriber connected", "remote", r.RemoteAddr, "total", h.Count())

	go h.readPump(sub)
	h.writePump(sub)
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.send)
	}
}

func (h *Hub) add(sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || len(h.subs) >= maxSubscribers {
		return false
	}
	h.subs[sub] = struct{}{}
	return true
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.send)
	}
}

func (h *Hub) writePump(sub *subscriber) {
	defer sub.conn.Close()

	for msg := range sub.send {
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("subscriber write failed", "err", err)
			h.remove(sub)
			return
		}
	}

	_ = sub.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// readPump discards client frames; its only job is noticing disconnects.
func (h *Hub) readPump(sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("subscriber read ended", "err", err)
			}
			h.remove(sub)
			return
		}
	}
}
