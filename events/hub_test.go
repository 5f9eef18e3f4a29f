package events

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/brensch/snekserve/game"
)

func dialHub(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(hub)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	waitFor(t, func() bool { return hub.Count() == 1 })
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestNewEvent_SnapshotsState(t *testing.T) {
	id := "s1"
	state := &game.GameState{Turn: 4, You: game.Snake{ID: &id}}
	ev, err := NewEvent(KindMove, state, game.Left)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	state.Turn = 99

	if ev.Turn != 4 || ev.Type != KindMove || ev.Move != game.Left {
		t.Fatalf("event=%+v", ev)
	}
	parsed, err := game.ParseGameState(ev.Game)
	if err != nil {
		t.Fatalf("parse snapshot: %v", err)
	}
	if parsed.Turn != 4 || game.StringValue(parsed.You.ID) != "s1" {
		t.Fatalf("snapshot turn=%d id=%q", parsed.Turn, game.StringValue(parsed.You.ID))
	}
}

func TestHub_BroadcastsToSubscriber(t *testing.T) {
	hub := NewHub(log.New(io.Discard))
	conn, cleanup := dialHub(t, hub)
	defer cleanup()

	ev, err := NewEvent(KindStart, &game.GameState{Turn: 0}, "")
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	hub.Publish(ev)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("decode %s: %v", msg, err)
	}
	if got["type"] != "start" {
		t.Fatalf("type=%v want start", got["type"])
	}
	if _, ok := got["move"]; ok {
		t.Fatalf("move present on start event: %s", msg)
	}
	if _, ok := got["game"].(map[string]any); !ok {
		t.Fatalf("game not an object: %s", msg)
	}
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(log.New(io.Discard))
	conn, cleanup := dialHub(t, hub)
	defer cleanup()

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	waitFor(t, func() bool { return hub.Count() == 0 })
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(log.New(io.Discard))
	ev, _ := NewEvent(KindEnd, &game.GameState{}, "")
	hub.Publish(ev)
	if hub.Dropped() != 0 {
		t.Fatalf("dropped=%d want 0", hub.Dropped())
	}
}

func TestHub_CloseDisconnects(t *testing.T) {
	hub := NewHub(log.New(io.Discard))
	conn, cleanup := dialHub(t, hub)
	defer cleanup()

	hub.Close()
	if hub.Count() != 0 {
		t.Fatalf("count=%d want 0", hub.Count())
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("err=%v want normal close", err)
	}
}

func TestHub_SlowSubscriberDropsWithoutBlocking(t *testing.T) {
	hub := NewHub(log.New(io.Discard))
	// A subscriber nobody drains: its queue fills and stays full.
	sub := &subscriber{send: make(chan []byte, queueSize)}
	if !hub.add(sub) {
		t.Fatalf("add rejected")
	}
	defer hub.Close()

	ev, err := NewEvent(KindMove, &game.GameState{Turn: 1}, game.Up)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}

	const extra = 5
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < queueSize+extra; i++ {
			hub.Publish(ev)
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Publish blocked on a full subscriber queue")
	}

	if got := hub.Dropped(); got != extra {
		t.Fatalf("dropped=%d want=%d", got, extra)
	}
	if len(sub.send) != queueSize {
		t.Fatalf("queued=%d want=%d", len(sub.send), queueSize)
	}
}
