// Package server implements the HTTP side of the Battlesnake protocol.
//
// A Router maps (method, path) to the four lifecycle operations, parses the
// engine's game state, calls the Agent and writes the JSON reply. Replies
// always use HTTP 200 unless status codes are overridden, because the
// engine reads failures from the JSON body.
package server

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"

	"github.com/brensch/snekserve/agent"
	"github.com/brensch/snekserve/events"
	"github.com/brensch/snekserve/game"
)

const (
	DefaultServerHeader = "battlesnake/go"
	DefaultMaxBodyBytes = 1 << 20
)

var (
	statusOKBody    = []byte(`{"status":"ok"}`)
	noHandlerBody   = []byte(`{"error":"no handler"}`)
	invalidJSONBody = []byte(`{"error":"invalid json"}`)
)

type operation string

const (
	opInfo    operation = "info"
	opStart   operation = "start"
	opMove    operation = "move"
	opEnd     operation = "end"
	opUnknown operation = "unknown"
)

// route matches method and path exactly and case-sensitively.
func route(method, path string) operation {
	switch {
	case method == http.MethodGet && path == "/":
		return opInfo
	case method == http.MethodPost && path == "/start":
		return opStart
	case method == http.MethodPost && path == "/move":
		return opMove
	case method == http.MethodPost && path == "/end":
		return opEnd
	}
	return opUnknown
}

// Publisher receives a lifecycle event after each successful start, move
// and end. Publish must not block.
type Publisher interface {
	Publish(events.Event)
}

// Router is the engine-facing http.Handler.
type Router struct {
	agent        agent.Agent
	logger       *log.Logger
	serverHeader string
	maxBody      int64

	invalidJSONStatus int
	noHandlerStatus   int

	publisher Publisher
	metrics   *Metrics
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger used for request and agent diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(rt *Router) { rt.logger = l }
}

// WithServerHeader sets the value of the Server response header.
func WithServerHeader(v string) Option {
	return func(rt *Router) { rt.serverHeader = v }
}

// WithMaxBodyBytes caps how much of a request body is accumulated.
// Requests above the cap have their connection dropped.
func WithMaxBodyBytes(n int64) Option {
	return func(rt *Router) { rt.maxBody = n }
}

// WithStatusCodes overrides the HTTP status used for the invalid json and
// no handler replies. Both default to 200.
func WithStatusCodes(invalidJSON, noHandler int) Option {
	return func(rt *Router) {
		rt.invalidJSONStatus = invalidJSON
		rt.noHandlerStatus = noHandler
	}
}

// WithPublisher sends a lifecycle event to p after each start, move and end.
func WithPublisher(p Publisher) Option {
	return func(rt *Router) { rt.publisher = p }
}

// WithMetrics records request counts, durations and moves in m.
func WithMetrics(m *Metrics) Option {
	return func(rt *Router) { rt.metrics = m }
}

// New creates a Router that dispatches to a.
func New(a agent.Agent, opts ...Option) *Router {
	rt := &Router{
		agent:             a,
		logger:            log.Default(),
		serverHeader:      DefaultServerHeader,
		maxBody:           DefaultMaxBodyBytes,
		invalidJSONStatus: http.StatusOK,
		noHandlerStatus:   http.StatusOK,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	op := route(r.Method, r.URL.Path)

	var (
		status  int
		payload []byte
		outcome string
	)
	switch op {
	case opInfo, opUnknown:
		// These routes ignore the body, so its size must not matter.
		if r.Body != nil {
			_, _ = io.Copy(io.Discard, r.Body)
		}
		status, payload, outcome = rt.dispatch(op, r.URL.Path, nil)
	default:
		body, err := readBody(r.Body, rt.maxBody)
		if err != nil {
			rt.logger.Warn("dropping connection", "op", op, "remote", r.RemoteAddr, "err", err)
			rt.metrics.observe(op, outcomeAborted, time.Since(start))
			panic(http.ErrAbortHandler)
		}
		defer body.release()
		status, payload, outcome = rt.dispatch(op, r.URL.Path, body.Bytes())
	}

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Content-Length", strconv.Itoa(len(payload)))
	if rt.serverHeader != "" {
		h.Set("Server", rt.serverHeader)
	}
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		rt.logger.Debug("write response", "op", op, "err", err)
	}

	rt.metrics.observe(op, outcome, time.Since(start))
}

// dispatch runs one lifecycle operation and returns the reply to send.
func (rt *Router) dispatch(op operation, path string, body []byte) (int, []byte, string) {
	switch op {
	case opInfo:
		info, ok := rt.info()
		return http.StatusOK, mustMarshal(info, []byte(`{"color":"","head":"","tail":""}`)), outcomeFor(ok)
	case opUnknown:
		rt.logger.Debug("no handler", "path", path)
		return rt.noHandlerStatus, noHandlerBody, outcomeNoHandler
	}

	state, err := game.ParseGameState(body)
	if err != nil {
		rt.logger.Warn("invalid json", "op", op, "bytes", len(body), "err", err)
		return rt.invalidJSONStatus, invalidJSONBody, outcomeInvalidJSON
	}

	switch op {
	case opStart:
		ok := rt.guard(op, func() { rt.agent.OnGameStart(state) })
		rt.publish(events.KindStart, state, "")
		return http.StatusOK, statusOKBody, outcomeFor(ok)

	case opEnd:
		ok := rt.guard(op, func() { rt.agent.OnGameEnd(state) })
		rt.publish(events.KindEnd, state, "")
		return http.StatusOK, statusOKBody, outcomeFor(ok)

	default:
		res, ok := rt.decideMove(state)
		rt.metrics.move(res.Move)
		rt.publish(events.KindMove, state, res.Move)
		rt.logger.Info("move", "turn", state.Turn, "move", res.Move)
		return http.StatusOK, mustMarshal(res, []byte(`{"move":"down"}`)), outcomeFor(ok)
	}
}

func (rt *Router) info() (info game.SnakeInfo, ok bool) {
	ok = rt.guard(opInfo, func() { info = rt.agent.Info() })
	return info, ok
}

// decideMove calls the agent and replaces any answer outside the four
// directions with game.FallbackMove.
func (rt *Router) decideMove(state *game.GameState) (game.MoveResult, bool) {
	var res game.MoveResult
	ok := rt.guard(opMove, func() { res = rt.agent.DecideMove(state) })
	if !ok {
		return game.MoveResult{Move: game.FallbackMove}, false
	}
	if !res.Move.Valid() {
		rt.logger.Warn("agent returned invalid move", "move", res.Move, "fallback", game.FallbackMove)
		res.Move = game.FallbackMove
	}
	return res, true
}

// guard runs an agent callback, converting a panic into ok=false so one bad
// request cannot take the process down.
func (rt *Router) guard(op operation, fn func()) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			rt.logger.Error("agent panic", "op", op, "panic", p)
			ok = false
		}
	}()
	fn()
	return true
}

func (rt *Router) publish(kind events.Kind, state *game.GameState, move game.Direction) {
	if rt.publisher == nil {
		return
	}
	ev, err := events.NewEvent(kind, state, move)
	if err != nil {
		rt.logger.Error("build event", "type", kind, "err", err)
		return
	}
	rt.publisher.Publish(ev)
}

func outcomeFor(ok bool) string {
	if ok {
		return outcomeOK
	}
	return outcomeAgentPanic
}

func mustMarshal(v any, fallback []byte) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return fallback
	}
	return b
}
