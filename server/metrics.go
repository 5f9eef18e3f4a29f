package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/brensch/snekserve/game"
)

// Request outcomes recorded per lifecycle operation.
const (
	outcomeOK          = "ok"
	outcomeInvalidJSON = "invalid_json"
	outcomeNoHandler   = "no_handler"
	outcomeAgentPanic  = "agent_panic"
	outcomeAborted     = "aborted"
)

// Metrics instruments the router. A nil *Metrics records nothing.
type Metrics struct {
	// Requests counts handled requests by operation and outcome.
	Requests *prometheus.CounterVec
	// Duration tracks time from first body byte to response written.
	Duration *prometheus.HistogramVec
	// Moves counts answered moves by direction.
	Moves *prometheus.CounterVec
}

// NewMetrics registers the router metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "snek_requests_total",
			Help: "Engine requests handled, by lifecycle operation and outcome",
		}, []string{"operation", "outcome"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "snek_request_duration_seconds",
			Help:    "Time spent handling an engine request",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
		}, []string{"operation"}),
		Moves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "snek_moves_total",
			Help: "Moves answered, by direction",
		}, []string{"direction"}),
	}
}

func (m *Metrics) observe(op operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(string(op), outcome).Inc()
	m.Duration.WithLabelValues(string(op)).Observe(elapsed.Seconds())
}

func (m *Metrics) move(d game.Direction) {
	if m == nil {
		return
	}
	m.Moves.WithLabelValues(string(d)).Inc()
}
