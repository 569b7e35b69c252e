// Package metrics exposes bot counters to Prometheus.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/pdfbot/core/telegram/state"
	"github.com/m3rciful/pdfbot/internal/ops"
)

const namespace = "pdfbot"

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	Registry *prometheus.Registry

	updates     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	operations  *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	staged      prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Telegram updates received, by kind.",
		}, []string{"kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Conversation state changes.",
		}, []string{"from", "to"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Finished PDF operations, by result code.",
		}, []string{"op", "code"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "PDF operation latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"op"}),
		staged: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "staged_files",
			Help:      "Files currently held in the staging directory.",
		}),
	}
	m.Registry.MustRegister(m.updates, m.transitions, m.operations, m.durations, m.staged)
	return m
}

// Transition counts a state change.
func (m *Metrics) Transition(from, to state.State) {
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// Operation records a finished operation. code is "ok" on success.
func (m *Metrics) Operation(op ops.Op, code string, took time.Duration) {
	m.operations.WithLabelValues(string(op), code).Inc()
	m.durations.WithLabelValues(string(op)).Observe(took.Seconds())
}

// StagedDelta tracks staged file creation and removal.
func (m *Metrics) StagedDelta(delta int) {
	m.staged.Add(float64(delta))
}

// Gauge registers a gauge read from fn at scrape time.
func (m *Metrics) Gauge(name, help string, fn func() float64) {
	m.Registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// Middleware counts every update passing through the bot.
func (m *Metrics) Middleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			m.updates.WithLabelValues(UpdateKind(c.Update())).Inc()
			return next(c)
		}
	}
}

// UpdateKind labels an update.
func UpdateKind(u tele.Update) string {
	if u.Callback != nil {
		return "callback"
	}
	msg := u.Message
	if msg == nil {
		return "other"
	}
	switch {
	case msg.Document != nil:
		return "document"
	case msg.Photo != nil:
		return "photo"
	case strings.HasPrefix(msg.Text, "/"):
		return "command"
	case msg.Text != "":
		return "text"
	}
	return "other"
}
