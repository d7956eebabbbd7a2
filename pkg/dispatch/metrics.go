package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	resultOK         = "ok"
	resultFailed     = "failed"
	resultDuplicate  = "duplicate"
	resultUnknown    = "unknown_device"
	resultTimeout    = "timeout"
	resultSuperseded = "superseded"
)

// Metrics groups the hub's counters. A nil *Metrics records nothing.
type Metrics struct {
	commands  *prometheus.CounterVec
	inquiries *prometheus.CounterVec
	discarded *prometheus.CounterVec
}

// NewMetrics registers the counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_commands_total",
			Help: "Commands handled by the dispatch loop, by result.",
		}, []string{"result"}),
		inquiries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_inquiries_total",
			Help: "Level inquiries, by result.",
		}, []string{"result"}),
		discarded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_mailbox_discarded_total",
			Help: "Unconsumed mailbox values overwritten by a newer request, by kind.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) command(result string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(result).Inc()
}

func (m *Metrics) inquiry(result string) {
	if m == nil {
		return
	}
	m.inquiries.WithLabelValues(result).Inc()
}

func (m *Metrics) discard(kind string) {
	if m == nil {
		return
	}
	m.discarded.WithLabelValues(kind).Inc()
}
