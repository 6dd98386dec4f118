package socket

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/multisocket/spcore/errs"
)

// Statistic identifies a socket statistic.
type Statistic int

// statistics
const (
	StatEstablishedConnections Statistic = 101
	StatAcceptedConnections    Statistic = 102
	StatDroppedConnections     Statistic = 103
	StatBrokenConnections      Statistic = 104
	StatConnectErrors          Statistic = 105
	StatBindErrors             Statistic = 106
	StatAcceptErrors           Statistic = 107

	StatCurrentConnections    Statistic = 201
	StatInProgressConnections Statistic = 202
	StatCurrentEndpointErrors Statistic = 203
	StatCurrentEndpoints      Statistic = 204
	StatMessagesSent          Statistic = 301
	StatMessagesReceived      Statistic = 302
	StatBytesSent             Statistic = 303
	StatBytesReceived         Statistic = 304
	StatCurrentSendPriority   Statistic = 401
)

type statDesc struct {
	name  string
	help  string
	gauge bool
}

var statDescs = map[Statistic]statDesc{
	StatEstablishedConnections: {"established_connections_total", "Connections established by dialers.", false},
	StatAcceptedConnections:    {"accepted_connections_total", "Connections accepted by listeners.", false},
	StatDroppedConnections:     {"dropped_connections_total", "Connections dropped during handshake or rejected by the protocol.", false},
	StatBrokenConnections:      {"broken_connections_total", "Established connections closed by an error.", false},
	StatConnectErrors:          {"connect_errors_total", "Failed connection attempts.", false},
	StatBindErrors:             {"bind_errors_total", "Failed bind attempts.", false},
	StatAcceptErrors:           {"accept_errors_total", "Failed accepts.", false},
	StatCurrentConnections:     {"current_connections", "Pipes attached to the socket.", true},
	StatInProgressConnections:  {"inprogress_connections", "Connections in handshake.", true},
	StatCurrentEndpointErrors:  {"current_endpoint_errors", "Endpoints currently failing.", true},
	StatCurrentEndpoints:       {"current_endpoints", "Endpoints of the socket.", true},
	StatMessagesSent:           {"messages_sent_total", "Messages sent.", false},
	StatMessagesReceived:       {"messages_received_total", "Messages received.", false},
	StatBytesSent:              {"bytes_sent_total", "Bytes sent.", false},
	StatBytesReceived:          {"bytes_received_total", "Bytes received.", false},
	StatCurrentSendPriority:    {"current_send_priority", "Priority of the pipes currently used for sending.", true},
}

// Stats holds the statistics of one socket.
type Stats struct {
	counters map[Statistic]prometheus.Counter
	gauges   map[Statistic]prometheus.Gauge
}

func newStats(fd int) *Stats {
	labels := prometheus.Labels{"socket": strconv.Itoa(fd)}
	st := &Stats{
		counters: make(map[Statistic]prometheus.Counter),
		gauges:   make(map[Statistic]prometheus.Gauge),
	}
	for id, d := range statDescs {
		if d.gauge {
			st.gauges[id] = prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "spcore", Subsystem: "socket", Name: d.name, Help: d.help, ConstLabels: labels,
			})
		} else {
			st.counters[id] = prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "spcore", Subsystem: "socket", Name: d.name, Help: d.help, ConstLabels: labels,
			})
		}
	}
	return st
}

// Inc increments a statistic.
func (st *Stats) Inc(id Statistic) {
	st.Add(id, 1)
}

// Add adds n to a statistic, gauges accept negative values.
func (st *Stats) Add(id Statistic, n int) {
	if c, ok := st.counters[id]; ok {
		if n > 0 {
			c.Add(float64(n))
		}
		return
	}
	if g, ok := st.gauges[id]; ok {
		g.Add(float64(n))
	}
}

// Set sets a gauge statistic.
func (st *Stats) Set(id Statistic, v int) {
	if g, ok := st.gauges[id]; ok {
		g.Set(float64(v))
	}
}

// Get reads a statistic.
func (st *Stats) Get(id Statistic) (uint64, error) {
	m := &dto.Metric{}
	if c, ok := st.counters[id]; ok {
		if err := c.Write(m); err != nil {
			return 0, err
		}
		return uint64(m.GetCounter().GetValue()), nil
	}
	if g, ok := st.gauges[id]; ok {
		if err := g.Write(m); err != nil {
			return 0, err
		}
		if v := m.GetGauge().GetValue(); v > 0 {
			return uint64(v), nil
		}
		return 0, nil
	}
	return 0, errs.ErrInvalidArgument
}

// Describe implements prometheus.Collector.
func (st *Stats) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range st.counters {
		c.Describe(ch)
	}
	for _, g := range st.gauges {
		g.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (st *Stats) Collect(ch chan<- prometheus.Metric) {
	for _, c := range st.counters {
		c.Collect(ch)
	}
	for _, g := range st.gauges {
		g.Collect(ch)
	}
}
