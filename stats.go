package spcore

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports the statistics of every open socket.
type Collector struct{}

// Describe sends nothing, sockets come and go so the collector is unchecked.
func (Collector) Describe(ch chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector.
func (Collector) Collect(ch chan<- prometheus.Metric) {
	for item := range sockets.IterBuffered() {
		item.Val.Stats().Collect(ch)
	}
}

var _ prometheus.Collector = Collector{}
