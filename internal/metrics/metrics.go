// Package metrics defines the Prometheus instrumentation shared by the
// engine's background loops. Exposition is left to the embedding surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors holds the counters updated by the monitor, discovery, and
// control components.
type Collectors struct {
	DiscoveryPasses   prometheus.Counter
	DevicesDiscovered prometheus.Counter
	StaleTransitions  prometheus.Counter
	AnnouncesSent     prometheus.Counter
	AnnounceFailures  prometheus.Counter
	ControlFailures   prometheus.Counter
	EstimatorCycles   prometheus.Counter
	ActiveDevices     prometheus.Gauge
}

// New registers the LANWard collectors on reg and returns them.
// Pass prometheus.NewRegistry() in tests to avoid global state.
func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		DiscoveryPasses: factory.NewCounter(prometheus.CounterOpts{
			Name: "lanward_discovery_passes_total",
			Help: "Completed discovery passes.",
		}),
		DevicesDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Name: "lanward_devices_discovered_total",
			Help: "Device observations produced by discovery passes.",
		}),
		StaleTransitions: factory.NewCounter(prometheus.CounterOpts{
			Name: "lanward_device_stale_transitions_total",
			Help: "Devices aged from active to inactive.",
		}),
		AnnouncesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "lanward_announcements_sent_total",
			Help: "Link-layer announcements sent by protect/cut loops.",
		}),
		AnnounceFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "lanward_announcement_failures_total",
			Help: "Failed link-layer announcement sends.",
		}),
		ControlFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "lanward_control_failures_total",
			Help: "Failed block/unblock/limit commands.",
		}),
		EstimatorCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "lanward_estimator_cycles_total",
			Help: "Completed bandwidth estimator cycles.",
		}),
		ActiveDevices: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lanward_active_devices",
			Help: "Devices currently marked active in the registry.",
		}),
	}
}
