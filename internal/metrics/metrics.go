// Package metrics exposes the Prometheus collectors for the collaboration
// core. Collectors are registered on the default registry; the /metrics
// endpoint is wired in bootstrap.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoomsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collab_rooms_open",
		Help: "Number of rooms currently registered.",
	})

	SessionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collab_sessions_open",
		Help: "Number of active user sessions across all rooms.",
	})

	OperationsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collab_operations_applied_total",
		Help: "Document operations successfully applied.",
	})

	OperationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collab_operations_rejected_total",
		Help: "Document operations rejected before mutation.",
	}, []string{"reason"})

	EventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collab_events_published_total",
		Help: "Room events delivered into subscriber buffers.",
	})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collab_events_dropped_total",
		Help: "Room events dropped because a subscriber buffer was full.",
	})

	PresenceFlushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collab_presence_updates_flushed_total",
		Help: "Coalesced presence updates emitted by the flush loop.",
	})

	SessionsReaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collab_sessions_reaped_total",
		Help: "Sessions removed by the inactivity sweep.",
	})

	RoomsReaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collab_rooms_reaped_total",
		Help: "Rooms removed by the idle-room sweep.",
	})
)
