package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Conflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "srik",
		Subsystem: "timetable",
		Name:      "conflicts_total",
		Help:      "Placements rejected by conflict detection, by kind.",
	}, []string{"kind"})

	EntryChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "srik",
		Subsystem: "timetable",
		Name:      "entry_changes_total",
		Help:      "Timetable entry writes, by operation.",
	}, []string{"op"})

	GeneratedEntries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "srik",
		Subsystem: "timetable",
		Name:      "generated_entries_total",
		Help:      "Entries inserted by the timetable generator.",
	})

	LiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "srik",
		Subsystem: "timetable",
		Name:      "live_subscribers",
		Help:      "Websocket clients watching the timetable board.",
	})
)
