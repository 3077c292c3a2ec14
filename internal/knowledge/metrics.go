package knowledge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EntriesTotal is the number of entries in the most recently published store.
	EntriesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "answerd",
			Subsystem: "knowledge",
			Name:      "entries",
			Help:      "Number of knowledge entries",
		},
	)

	// VariantsTotal is the number of question variants across all entries.
	VariantsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "answerd",
			Subsystem: "knowledge",
			Name:      "variants",
			Help:      "Number of question variants across all entries",
		},
	)

	// DegradedStatus is 1 while the store runs memory-only.
	DegradedStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "answerd",
			Subsystem: "knowledge",
			Name:      "degraded",
			Help:      "Whether the knowledge store is memory-only (1) or persistent (0)",
		},
	)

	// Labels: result (ok, error)
	writesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "answerd",
			Subsystem: "knowledge",
			Name:      "writes_total",
			Help:      "Knowledge file writes by result",
		},
		[]string{"result"},
	)

	reloadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "answerd",
			Subsystem: "knowledge",
			Name:      "reloads_total",
			Help:      "Reloads triggered by external edits to the knowledge file",
		},
	)
)

// publish updates the gauges from the current state.
func (s *Store) publish() {
	st := s.Stats()
	EntriesTotal.Set(float64(st.Entries))
	VariantsTotal.Set(float64(st.Variants))
	if st.Degraded {
		DegradedStatus.Set(1)
	} else {
		DegradedStatus.Set(0)
	}
}
