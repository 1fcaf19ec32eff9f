package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the counters exported by a running session. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	saveWrites        *prometheus.CounterVec
	saveEdits         prometheus.Counter
	rendersSuppressed prometheus.Counter
	gcPruned          prometheus.Counter
	importProfiles    *prometheus.CounterVec
	saveState         prometheus.Gauge
}

// NewMetrics registers all collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		saveWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modrand_save_writes_total",
			Help: "Membership writes performed by the save coordinator.",
		}, []string{"result"}),
		saveEdits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modrand_save_edits_total",
			Help: "Checklist edits handed to the save coordinator.",
		}),
		rendersSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modrand_renders_suppressed_total",
			Help: "Render requests ignored while a save held the lock.",
		}),
		gcPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modrand_gc_pruned_ids_total",
			Help: "Ids removed by garbage collection.",
		}),
		importProfiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modrand_import_profiles_total",
			Help: "Profiles seen by imports, by outcome.",
		}, []string{"outcome"}),
		saveState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modrand_save_state",
			Help: "Save coordinator state (0 idle, 1 pending, 2 writing).",
		}),
	}
	m.Registry.MustRegister(m.saveWrites, m.saveEdits, m.rendersSuppressed, m.gcPruned, m.importProfiles, m.saveState)
	return m
}

func (m *Metrics) writeDone(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.saveWrites.WithLabelValues(result).Inc()
}

func (m *Metrics) editRecorded() {
	if m != nil {
		m.saveEdits.Inc()
	}
}

func (m *Metrics) renderSuppressed() {
	if m != nil {
		m.rendersSuppressed.Inc()
	}
}

func (m *Metrics) pruned(n int) {
	if m != nil && n > 0 {
		m.gcPruned.Add(float64(n))
	}
}

func (m *Metrics) imported(outcome ImportOutcome, n int) {
	if m != nil && n > 0 {
		m.importProfiles.WithLabelValues(string(outcome)).Add(float64(n))
	}
}

func (m *Metrics) state(s SaveState) {
	if m != nil {
		m.saveState.Set(float64(s))
	}
}

// SaveWrites returns the write counter for a result label ("success" or "error").
func (m *Metrics) SaveWrites(result string) prometheus.Counter {
	return m.saveWrites.WithLabelValues(result)
}

// PrunedIDs returns the garbage collection counter.
func (m *Metrics) PrunedIDs() prometheus.Counter {
	return m.gcPruned
}

// RendersSuppressed returns the suppressed render counter.
func (m *Metrics) RendersSuppressed() prometheus.Counter {
	return m.rendersSuppressed
}

// ImportedProfiles returns the import counter for an outcome.
func (m *Metrics) ImportedProfiles(outcome ImportOutcome) prometheus.Counter {
	return m.importProfiles.WithLabelValues(string(outcome))
}

// ImportOutcome labels import counters.
type ImportOutcome string

const (
	OutcomeImported ImportOutcome = "imported"
	OutcomeSkipped  ImportOutcome = "skipped"
)
