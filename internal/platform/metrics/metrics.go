package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Field decryption
// overhead is a first-class performance concern, so encrypt/decrypt latency
// gets histograms rather than counters.
type Metrics struct {
	FieldEncryptDuration prometheus.Histogram
	FieldDecryptDuration prometheus.Histogram
	DecryptFailures      prometheus.Counter

	HouseholdsProvisioned prometheus.Counter
	UpdateConflicts       prometheus.Counter
	AuditEntriesRecorded  prometheus.Counter

	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		FieldEncryptDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "hearth_field_encrypt_duration_seconds",
			Help:    "Time spent encrypting a single sensitive field value",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		FieldDecryptDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "hearth_field_decrypt_duration_seconds",
			Help:    "Time spent decrypting a single sensitive field value",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		DecryptFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hearth_field_decrypt_failures_total",
			Help: "Decrypt attempts that failed authentication or parsing and fell back to pass-through",
		}),
		HouseholdsProvisioned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hearth_households_provisioned_total",
			Help: "Tenant stores provisioned since process start",
		}),
		UpdateConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hearth_update_conflicts_total",
			Help: "Optimistic updates rejected because of a stale expected version",
		}),
		AuditEntriesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hearth_audit_entries_recorded_total",
			Help: "Audit entries appended across all households",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hearth_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveEncrypt records one field encryption.
func (m *Metrics) ObserveEncrypt(d time.Duration) {
	if m == nil {
		return
	}
	m.FieldEncryptDuration.Observe(d.Seconds())
}

// ObserveDecrypt records one field decryption.
func (m *Metrics) ObserveDecrypt(d time.Duration) {
	if m == nil {
		return
	}
	m.FieldDecryptDuration.Observe(d.Seconds())
}

// IncDecryptFailure counts one fail-open decrypt.
func (m *Metrics) IncDecryptFailure() {
	if m == nil {
		return
	}
	m.DecryptFailures.Inc()
}

// IncProvisioned counts one provisioned household store.
func (m *Metrics) IncProvisioned() {
	if m == nil {
		return
	}
	m.HouseholdsProvisioned.Inc()
}

// IncConflict counts one rejected stale update.
func (m *Metrics) IncConflict() {
	if m == nil {
		return
	}
	m.UpdateConflicts.Inc()
}

// IncAuditRecorded counts one appended audit entry.
func (m *Metrics) IncAuditRecorded() {
	if m == nil {
		return
	}
	m.AuditEntriesRecorded.Inc()
}
