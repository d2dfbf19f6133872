package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	FieldsEncrypted prometheus.Counter
	FieldsDecrypted prometheus.Counter
	DecryptsDenied  prometheus.Counter
	AuditDropped    prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		FieldsEncrypted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboard_fields_encrypted_total",
			Help: "Total number of sensitive fields encrypted and stored",
		}),
		FieldsDecrypted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboard_fields_decrypted_total",
			Help: "Total number of sensitive fields decrypted for privileged callers",
		}),
		DecryptsDenied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboard_decrypts_denied_total",
			Help: "Total number of decrypt attempts denied by authorization",
		}),
		AuditDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboard_audit_entries_dropped_total",
			Help: "Total number of audit entries dropped by the best-effort recorder",
		}),
	}
}

// IncrementFieldsEncrypted increments the encrypted-fields counter by 1.
func (m *Metrics) IncrementFieldsEncrypted() {
	m.FieldsEncrypted.Inc()
}

// IncrementFieldsDecrypted increments the decrypted-fields counter by 1.
func (m *Metrics) IncrementFieldsDecrypted() {
	m.FieldsDecrypted.Inc()
}

// IncrementDecryptsDenied increments the denied-decrypts counter by 1.
func (m *Metrics) IncrementDecryptsDenied() {
	m.DecryptsDenied.Inc()
}

// IncrementAuditDropped increments the dropped-audit counter by 1.
func (m *Metrics) IncrementAuditDropped() {
	m.AuditDropped.Inc()
}
