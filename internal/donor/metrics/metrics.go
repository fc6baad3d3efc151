package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the donor module.
type Metrics struct {
	// Donor lifecycle operations by kind
	DonorOperations *prometheus.CounterVec

	// Eligibility evaluations by outcome and the rule that failed first
	EligibilityEvaluations *prometheus.CounterVec

	// Listing latency, split by whether eligibility had to be computed in memory
	ListLatency *prometheus.HistogramVec
}

// New creates the donor metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DonorOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorhub_donor_operations_total",
			Help: "Donor records created, updated and deleted",
		}, []string{"operation"}), // operation: "create", "update", "delete"

		EligibilityEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorhub_eligibility_evaluations_total",
			Help: "Eligibility checks by outcome and first failing rule",
		}, []string{"outcome", "check"}),

		ListLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "donorhub_donor_list_duration_seconds",
			Help:    "Duration of donor listing",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"mode"}), // mode: "store", "computed"
	}
}

func (m *Metrics) IncrementOperation(operation string) {
	if m != nil {
		m.DonorOperations.WithLabelValues(operation).Inc()
	}
}

// ObserveEligibility records one evaluation. check is empty when the donor
// is eligible.
func (m *Metrics) ObserveEligibility(eligible bool, check string) {
	if m == nil {
		return
	}
	outcome := "ineligible"
	if eligible {
		outcome, check = "eligible", "none"
	}
	m.EligibilityEvaluations.WithLabelValues(outcome, check).Inc()
}

func (m *Metrics) ObserveListLatency(mode string, d time.Duration) {
	if m != nil {
		m.ListLatency.WithLabelValues(mode).Observe(d.Seconds())
	}
}
