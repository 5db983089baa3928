// Package metrics holds the domain counters exposed next to the HTTP metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultBlocked = "blocked"
)

// Metrics groups the domain counters. A nil *Metrics records nothing.
type Metrics struct {
	submissions   *prometheus.CounterVec
	uploads       *prometheus.CounterVec
	statusChanges *prometheus.CounterVec
	deletions     prometheus.Counter
	signIns       *prometheus.CounterVec
	notices       *prometheus.CounterVec
}

// New creates the counters and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "habilitaciones_submissions_total",
			Help: "Intake form submit attempts by result.",
		}, []string{"result"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "habilitaciones_uploads_total",
			Help: "Attachment uploads by category and result.",
		}, []string{"category", "result"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "habilitaciones_status_changes_total",
			Help: "Review status writes by target status.",
		}, []string{"status"}),
		deletions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "habilitaciones_deletions_total",
			Help: "Submissions permanently deleted.",
		}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "habilitaciones_admin_sign_ins_total",
			Help: "Administrator sign-in attempts by result.",
		}, []string{"result"}),
		notices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "habilitaciones_notices_total",
			Help: "Applicant confirmation e-mails by result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.submissions, m.uploads, m.statusChanges, m.deletions, m.signIns, m.notices} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Submission(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
}

func (m *Metrics) Upload(category, result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(category, result).Inc()
}

func (m *Metrics) StatusChange(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) Deletion() {
	if m == nil {
		return
	}
	m.deletions.Inc()
}

func (m *Metrics) SignIn(result string) {
	if m == nil {
		return
	}
	m.signIns.WithLabelValues(result).Inc()
}

func (m *Metrics) Notice(result string) {
	if m == nil {
		return
	}
	m.notices.WithLabelValues(result).Inc()
}
