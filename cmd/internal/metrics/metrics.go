// Package metrics exposes Prometheus instruments for the registration bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Join reconciliation outcomes.
const (
	JoinMaterialized = "materialized"
	JoinUnattributed = "unattributed"
	JoinStale        = "stale"
	JoinFailed       = "failed"
)

// Registration results.
const (
	RegistrationOK      = "ok"
	RegistrationInvalid = "invalid"
	RegistrationFailed  = "failed"
)

// Metrics holds every instrument. A nil *Metrics is valid and records nothing.
type Metrics struct {
	InvitesIssued  prometheus.Counter
	Registrations  *prometheus.CounterVec
	Joins          *prometheus.CounterVec
	CachedInvites  *prometheus.GaugeVec
	JanitorDeleted prometheus.Counter
	JanitorErrors  prometheus.Counter
	MailDelivered  *prometheus.CounterVec
}

// New registers all instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		InvitesIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "regbot_invites_issued_total",
			Help: "Total number of capped-use invites created for registrations",
		}),
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "regbot_registrations_total",
			Help: "Registration attempts by result",
		}, []string{"result"}),
		Joins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "regbot_joins_reconciled_total",
			Help: "Member joins by reconciliation outcome",
		}, []string{"outcome"}),
		CachedInvites: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "regbot_invite_cache_entries",
			Help: "Invites tracked in the usage cache per guild",
		}, []string{"guild_id"}),
		JanitorDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "regbot_janitor_invites_deleted_total",
			Help: "Surplus bot invites deleted by the janitor",
		}),
		JanitorErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "regbot_janitor_errors_total",
			Help: "Janitor sweep failures",
		}),
		MailDelivered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "regbot_mail_deliveries_total",
			Help: "Invitation emails by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncInvitesIssued() {
	if m == nil {
		return
	}
	m.InvitesIssued.Inc()
}

func (m *Metrics) IncRegistration(result string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(result).Inc()
}

func (m *Metrics) IncJoin(outcome string) {
	if m == nil {
		return
	}
	m.Joins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetCachedInvites(guildID string, n int) {
	if m == nil {
		return
	}
	m.CachedInvites.WithLabelValues(guildID).Set(float64(n))
}

func (m *Metrics) AddJanitorDeleted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.JanitorDeleted.Add(float64(n))
}

func (m *Metrics) IncJanitorErrors() {
	if m == nil {
		return
	}
	m.JanitorErrors.Inc()
}

func (m *Metrics) IncMail(ok bool) {
	if m == nil {
		return
	}
	result := "sent"
	if !ok {
		result = "failed"
	}
	m.MailDelivered.WithLabelValues(result).Inc()
}
