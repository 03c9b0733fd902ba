package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())
	m.IncInvitesIssued()
	m.IncJoin(JoinMaterialized)
	m.IncJoin(JoinMaterialized)
	m.IncJoin(JoinStale)
	m.AddJanitorDeleted(3)
	m.AddJanitorDeleted(0)
	m.SetCachedInvites("g1", 4)
	m.IncMail(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvitesIssued))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Joins.WithLabelValues(JoinMaterialized)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Joins.WithLabelValues(JoinStale)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.JanitorDeleted))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.CachedInvites.WithLabelValues("g1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MailDelivered.WithLabelValues("failed")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncInvitesIssued()
		m.IncRegistration(RegistrationOK)
		m.IncJoin(JoinFailed)
		m.SetCachedInvites("g", 1)
		m.AddJanitorDeleted(1)
		m.IncJanitorErrors()
		m.IncMail(true)
	})
}
