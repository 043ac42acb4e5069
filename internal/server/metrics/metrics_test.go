package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.PairsIssued.WithLabelValues("login").Inc()
	m.RotationsRejected.WithLabelValues("unauthorized").Add(2)
	m.RecordsRevoked.Add(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PairsIssued.WithLabelValues("login")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RotationsRejected.WithLabelValues("unauthorized")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecordsRevoked))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "gophauth_pairs_issued_total")
	assert.Contains(t, names, "gophauth_renewal_records_revoked_total")
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestNewNop_Independent(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNop()
		NewNop()
	})
}
