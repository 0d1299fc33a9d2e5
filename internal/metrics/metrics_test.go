package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEscrowMetrics_Settlement(t *testing.T) {
	m := NewEscrowMetrics(prometheus.NewRegistry())

	m.RecordSettlement(decimal.RequireFromString("20"), decimal.RequireFromString("28.75"), decimal.RequireFromString("8.75"))

	assert.Equal(t, 20.0, testutil.ToFloat64(m.EscrowReleasedAmountTotal))
	assert.Equal(t, 28.75, testutil.ToFloat64(m.EscrowRefundedAmountTotal))
	assert.Equal(t, 8.75, testutil.ToFloat64(m.PlatformFeeTotal))
}

func TestEscrowMetrics_Counters(t *testing.T) {
	m := NewEscrowMetrics(prometheus.NewRegistry())

	m.RecordTransition("accept", "accepted")
	m.RecordTransition("accept", "accepted")
	m.RecordPostings("order_payment", "order_refund", "order_payment")
	m.RecordDisputeOpened("not_delivered", "buyer")
	m.RecordError("approve", "INVALID_STATE")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrderTransitionsTotal.WithLabelValues("accept", "accepted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LedgerPostingsTotal.WithLabelValues("order_payment")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DisputesOpenedTotal.WithLabelValues("not_delivered", "buyer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationErrorsTotal.WithLabelValues("approve", "INVALID_STATE")))
}

func TestEscrowMetrics_NilSafe(t *testing.T) {
	var m *EscrowMetrics
	assert.NotPanics(t, func() {
		m.RecordTransition("accept", "accepted")
		m.RecordEscrowLocked(decimal.NewFromInt(1))
		m.RecordJob("auto_approve", "done")
	})
}
