package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// EscrowMetrics содержит метрики заказов, эскроу и споров
type EscrowMetrics struct {
	// Переходы заказов по событиям
	OrderTransitionsTotal *prometheus.CounterVec

	// Движение денег через эскроу
	EscrowLockedAmountTotal   prometheus.Counter
	EscrowReleasedAmountTotal prometheus.Counter
	EscrowRefundedAmountTotal prometheus.Counter
	PlatformFeeTotal          prometheus.Counter

	// Споры
	DisputesOpenedTotal   *prometheus.CounterVec
	DisputesResolvedTotal *prometheus.CounterVec

	// Проводки журнала
	LedgerPostingsTotal *prometheus.CounterVec

	// Отложенные задачи
	JobsProcessedTotal *prometheus.CounterVec

	// Ошибки
	OperationErrorsTotal *prometheus.CounterVec
}

// NewEscrowMetrics регистрирует метрики в reg. Для тестов передаётся отдельный реестр.
func NewEscrowMetrics(reg prometheus.Registerer) *EscrowMetrics {
	f := promauto.With(reg)
	return &EscrowMetrics{
		OrderTransitionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_transitions_total",
				Help: "Количество переходов заказов по событиям",
			},
			[]string{"event", "status"},
		),

		EscrowLockedAmountTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "escrow_locked_amount_total",
			Help: "Сумма, заблокированная в эскроу при создании заказов",
		}),
		EscrowReleasedAmountTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "escrow_released_amount_total",
			Help: "Сумма, выплаченная продавцам из эскроу",
		}),
		EscrowRefundedAmountTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "escrow_refunded_amount_total",
			Help: "Сумма, возвращённая покупателям из эскроу",
		}),
		PlatformFeeTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "platform_fee_total",
			Help: "Общая сумма комиссий, оставшихся платформе",
		}),

		DisputesOpenedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "disputes_opened_total",
				Help: "Количество открытых споров",
			},
			[]string{"dispute_type", "initiator_role"},
		),
		DisputesResolvedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "disputes_resolved_total",
				Help: "Количество споров, закрытых медиатором",
			},
			[]string{"resolution"},
		),

		LedgerPostingsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_postings_total",
				Help: "Количество записей в журнале по типам",
			},
			[]string{"type"},
		),

		JobsProcessedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduled_jobs_processed_total",
				Help: "Количество обработанных отложенных задач",
			},
			[]string{"job_type", "result"},
		),

		OperationErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_operation_errors_total",
				Help: "Количество ошибок операций по кодам",
			},
			[]string{"operation", "code"},
		),
	}
}

// RecordTransition записывает переход заказа
func (m *EscrowMetrics) RecordTransition(event, status string) {
	if m == nil {
		return
	}
	m.OrderTransitionsTotal.WithLabelValues(event, status).Inc()
}

// RecordEscrowLocked записывает деньги, ушедшие в эскроу
func (m *EscrowMetrics) RecordEscrowLocked(amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.EscrowLockedAmountTotal.Add(amount.InexactFloat64())
}

// RecordSettlement записывает распределение эскроу: выплату, возврат и комиссию
func (m *EscrowMetrics) RecordSettlement(payout, refund, retained decimal.Decimal) {
	if m == nil {
		return
	}
	m.EscrowReleasedAmountTotal.Add(payout.InexactFloat64())
	m.EscrowRefundedAmountTotal.Add(refund.InexactFloat64())
	m.PlatformFeeTotal.Add(retained.InexactFloat64())
}

func (m *EscrowMetrics) RecordDisputeOpened(disputeType, initiatorRole string) {
	if m == nil {
		return
	}
	m.DisputesOpenedTotal.WithLabelValues(disputeType, initiatorRole).Inc()
}

func (m *EscrowMetrics) RecordDisputeResolved(resolution string) {
	if m == nil {
		return
	}
	m.DisputesResolvedTotal.WithLabelValues(resolution).Inc()
}

// RecordPostings записывает проводки по их типам
func (m *EscrowMetrics) RecordPostings(types ...string) {
	if m == nil {
		return
	}
	for _, t := range types {
		m.LedgerPostingsTotal.WithLabelValues(t).Inc()
	}
}

func (m *EscrowMetrics) RecordJob(jobType, result string) {
	if m == nil {
		return
	}
	m.JobsProcessedTotal.WithLabelValues(jobType, result).Inc()
}

// RecordError записывает ошибку
func (m *EscrowMetrics) RecordError(operation, code string) {
	if m == nil {
		return
	}
	m.OperationErrorsTotal.WithLabelValues(operation, code).Inc()
}
