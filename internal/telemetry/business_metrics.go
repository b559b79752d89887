package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for the stock ledger, checkout and
// order lifecycle. A nil *BusinessMetrics is valid and records nothing.
type BusinessMetrics struct {
	// Checkout
	CheckoutAttempts   *prometheus.CounterVec
	CheckoutRejected   *prometheus.CounterVec
	CheckoutDuration   prometheus.Histogram
	StockNotRecorded   prometheus.Counter
	PriceMismatches    prometheus.Counter
	DuplicateCheckouts prometheus.Counter

	// Orders
	OrdersCreated    prometheus.Counter
	OrderValue       prometheus.Histogram
	OrderItemCount   prometheus.Histogram
	OrderTransitions *prometheus.CounterVec
	UnitsRestocked   prometheus.Counter
	NotifyFailures   *prometheus.CounterVec

	// Ledger
	StockAdjustments *prometheus.CounterVec
	UnitsReserved    *prometheus.CounterVec

	// Cart
	CartUpdated *prometheus.CounterVec

	// Reviews
	ReviewsChanged *prometheus.CounterVec

	// Background jobs
	JobsEnqueued  *prometheus.CounterVec
	JobsProcessed *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec

	// Payment provider webhooks
	WebhookReceived *prometheus.CounterVec
	WebhookLatency  *prometheus.HistogramVec

	// Abuse protection
	RateLimited *prometheus.CounterVec
}

// Business is the process-wide instance set by InitBusinessMetrics.
// Until then it is nil and every Record call is a no-op.
var Business *BusinessMetrics

// InitBusinessMetrics registers the business metrics with the default registry.
func InitBusinessMetrics(namespace string) {
	Business = NewBusinessMetrics(namespace, nil)
}

// NewBusinessMetrics creates the metrics and registers them with reg.
// A nil reg registers with the default registry.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "skein"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	f := promauto.With(reg)
	subsystem := "business"

	return &BusinessMetrics{
		// =======================================================================
		// Checkout
		// =======================================================================
		CheckoutAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_attempts_total",
				Help:      "Checkout submissions by outcome",
			},
			[]string{"outcome"}, // outcome: placed, duplicate, rejected, error
		),
		CheckoutRejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_rejected_total",
				Help:      "Checkouts rejected before commit",
			},
			[]string{"reason"}, // reason: validation, not_found, insufficient_stock
		),
		CheckoutDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_duration_seconds",
				Help:      "Time spent in the reservation transaction",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
		),
		StockNotRecorded: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stock_not_recorded_total",
				Help:      "Checkouts whose commit failed after stock was decremented",
			},
		),
		PriceMismatches: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_price_mismatch_total",
				Help:      "Checkout lines whose client price differed from the live price",
			},
		),
		DuplicateCheckouts: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_duplicate_total",
				Help:      "Checkouts answered with an existing order for the same payment",
			},
		),

		// =======================================================================
		// Orders
		// =======================================================================
		OrdersCreated: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_created_total",
				Help:      "Total orders created",
			},
		),
		OrderValue: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value_cents",
				Help:      "Order value distribution in cents",
				Buckets:   []float64{1000, 2500, 5000, 7500, 10000, 15000, 25000, 50000, 100000},
			},
		),
		OrderItemCount: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_item_count",
				Help:      "Number of units per order",
				Buckets:   []float64{1, 2, 3, 5, 10, 15, 20},
			},
		),
		OrderTransitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_transitions_total",
				Help:      "Order status transitions",
			},
			[]string{"from", "to"},
		),
		UnitsRestocked: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "units_restocked_total",
				Help:      "Units returned to stock by order cancellation",
			},
		),
		NotifyFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "notify_failures_total",
				Help:      "Post-commit notifications that failed",
			},
			[]string{"event"}, // event: order_placed, status_changed, refund
		),

		// =======================================================================
		// Ledger
		// =======================================================================
		StockAdjustments: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stock_adjustments_total",
				Help:      "Manual stock adjustments",
			},
			[]string{"kind", "op"},
		),
		UnitsReserved: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "units_reserved_total",
				Help:      "Units decremented by checkout, by bucket kind",
			},
			[]string{"kind"}, // kind: product, color, variant, untracked
		),

		// =======================================================================
		// Cart
		// =======================================================================
		CartUpdated: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_updated_total",
				Help:      "Cart update operations",
			},
			[]string{"action"}, // action: add, increase, decrease, remove, clear
		),

		// =======================================================================
		// Reviews
		// =======================================================================
		ReviewsChanged: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reviews_changed_total",
				Help:      "Review additions and deletions",
			},
			[]string{"action"},
		),

		// =======================================================================
		// Background jobs
		// =======================================================================
		JobsEnqueued: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "jobs_enqueued_total",
				Help:      "Jobs written to the outbox",
			},
			[]string{"job_type"},
		),
		JobsProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "jobs_processed_total",
				Help:      "Jobs completed successfully",
			},
			[]string{"job_type"},
		),
		JobsFailed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "jobs_failed_total",
				Help:      "Job attempts that returned an error",
			},
			[]string{"job_type"},
		),
		JobDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "job_duration_seconds",
				Help:      "Job processing time",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"job_type"},
		),

		// =======================================================================
		// Webhooks
		// =======================================================================
		WebhookReceived: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_received_total",
				Help:      "Payment provider webhook events by type and outcome",
			},
			[]string{"event_type", "outcome"},
		),
		WebhookLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_duration_seconds",
				Help:      "Webhook handling time",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"event_type"},
		),

		RateLimited: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by a rate limiter",
			},
			[]string{"limiter"},
		),
	}
}

func (m *BusinessMetrics) RecordOrderCreated(totalCents int32, items int) {
	if m == nil {
		return
	}
	m.OrdersCreated.Inc()
	m.OrderValue.Observe(float64(totalCents))
	m.OrderItemCount.Observe(float64(items))
	m.CheckoutAttempts.WithLabelValues("placed").Inc()
}

func (m *BusinessMetrics) RecordCheckoutRejected(reason string) {
	if m == nil {
		return
	}
	m.CheckoutRejected.WithLabelValues(reason).Inc()
	m.CheckoutAttempts.WithLabelValues("rejected").Inc()
}

func (m *BusinessMetrics) RecordCheckoutError() {
	if m == nil {
		return
	}
	m.CheckoutAttempts.WithLabelValues("error").Inc()
}

func (m *BusinessMetrics) RecordDuplicateCheckout() {
	if m == nil {
		return
	}
	m.DuplicateCheckouts.Inc()
	m.CheckoutAttempts.WithLabelValues("duplicate").Inc()
}

func (m *BusinessMetrics) ObserveCheckoutSeconds(s float64) {
	if m == nil {
		return
	}
	m.CheckoutDuration.Observe(s)
}

func (m *BusinessMetrics) RecordStockNotRecorded() {
	if m == nil {
		return
	}
	m.StockNotRecorded.Inc()
}

func (m *BusinessMetrics) RecordPriceMismatch() {
	if m == nil {
		return
	}
	m.PriceMismatches.Inc()
}

func (m *BusinessMetrics) RecordUnitsReserved(kind string, n int32) {
	if m == nil {
		return
	}
	m.UnitsReserved.WithLabelValues(kind).Add(float64(n))
}

func (m *BusinessMetrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.OrderTransitions.WithLabelValues(from, to).Inc()
}

func (m *BusinessMetrics) RecordRestock(n int32) {
	if m == nil {
		return
	}
	m.UnitsRestocked.Add(float64(n))
}

func (m *BusinessMetrics) RecordNotifyFailure(event string) {
	if m == nil {
		return
	}
	m.NotifyFailures.WithLabelValues(event).Inc()
}

func (m *BusinessMetrics) RecordStockAdjustment(kind, op string) {
	if m == nil {
		return
	}
	m.StockAdjustments.WithLabelValues(kind, op).Inc()
}

func (m *BusinessMetrics) RecordCartUpdate(action string) {
	if m == nil {
		return
	}
	m.CartUpdated.WithLabelValues(action).Inc()
}

func (m *BusinessMetrics) RecordReviewChange(action string) {
	if m == nil {
		return
	}
	m.ReviewsChanged.WithLabelValues(action).Inc()
}

func (m *BusinessMetrics) RecordJobEnqueued(jobType string) {
	if m == nil {
		return
	}
	m.JobsEnqueued.WithLabelValues(jobType).Inc()
}

func (m *BusinessMetrics) RecordJobResult(jobType string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.JobDuration.WithLabelValues(jobType).Observe(seconds)
	if err != nil {
		m.JobsFailed.WithLabelValues(jobType).Inc()
		return
	}
	m.JobsProcessed.WithLabelValues(jobType).Inc()
}

func (m *BusinessMetrics) RecordWebhook(eventType, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.WebhookReceived.WithLabelValues(eventType, outcome).Inc()
	m.WebhookLatency.WithLabelValues(eventType).Observe(seconds)
}

func (m *BusinessMetrics) RecordRateLimited(limiter string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(limiter).Inc()
}
