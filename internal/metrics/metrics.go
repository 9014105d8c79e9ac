package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — счетчики и гистограммы бота.
type Metrics struct {
	UpdatesProcessed     prometheus.Counter
	UpdateProcessingTime prometheus.Histogram
	OrdersCreated        *prometheus.CounterVec
	OrdersCancelled      prometheus.Counter
	PaymentClaims        prometheus.Counter
	NotifyFailures       prometheus.Counter
	RateLimited          prometheus.Counter
	ErrorsTotal          prometheus.Counter
}

// NewMetrics регистрирует метрики в реестре по умолчанию. Вызывается
// один раз при старте процесса.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		UpdatesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "fotobot_updates_processed_total",
			Help: "Total number of processed Telegram updates",
		}),

		UpdateProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fotobot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),

		OrdersCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fotobot_orders_created_total",
			Help: "Total number of orders created",
		}, []string{"service_name"}),

		OrdersCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "fotobot_orders_cancelled_total",
			Help: "Total number of cancelled orders",
		}),

		PaymentClaims: factory.NewCounter(prometheus.CounterOpts{
			Name: "fotobot_payment_claims_total",
			Help: "Total number of self-reported payment claims",
		}),

		NotifyFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "fotobot_notify_failures_total",
			Help: "Total number of failed owner notifications",
		}),

		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "fotobot_rate_limited_total",
			Help: "Total number of rate limited inbound messages",
		}),

		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fotobot_errors_total",
			Help: "Total number of update processing errors",
		}),
	}
}
