package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"marketplace/internal/domain/model"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketplace"

var (
	// Registry はアプリ用のコレクタ
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms - 約5s
		},
		[]string{"method", "path"},
	)

	ordersPlaced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Total number of orders placed at checkout.",
		},
	)

	orderValue = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "value_total",
			Help:      "Sum of order totals including delivery fees.",
		},
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "status_transitions_total",
			Help:      "Total number of order status transitions.",
		},
		[]string{"from", "to"},
	)

	fulfillmentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "fulfillment_duration_seconds",
			Help:      "Time from checkout to delivered.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14), // 1s - 約2.3h
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ordersPlaced,
		orderValue,
		statusTransitions,
		fulfillmentDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler は /metrics 用
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// SessionGauge はアクティブなセッション数を返すゲージ。登録は呼び出し側。
func SessionGauge(count func() int) prometheus.Collector {
	return prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Current number of open shopping sessions.",
		},
		func() float64 { return float64(count()) },
	)
}

// Middleware はルート単位（c.Path()）でHTTPメトリクスを取る。
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().URL.Path == "/metrics" {
				return next(c)
			}

			start := time.Now()
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			if err := next(c); err != nil {
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := strings.ToUpper(c.Request().Method)
			status := strconv.Itoa(c.Response().Status)

			httpRequests.WithLabelValues(method, path, status).Inc()
			httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// OrderObserver は注文イベントをカウンタに流す
type OrderObserver struct{}

func NewOrderObserver() *OrderObserver {
	return &OrderObserver{}
}

func (OrderObserver) OrderPlaced(sessionID string, o model.Order) {
	ordersPlaced.Inc()
	orderValue.Add(o.Total().InexactFloat64())
}

func (OrderObserver) StatusChanged(sessionID string, o model.Order, from model.OrderStatus) {
	statusTransitions.WithLabelValues(from.String(), o.Status.String()).Inc()

	if o.Status.IsTerminal() {
		d := o.UpdatedAt.Sub(o.CreatedAt)
		if d < 0 {
			d = 0
		}
		fulfillmentDuration.Observe(d.Seconds())
	}
}
