package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clubepharma"

var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Orders committed by checkout.",
	})
	OrdersCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_cancelled_total",
		Help:      "Orders moved to CANCELLED, by origin.",
	}, []string{"origin"})
	CheckoutFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_failures_total",
		Help:      "Rolled back checkouts by reason code.",
	}, []string{"reason"})
	WebhookNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_notifications_total",
		Help:      "Gateway notifications by outcome.",
	}, []string{"outcome"})
	CouponRedemptions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "coupon_redemptions_total",
		Help:      "Successful coupon applications.",
	})
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Confirmation e-mails by template and result.",
	}, []string{"template", "result"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "code"})
)

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// Middleware records latency labelled with the matched chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		httpDuration.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}
