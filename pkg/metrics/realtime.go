package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RealtimeMetrics tracks notification delivery and websocket subscription counts.
type RealtimeMetrics struct {
	published     *prometheus.CounterVec
	pushFailures  *prometheus.CounterVec
	subscriptions prometheus.Gauge
}

// NewRealtimeMetrics registers the realtime metrics on the provided registerer.
func NewRealtimeMetrics(reg prometheus.Registerer) *RealtimeMetrics {
	if reg == nil {
		return &RealtimeMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_published_total",
		Help: "Notifications durably appended, by kind.",
	}, []string{"kind"})
	pushFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_push_failures_total",
		Help: "Best-effort push deliveries that failed after the durable append.",
	}, []string{"event"})
	subscriptions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_active_subscriptions",
		Help: "Channel subscriptions currently held by connected websockets.",
	})
	reg.MustRegister(published, pushFailures, subscriptions)
	return &RealtimeMetrics{
		published:     published,
		pushFailures:  pushFailures,
		subscriptions: subscriptions,
	}
}

// IncPublished increments the published counter for a notification kind.
func (r *RealtimeMetrics) IncPublished(kind string) {
	if r == nil || r.published == nil {
		return
	}
	r.published.WithLabelValues(labelOrUnknown(kind)).Inc()
}

// IncPushFailure increments the push failure counter for an event name.
func (r *RealtimeMetrics) IncPushFailure(event string) {
	if r == nil || r.pushFailures == nil {
		return
	}
	r.pushFailures.WithLabelValues(labelOrUnknown(event)).Inc()
}

// SubscriptionOpened bumps the active subscription gauge.
func (r *RealtimeMetrics) SubscriptionOpened() {
	if r == nil || r.subscriptions == nil {
		return
	}
	r.subscriptions.Inc()
}

// SubscriptionClosed decrements the active subscription gauge.
func (r *RealtimeMetrics) SubscriptionClosed() {
	if r == nil || r.subscriptions == nil {
		return
	}
	r.subscriptions.Dec()
}
