package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for conversation turns and
// scheduled deliveries.
type ConversationMetrics struct {
	turnsTotal      *prometheus.CounterVec
	outboundTotal   *prometheus.CounterVec
	deliveriesTotal *prometheus.CounterVec
	llmFallbacks    prometheus.Counter
	turnLatency     prometheus.Histogram
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total processed conversation turns",
		}, []string{"intent", "status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Total outbound WhatsApp sends",
		}, []string{"status"}),
		deliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "delivery",
			Name:      "scheduled_total",
			Help:      "Total scheduled message deliveries by terminal status",
		}, []string{"status"}),
		llmFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "conversation",
			Name:      "llm_fallbacks_total",
			Help:      "Classifications that fell back to the keyword suggestion after an LLM failure",
		}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "salon",
			Subsystem: "conversation",
			Name:      "turn_latency_seconds",
			Help:      "Latency of conversation turn processing",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.outboundTotal, m.deliveriesTotal, m.llmFallbacks, m.turnLatency)
	return m
}

func (m *ConversationMetrics) ObserveTurn(intent, status string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(intent, status).Inc()
	m.turnLatency.Observe(seconds)
}

func (m *ConversationMetrics) ObserveOutbound(status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(status).Inc()
}

func (m *ConversationMetrics) ObserveDelivery(status string) {
	if m == nil {
		return
	}
	m.deliveriesTotal.WithLabelValues(status).Inc()
}

func (m *ConversationMetrics) ObserveLLMFallback() {
	if m == nil {
		return
	}
	m.llmFallbacks.Inc()
}
