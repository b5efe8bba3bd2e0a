package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "premiumcar"

// MessagingMetrics exposes counters/histograms for the WhatsApp channel.
type MessagingMetrics struct {
	inboundTotal   *prometheus.CounterVec
	outboundTotal  *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
}

func NewMessagingMetrics(reg prometheus.Registerer) *MessagingMetrics {
	m := &MessagingMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound WhatsApp webhook messages",
		}, []string{"event_type", "status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Total outbound WhatsApp Cloud API calls",
		}, []string{"kind", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of WhatsApp webhook handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.webhookLatency)
	return m
}

func (m *MessagingMetrics) ObserveInbound(eventType, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(eventType, status).Inc()
}

func (m *MessagingMetrics) ObserveOutbound(kind string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.outboundTotal.WithLabelValues(kind, status).Inc()
}

func (m *MessagingMetrics) ObserveWebhookLatency(method string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(method).Observe(seconds)
}

// FlowMetrics exposes counters/histograms for the flow dispatcher.
type FlowMetrics struct {
	routedTotal     *prometheus.CounterVec
	transitionTotal *prometheus.CounterVec
	failureTotal    *prometheus.CounterVec
	answerLatency   prometheus.Histogram
	sweptTotal      prometheus.Counter
}

func NewFlowMetrics(reg prometheus.Registerer) *FlowMetrics {
	m := &FlowMetrics{
		routedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "routed_events_total",
			Help:      "Inbound events by dispatcher route",
		}, []string{"route"}),
		transitionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "transitions_total",
			Help:      "Flow step transitions by flow and outcome",
		}, []string{"flow", "outcome"}),
		failureTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "side_effect_failures_total",
			Help:      "Collaborator failures absorbed by the dispatcher",
		}, []string{"collaborator", "policy"}),
		answerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "answer_latency_seconds",
			Help:      "Latency of answer service calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16},
		}),
		sweptTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "expired_sessions_total",
			Help:      "Abandoned sessions removed by the sweeper",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.routedTotal, m.transitionTotal, m.failureTotal, m.answerLatency, m.sweptTotal)
	return m
}

func (m *FlowMetrics) ObserveRoute(route string) {
	if m == nil {
		return
	}
	m.routedTotal.WithLabelValues(route).Inc()
}

func (m *FlowMetrics) ObserveTransition(flow, outcome string) {
	if m == nil {
		return
	}
	m.transitionTotal.WithLabelValues(flow, outcome).Inc()
}

func (m *FlowMetrics) ObserveFailure(collaborator, policy string) {
	if m == nil {
		return
	}
	m.failureTotal.WithLabelValues(collaborator, policy).Inc()
}

func (m *FlowMetrics) ObserveAnswerLatency(seconds float64) {
	if m == nil {
		return
	}
	m.answerLatency.Observe(seconds)
}

func (m *FlowMetrics) ObserveSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sweptTotal.Add(float64(n))
}
