package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Chat stages tracked by the rolling latency window.
const (
	StageStoreUserTurn      = "store_user_turn"
	StageInference          = "inference"
	StageStoreAssistantTurn = "store_assistant_turn"
	StageTurnTotal          = "turn_total"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	LiveConversations  prometheus.Gauge
	ConversationEvents *prometheus.CounterVec
	ChatTurns          *prometheus.CounterVec
	StorageOps         *prometheus.CounterVec
	UpstreamErrors     *prometheus.CounterVec
	ChatLatency        prometheus.Histogram

	stages *latencyWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		LiveConversations: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_conversations",
			Help:      "Number of conversation stores currently held in memory.",
		}),
		ConversationEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_events_total",
			Help:      "Conversation store lifecycle events by type.",
		}, []string{"event"}),
		ChatTurns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_turns_total",
			Help:      "Chat turns by outcome.",
		}, []string{"outcome"}),
		StorageOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_ops_total",
			Help:      "Durable storage operations by backend, op and result.",
		}, []string{"backend", "op", "result"}),
		UpstreamErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Inference failures by adapter mode and reason.",
		}, []string{"mode", "reason"}),
		ChatLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_turn_latency_ms",
			Help:      "End-to-end chat turn latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 16000},
		}),
		stages: newLatencyWindow(256),
	}
}

// ObserveStage records one stage duration. Turn totals also feed the histogram.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	ms := float64(d.Microseconds()) / 1000
	m.stages.Observe(stage, ms)
	if stage == StageTurnTotal {
		m.ChatLatency.Observe(ms)
	}
}

func (m *Metrics) ObserveChatTurn(outcome string) {
	if m == nil {
		return
	}
	m.ChatTurns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStorageOp(backend, op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StorageOps.WithLabelValues(backend, op, result).Inc()
}

func (m *Metrics) ObserveUpstreamError(mode, reason string) {
	if m == nil {
		return
	}
	m.UpstreamErrors.WithLabelValues(mode, reason).Inc()
}

func (m *Metrics) ObserveConversationEvent(event string, live int) {
	if m == nil {
		return
	}
	m.ConversationEvents.WithLabelValues(event).Inc()
	m.LiveConversations.Set(float64(live))
}

// SnapshotLatency returns rolling percentiles for every observed stage.
func (m *Metrics) SnapshotLatency() LatencySnapshot {
	if m == nil {
		return LatencySnapshot{GeneratedAt: time.Now().UTC(), Stages: []StageStats{}}
	}
	return m.stages.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
