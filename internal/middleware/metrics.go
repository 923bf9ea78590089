package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	messagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persona_bot_messages_received_total",
		Help: "Total number of messages received",
	}, []string{"chat_kind"})

	replyDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persona_bot_reply_decisions_total",
		Help: "Reply-policy outcomes",
	}, []string{"decision"})

	fastPathHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persona_bot_fast_path_hits_total",
		Help: "Canned replies served without a generation call",
	}, []string{"rule"})

	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "persona_bot_generation_duration_seconds",
		Help:    "Duration of remote generation calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	generationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persona_bot_generations_total",
		Help: "Total number of generation calls",
	}, []string{"status"})

	repliesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persona_bot_replies_sent_total",
		Help: "Total number of replies delivered",
	}, []string{"status"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "persona_bot_rate_limited_total",
		Help: "Messages dropped by the per-user rate limiter",
	})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordMessageReceived records a received message
func (m *Metrics) RecordMessageReceived(chatKind string) {
	messagesReceived.WithLabelValues(chatKind).Inc()
}

// RecordReplyDecision records a reply-policy outcome
func (m *Metrics) RecordReplyDecision(replied bool) {
	decision := "skip"
	if replied {
		decision = "reply"
	}
	replyDecisions.WithLabelValues(decision).Inc()
}

// RecordFastPath records a fast-path hit by rule name
func (m *Metrics) RecordFastPath(rule string) {
	fastPathHits.WithLabelValues(rule).Inc()
}

// RecordGeneration records a generation call
func (m *Metrics) RecordGeneration(status string, duration time.Duration) {
	generationDuration.WithLabelValues(status).Observe(duration.Seconds())
	generationsTotal.WithLabelValues(status).Inc()
}

// RecordReplySent records an outbound delivery attempt
func (m *Metrics) RecordReplySent(status string) {
	repliesSent.WithLabelValues(status).Inc()
}

// RecordRateLimited records a message dropped by the rate limiter
func (m *Metrics) RecordRateLimited() {
	rateLimited.Inc()
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
