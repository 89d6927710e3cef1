// Package observability exposes prometheus metrics for pipeline runs.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics holds the pipeline counters. A nil *Metrics is safe to use so
// tests and library callers can opt out.
type Metrics struct {
	itemsCollected *prometheus.CounterVec
	itemsFiltered  *prometheus.CounterVec
	llmCalls       *prometheus.CounterVec
	llmTokens      *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
}

// New registers the pipeline metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		itemsCollected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tweetwatch_items_collected_total",
			Help: "Items collected per source kind.",
		}, []string{"source"}),
		itemsFiltered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tweetwatch_items_filtered_total",
			Help: "Items rejected by local filters per reason.",
		}, []string{"reason"}),
		llmCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tweetwatch_llm_calls_total",
			Help: "LLM calls per outcome.",
		}, []string{"status"}),
		llmTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tweetwatch_llm_tokens_total",
			Help: "LLM token usage per direction.",
		}, []string{"direction"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tweetwatch_stage_duration_seconds",
			Help:    "Pipeline stage wall time.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"stage"}),
	}
}

// ItemCollected counts one collected item.
func (m *Metrics) ItemCollected(source string) {
	if m == nil {
		return
	}

	m.itemsCollected.WithLabelValues(source).Inc()
}

// ItemFiltered counts one locally rejected item.
func (m *Metrics) ItemFiltered(reason string) {
	if m == nil {
		return
	}

	m.itemsFiltered.WithLabelValues(reason).Inc()
}

// LLMCall counts one model call outcome.
func (m *Metrics) LLMCall(status string) {
	if m == nil {
		return
	}

	m.llmCalls.WithLabelValues(status).Inc()
}

// LLMTokens records token usage.
func (m *Metrics) LLMTokens(input, output int) {
	if m == nil {
		return
	}

	m.llmTokens.WithLabelValues("input").Add(float64(input))
	m.llmTokens.WithLabelValues("output").Add(float64(output))
}

// StageDone records one stage's duration.
func (m *Metrics) StageDone(stage string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// Serve exposes /metrics until the context is cancelled.
func Serve(ctx context.Context, port int, logger *zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("metrics server shutdown")
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}

	return nil
}
