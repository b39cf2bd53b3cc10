package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/dieai/dieai/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeLabeledCounters(w, "dieai_chat_requests_total", "source", snap.ChatRequests)
	writeMetric(w, "dieai_chat_duration_seconds_count %d\n", snap.ChatDurationCount)
	writeMetric(w, "dieai_chat_duration_seconds_sum %.6f\n", float64(snap.ChatDurationTotalNs)/1e9)

	writeMetric(w, "dieai_search_cache_hits_total %d\n", snap.SearchCacheHits)
	writeMetric(w, "dieai_search_cache_misses_total %d\n", snap.SearchCacheMisses)
	writeMetric(w, "dieai_search_duration_seconds_count %d\n", snap.SearchDurationCount)
	writeMetric(w, "dieai_search_duration_seconds_sum %.6f\n", float64(snap.SearchDurationTotalNs)/1e9)
	writeProviderCounters(w, snap.SearchProviderCalls)

	writeLabeledCounters(w, "dieai_usage_events_published_total", "status", snap.UsagePublished)
	writeLabeledCounters(w, "dieai_usage_events_processed_total", "status", snap.UsageProcessed)
	writeMetric(w, "dieai_usage_queue_depth %d\n", snap.UsageQueueDepth)
}

// writeLabeledCounters emits one sample per label value, in sorted order so
// the output is stable across scrapes.
func writeLabeledCounters(w http.ResponseWriter, name, label string, counters map[string]uint64) {
	values := make([]string, 0, len(counters))
	for v := range counters {
		values = append(values, v)
	}
	sort.Strings(values)

	for _, v := range values {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, v, counters[v])
	}
}

// writeProviderCounters splits the "provider:status" composite keys.
func writeProviderCounters(w http.ResponseWriter, counters map[string]uint64) {
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		provider, status := k, ""
		for i := range k {
			if k[i] == ':' {
				provider, status = k[:i], k[i+1:]
				break
			}
		}
		writeMetric(w, "dieai_search_provider_calls_total{provider=%q,status=%q} %d\n",
			provider, status, counters[k])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
