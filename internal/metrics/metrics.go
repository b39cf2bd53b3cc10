// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Chat metrics
	IncChatRequest(source string) // source: "knowledge", "search", "fallback"
	ObserveChatDuration(duration time.Duration)

	// Search metrics
	IncSearchCacheHit()
	IncSearchCacheMiss()
	IncSearchProviderCall(provider, status string) // status: "success" or "failed"
	ObserveSearchDuration(duration time.Duration)

	// Usage pipeline metrics
	IncUsageEventPublished(status string) // status: "success" or "dropped"
	IncUsageEventProcessed(status string) // status: "success", "failed", "dead_lettered"
	ObserveUsageBatchSize(size int)
	ObserveUsageBatchDuration(duration time.Duration)
	SetUsageQueueDepth(depth int64)
	ObserveUsageIngestLag(lag time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
