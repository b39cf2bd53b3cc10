package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncChatRequest is a no-op.
func (n *NoopRecorder) IncChatRequest(source string) {}

// ObserveChatDuration is a no-op.
func (n *NoopRecorder) ObserveChatDuration(duration time.Duration) {}

// IncSearchCacheHit is a no-op.
func (n *NoopRecorder) IncSearchCacheHit() {}

// IncSearchCacheMiss is a no-op.
func (n *NoopRecorder) IncSearchCacheMiss() {}

// IncSearchProviderCall is a no-op.
func (n *NoopRecorder) IncSearchProviderCall(provider, status string) {}

// ObserveSearchDuration is a no-op.
func (n *NoopRecorder) ObserveSearchDuration(duration time.Duration) {}

// IncUsageEventPublished is a no-op.
func (n *NoopRecorder) IncUsageEventPublished(status string) {}

// IncUsageEventProcessed is a no-op.
func (n *NoopRecorder) IncUsageEventProcessed(status string) {}

// ObserveUsageBatchSize is a no-op.
func (n *NoopRecorder) ObserveUsageBatchSize(size int) {}

// ObserveUsageBatchDuration is a no-op.
func (n *NoopRecorder) ObserveUsageBatchDuration(duration time.Duration) {}

// SetUsageQueueDepth is a no-op.
func (n *NoopRecorder) SetUsageQueueDepth(depth int64) {}

// ObserveUsageIngestLag is a no-op.
func (n *NoopRecorder) ObserveUsageIngestLag(lag time.Duration) {}
