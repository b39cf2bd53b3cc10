package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ChatRequests          map[string]uint64
	ChatDurationCount     uint64
	ChatDurationTotalNs   int64
	SearchCacheHits       uint64
	SearchCacheMisses     uint64
	SearchProviderCalls   map[string]uint64 // keyed "provider:status"
	SearchDurationCount   uint64
	SearchDurationTotalNs int64
	UsagePublished        map[string]uint64
	UsageProcessed        map[string]uint64
	UsageQueueDepth       int64
}

// InMemoryRecorder stores metrics in memory for tests and the stats endpoint.
type InMemoryRecorder struct {
	mu                  sync.Mutex
	chatRequests        map[string]uint64
	searchProviderCalls map[string]uint64
	usagePublished      map[string]uint64
	usageProcessed      map[string]uint64

	chatDurationCount     uint64
	chatDurationTotalNs   int64
	searchCacheHits       uint64
	searchCacheMisses     uint64
	searchDurationCount   uint64
	searchDurationTotalNs int64
	usageQueueDepth       int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		chatRequests:        make(map[string]uint64),
		searchProviderCalls: make(map[string]uint64),
		usagePublished:      make(map[string]uint64),
		usageProcessed:      make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		ChatRequests:          copyCounters(m.chatRequests),
		ChatDurationCount:     atomic.LoadUint64(&m.chatDurationCount),
		ChatDurationTotalNs:   atomic.LoadInt64(&m.chatDurationTotalNs),
		SearchCacheHits:       atomic.LoadUint64(&m.searchCacheHits),
		SearchCacheMisses:     atomic.LoadUint64(&m.searchCacheMisses),
		SearchProviderCalls:   copyCounters(m.searchProviderCalls),
		SearchDurationCount:   atomic.LoadUint64(&m.searchDurationCount),
		SearchDurationTotalNs: atomic.LoadInt64(&m.searchDurationTotalNs),
		UsagePublished:        copyCounters(m.usagePublished),
		UsageProcessed:        copyCounters(m.usageProcessed),
		UsageQueueDepth:       atomic.LoadInt64(&m.usageQueueDepth),
	}
}

func copyCounters(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// IncChatRequest increments the chat counter for a response source.
func (m *InMemoryRecorder) IncChatRequest(source string) {
	m.mu.Lock()
	m.chatRequests[source]++
	m.mu.Unlock()
}

// ObserveChatDuration records chat request duration.
func (m *InMemoryRecorder) ObserveChatDuration(duration time.Duration) {
	atomic.AddUint64(&m.chatDurationCount, 1)
	atomic.AddInt64(&m.chatDurationTotalNs, duration.Nanoseconds())
}

// IncSearchCacheHit increments the search cache hit counter.
func (m *InMemoryRecorder) IncSearchCacheHit() {
	atomic.AddUint64(&m.searchCacheHits, 1)
}

// IncSearchCacheMiss increments the search cache miss counter.
func (m *InMemoryRecorder) IncSearchCacheMiss() {
	atomic.AddUint64(&m.searchCacheMisses, 1)
}

// IncSearchProviderCall increments the per-provider call counter.
func (m *InMemoryRecorder) IncSearchProviderCall(provider, status string) {
	m.mu.Lock()
	m.searchProviderCalls[provider+":"+status]++
	m.mu.Unlock()
}

// ObserveSearchDuration records search request duration.
func (m *InMemoryRecorder) ObserveSearchDuration(duration time.Duration) {
	atomic.AddUint64(&m.searchDurationCount, 1)
	atomic.AddInt64(&m.searchDurationTotalNs, duration.Nanoseconds())
}

// IncUsageEventPublished increments the pipeline publish counter.
func (m *InMemoryRecorder) IncUsageEventPublished(status string) {
	m.mu.Lock()
	m.usagePublished[status]++
	m.mu.Unlock()
}

// IncUsageEventProcessed increments the pipeline consume counter.
func (m *InMemoryRecorder) IncUsageEventProcessed(status string) {
	m.mu.Lock()
	m.usageProcessed[status]++
	m.mu.Unlock()
}

// ObserveUsageBatchSize is recorded for snapshots only via queue depth.
func (m *InMemoryRecorder) ObserveUsageBatchSize(size int) {}

// ObserveUsageBatchDuration is a no-op for the in-memory recorder.
func (m *InMemoryRecorder) ObserveUsageBatchDuration(duration time.Duration) {}

// SetUsageQueueDepth stores the current stream depth.
func (m *InMemoryRecorder) SetUsageQueueDepth(depth int64) {
	atomic.StoreInt64(&m.usageQueueDepth, depth)
}

// ObserveUsageIngestLag is a no-op for the in-memory recorder.
func (m *InMemoryRecorder) ObserveUsageIngestLag(lag time.Duration) {}
