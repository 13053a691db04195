// Package metrics collects in-process counters for the chat pipeline.
package metrics

import (
	"sync"
	"sync/atomic"
)

// Metrics 收集问答管线的运行计数与耗时统计。
type Metrics struct {
	turnsTotal      uint64
	greetingsTotal  uint64
	rewritesTotal   uint64
	retrievalsTotal uint64
	chatCallsTotal  uint64
	errorsTotal     uint64
	cacheHits       uint64
	cacheMisses     uint64

	documentsIndexed uint64
	chunksIndexed    uint64

	durationMu         sync.Mutex
	retrieveDurationMs float64
	generateDurationMs float64
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics instance.
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{}
	})
	return instance
}

// RecordTurn increments the completed turn counter.
func (m *Metrics) RecordTurn() {
	atomic.AddUint64(&m.turnsTotal, 1)
}

// RecordGreeting increments the greeting shortcut counter.
func (m *Metrics) RecordGreeting() {
	atomic.AddUint64(&m.greetingsTotal, 1)
}

// RecordRewrite increments the query rewrite counter.
func (m *Metrics) RecordRewrite() {
	atomic.AddUint64(&m.rewritesTotal, 1)
}

// RecordRetrieval increments the retrieval counter and adds its duration.
func (m *Metrics) RecordRetrieval(durationMs float64) {
	atomic.AddUint64(&m.retrievalsTotal, 1)
	m.durationMu.Lock()
	m.retrieveDurationMs += durationMs
	m.durationMu.Unlock()
}

// RecordChatCall increments the LLM chat call counter and adds its duration.
func (m *Metrics) RecordChatCall(durationMs float64) {
	atomic.AddUint64(&m.chatCallsTotal, 1)
	m.durationMu.Lock()
	m.generateDurationMs += durationMs
	m.durationMu.Unlock()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError() {
	atomic.AddUint64(&m.errorsTotal, 1)
}

// RecordCacheHit increments the retrieval cache hit counter.
func (m *Metrics) RecordCacheHit() {
	atomic.AddUint64(&m.cacheHits, 1)
}

// RecordCacheMiss increments the retrieval cache miss counter.
func (m *Metrics) RecordCacheMiss() {
	atomic.AddUint64(&m.cacheMisses, 1)
}

// RecordIndexed adds to the ingestion counters.
func (m *Metrics) RecordIndexed(documents, chunks int) {
	atomic.AddUint64(&m.documentsIndexed, uint64(documents))
	atomic.AddUint64(&m.chunksIndexed, uint64(chunks))
}

// Stats returns a snapshot of all counters.
func (m *Metrics) Stats() map[string]interface{} {
	turns := atomic.LoadUint64(&m.turnsTotal)
	retrievals := atomic.LoadUint64(&m.retrievalsTotal)
	chatCalls := atomic.LoadUint64(&m.chatCallsTotal)

	m.durationMu.Lock()
	retrieveMs := m.retrieveDurationMs
	generateMs := m.generateDurationMs
	m.durationMu.Unlock()

	avgRetrieveMs := 0.0
	if retrievals > 0 {
		avgRetrieveMs = retrieveMs / float64(retrievals)
	}
	avgGenerateMs := 0.0
	if chatCalls > 0 {
		avgGenerateMs = generateMs / float64(chatCalls)
	}

	return map[string]interface{}{
		"turns_total":       turns,
		"greetings_total":   atomic.LoadUint64(&m.greetingsTotal),
		"rewrites_total":    atomic.LoadUint64(&m.rewritesTotal),
		"retrievals_total":  retrievals,
		"chat_calls_total":  chatCalls,
		"errors_total":      atomic.LoadUint64(&m.errorsTotal),
		"cache_hits":        atomic.LoadUint64(&m.cacheHits),
		"cache_misses":      atomic.LoadUint64(&m.cacheMisses),
		"documents_indexed": atomic.LoadUint64(&m.documentsIndexed),
		"chunks_indexed":    atomic.LoadUint64(&m.chunksIndexed),
		"avg_retrieve_ms":   avgRetrieveMs,
		"avg_generate_ms":   avgGenerateMs,
	}
}

// Reset clears all counters. Intended for tests.
func (m *Metrics) Reset() {
	atomic.StoreUint64(&m.turnsTotal, 0)
	atomic.StoreUint64(&m.greetingsTotal, 0)
	atomic.StoreUint64(&m.rewritesTotal, 0)
	atomic.StoreUint64(&m.retrievalsTotal, 0)
	atomic.StoreUint64(&m.chatCallsTotal, 0)
	atomic.StoreUint64(&m.errorsTotal, 0)
	atomic.StoreUint64(&m.cacheHits, 0)
	atomic.StoreUint64(&m.cacheMisses, 0)
	atomic.StoreUint64(&m.documentsIndexed, 0)
	atomic.StoreUint64(&m.chunksIndexed, 0)

	m.durationMu.Lock()
	m.retrieveDurationMs = 0
	m.generateDurationMs = 0
	m.durationMu.Unlock()
}
