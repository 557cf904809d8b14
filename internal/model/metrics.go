package model

import "sync"

// Metrics aggregates counters for one batch run. Safe for concurrent use;
// owned by the pipeline for the duration of a run and discarded after.
type Metrics struct {
	mu               sync.Mutex
	Processed        int `json:"processed"`
	Admitted         int `json:"admitted"`
	Rejected         int `json:"rejected"`
	ProviderFailures int `json:"provider_failures"`
	CacheHits        int `json:"cache_hits"`
	SinkFailures     int `json:"sink_failures"`
}

func (m *Metrics) AddProcessed(n int)        { m.mu.Lock(); m.Processed += n; m.mu.Unlock() }
func (m *Metrics) AddAdmitted(n int)         { m.mu.Lock(); m.Admitted += n; m.mu.Unlock() }
func (m *Metrics) AddRejected(n int)         { m.mu.Lock(); m.Rejected += n; m.mu.Unlock() }
func (m *Metrics) AddProviderFailures(n int) { m.mu.Lock(); m.ProviderFailures += n; m.mu.Unlock() }
func (m *Metrics) AddCacheHits(n int)        { m.mu.Lock(); m.CacheHits += n; m.mu.Unlock() }
func (m *Metrics) AddSinkFailures(n int)     { m.mu.Lock(); m.SinkFailures += n; m.mu.Unlock() }

// Snapshot returns a copy safe to serialize after the batch completes.
func (m *Metrics) Snapshot() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Metrics{
		Processed:        m.Processed,
		Admitted:         m.Admitted,
		Rejected:         m.Rejected,
		ProviderFailures: m.ProviderFailures,
		CacheHits:        m.CacheHits,
		SinkFailures:     m.SinkFailures,
	}
}
