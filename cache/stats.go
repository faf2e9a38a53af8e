package cache

import (
	"context"
	"math"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Tier labels used in stats and metric attributes.
const (
	tierMemory = "memory"
	tierFile   = "file"
)

// stats holds the process-local hit/miss counters. Counters only grow
// until ResetStats.
type stats struct {
	memoryHits atomic.Int64
	fileHits   atomic.Int64
	misses     atomic.Int64
}

func (s *stats) reset() {
	s.memoryHits.Store(0)
	s.fileHits.Store(0)
	s.misses.Store(0)
}

// StatsSnapshot is a point-in-time view of cache statistics. FileEntries
// is computed by listing the cache directory at call time and is only
// eventually consistent with concurrent writers.
type StatsSnapshot struct {
	MemoryHits    int64
	FileHits      int64
	TotalHits     int64
	Misses        int64
	TotalRequests int64
	HitRate       float64 // percentage, rounded to 2 decimals
	MemoryEntries int
	FileEntries   int
	Dir           string
}

func (s *stats) snapshot() StatsSnapshot {
	memHits := s.memoryHits.Load()
	fileHits := s.fileHits.Load()
	misses := s.misses.Load()

	totalHits := memHits + fileHits
	total := totalHits + misses
	hitRate := 0.0
	if total > 0 {
		hitRate = math.Round(float64(totalHits)/float64(total)*100*100) / 100
	}

	return StatsSnapshot{
		MemoryHits:    memHits,
		FileHits:      fileHits,
		TotalHits:     totalHits,
		Misses:        misses,
		TotalRequests: total,
		HitRate:       hitRate,
	}
}

// cacheMetrics exports hit/miss/eviction counters through OpenTelemetry
// when the host supplies a meter via WithMeter.
type cacheMetrics struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	evictions metric.Int64Counter
}

func newCacheMetrics(meter metric.Meter) (*cacheMetrics, error) {
	hits, err := meter.Int64Counter(
		"cache.hits",
		metric.WithDescription("Cache hits by tier"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"cache.misses",
		metric.WithDescription("Cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter(
		"cache.evictions",
		metric.WithDescription("Memory tier LRU evictions"),
		metric.WithUnit("{eviction}"),
	)
	if err != nil {
		return nil, err
	}

	return &cacheMetrics{
		hits:      hits,
		misses:    misses,
		evictions: evictions,
	}, nil
}

func (m *cacheMetrics) recordHit(ctx context.Context, tier string) {
	if m == nil {
		return
	}
	m.hits.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", tier)))
}

func (m *cacheMetrics) recordMiss(ctx context.Context) {
	if m == nil {
		return
	}
	m.misses.Add(ctx, 1)
}

func (m *cacheMetrics) recordEvictions(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.evictions.Add(ctx, int64(n))
}
