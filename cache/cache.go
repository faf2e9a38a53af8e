package cache

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/singleflight"
)

// Cache is the two-tier cache facade. A bounded LRU memory tier serves hot
// entries; a file tier persists entries across restarts. File-tier hits
// are promoted into memory. Durability is best-effort: file tier failures
// are logged and swallowed, process-local correctness is guaranteed.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: Get never errors; it returns (nil, false) on miss.
// - Construction: hosts build one Cache and inject it; there is no
//   process-wide instance.
type Cache struct {
	policy  Policy
	keyer   Keyer
	memory  *memoryTier
	files   *fileTier // nil when degraded to memory-only
	dir     string
	stats   stats
	logger  *log.Logger
	metrics *cacheMetrics
	tracer  trace.Tracer
	sf      *singleflight.Group // nil unless WithSingleFlight
}

// Option configures optional collaborators on a Cache.
type Option func(*options)

type options struct {
	logger       *log.Logger
	keyer        Keyer
	meter        metric.Meter
	tracer       trace.Tracer
	policy       *Policy
	singleFlight bool
}

// WithLogger sets the logger for degradation events. Defaults to the
// package logger with a "cache" prefix.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithKeyer replaces the key derivation strategy used by GetOrGenerate.
func WithKeyer(k Keyer) Option {
	return func(o *options) { o.keyer = k }
}

// WithMeter enables OpenTelemetry hit/miss/eviction counters.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) { o.meter = meter }
}

// WithTracer enables a span around each generator invocation.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithPolicy overrides the lifetime policy derived from Config.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = &p }
}

// WithSingleFlight deduplicates concurrent generator invocations per key.
// Off by default: concurrent misses may each run the generator and each
// write a result, last write wins.
func WithSingleFlight() Option {
	return func(o *options) { o.singleFlight = true }
}

// New creates a Cache from cfg. If the cache directory cannot be created
// the error is logged and the cache degrades to memory-only; New does not
// fail for that.
func New(cfg Config, opts ...Option) (*Cache, error) {
	cfg = cfg.withDefaults()

	o := options{
		logger: log.Default().WithPrefix("cache"),
		keyer:  NewDefaultKeyer(),
		tracer: tracenoop.NewTracerProvider().Tracer("cache"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	policy := Policy{DefaultTTL: cfg.defaultTTL()}
	if o.policy != nil {
		policy = *o.policy
	}

	c := &Cache{
		policy: policy,
		keyer:  o.keyer,
		memory: newMemoryTier(cfg.MaxMemoryEntries),
		dir:    cfg.Dir,
		logger: o.logger,
		tracer: o.tracer,
	}

	if o.meter != nil {
		metrics, err := newCacheMetrics(o.meter)
		if err != nil {
			return nil, err
		}
		c.metrics = metrics
	}
	if o.singleFlight {
		c.sf = &singleflight.Group{}
	}

	files, err := newFileTier(cfg.Dir, policy, o.logger)
	if err != nil {
		o.logger.Warn("cache degraded to memory-only", "dir", cfg.Dir, "error", err)
	} else {
		c.files = files
	}

	return c, nil
}

// Get retrieves a cached value. The memory tier is checked first; a valid
// file-tier hit is promoted into memory. Returns (nil, false) on miss or
// expiry.
//
// Values promoted from the file tier follow encoding/json decoding:
// numbers come back as float64, objects as map[string]any, arrays as []any.
func (c *Cache) Get(ctx context.Context, key string) (any, bool) {
	now := time.Now()

	if e, ok := c.memory.get(key); ok {
		if !c.policy.Expired(e.ExpiresAt, now) {
			c.stats.memoryHits.Add(1)
			c.metrics.recordHit(ctx, tierMemory)
			return e.Value, true
		}
		// Expired in memory; the file tier may still purge its copy below.
		c.memory.remove(key)
	}

	if c.files != nil {
		if e, ok := c.files.get(key, now); ok {
			e.Key = key
			evicted := c.memory.set(key, e)
			c.metrics.recordEvictions(ctx, evicted)
			c.stats.fileHits.Add(1)
			c.metrics.recordHit(ctx, tierFile)
			return e.Value, true
		}
	}

	c.stats.misses.Add(1)
	c.metrics.recordMiss(ctx)
	return nil, false
}

// Set stores a value in both tiers under one absolute expiry, resolved
// once from ttl (or the default TTL when ttl <= 0) so the tiers never
// disagree on a write's lifetime. metadata may be nil.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration, metadata Metadata) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	now := time.Now()
	e := &Entry{
		Value:     value,
		ExpiresAt: now.Add(c.policy.EffectiveTTL(ttl)),
		CreatedAt: now,
		Key:       key,
		Metadata:  metadata,
	}

	evicted := c.memory.set(key, e)
	c.metrics.recordEvictions(ctx, evicted)

	if c.files != nil {
		if err := c.files.set(key, e); err != nil {
			// Memory write already succeeded; durability is best-effort.
			c.logger.Warn("cache file write failed", "key", key, "error", err)
		}
	}

	return nil
}

// Invalidate removes key from both tiers regardless of prior presence.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	c.memory.remove(key)
	if c.files != nil {
		if err := c.files.remove(key); err != nil {
			c.logger.Warn("cache file delete failed", "key", key, "error", err)
		}
	}
}

// InvalidatePrefix removes every entry in both tiers whose key starts with
// "<prefix>_" and returns the count removed. Entries resident in both
// tiers count once per tier.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) int {
	count := c.memory.removePrefix(prefix)
	if c.files != nil {
		count += c.files.removePrefix(prefix)
	}
	c.logger.Debug("invalidated cache entries", "prefix", prefix, "count", count)
	return count
}

// ClearAll empties both tiers and returns an approximate count of entries
// removed.
func (c *Cache) ClearAll(ctx context.Context) int {
	count := c.memory.clear()
	if c.files != nil {
		count += c.files.clear()
	}
	c.logger.Info("cleared cache", "count", count)
	return count
}

// ClearExpired sweeps both tiers, removing entries whose expiry has passed
// as of call time. Corrupt files found during the sweep are deleted and
// counted. Returns the number of entries removed.
func (c *Cache) ClearExpired(ctx context.Context) int {
	now := time.Now()
	count := c.memory.sweepExpired(c.policy, now)
	if c.files != nil {
		count += c.files.sweepExpired(now)
	}
	if count > 0 {
		c.logger.Info("cleared expired cache entries", "count", count)
	}
	return count
}

// Stats returns a point-in-time statistics snapshot.
func (c *Cache) Stats() StatsSnapshot {
	snap := c.stats.snapshot()
	snap.MemoryEntries = c.memory.len()
	if c.files != nil {
		snap.FileEntries = c.files.count()
	}
	snap.Dir = c.dir
	return snap
}

// ResetStats zeroes the hit/miss counters.
func (c *Cache) ResetStats() {
	c.stats.reset()
}
