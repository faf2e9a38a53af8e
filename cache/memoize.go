package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// GeneratorFunc produces a value on a cache miss. It receives the caller's
// context; the cache itself never cancels or times out a running
// generator, so callers needing cancellation wrap the generator before
// passing it in.
type GeneratorFunc func(ctx context.Context) (any, error)

// GetOrGenerate derives a key from prefix and params, returns the cached
// value on hit, and otherwise invokes gen, stores the result under the
// derived key (with params preserved as entry metadata) and returns it.
// Generator errors propagate unchanged and nothing is cached for the key.
//
// Without WithSingleFlight, concurrent misses for the same key may each
// invoke gen and each write a result; last write wins. This trades
// duplicate generation cost for lock-free reads and is acceptable when
// generators are deterministic for identical params.
func (c *Cache) GetOrGenerate(ctx context.Context, prefix string, gen GeneratorFunc, ttl time.Duration, params map[string]any) (any, error) {
	if gen == nil {
		return nil, ErrNilGenerator
	}

	key, err := c.keyer.Key(prefix, params)
	if err != nil {
		return nil, fmt.Errorf("cache: derive key: %w", err)
	}

	if v, ok := c.Get(ctx, key); ok {
		return v, nil
	}

	if c.sf != nil {
		v, err, _ := c.sf.Do(key, func() (any, error) {
			return c.generate(ctx, prefix, key, gen, ttl, params)
		})
		return v, err
	}

	return c.generate(ctx, prefix, key, gen, ttl, params)
}

func (c *Cache) generate(ctx context.Context, prefix, key string, gen GeneratorFunc, ttl time.Duration, params map[string]any) (any, error) {
	ctx, span := c.startGenerateSpan(ctx, prefix, key)
	value, err := gen(ctx)
	endGenerateSpan(span, err)
	if err != nil {
		// Failed generations must never poison the cache.
		return nil, err
	}

	var md Metadata
	if params != nil {
		md = Metadata{"params": params}
	}
	if err := c.Set(ctx, key, value, ttl, md); err != nil {
		return nil, err
	}

	return value, nil
}

// Memoizer binds a Cache to one key prefix and TTL so call sites read as
// "compute only if absent".
type Memoizer struct {
	cache  *Cache
	prefix string
	ttl    time.Duration
}

// NewMemoizer creates a memoizer for prefix. ttl <= 0 uses the cache's
// default TTL.
func NewMemoizer(c *Cache, prefix string, ttl time.Duration) *Memoizer {
	return &Memoizer{cache: c, prefix: prefix, ttl: ttl}
}

// Do memoizes gen under the key derived from params.
func (m *Memoizer) Do(ctx context.Context, params map[string]any, gen GeneratorFunc) (any, error) {
	return m.cache.GetOrGenerate(ctx, m.prefix, gen, m.ttl, params)
}

// Wrap memoizes fn behind m. keyFn extracts the parameters that identify a
// call; it may expose only a subset of fn's input, in which case calls
// differing solely in the omitted fields share a cache entry.
//
// Values served from the file tier are re-decoded into V through
// encoding/json, so V must round-trip through JSON.
func Wrap[A, V any](m *Memoizer, fn func(context.Context, A) (V, error), keyFn func(A) map[string]any) func(context.Context, A) (V, error) {
	return func(ctx context.Context, arg A) (V, error) {
		var zero V

		v, err := m.Do(ctx, keyFn(arg), func(ctx context.Context) (any, error) {
			return fn(ctx, arg)
		})
		if err != nil {
			return zero, err
		}

		if out, ok := v.(V); ok {
			return out, nil
		}

		// Promoted from disk as generic JSON; decode into the caller's type.
		data, err := json.Marshal(v)
		if err != nil {
			return zero, fmt.Errorf("cache: re-encode cached value: %w", err)
		}
		var out V
		if err := json.Unmarshal(data, &out); err != nil {
			return zero, fmt.Errorf("cache: decode cached value: %w", err)
		}
		return out, nil
	}
}
