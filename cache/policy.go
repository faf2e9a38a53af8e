package cache

import "time"

// Policy configures entry lifetimes. The same policy value is shared by
// both tiers so they never diverge on what counts as expired.
type Policy struct {
	// DefaultTTL is the TTL to use when none is specified.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Override TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// DefaultPolicy returns the default lifetime policy.
// DefaultTTL: 7 days, MaxTTL: unlimited.
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: 7 * 24 * time.Hour,
	}
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}

	// Clamp to MaxTTL if set
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}

	return ttl
}

// Expired reports whether an entry expiring at expiresAt has passed as of now.
func (p Policy) Expired(expiresAt, now time.Time) bool {
	return now.After(expiresAt)
}
