package cache

import (
	"testing"
	"time"
)

func TestPolicy_Expired(t *testing.T) {
	p := DefaultPolicy()
	now := time.Now()

	if p.Expired(now.Add(time.Minute), now) {
		t.Error("future expiry should not be expired")
	}
	if !p.Expired(now.Add(-time.Minute), now) {
		t.Error("past expiry should be expired")
	}
	// Strictly "now > expires_at": an entry expiring exactly now is still valid.
	if p.Expired(now, now) {
		t.Error("expiry exactly at now should not count as expired")
	}
}

func TestPolicy_EffectiveTTL(t *testing.T) {
	p := Policy{DefaultTTL: time.Hour, MaxTTL: 24 * time.Hour}

	tests := []struct {
		name     string
		override time.Duration
		want     time.Duration
	}{
		{"zero uses default", 0, time.Hour},
		{"negative uses default", -time.Minute, time.Hour},
		{"override respected", 2 * time.Hour, 2 * time.Hour},
		{"clamped to max", 48 * time.Hour, 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.EffectiveTTL(tt.override); got != tt.want {
				t.Errorf("EffectiveTTL(%v) = %v, want %v", tt.override, got, tt.want)
			}
		})
	}
}

func TestPolicy_EffectiveTTL_NoMax(t *testing.T) {
	p := Policy{DefaultTTL: time.Hour}

	if got := p.EffectiveTTL(1000 * time.Hour); got != 1000*time.Hour {
		t.Errorf("EffectiveTTL without MaxTTL should not clamp, got %v", got)
	}
}
