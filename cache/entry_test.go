package cache

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEntry_MarshalFlattensMetadata(t *testing.T) {
	created := time.Unix(1700000000, 500000000)
	e := &Entry{
		Value:     "hello",
		ExpiresAt: created.Add(time.Hour),
		CreatedAt: created,
		Key:       "intro_page_abc123",
		Metadata:  Metadata{"params": map[string]any{"subject": "math"}},
	}

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		t.Fatalf("Unmarshal raw object failed: %v", err)
	}

	if obj["value"] != "hello" {
		t.Errorf("value = %v, want hello", obj["value"])
	}
	if obj["cache_key"] != "intro_page_abc123" {
		t.Errorf("cache_key = %v, want intro_page_abc123", obj["cache_key"])
	}
	// Metadata fields sit at the top level, not nested under "metadata".
	if _, ok := obj["params"]; !ok {
		t.Error("metadata field params should be flattened into the top level")
	}
	if _, ok := obj["metadata"]; ok {
		t.Error("no nested metadata object should be written")
	}
	// Timestamps are float unix seconds.
	expires, ok := obj["expires_at"].(float64)
	if !ok {
		t.Fatalf("expires_at should be a JSON number, got %T", obj["expires_at"])
	}
	if expires <= float64(created.Unix()) {
		t.Errorf("expires_at %v should be after created_at", expires)
	}
}

func TestEntry_RoundTrip(t *testing.T) {
	created := time.Unix(1700000000, 250000000)
	in := &Entry{
		Value:     map[string]any{"text": "worksheet", "count": float64(3)},
		ExpiresAt: created.Add(48 * time.Hour),
		CreatedAt: created,
		Key:       "word_problem_deadbeef00112233",
		Metadata:  Metadata{"params": map[string]any{"operation": "addition"}},
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var out Entry
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if out.Key != in.Key {
		t.Errorf("Key = %q, want %q", out.Key, in.Key)
	}
	value, ok := out.Value.(map[string]any)
	if !ok {
		t.Fatalf("Value should decode as map, got %T", out.Value)
	}
	if value["text"] != "worksheet" || value["count"] != float64(3) {
		t.Errorf("Value round trip mismatch: %v", value)
	}
	if out.Metadata == nil {
		t.Fatal("Metadata should survive the round trip")
	}
	if _, ok := out.Metadata["params"]; !ok {
		t.Errorf("Metadata params missing: %v", out.Metadata)
	}
	// Sub-second precision within a microsecond after the float conversion.
	if d := out.CreatedAt.Sub(in.CreatedAt); d > time.Microsecond || d < -time.Microsecond {
		t.Errorf("CreatedAt drifted by %v", d)
	}
	if d := out.ExpiresAt.Sub(in.ExpiresAt); d > time.Microsecond || d < -time.Microsecond {
		t.Errorf("ExpiresAt drifted by %v", d)
	}
}

func TestEntry_ReservedFieldsWinOverMetadata(t *testing.T) {
	e := &Entry{
		Value:     "real",
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
		Key:       "k_1",
		Metadata:  Metadata{"value": "shadow", "cache_key": "shadow"},
	}

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		t.Fatalf("Unmarshal raw object failed: %v", err)
	}

	if obj["value"] != "real" {
		t.Errorf("reserved field value should win, got %v", obj["value"])
	}
	if obj["cache_key"] != "k_1" {
		t.Errorf("reserved field cache_key should win, got %v", obj["cache_key"])
	}
}

func TestEntry_UnmarshalWithoutMetadata(t *testing.T) {
	data := []byte(`{"value": 42, "expires_at": 1700003600.0, "created_at": 1700000000.0, "cache_key": "n_1"}`)

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if e.Metadata != nil {
		t.Errorf("Metadata should be nil when no extra fields exist, got %v", e.Metadata)
	}
	if e.Value != float64(42) {
		t.Errorf("Value = %v, want 42", e.Value)
	}
}
