package cache

import (
	"encoding/json"
	"math"
	"time"
)

// Metadata carries caller-supplied fields stored alongside a cache entry.
// On disk the fields are spread into the top level of the entry's JSON
// object, so metadata keys that collide with the reserved field names
// (value, expires_at, created_at, cache_key) are dropped.
type Metadata map[string]any

// Entry is one cached record. Entries are immutable once written; a
// second Set on the same key replaces the entry wholesale.
type Entry struct {
	Value     any
	ExpiresAt time.Time
	CreatedAt time.Time
	Key       string
	Metadata  Metadata
}

// Reserved field names in the on-disk JSON object.
const (
	fieldValue     = "value"
	fieldExpiresAt = "expires_at"
	fieldCreatedAt = "created_at"
	fieldCacheKey  = "cache_key"
)

// MarshalJSON flattens the entry into a single JSON object with metadata
// fields at the top level. Timestamps are encoded as float unix seconds so
// the files stay readable by other processes sharing the cache directory.
func (e *Entry) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(e.Metadata)+4)
	for k, v := range e.Metadata {
		obj[k] = v
	}
	obj[fieldValue] = e.Value
	obj[fieldExpiresAt] = unixSeconds(e.ExpiresAt)
	obj[fieldCreatedAt] = unixSeconds(e.CreatedAt)
	obj[fieldCacheKey] = e.Key
	return json.Marshal(obj)
}

// UnmarshalJSON is the inverse of MarshalJSON: reserved fields populate the
// typed struct fields, everything else becomes Metadata.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	e.Value = obj[fieldValue]
	if ts, ok := obj[fieldExpiresAt].(float64); ok {
		e.ExpiresAt = timeFromUnixSeconds(ts)
	}
	if ts, ok := obj[fieldCreatedAt].(float64); ok {
		e.CreatedAt = timeFromUnixSeconds(ts)
	}
	if key, ok := obj[fieldCacheKey].(string); ok {
		e.Key = key
	}

	delete(obj, fieldValue)
	delete(obj, fieldExpiresAt)
	delete(obj, fieldCreatedAt)
	delete(obj, fieldCacheKey)
	if len(obj) > 0 {
		e.Metadata = obj
	} else {
		e.Metadata = nil
	}
	return nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func timeFromUnixSeconds(s float64) time.Time {
	sec, frac := math.Modf(s)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
