// Package cache provides a bounded two-tier cache for expensive,
// externally-billed content generation.
//
// A memory tier serves hot entries with LRU eviction; a file tier persists
// entries across restarts. GetOrGenerate memoizes a generator function
// behind deterministic SHA-256 derived keys.
package cache
