package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const fileExt = ".json"

// fileTier is the durable tier: one JSON file per key under dir. Files are
// readable by other processes sharing the directory; writes are not locked.
type fileTier struct {
	dir    string
	policy Policy
	logger *log.Logger
}

// newFileTier creates the cache directory if needed. Creation is
// idempotent; on failure the tier is unusable and an error is returned so
// the caller can degrade to memory-only.
func newFileTier(dir string, policy Policy, logger *log.Logger) (*fileTier, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create cache directory %s: %w", dir, err)
	}
	return &fileTier{dir: dir, policy: policy, logger: logger}, nil
}

// sanitizeKey makes a cache key filesystem-safe.
func sanitizeKey(key string) string {
	key = strings.ReplaceAll(key, "/", "_")
	return strings.ReplaceAll(key, "\\", "_")
}

func (t *fileTier) path(key string) string {
	return filepath.Join(t.dir, sanitizeKey(key)+fileExt)
}

// get reads the entry for key. Absent files are a miss. Unparsable files
// are a miss and are best-effort deleted (self-healing). Expired entries
// are deleted and reported as a miss.
func (t *fileTier) get(key string, now time.Time) (*Entry, bool) {
	path := t.path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			t.logger.Warn("cache file read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		t.logger.Warn("removing corrupt cache file", "key", key, "error", err)
		if err := os.Remove(path); err != nil {
			t.logger.Warn("cache file delete failed", "key", key, "error", err)
		}
		return nil, false
	}

	if t.policy.Expired(e.ExpiresAt, now) {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			t.logger.Warn("cache file delete failed", "key", key, "error", err)
		}
		return nil, false
	}

	return &e, true
}

// set serializes the whole entry to its file. The write goes to a temp
// file first and is renamed into place so concurrent readers never observe
// a partial entry.
func (t *fileTier) set(key string, e *Entry) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: encode entry: %w", err)
	}

	tmp, err := os.CreateTemp(t.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("cache: create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), t.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: rename temp file: %w", err)
	}
	return nil
}

// remove deletes the file for key. Idempotent.
func (t *fileTier) remove(key string) error {
	if err := os.Remove(t.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cache: delete cache file: %w", err)
	}
	return nil
}

// removePrefix deletes every entry file whose key starts with "<prefix>_"
// and returns the count removed.
func (t *fileTier) removePrefix(prefix string) int {
	match := sanitizeKey(prefix) + "_"
	count := 0
	for _, name := range t.listEntryFiles() {
		if !strings.HasPrefix(name, match) {
			continue
		}
		if err := os.Remove(filepath.Join(t.dir, name)); err == nil {
			count++
		}
	}
	return count
}

// sweepExpired deletes every expired entry file as of now. Corrupt files
// encountered during the sweep are deleted and counted too.
func (t *fileTier) sweepExpired(now time.Time) int {
	count := 0
	for _, name := range t.listEntryFiles() {
		path := filepath.Join(t.dir, name)

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			if err := os.Remove(path); err == nil {
				count++
			}
			continue
		}

		if t.policy.Expired(e.ExpiresAt, now) {
			if err := os.Remove(path); err == nil {
				count++
			}
		}
	}
	return count
}

// clear deletes every entry file and returns the count removed.
func (t *fileTier) clear() int {
	count := 0
	for _, name := range t.listEntryFiles() {
		if err := os.Remove(filepath.Join(t.dir, name)); err == nil {
			count++
		}
	}
	return count
}

// count lists the directory at call time; it is only eventually consistent
// with concurrent writers.
func (t *fileTier) count() int {
	return len(t.listEntryFiles())
}

func (t *fileTier) listEntryFiles() []string {
	dirents, err := os.ReadDir(t.dir)
	if err != nil {
		t.logger.Warn("cache directory list failed", "dir", t.dir, "error", err)
		return nil
	}

	names := make([]string, 0, len(dirents))
	for _, d := range dirents {
		if d.IsDir() || !strings.HasSuffix(d.Name(), fileExt) {
			continue
		}
		names = append(names, d.Name())
	}
	return names
}
