package colour

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"
)

const cacheVersion = 1

type cacheFile struct {
	Version int           `json:"version"`
	Entries []cachedEntry `json:"entries"`
}

type cachedEntry struct {
	Key    string  `json:"key"`
	Scheme *Scheme `json:"scheme"`
}

// DefaultCachePath returns the location of the persisted scheme cache.
func DefaultCachePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine cache directory: %w", err)
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "veneer", "palette-cache.json.xz"), nil
}

// SaveCache writes the cached schemes to path as xz-compressed JSON.
// The file is replaced atomically.
func (e *Extractor) SaveCache(path string) error {
	e.mu.Lock()
	file := cacheFile{Version: cacheVersion, Entries: make([]cachedEntry, 0, len(e.order))}
	for _, key := range e.order {
		file.Entries = append(file.Entries, cachedEntry{Key: key, Scheme: e.cache[key]})
	}
	e.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { // #nosec G301 - Cache directory needs standard permissions
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".palette-cache-*")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeCache(tmp, file); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

func writeCache(w io.Writer, file cacheFile) error {
	xw, err := xz.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create xz writer: %w", err)
	}
	if err := json.NewEncoder(xw).Encode(file); err != nil {
		xw.Close()
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := xw.Close(); err != nil {
		return fmt.Errorf("failed to finish xz stream: %w", err)
	}
	return nil
}

// LoadCache merges schemes persisted at path into the cache. A missing
// file is not an error. Entries whose source image changed are dropped on
// their next lookup because the key no longer matches.
func (e *Extractor) LoadCache(path string) error {
	f, err := os.Open(path) // #nosec G304 - Cache path under the user cache directory
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer f.Close()

	xr, err := xz.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read xz stream: %w", err)
	}
	var file cacheFile
	if err := json.NewDecoder(xr).Decode(&file); err != nil {
		return fmt.Errorf("failed to decode cache: %w", err)
	}
	if file.Version != cacheVersion {
		e.logger.Debug("ignoring palette cache with unknown version", "version", file.Version)
		return nil
	}

	for _, entry := range file.Entries {
		if entry.Scheme == nil || entry.Key == "" {
			continue
		}
		e.store(entry.Key, entry.Scheme)
	}
	e.logger.Debug("loaded palette cache", "entries", len(file.Entries))
	return nil
}
