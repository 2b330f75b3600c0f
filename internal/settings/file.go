package settings

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"
)

const reloadDelay = 100 * time.Millisecond

// File is a Store persisted as a flat YAML mapping. Every change is written
// back atomically; external edits are picked up by Watch.
type File struct {
	*Memory

	path   string
	logger hclog.Logger
	saveMu sync.Mutex
}

// DefaultPath returns ~/.config/veneer/settings.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine config directory: %w", err)
	}
	return filepath.Join(dir, "veneer", "settings.yaml"), nil
}

// OpenFile loads the settings at path. A missing file yields defaults and
// is created on the first write.
func OpenFile(path string, logger hclog.Logger) (*File, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	f := &File{
		Memory: NewMemory(),
		path:   path,
		logger: logger.Named("settings"),
	}
	f.persist = f.save

	values, err := f.read()
	if err != nil {
		return nil, err
	}
	for _, key := range sortedKeys(values) {
		if err := f.set(key, values[key], false); err != nil {
			f.logger.Warn("ignoring invalid setting", "key", key, "error", err)
		}
	}
	return f, nil
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Reload re-reads the file and applies every changed value, notifying
// subscribers per key. Keys removed from the file revert to defaults.
func (f *File) Reload() error {
	values, err := f.read()
	if err != nil {
		return err
	}
	defaults := Defaults()
	for key, def := range defaults {
		if _, ok := values[key]; !ok {
			values[key] = def
		}
	}
	for _, key := range sortedKeys(values) {
		if err := f.set(key, values[key], false); err != nil {
			f.logger.Warn("ignoring invalid setting", "key", key, "error", err)
		}
	}
	return nil
}

// Watch reloads the file whenever it changes on disk until ctx is done.
// The parent directory is watched so editors that replace the file are
// handled.
func (f *File) Watch(ctx context.Context) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil { // #nosec G301 - Config directory needs standard permissions
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()

		var debounceTimer *time.Timer
		var closed bool
		var mu sync.Mutex

		defer func() {
			mu.Lock()
			closed = true
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			mu.Unlock()
		}()

		name := filepath.Base(f.path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}

				mu.Lock()
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(reloadDelay, func() {
					mu.Lock()
					done := closed
					mu.Unlock()
					if done {
						return
					}
					if err := f.Reload(); err != nil {
						f.logger.Warn("failed to reload settings", "path", f.path, "error", err)
						return
					}
					f.logger.Debug("settings reloaded", "path", f.path)
				})
				mu.Unlock()

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.Debug("settings watcher error", "error", err)
			}
		}
	}()

	return nil
}

func (f *File) read() (map[string]any, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", f.path, err)
	}

	defaults := Defaults()
	values := make(map[string]any, len(raw))
	for key, v := range raw {
		def, ok := defaults[key]
		if !ok {
			f.logger.Debug("ignoring unknown setting", "key", key)
			continue
		}
		c, ok := coerce(v, def)
		if !ok {
			f.logger.Warn("ignoring setting with wrong type", "key", key, "value", v)
			continue
		}
		values[key] = c
	}
	return values, nil
}

func (f *File) save() error {
	f.saveMu.Lock()
	defer f.saveMu.Unlock()

	data, err := yaml.Marshal(f.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil { // #nosec G301 - Config directory needs standard permissions
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close settings file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}

// coerce converts a decoded YAML value to the type of def.
func coerce(v, def any) (any, bool) {
	switch def.(type) {
	case float64:
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		}
	case int:
		switch n := v.(type) {
		case int:
			return n, true
		case float64:
			if n == math.Trunc(n) {
				return int(n), true
			}
		}
	case bool:
		b, ok := v.(bool)
		return b, ok
	case string:
		s, ok := v.(string)
		return s, ok
	}
	return nil, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
