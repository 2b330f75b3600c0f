// Package settings holds the agent's typed key/value configuration with
// per-key change subscriptions.
package settings

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync"
)

// ErrType is returned when a value is written with a type different from
// the key's existing value.
var ErrType = errors.New("setting type mismatch")

// Subscription identifies a registered change callback.
type Subscription uint64

// Store is a typed key/value store with change notification.
// Callbacks run synchronously on the writer's goroutine after the store
// has released its locks, so they may read or write the store.
type Store interface {
	Bool(key string) bool
	Int(key string) int
	Float(key string) float64
	String(key string) string

	SetBool(key string, v bool) error
	SetInt(key string, v int) error
	SetFloat(key string, v float64) error
	SetString(key string, v string) error

	Subscribe(key string, fn func(key string)) Subscription
	Unsubscribe(sub Subscription)
}

type subscriber struct {
	id Subscription
	fn func(string)
}

// Memory is an in-memory Store seeded with Defaults.
type Memory struct {
	mu     sync.RWMutex
	values map[string]any
	subs   map[string][]subscriber
	next   Subscription

	// persist runs after a value changes and before subscribers are told.
	persist func() error
}

// NewMemory returns a Memory store holding the default values.
func NewMemory() *Memory {
	return &Memory{
		values: Defaults(),
		subs:   make(map[string][]subscriber),
	}
}

// Bool returns the boolean value of key, or false.
func (m *Memory) Bool(key string) bool {
	v, _ := m.get(key).(bool)
	return v
}

// Int returns the integer value of key, or 0.
func (m *Memory) Int(key string) int {
	switch v := m.get(key).(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// Float returns the floating point value of key, or 0.
func (m *Memory) Float(key string) float64 {
	switch v := m.get(key).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// String returns the string value of key, or "".
func (m *Memory) String(key string) string {
	v, _ := m.get(key).(string)
	return v
}

// SetBool stores a boolean.
func (m *Memory) SetBool(key string, v bool) error { return m.set(key, v, true) }

// SetInt stores an integer.
func (m *Memory) SetInt(key string, v int) error { return m.set(key, v, true) }

// SetFloat stores a floating point value.
func (m *Memory) SetFloat(key string, v float64) error { return m.set(key, v, true) }

// SetString stores a string.
func (m *Memory) SetString(key string, v string) error { return m.set(key, v, true) }

// Subscribe registers fn to run whenever key changes value.
func (m *Memory) Subscribe(key string, fn func(key string)) Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.subs[key] = append(m.subs[key], subscriber{id: m.next, fn: fn})
	return m.next
}

// Unsubscribe removes a callback. Unknown subscriptions are ignored.
func (m *Memory) Unsubscribe(sub Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, list := range m.subs {
		m.subs[key] = slices.DeleteFunc(list, func(s subscriber) bool { return s.id == sub })
		if len(m.subs[key]) == 0 {
			delete(m.subs, key)
		}
	}
}

// Snapshot returns a copy of every stored value.
func (m *Memory) Snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.values)
}

func (m *Memory) get(key string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key]
}

// set stores v under key. Writing the current value is a no-op and fires no
// callbacks.
func (m *Memory) set(key string, v any, persist bool) error {
	m.mu.Lock()
	if cur, ok := m.values[key]; ok {
		if reflect.TypeOf(cur) != reflect.TypeOf(v) {
			m.mu.Unlock()
			return fmt.Errorf("%w: %s holds %T, not %T", ErrType, key, cur, v)
		}
		if cur == v {
			m.mu.Unlock()
			return nil
		}
	}
	m.values[key] = v
	var save func() error
	if persist {
		save = m.persist
	}
	fns := make([]func(string), 0, len(m.subs[key]))
	for _, s := range m.subs[key] {
		fns = append(fns, s.fn)
	}
	m.mu.Unlock()

	var err error
	if save != nil {
		if err = save(); err != nil {
			err = fmt.Errorf("failed to persist %s: %w", key, err)
		}
	}
	for _, fn := range fns {
		fn(key)
	}
	return err
}
