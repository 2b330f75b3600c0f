// Package desktoptest provides in-memory desktop collaborators for tests.
package desktoptest

import (
	"context"
	"errors"
	"sync"
)

// ErrUnavailable is returned by fakes configured to fail.
var ErrUnavailable = errors.New("desktop service unavailable")

// Appearance is a fake desktop.Appearance.
type Appearance struct {
	mu       sync.Mutex
	scheme   string
	watchers []func(string)
}

// NewAppearance returns an Appearance holding scheme.
func NewAppearance(scheme string) *Appearance {
	return &Appearance{scheme: scheme}
}

func (a *Appearance) ColorScheme() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scheme, nil
}

// SetColorScheme stores scheme and notifies watchers.
func (a *Appearance) SetColorScheme(scheme string) error {
	a.mu.Lock()
	a.scheme = scheme
	fns := append([]func(string){}, a.watchers...)
	a.mu.Unlock()
	for _, fn := range fns {
		fn(scheme)
	}
	return nil
}

func (a *Appearance) Watch(ctx context.Context, fn func(string)) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.watchers = append(a.watchers, fn)
	return nil
}

// Wallpaper is a fake desktop.Wallpaper.
type Wallpaper struct {
	mu       sync.Mutex
	light    string
	dark     string
	watchers []func(bool, string)
}

// NewWallpaper returns a Wallpaper with the given light and dark URIs.
func NewWallpaper(light, dark string) *Wallpaper {
	return &Wallpaper{light: light, dark: dark}
}

func (w *Wallpaper) URI(dark bool) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if dark {
		return w.dark, nil
	}
	return w.light, nil
}

// SetURI changes one wallpaper and notifies watchers.
func (w *Wallpaper) SetURI(dark bool, uri string) {
	w.mu.Lock()
	if dark {
		w.dark = uri
	} else {
		w.light = uri
	}
	fns := append([]func(bool, string){}, w.watchers...)
	w.mu.Unlock()
	for _, fn := range fns {
		fn(dark, uri)
	}
}

func (w *Wallpaper) Watch(ctx context.Context, fn func(bool, string)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watchers = append(w.watchers, fn)
	return nil
}

// ThemeSink is a fake desktop.ThemeSink that records every Set.
type ThemeSink struct {
	mu      sync.Mutex
	current string
	history []string
	fail    bool

	// BeforeSet, when non-nil, runs before each Set outside the lock.
	BeforeSet func(name string)
}

// NewThemeSink returns a sink whose current theme is name.
func NewThemeSink(name string) *ThemeSink {
	return &ThemeSink{current: name}
}

func (s *ThemeSink) Current() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return "", ErrUnavailable
	}
	return s.current, nil
}

func (s *ThemeSink) Set(name string) error {
	if s.BeforeSet != nil {
		s.BeforeSet(name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return ErrUnavailable
	}
	s.current = name
	s.history = append(s.history, name)
	return nil
}

// SetExternally changes the current theme without recording history, as a
// user switching themes elsewhere would.
func (s *ThemeSink) SetExternally(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = name
}

// Fail makes every call return ErrUnavailable.
func (s *ThemeSink) Fail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

// History returns every name passed to Set.
func (s *ThemeSink) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history...)
}

// Notification is one recorded notification.
type Notification struct {
	Title string
	Body  string
}

// Notifier records notifications.
type Notifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (n *Notifier) Notify(title, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Notification{Title: title, Body: body})
}

// Sent returns the recorded notifications.
func (n *Notifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}

// Taskbar is a fake desktop.Taskbar.
type Taskbar struct {
	mu          sync.Mutex
	opacity     float64
	intellihide bool
	writes      int
}

// NewTaskbar returns a Taskbar with the given intellihide state.
func NewTaskbar(intellihide bool) *Taskbar {
	return &Taskbar{intellihide: intellihide}
}

func (t *Taskbar) SetOpacity(opacity float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.opacity = opacity
	return nil
}

// Opacity returns the last opacity set.
func (t *Taskbar) Opacity() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opacity
}

func (t *Taskbar) Intellihide() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.intellihide, nil
}

func (t *Taskbar) SetIntellihide(enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.intellihide = enabled
	t.writes++
	return nil
}

// IntellihideWrites counts SetIntellihide calls.
func (t *Taskbar) IntellihideWrites() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writes
}
