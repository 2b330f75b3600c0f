// Package desktop defines the desktop services the agent talks to and
// their GNOME implementations.
package desktop

import (
	"context"
	"strings"
)

// Colour scheme preference values.
const (
	SchemeDefault     = "default"
	SchemePreferDark  = "prefer-dark"
	SchemePreferLight = "prefer-light"
)

// PrefersDark reports whether a colour-scheme value asks for dark styling.
func PrefersDark(scheme string) bool {
	return scheme == SchemePreferDark
}

// SchemeForTheme returns the colour-scheme value matching a theme name.
func SchemeForTheme(name string) string {
	if strings.Contains(strings.ToLower(name), "dark") {
		return SchemePreferDark
	}
	return SchemeDefault
}

// Appearance exposes the desktop's dark/light preference.
type Appearance interface {
	ColorScheme() (string, error)
	SetColorScheme(scheme string) error
	// Watch calls fn with each new colour-scheme value until ctx is done.
	Watch(ctx context.Context, fn func(scheme string)) error
}

// Wallpaper exposes the light and dark background images.
type Wallpaper interface {
	URI(dark bool) (string, error)
	// Watch calls fn whenever either background changes until ctx is done.
	Watch(ctx context.Context, fn func(dark bool, uri string)) error
}

// ThemeSink reads and switches one kind of theme (GTK or shell).
type ThemeSink interface {
	Current() (string, error)
	Set(name string) error
}

// Notifier shows user-facing notifications. Delivery is best effort.
type Notifier interface {
	Notify(title, body string)
}

// Taskbar is an optional panel extension that supports transparency and
// auto-hiding.
type Taskbar interface {
	SetOpacity(opacity float64) error
	Intellihide() (bool, error)
	SetIntellihide(enabled bool) error
}
