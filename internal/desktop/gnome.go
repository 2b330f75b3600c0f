package desktop

import (
	"context"
	"fmt"
	"strconv"
)

// GNOME schema ids.
const (
	InterfaceSchema  = "org.gnome.desktop.interface"
	BackgroundSchema = "org.gnome.desktop.background"
	UserThemeSchema  = "org.gnome.shell.extensions.user-theme"
	// DefaultTaskbarSchema is the floating taskbar extension shipped by
	// Zorin OS; other dash-to-panel forks use the same keys.
	DefaultTaskbarSchema = "org.gnome.shell.extensions.zorin-taskbar"
)

// InterfaceSettings is org.gnome.desktop.interface. It provides the colour
// scheme preference and the GTK theme.
type InterfaceSettings struct {
	gs *GSettings
}

// NewInterfaceSettings returns the interface settings client.
func NewInterfaceSettings() *InterfaceSettings {
	return &InterfaceSettings{gs: NewGSettings(InterfaceSchema)}
}

// ColorScheme returns the color-scheme key.
func (s *InterfaceSettings) ColorScheme() (string, error) {
	return s.gs.Get(context.Background(), "color-scheme")
}

// SetColorScheme writes the color-scheme key.
func (s *InterfaceSettings) SetColorScheme(scheme string) error {
	return s.gs.SetString(context.Background(), "color-scheme", scheme)
}

// Watch reports color-scheme changes.
func (s *InterfaceSettings) Watch(ctx context.Context, fn func(string)) error {
	return s.gs.Monitor(ctx, "color-scheme", func(_, value string) { fn(value) })
}

// GTKTheme returns a ThemeSink over the gtk-theme key.
func (s *InterfaceSettings) GTKTheme() ThemeSink {
	return keySink{gs: s.gs, key: "gtk-theme"}
}

// BackgroundSettings is org.gnome.desktop.background.
type BackgroundSettings struct {
	gs *GSettings
}

// NewBackgroundSettings returns the background settings client.
func NewBackgroundSettings() *BackgroundSettings {
	return &BackgroundSettings{gs: NewGSettings(BackgroundSchema)}
}

func wallpaperKey(dark bool) string {
	if dark {
		return "picture-uri-dark"
	}
	return "picture-uri"
}

// URI returns the wallpaper for the dark or light scheme.
func (s *BackgroundSettings) URI(dark bool) (string, error) {
	return s.gs.Get(context.Background(), wallpaperKey(dark))
}

// Watch reports changes to either wallpaper key.
func (s *BackgroundSettings) Watch(ctx context.Context, fn func(dark bool, uri string)) error {
	return s.gs.Monitor(ctx, "", func(key, value string) {
		switch key {
		case "picture-uri":
			fn(false, value)
		case "picture-uri-dark":
			fn(true, value)
		}
	})
}

// NewShellTheme returns a ThemeSink over the user-theme extension's name
// key, or nil when the extension schema is not installed.
func NewShellTheme(ctx context.Context) ThemeSink {
	gs := NewGSettings(UserThemeSchema)
	if !gs.Available(ctx) {
		return nil
	}
	return keySink{gs: gs, key: "name"}
}

type keySink struct {
	gs  *GSettings
	key string
}

func (k keySink) Current() (string, error) {
	return k.gs.Get(context.Background(), k.key)
}

func (k keySink) Set(name string) error {
	return k.gs.SetString(context.Background(), k.key, name)
}

// TaskbarSettings drives a dash-to-panel style extension.
type TaskbarSettings struct {
	gs *GSettings
}

// NewTaskbar returns a Taskbar for schema, or nil when it is not installed.
// An empty schema selects DefaultTaskbarSchema.
func NewTaskbar(ctx context.Context, schema string) *TaskbarSettings {
	if schema == "" {
		schema = DefaultTaskbarSchema
	}
	gs := NewGSettings(schema)
	if !gs.Available(ctx) {
		return nil
	}
	return &TaskbarSettings{gs: gs}
}

// SetOpacity enables custom transparency at the given opacity.
func (t *TaskbarSettings) SetOpacity(opacity float64) error {
	ctx := context.Background()
	if err := t.gs.SetRaw(ctx, "trans-use-custom-opacity", "true"); err != nil {
		return err
	}
	return t.gs.SetRaw(ctx, "trans-panel-opacity", strconv.FormatFloat(opacity, 'f', -1, 64))
}

// Intellihide reports whether auto-hide is on.
func (t *TaskbarSettings) Intellihide() (bool, error) {
	v, err := t.gs.Get(context.Background(), "intellihide")
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("unexpected intellihide value %q: %w", v, err)
	}
	return b, nil
}

// SetIntellihide switches auto-hide.
func (t *TaskbarSettings) SetIntellihide(enabled bool) error {
	return t.gs.SetRaw(context.Background(), "intellihide", strconv.FormatBool(enabled))
}
