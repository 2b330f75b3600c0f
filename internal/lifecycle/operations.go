package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmylchreest/veneer/internal/colour"
	"github.com/jmylchreest/veneer/internal/desktop"
	veneerimage "github.com/jmylchreest/veneer/internal/image"
	"github.com/jmylchreest/veneer/internal/monitor"
	"github.com/jmylchreest/veneer/internal/overlay"
	"github.com/jmylchreest/veneer/internal/settings"
	"github.com/jmylchreest/veneer/internal/theme"
)

// How an update treats activation.
type updateMode int

const (
	// updateRefresh reloads the desktop when the tree changed.
	updateRefresh updateMode = iota
	// updateForce reloads the desktop even when nothing changed.
	updateForce
	// updateActivate activates the overlay after rendering.
	updateActivate
)

// Recreate rebuilds the overlay from the configured source theme,
// rediscovering it first. It waits for a running update. A recreate already
// in progress makes this call return Skipped.
func (m *Manager) Recreate(ctx context.Context) (Outcome, error) {
	return m.recreate(ctx, false)
}

// recreate rebuilds from the configured source. With wait set it queues
// behind a recreate in progress instead of being dropped.
func (m *Manager) recreate(ctx context.Context, wait bool) (Outcome, error) {
	source := m.store.String(settings.KeyOverlaySourceTheme)
	if source == "" {
		source = m.State().SourceTheme
	}
	outcome, err := m.create(ctx, source, wait)
	switch outcome {
	case Succeeded:
		if m.store.Bool(settings.KeyEnableOverlay) {
			m.notify("Overlay theme recreated and applied")
		} else {
			m.notify("Overlay theme recreated (enable to apply)")
		}
	case Failed:
		m.logger.Warn("overlay recreation failed", "source", source, "error", err)
		m.notify("Failed to recreate overlay")
	}
	return outcome, err
}

// create rebuilds the overlay from source and activates it when the overlay
// is enabled. Without wait it returns Skipped while another create runs.
func (m *Manager) create(ctx context.Context, source string, wait bool) (Outcome, error) {
	guard, gen, err := m.current()
	if err != nil {
		return Failed, err
	}
	if wait {
		m.recreating.Add(1)
	} else if !m.recreating.CompareAndSwap(0, 1) {
		m.logger.Debug("overlay recreation already in progress", "source", source)
		return Skipped, nil
	}
	defer m.recreating.Add(-1)
	if err := guard.Acquire(ctx, 1); err != nil {
		return Failed, err
	}
	defer guard.Release(1)
	if !m.valid(gen) {
		return Skipped, nil
	}
	if ctx.Err() != nil {
		return Failed, ctx.Err()
	}

	if source == "" {
		return Failed, overlay.ErrNoSource
	}
	m.cfg.Themes.Invalidate(source)
	desc, ok := m.cfg.Themes.Discover(source)
	if !ok {
		return Failed, m.notFound(source)
	}
	m.deriveFromTheme(desc)

	res, err := m.cfg.Builder.Build(desc, settings.ReadParams(m.store), m.Scheme())
	if err != nil {
		return Failed, fmt.Errorf("failed to build overlay from %s: %w", source, err)
	}

	st := m.State()
	st.Record(res, desc.Name)
	m.mu.Lock()
	m.source = desc
	m.mu.Unlock()

	if m.store.Bool(settings.KeyEnableOverlay) {
		if err := m.activator.Activate(&st); err != nil {
			m.logger.Warn("overlay built but not activated", "error", err)
		}
	}
	m.commit(gen, st)
	return Succeeded, nil
}

// Update re-renders the overlay with the current settings and colours,
// waiting for any running recreate. With overlay-auto-update on, settings
// changes schedule it after a quiet period.
func (m *Manager) Update(ctx context.Context) (Outcome, error) {
	return m.update(ctx, updateRefresh)
}

func (m *Manager) update(ctx context.Context, mode updateMode) (Outcome, error) {
	guard, gen, err := m.current()
	if err != nil {
		return Failed, err
	}
	if err := guard.Acquire(ctx, 1); err != nil {
		return Failed, err
	}
	defer guard.Release(1)
	if !m.valid(gen) {
		return Skipped, nil
	}
	if mode != updateActivate && !m.store.Bool(settings.KeyEnableOverlay) {
		m.logger.Debug("overlay update skipped, overlay disabled")
		return Skipped, nil
	}

	desc, err := m.sourceDescriptor()
	if err != nil {
		return Failed, err
	}
	res, err := m.cfg.Builder.Build(desc, settings.ReadParams(m.store), m.Scheme())
	if err != nil {
		m.notify("Failed to update overlay theme")
		return Failed, fmt.Errorf("failed to update overlay: %w", err)
	}

	st := m.State()
	st.Record(res, desc.Name)
	switch {
	case mode == updateActivate:
		err = m.activator.Activate(&st)
	case res.Changed || mode == updateForce:
		err = m.activator.Refresh(&st)
	}
	if err != nil {
		m.logger.Warn("overlay updated but not reloaded", "error", err)
	}
	m.commit(gen, st)
	m.logger.Debug("overlay updated", "changed", res.Changed)
	m.updated()
	return Succeeded, nil
}

// ApplyNow re-extracts colours when automatic extraction is on and
// re-renders and reloads the overlay.
func (m *Manager) ApplyNow(ctx context.Context) (Outcome, error) {
	if _, _, err := m.current(); err != nil {
		return Failed, err
	}
	if !m.store.Bool(settings.KeyEnableOverlay) {
		m.notify("Overlay theme is not enabled")
		return Skipped, nil
	}
	if m.store.Bool(settings.KeyAutoColorExtraction) {
		if scheme := m.extractCurrent(false); scheme != nil {
			m.useScheme(scheme)
		} else {
			m.logger.Info("no wallpaper colours, using theme defaults")
		}
	}

	outcome, err := m.update(ctx, updateForce)
	if outcome == Succeeded {
		m.notify("Overlay theme updated successfully")
	}
	return outcome, err
}

// ExtractColorsNow runs one colour pass. A forced pass bypasses the
// throttle, the unchanged wallpaper check and the extraction cache.
func (m *Manager) ExtractColorsNow(ctx context.Context, force bool) (Outcome, error) {
	if _, _, err := m.current(); err != nil {
		return Failed, err
	}
	switch d := m.monitor.Process(ctx, monitor.ReasonManual, force); d {
	case monitor.Processed:
		return Succeeded, nil
	case monitor.Failed:
		return Failed, fmt.Errorf("colour extraction failed")
	default:
		m.logger.Debug("colour extraction skipped", "decision", d)
		return Skipped, nil
	}
}

// DetectBorderRadius reads the radius declared by a theme and stores it in
// border-radius, which schedules an update. It returns false when the theme
// declares none.
func (m *Manager) DetectBorderRadius(name string) (int, bool) {
	return m.detectBorderRadius(name, false)
}

func (m *Manager) detectBorderRadius(name string, quiet bool) (int, bool) {
	r := m.cfg.Themes.DetectBorderRadius(name)
	if r == nil {
		m.logger.Info("no border radius detected, keeping current value", "theme", name)
		return 0, false
	}
	if m.store.Int(settings.KeyBorderRadius) == *r {
		m.logger.Debug("border radius already matches theme", "theme", name, "radius", *r)
		return *r, true
	}
	set := func() { _ = m.store.SetInt(settings.KeyBorderRadius, *r) }
	if quiet {
		m.derive(set)
	} else {
		set()
	}
	m.logger.Info("border radius detected", "theme", name, "radius", *r)
	m.notify(fmt.Sprintf("Detected border-radius: %dpx from %s", *r, name))
	return *r, true
}

// SwitchSourceTheme makes name the overlay source and rebuilds the overlay
// before returning, waiting for any running update or recreate.
func (m *Manager) SwitchSourceTheme(ctx context.Context, name string) error {
	m.derive(func() { _ = m.store.SetString(settings.KeyOverlaySourceTheme, name) })
	if m.store.Bool(settings.KeyAutoDetectRadius) {
		m.detectBorderRadius(name, true)
	}
	if !m.store.Bool(settings.KeyEnableOverlay) {
		return nil
	}
	switch outcome, err := m.create(ctx, name, true); outcome {
	case Failed:
		m.notify("Failed to recreate overlay")
		return err
	case Skipped:
		return fmt.Errorf("overlay not rebuilt from %s: %w", name, ErrDisabled)
	}
	return nil
}

// ApplyColorScheme makes scheme the current colours and re-renders.
func (m *Manager) ApplyColorScheme(ctx context.Context, scheme *colour.Scheme) error {
	m.useScheme(scheme)
	outcome, err := m.update(ctx, updateRefresh)
	if outcome == Failed {
		return err
	}
	if outcome == Succeeded {
		m.notify("Colors extracted and applied from background image")
	}
	return nil
}

// ExtractionFailed reports a wallpaper without usable colours.
func (m *Manager) ExtractionFailed(uri string) {
	m.logger.Info("colour extraction failed", "uri", uri)
	m.notify("No background image found or unable to extract colors")
}

// useScheme stores scheme as the current colours. In full-auto mode the
// border and shadow colours follow the scheme.
func (m *Manager) useScheme(scheme *colour.Scheme) {
	m.mu.Lock()
	m.scheme = scheme
	m.mu.Unlock()
	if scheme == nil || !m.store.Bool(settings.KeyFullAutoMode) {
		return
	}
	m.derive(func() {
		_ = m.store.SetString(settings.KeyBlurBorderColor, withAlpha(scheme.Accent, m.store.String(settings.KeyBlurBorderColor)))
		_ = m.store.SetString(settings.KeyShadowColor, scheme.Variants.Darker.CSS(m.store.Float(settings.KeyShadowStrength)))
	})
}

// deriveFromTheme writes the shadow colour suited to the theme brightness
// and the theme's accent as border colour unless full-auto mode owns them.
func (m *Manager) deriveFromTheme(desc *theme.Descriptor) {
	if m.store.Bool(settings.KeyFullAutoMode) {
		return
	}
	m.derive(func() {
		shadow := overlay.DefaultShadow(desc.Light).CSS(m.store.Float(settings.KeyShadowStrength))
		_ = m.store.SetString(settings.KeyShadowColor, shadow)
		if desc.Accent != nil {
			_ = m.store.SetString(settings.KeyBlurBorderColor, withAlpha(*desc.Accent, m.store.String(settings.KeyBlurBorderColor)))
		}
	})
}

func (m *Manager) extractCurrent(force bool) *colour.Scheme {
	dark := false
	if s, err := m.cfg.Appearance.ColorScheme(); err == nil {
		dark = desktop.PrefersDark(s)
	}
	uri, err := m.cfg.Wallpaper.URI(dark)
	if err != nil || uri == "" {
		return nil
	}
	path, err := veneerimage.PathFromURI(uri)
	if err != nil {
		return nil
	}
	return m.cfg.Extractor.Extract(path, colour.ExtractOptions{Force: force})
}

// sourceDescriptor returns the cached descriptor of the current source.
func (m *Manager) sourceDescriptor() (*theme.Descriptor, error) {
	m.mu.Lock()
	desc := m.source
	name := m.state.SourceTheme
	m.mu.Unlock()
	if desc != nil {
		return desc, nil
	}
	if name == "" {
		name = m.store.String(settings.KeyOverlaySourceTheme)
	}
	if name == "" {
		return nil, overlay.ErrNoSource
	}
	desc, ok := m.cfg.Themes.Discover(name)
	if !ok {
		return nil, m.notFound(name)
	}
	m.mu.Lock()
	m.source = desc
	m.mu.Unlock()
	return desc, nil
}

// commit stores st unless the manager was disabled meanwhile.
func (m *Manager) commit(gen uint64, st overlay.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation == gen {
		m.state = st
	}
}

func (m *Manager) notFound(name string) error {
	err := fmt.Errorf("%w: %s", theme.ErrNotFound, name)
	if s, ok := m.cfg.Themes.(interface{ Suggest(string) []string }); ok {
		if suggestions := s.Suggest(name); len(suggestions) > 0 {
			err = fmt.Errorf("%w (did you mean %s?)", err, strings.Join(suggestions, ", "))
		}
	}
	return err
}

// withAlpha renders rgb with the alpha of the CSS colour current, or 0.15.
func withAlpha(rgb colour.RGB, current string) string {
	alpha := 0.15
	if _, a, err := colour.ParseCSS(current); err == nil {
		alpha = a
	}
	return rgb.CSS(alpha)
}
