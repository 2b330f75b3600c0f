package lifecycle

import (
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/veneer/internal/desktop"
	"github.com/jmylchreest/veneer/internal/monitor"
	"github.com/jmylchreest/veneer/internal/settings"
)

// subscribe registers every settings reaction.
func (m *Manager) subscribe() {
	handlers := map[string]func(){
		settings.KeyPanelOpacity: func() {
			m.applyTaskbarOpacity()
			m.styleChanged()
		},
		settings.KeyApplyPanelRadius: func() {
			m.syncFloatingPanel()
			m.styleChanged()
		},
		settings.KeyAutoDetectRadius:    m.autoDetectRadiusChanged,
		settings.KeyEnableOverlay:       m.enableOverlayChanged,
		settings.KeyOverlaySourceTheme:  m.sourceThemeChanged,
		settings.KeyTriggerApply:        func() { _, _ = m.ApplyNow(m.lifetime()) },
		settings.KeyTriggerRecreate:     func() { _, _ = m.Recreate(m.lifetime()) },
		settings.KeyTriggerExtraction:   func() { _, _ = m.ExtractColorsNow(m.lifetime(), true) },
		settings.KeyAutoColorExtraction: m.autoExtractionChanged,
		settings.KeyAutoSwitchScheme:    m.autoSwitchChanged,
		settings.KeyFloatingPanel:       m.syncFloatingPanel,
		settings.KeyDebugLogging:        m.debugLoggingChanged,
	}
	for _, key := range settings.StyleKeys {
		if _, ok := handlers[key]; !ok {
			handlers[key] = m.styleChanged
		}
	}

	subs := make([]settings.Subscription, 0, len(handlers))
	for key, fn := range handlers {
		subs = append(subs, m.store.Subscribe(key, m.reaction(key, fn)))
	}
	m.mu.Lock()
	m.subs = append(m.subs, subs...)
	m.mu.Unlock()
}

// reaction wraps fn so it runs only while enabled and never for values the
// manager derived itself.
func (m *Manager) reaction(key string, fn func()) func(string) {
	return func(string) {
		if m.muted() {
			return
		}
		if _, _, err := m.current(); err != nil {
			return
		}
		m.logger.Debug("setting changed", "key", key)
		fn()
	}
}

// styleChanged schedules a debounced update.
func (m *Manager) styleChanged() {
	if !m.store.Bool(settings.KeyEnableOverlay) || !m.store.Bool(settings.KeyOverlayAutoUpdate) {
		return
	}
	_, gen, err := m.current()
	if err != nil {
		return
	}
	m.debounce.Trigger(func() {
		if !m.valid(gen) {
			return
		}
		if _, err := m.Update(m.lifetime()); err != nil {
			m.logger.Warn("debounced overlay update failed", "error", err)
		}
	})
}

func (m *Manager) enableOverlayChanged() {
	ctx := m.lifetime()
	if m.store.Bool(settings.KeyEnableOverlay) {
		m.logger.Info("overlay theme enabled")
		if _, err := m.enableOverlay(ctx); err != nil {
			m.logger.Warn("failed to enable overlay", "error", err)
		}
		return
	}

	m.logger.Info("overlay theme disabled")
	m.debounce.Stop()
	guard, gen, err := m.current()
	if err != nil {
		return
	}
	if err := guard.Acquire(ctx, 1); err != nil {
		return
	}
	st := m.State()
	restoreErr := m.activator.RestoreOriginal(&st)
	m.commit(gen, st)
	guard.Release(1)

	m.floating.release()
	if restoreErr != nil {
		m.logger.Warn("failed to restore original theme", "error", restoreErr)
		m.notify("Error disabling overlay: " + restoreErr.Error())
		return
	}
	m.notify("Overlay theme disabled")
}

func (m *Manager) sourceThemeChanged() {
	ctx := m.lifetime()
	source := m.store.String(settings.KeyOverlaySourceTheme)
	m.logger.Info("overlay source theme changed", "source", source)

	if source != "" && m.store.Bool(settings.KeyAutoDetectRadius) {
		m.detectBorderRadius(source, true)
	}
	if m.store.Bool(settings.KeyEnableOverlay) {
		if _, err := m.recreate(ctx, true); err != nil {
			m.logger.Warn("recreate after source change failed", "error", err)
		}
	} else {
		m.logger.Info("overlay disabled, source theme used on next enable")
	}
	if m.store.Bool(settings.KeyAutoColorExtraction) {
		m.monitor.Process(ctx, monitor.ReasonSourceChange, false)
	}
}

func (m *Manager) autoDetectRadiusChanged() {
	if !m.store.Bool(settings.KeyAutoDetectRadius) {
		return
	}
	if source := m.store.String(settings.KeyOverlaySourceTheme); source != "" {
		m.DetectBorderRadius(source)
	}
}

func (m *Manager) autoExtractionChanged() {
	if m.store.Bool(settings.KeyAutoColorExtraction) {
		if err := m.monitor.WatchWallpaper(m.lifetime()); err != nil {
			m.logger.Warn("wallpaper monitoring unavailable", "error", err)
		}
		return
	}
	m.monitor.StopWallpaper()
}

func (m *Manager) autoSwitchChanged() {
	if !m.store.Bool(settings.KeyAutoSwitchScheme) {
		m.monitor.StopColorScheme()
		return
	}
	// Align the desktop preference with the source theme before following it.
	if source := m.store.String(settings.KeyOverlaySourceTheme); source != "" {
		if err := m.cfg.Appearance.SetColorScheme(desktop.SchemeForTheme(source)); err != nil {
			m.logger.Warn("failed to set colour scheme", "error", err)
		}
	}
	if err := m.monitor.WatchColorScheme(m.lifetime()); err != nil {
		m.logger.Warn("colour-scheme monitoring unavailable", "error", err)
	}
}

func (m *Manager) syncFloatingPanel() {
	if m.store.Bool(settings.KeyFloatingPanel) && m.store.Bool(settings.KeyApplyPanelRadius) {
		m.floating.engage()
		return
	}
	m.floating.release()
}

func (m *Manager) debugLoggingChanged() {
	level := m.cfg.BaseLevel
	if m.store.Bool(settings.KeyDebugLogging) {
		level = hclog.Debug
	}
	m.cfg.Logger.SetLevel(level)
	m.logger.Info("log level changed", "level", level)
}
