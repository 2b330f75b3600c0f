// Package lifecycle coordinates building, activating and updating the
// overlay theme in response to settings and desktop events.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/semaphore"

	"github.com/jmylchreest/veneer/internal/colour"
	"github.com/jmylchreest/veneer/internal/desktop"
	"github.com/jmylchreest/veneer/internal/monitor"
	"github.com/jmylchreest/veneer/internal/overlay"
	"github.com/jmylchreest/veneer/internal/settings"
	"github.com/jmylchreest/veneer/internal/theme"
)

// DefaultDebounceDelay is the quiet period before a settings change is
// rendered.
const DefaultDebounceDelay = 300 * time.Millisecond

// NotificationTitle is the title of every notification.
const NotificationTitle = "veneer"

// ErrDisabled is returned by operations on a disabled manager.
var ErrDisabled = errors.New("overlay manager is disabled")

// Outcome is the result of a lifecycle operation.
type Outcome int

const (
	Succeeded Outcome = iota
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Themes finds and inspects installed themes.
type Themes interface {
	Discover(name string) (*theme.Descriptor, bool)
	Invalidate(name string)
	DetectBorderRadius(name string) *int
	FindVariant(current string, preferDark bool) (string, bool)
}

// Builder renders overlay trees.
type Builder interface {
	Dir() string
	Name() string
	Build(src *theme.Descriptor, p settings.Params, scheme *colour.Scheme) (overlay.Result, error)
}

// Extractor produces colour schemes and persists its cache.
type Extractor interface {
	monitor.Extractor
	LoadCache(path string) error
	SaveCache(path string) error
}

// Config wires a Manager to its collaborators. Shell, Taskbar, Notifier and
// CachePath are optional.
type Config struct {
	Settings   settings.Store
	Themes     Themes
	Builder    Builder
	Extractor  Extractor
	GTK        desktop.ThemeSink
	Shell      desktop.ThemeSink
	Appearance desktop.Appearance
	Wallpaper  desktop.Wallpaper
	Notifier   desktop.Notifier
	Taskbar    desktop.Taskbar

	// CachePath is where the palette cache is loaded on Enable and saved on
	// Disable.
	CachePath string
	// ShellRunning defaults to desktop.ShellRunning.
	ShellRunning func() bool

	Logger hclog.Logger
	// BaseLevel is the log level used while debug-logging is off.
	BaseLevel hclog.Level

	DebounceDelay    time.Duration
	SettleDelay      time.Duration
	ShellReloadDelay time.Duration
	// Now drives the monitor's echo and throttle windows.
	Now func() time.Time
}

// Manager owns one overlay. Create it with New; it does nothing until
// Enable.
type Manager struct {
	cfg       Config
	store     settings.Store
	logger    hclog.Logger
	activator *overlay.Activator
	monitor   *monitor.Monitor
	debounce  *debouncer
	floating  *floatingPanel

	// deriving is non-zero while the manager writes values it computed
	// itself; reactions to those writes are suppressed.
	deriving atomic.Int32
	// recreating counts creates that are queued or running.
	recreating atomic.Int32

	mu         sync.Mutex
	enabled    bool
	generation uint64
	guard      *semaphore.Weighted
	ctx        context.Context
	cancel     context.CancelFunc
	subs       []settings.Subscription
	state      overlay.State
	source     *theme.Descriptor
	scheme     *colour.Scheme

	// updated runs after every completed update.
	updated func()
}

// New creates a Manager.
func New(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	if cfg.BaseLevel == hclog.NoLevel {
		cfg.BaseLevel = hclog.Info
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultDebounceDelay
	}
	if cfg.ShellReloadDelay <= 0 {
		cfg.ShellReloadDelay = overlay.DefaultShellReloadDelay
	}
	logger := cfg.Logger.Named("lifecycle")

	m := &Manager{
		cfg:      cfg,
		store:    cfg.Settings,
		logger:   logger,
		debounce: newDebouncer(cfg.DebounceDelay),
		floating: newFloatingPanel(cfg.Taskbar, logger),
		updated:  func() {},
	}
	m.activator = overlay.NewActivator(overlay.ActivatorConfig{
		Name:         cfg.Builder.Name(),
		GTK:          cfg.GTK,
		Shell:        cfg.Shell,
		Settings:     cfg.Settings,
		ShellRunning: cfg.ShellRunning,
		ReloadDelay:  cfg.ShellReloadDelay,
		Logger:       cfg.Logger,
	})
	m.monitor = monitor.New(monitor.Config{
		Settings:    cfg.Settings,
		Appearance:  cfg.Appearance,
		Wallpaper:   cfg.Wallpaper,
		Variants:    cfg.Themes,
		Extractor:   cfg.Extractor,
		Target:      m,
		Logger:      cfg.Logger,
		Now:         cfg.Now,
		SettleDelay: cfg.SettleDelay,
	})
	return m
}

// Enable starts managing the overlay: it creates or activates the overlay
// when enable-overlay-theme is set, subscribes to settings and starts the
// colour monitor. Enabling an enabled manager is a no-op.
func (m *Manager) Enable(ctx context.Context) (Outcome, error) {
	m.mu.Lock()
	if m.enabled {
		m.mu.Unlock()
		return Skipped, nil
	}
	m.enabled = true
	m.generation++
	m.guard = semaphore.NewWeighted(1)
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.state = overlay.LoadState(m.cfg.Builder.Dir())
	m.mu.Unlock()

	m.logger.Info("enabling", "overlay", m.cfg.Builder.Name())
	if m.cfg.CachePath != "" {
		if err := m.cfg.Extractor.LoadCache(m.cfg.CachePath); err != nil {
			m.logger.Warn("ignoring palette cache", "path", m.cfg.CachePath, "error", err)
		}
	}

	m.subscribe()
	m.applyTaskbarOpacity()

	outcome, err := Succeeded, error(nil)
	if m.store.Bool(settings.KeyEnableOverlay) {
		outcome, err = m.enableOverlay(ctx)
	}
	if m.store.Bool(settings.KeyFloatingPanel) && m.store.Bool(settings.KeyApplyPanelRadius) {
		m.floating.engage()
	}
	m.startMonitor(ctx)
	return outcome, err
}

// Disable stops all reactions, restores the original theme and the
// floating-panel state and saves the palette cache. After Disable returns no
// callback changes the manager's state.
func (m *Manager) Disable() {
	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return
	}
	m.enabled = false
	m.generation++
	guard := m.guard
	cancel := m.cancel
	subs := m.subs
	m.subs = nil
	m.mu.Unlock()

	m.logger.Info("disabling")
	m.debounce.Stop()
	m.monitor.Stop()
	for _, sub := range subs {
		m.store.Unsubscribe(sub)
	}

	// Wait for an in-flight build before restoring.
	_ = guard.Acquire(context.Background(), 1)
	st := m.State()
	if err := m.activator.RestoreOriginal(&st); err != nil {
		m.logger.Warn("failed to restore original theme", "error", err)
	}
	m.mu.Lock()
	m.state = st
	m.guard = nil
	m.mu.Unlock()
	guard.Release(1)

	m.floating.release()
	if m.cfg.CachePath != "" {
		if err := m.cfg.Extractor.SaveCache(m.cfg.CachePath); err != nil {
			m.logger.Warn("failed to save palette cache", "path", m.cfg.CachePath, "error", err)
		}
	}
	if cancel != nil {
		cancel()
	}
}

// Enabled reports whether the manager is enabled.
func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// State returns a copy of the overlay state.
func (m *Manager) State() overlay.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Scheme returns the colours currently applied, or nil.
func (m *Manager) Scheme() *colour.Scheme {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scheme
}

// enableOverlay resolves the source theme and creates or activates the
// overlay. A failed create turns enable-overlay-theme off.
func (m *Manager) enableOverlay(ctx context.Context) (Outcome, error) {
	source := m.resolveSource()
	st := m.State()

	if m.activator.NeedsRecreation(&st, source) {
		m.logger.Info("creating overlay", "source", source)
		outcome, err := m.create(ctx, source, false)
		switch outcome {
		case Succeeded:
			m.notify("Overlay theme created and activated")
		case Failed:
			m.logger.Error("failed to create overlay", "source", source, "error", err)
			m.derive(func() { _ = m.store.SetBool(settings.KeyEnableOverlay, false) })
			m.notify("Failed to create overlay theme")
		}
		return outcome, err
	}

	m.logger.Info("overlay up to date, activating", "source", source)
	return m.update(ctx, updateActivate)
}

// resolveSource picks the overlay source: the setting, re-synced to the GTK
// theme when that was changed outside the agent, else the current GTK
// theme.
func (m *Manager) resolveSource() string {
	name := m.cfg.Builder.Name()
	source := m.store.String(settings.KeyOverlaySourceTheme)
	current, err := m.cfg.GTK.Current()
	if err != nil {
		m.logger.Warn("failed to read GTK theme", "error", err)
		current = ""
	}

	switch {
	case source == "":
		source = current
		if source == "" || source == name {
			source = m.store.String(settings.KeyOriginalGTKTheme)
		}
		if source == "" {
			source = theme.DefaultTheme
		}
		m.logger.Info("no source theme set, using current GTK theme", "source", source)
	case current != "" && current != source && current != name:
		m.logger.Info("GTK theme changed externally", "setting", source, "current", current)
		source = current
	default:
		return source
	}
	m.derive(func() { _ = m.store.SetString(settings.KeyOverlaySourceTheme, source) })
	return source
}

func (m *Manager) startMonitor(ctx context.Context) {
	if m.store.Bool(settings.KeyAutoSwitchScheme) {
		if err := m.monitor.WatchColorScheme(m.lifetime()); err != nil {
			m.logger.Warn("colour-scheme monitoring unavailable", "error", err)
		}
	}
	if m.store.Bool(settings.KeyAutoColorExtraction) {
		if err := m.monitor.WatchWallpaper(m.lifetime()); err != nil {
			m.logger.Warn("wallpaper monitoring unavailable", "error", err)
		}
		m.monitor.Process(ctx, monitor.ReasonStartup, false)
	}
}

// lifetime returns the context that lives until Disable.
func (m *Manager) lifetime() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil {
		return context.Background()
	}
	return m.ctx
}

// current returns the guard and generation of the enabled manager.
func (m *Manager) current() (*semaphore.Weighted, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled || m.guard == nil {
		return nil, 0, ErrDisabled
	}
	return m.guard, m.generation, nil
}

// valid reports whether gen is still the live generation.
func (m *Manager) valid(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled && m.generation == gen
}

// derive runs fn with settings reactions suppressed.
func (m *Manager) derive(fn func()) {
	m.deriving.Add(1)
	defer m.deriving.Add(-1)
	fn()
}

func (m *Manager) muted() bool {
	return m.deriving.Load() > 0
}

// notify shows a notification when notifications are enabled.
func (m *Manager) notify(body string) {
	if m.cfg.Notifier == nil {
		return
	}
	if !m.store.Bool(settings.KeyNotifications) {
		m.logger.Debug("notification suppressed", "body", body)
		return
	}
	m.cfg.Notifier.Notify(NotificationTitle, body)
}

func (m *Manager) applyTaskbarOpacity() {
	if m.cfg.Taskbar == nil {
		return
	}
	opacity := m.store.Float(settings.KeyPanelOpacity)
	if err := m.cfg.Taskbar.SetOpacity(opacity); err != nil {
		m.logger.Warn("failed to set taskbar opacity", "error", err)
	}
}
