// Package monitor reacts to dark/light toggles and wallpaper changes,
// deciding when to switch theme variants and when to re-extract colours.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/veneer/internal/colour"
	"github.com/jmylchreest/veneer/internal/desktop"
	veneerimage "github.com/jmylchreest/veneer/internal/image"
	"github.com/jmylchreest/veneer/internal/settings"
)

// Timing defaults.
const (
	DefaultEchoWindow  = 5 * time.Second
	DefaultThrottle    = time.Second
	DefaultSettleDelay = 500 * time.Millisecond
)

// Processing reasons passed to Process.
const (
	ReasonSchemeSwitch   = "color-scheme-switch"
	ReasonSchemeComplete = "color-scheme-complete"
	ReasonWallpaperLight = "wallpaper-change-light"
	ReasonWallpaperDark  = "wallpaper-change-dark"
	ReasonManual         = "manual"
	ReasonSourceChange   = "theme-source-change"
	ReasonStartup        = "startup"
)

// Decision is the result of a processing pass.
type Decision int

const (
	// Processed means colours were extracted and handed to the target.
	Processed Decision = iota
	// Throttled means the pass came too soon after the previous one.
	Throttled
	// Unchanged means the wallpaper is the one processed last.
	Unchanged
	// Suspended means a theme variant switch is in progress.
	Suspended
	// Disabled means automatic extraction is off and the pass was not forced.
	Disabled
	// Failed means there was no usable wallpaper or extraction failed.
	Failed
	// Echo means a colour-scheme signal repeated the previous value.
	Echo
)

func (d Decision) String() string {
	switch d {
	case Processed:
		return "processed"
	case Throttled:
		return "throttled"
	case Unchanged:
		return "unchanged"
	case Suspended:
		return "suspended"
	case Disabled:
		return "disabled"
	case Failed:
		return "failed"
	case Echo:
		return "echo"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

// VariantFinder looks up the dark or light sibling of a theme.
type VariantFinder interface {
	FindVariant(current string, preferDark bool) (string, bool)
}

// Extractor produces colour schemes from images.
type Extractor interface {
	Extract(path string, opts colour.ExtractOptions) *colour.Scheme
}

// Target receives the monitor's decisions.
type Target interface {
	// SwitchSourceTheme changes the overlay source and rebuilds it before
	// returning.
	SwitchSourceTheme(ctx context.Context, name string) error
	// ApplyColorScheme feeds extracted colours into the overlay.
	ApplyColorScheme(ctx context.Context, scheme *colour.Scheme) error
	// ExtractionFailed reports a wallpaper that yielded no colours.
	ExtractionFailed(uri string)
}

// Config configures a Monitor.
type Config struct {
	Settings   settings.Store
	Appearance desktop.Appearance
	Wallpaper  desktop.Wallpaper
	Variants   VariantFinder
	Extractor  Extractor
	Target     Target
	Logger     hclog.Logger

	// Now defaults to time.Now.
	Now         func() time.Time
	EchoWindow  time.Duration
	Throttle    time.Duration
	// SettleDelay is waited after a variant switch. Negative disables it.
	SettleDelay time.Duration
}

// Monitor tracks colour-scheme and wallpaper state. It is safe for
// concurrent use.
type Monitor struct {
	cfg    Config
	logger hclog.Logger

	mu            sync.Mutex
	lastScheme    string
	lastSchemeAt  time.Time
	lastProcessed time.Time
	lastURI       string
	suspended     bool

	schemeCancel    context.CancelFunc
	wallpaperCancel context.CancelFunc
}

// New creates a Monitor.
func New(cfg Config) *Monitor {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.EchoWindow <= 0 {
		cfg.EchoWindow = DefaultEchoWindow
	}
	if cfg.Throttle <= 0 {
		cfg.Throttle = DefaultThrottle
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Monitor{cfg: cfg, logger: logger.Named("monitor")}
}

// HandleColorScheme reacts to a colour-scheme change. When the source theme
// has a sibling matching the new preference, wallpaper processing is
// suspended while the target switches to it, then colours are processed
// once.
func (m *Monitor) HandleColorScheme(ctx context.Context, scheme string) Decision {
	now := m.cfg.Now()
	m.mu.Lock()
	if scheme == m.lastScheme && !m.lastSchemeAt.IsZero() && now.Sub(m.lastSchemeAt) < m.cfg.EchoWindow {
		m.mu.Unlock()
		m.logger.Debug("ignoring repeated colour-scheme signal", "scheme", scheme)
		return Echo
	}
	m.lastScheme = scheme
	m.lastSchemeAt = now
	m.mu.Unlock()

	current := m.cfg.Settings.String(settings.KeyOverlaySourceTheme)
	preferDark := desktop.PrefersDark(scheme)
	m.logger.Info("colour scheme changed", "scheme", scheme, "theme", current)

	variant, ok := "", false
	if current != "" && m.cfg.Variants != nil {
		variant, ok = m.cfg.Variants.FindVariant(current, preferDark)
	}
	if !ok || variant == current {
		return m.Process(ctx, ReasonSchemeSwitch, false)
	}

	m.logger.Info("switching theme variant", "from", current, "to", variant)
	m.setSuspended(true)
	err := m.cfg.Target.SwitchSourceTheme(ctx, variant)
	if err == nil {
		err = m.settle(ctx)
	}
	m.setSuspended(false)
	if err != nil {
		m.logger.Warn("theme variant switch failed", "theme", variant, "error", err)
		return Failed
	}
	return m.Process(ctx, ReasonSchemeComplete, false)
}

// HandleWallpaper reacts to a change of the light or dark wallpaper.
func (m *Monitor) HandleWallpaper(ctx context.Context, dark bool) Decision {
	reason := ReasonWallpaperLight
	if dark {
		reason = ReasonWallpaperDark
	}
	return m.Process(ctx, reason, false)
}

// Process extracts colours from the wallpaper of the current colour scheme
// and hands them to the target. Unless forced, passes during a variant
// switch, passes within the throttle interval of the previous one, passes
// while automatic extraction is off and passes for an unchanged wallpaper
// are dropped.
func (m *Monitor) Process(ctx context.Context, reason string, force bool) Decision {
	now := m.cfg.Now()
	m.mu.Lock()
	if !force && m.suspended {
		m.mu.Unlock()
		m.logger.Debug("colour processing suspended during variant switch", "reason", reason)
		return Suspended
	}
	if !force && !m.lastProcessed.IsZero() && now.Sub(m.lastProcessed) < m.cfg.Throttle {
		m.mu.Unlock()
		m.logger.Debug("throttling colour processing", "reason", reason)
		return Throttled
	}
	m.lastProcessed = now
	m.mu.Unlock()

	if !force && !m.cfg.Settings.Bool(settings.KeyAutoColorExtraction) {
		return Disabled
	}
	m.logger.Info("processing colours", "reason", reason, "forced", force)

	dark := false
	if s, err := m.cfg.Appearance.ColorScheme(); err == nil {
		dark = desktop.PrefersDark(s)
	}
	uri, err := m.cfg.Wallpaper.URI(dark)
	if err != nil {
		m.logger.Warn("failed to read wallpaper", "dark", dark, "error", err)
		m.cfg.Target.ExtractionFailed("")
		return Failed
	}

	m.mu.Lock()
	if !force && uri == m.lastURI && uri != "" {
		m.mu.Unlock()
		m.logger.Debug("wallpaper unchanged", "uri", uri)
		return Unchanged
	}
	m.lastURI = uri
	m.mu.Unlock()

	path, err := veneerimage.PathFromURI(uri)
	if err != nil {
		m.logger.Info("wallpaper is not a local file", "uri", uri, "error", err)
		m.cfg.Target.ExtractionFailed(uri)
		return Failed
	}
	scheme := m.cfg.Extractor.Extract(path, colour.ExtractOptions{Force: force})
	if scheme == nil {
		m.cfg.Target.ExtractionFailed(uri)
		return Failed
	}
	if err := m.cfg.Target.ApplyColorScheme(ctx, scheme); err != nil {
		m.logger.Warn("failed to apply extracted colours", "error", err)
		return Failed
	}
	return Processed
}

// WatchColorScheme starts following colour-scheme changes. Calling it while
// already watching does nothing.
func (m *Monitor) WatchColorScheme(ctx context.Context) error {
	m.mu.Lock()
	if m.schemeCancel != nil {
		m.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	m.schemeCancel = cancel
	m.mu.Unlock()

	err := m.cfg.Appearance.Watch(ctx, func(scheme string) {
		if ctx.Err() != nil {
			return
		}
		m.HandleColorScheme(ctx, scheme)
	})
	if err != nil {
		m.StopColorScheme()
		return fmt.Errorf("failed to watch colour scheme: %w", err)
	}
	m.logger.Debug("colour-scheme monitoring started")
	return nil
}

// StopColorScheme stops following colour-scheme changes.
func (m *Monitor) StopColorScheme() {
	m.mu.Lock()
	cancel := m.schemeCancel
	m.schemeCancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
		m.logger.Debug("colour-scheme monitoring stopped")
	}
}

// WatchWallpaper starts following wallpaper changes. Calling it while
// already watching does nothing.
func (m *Monitor) WatchWallpaper(ctx context.Context) error {
	m.mu.Lock()
	if m.wallpaperCancel != nil {
		m.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	m.wallpaperCancel = cancel
	m.mu.Unlock()

	err := m.cfg.Wallpaper.Watch(ctx, func(dark bool, _ string) {
		if ctx.Err() != nil {
			return
		}
		m.HandleWallpaper(ctx, dark)
	})
	if err != nil {
		m.StopWallpaper()
		return fmt.Errorf("failed to watch wallpaper: %w", err)
	}
	m.logger.Debug("wallpaper monitoring started")
	return nil
}

// StopWallpaper stops following wallpaper changes.
func (m *Monitor) StopWallpaper() {
	m.mu.Lock()
	cancel := m.wallpaperCancel
	m.wallpaperCancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
		m.logger.Debug("wallpaper monitoring stopped")
	}
}

// Stop ends all monitoring and forgets tracked state.
func (m *Monitor) Stop() {
	m.StopColorScheme()
	m.StopWallpaper()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastScheme = ""
	m.lastSchemeAt = time.Time{}
	m.lastProcessed = time.Time{}
	m.lastURI = ""
	m.suspended = false
}

func (m *Monitor) settle(ctx context.Context) error {
	if m.cfg.SettleDelay <= 0 {
		return nil
	}
	t := time.NewTimer(m.cfg.SettleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *Monitor) setSuspended(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspended = v
}
