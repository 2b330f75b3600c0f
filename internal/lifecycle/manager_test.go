package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmylchreest/veneer/internal/colour"
	"github.com/jmylchreest/veneer/internal/desktop"
	"github.com/jmylchreest/veneer/internal/desktop/desktoptest"
	"github.com/jmylchreest/veneer/internal/overlay"
	"github.com/jmylchreest/veneer/internal/settings"
	"github.com/jmylchreest/veneer/internal/theme"
)

type fakeExtractor struct {
	mu     sync.Mutex
	scheme *colour.Scheme
	loads  int
	saves  int
}

func (e *fakeExtractor) Extract(string, colour.ExtractOptions) *colour.Scheme {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scheme
}

func (e *fakeExtractor) LoadCache(string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loads++
	return nil
}

func (e *fakeExtractor) SaveCache(string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saves++
	return nil
}

type fixture struct {
	themesRoot string
	store      *settings.Memory
	gtk        *desktoptest.ThemeSink
	shell      *desktoptest.ThemeSink
	appearance *desktoptest.Appearance
	notifier   *desktoptest.Notifier
	taskbar    *desktoptest.Taskbar
	extractor  *fakeExtractor
	builder    *overlay.Builder
	manager    *Manager
	updates    atomic.Int32
}

func writeTheme(t *testing.T, root, name, css string) {
	t.Helper()
	path := filepath.Join(root, name, theme.GTK3Stylesheet)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	css += "\n/* " + strings.Repeat("x", theme.MinStylesheetBytes) + " */\n"
	if err := os.WriteFile(path, []byte(css), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newFixture(t *testing.T, current string) *fixture {
	t.Helper()
	f := &fixture{
		themesRoot: t.TempDir(),
		store:      settings.NewMemory(),
		gtk:        desktoptest.NewThemeSink(current),
		shell:      desktoptest.NewThemeSink("Yaru"),
		appearance: desktoptest.NewAppearance(desktop.SchemeDefault),
		notifier:   &desktoptest.Notifier{},
		taskbar:    desktoptest.NewTaskbar(false),
		extractor:  &fakeExtractor{},
	}
	writeTheme(t, f.themesRoot, "Adwaita",
		"@define-color theme_bg_color #fafafa;\n@define-color accent_bg_color #3584e4;\nbutton { border-radius: 6px; }")
	writeTheme(t, f.themesRoot, "Foo-Light", "button { border-radius: 4px; }")
	writeTheme(t, f.themesRoot, "Foo-Dark", "button { border-radius: 4px; }")

	for key, v := range map[string]bool{
		settings.KeyAutoColorExtraction: false,
		settings.KeyAutoSwitchScheme:    false,
	} {
		if err := f.store.SetBool(key, v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := f.store.SetString(settings.KeyOverlaySourceTheme, "Adwaita"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b, err := overlay.NewBuilder(t.TempDir(), "Veneer", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.builder = b
	f.manager = New(Config{
		Settings:      f.store,
		Themes:        theme.NewDiscovery([]string{f.themesRoot}, nil, "Veneer"),
		Builder:       b,
		Extractor:     f.extractor,
		GTK:           f.gtk,
		Shell:         f.shell,
		Appearance:    f.appearance,
		Wallpaper:     desktoptest.NewWallpaper("file:///walls/day.png", "file:///walls/night.png"),
		Notifier:      f.notifier,
		Taskbar:       f.taskbar,
		CachePath:     filepath.Join(t.TempDir(), "cache.json.xz"),
		ShellRunning:  func() bool { return false },
		DebounceDelay: 20 * time.Millisecond,
		SettleDelay:   -1,
	})
	f.manager.updated = func() { f.updates.Add(1) }
	t.Cleanup(f.manager.Disable)
	return f
}

func (f *fixture) css(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.builder.Dir(), "gtk-3.0", "gtk.css"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return string(data)
}

func (f *fixture) current(t *testing.T) string {
	t.Helper()
	name, err := f.gtk.Current()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return name
}

func (f *fixture) sent(body string) bool {
	for _, n := range f.notifier.Sent() {
		if n.Body == body {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEnableDisableAdwaita(t *testing.T) {
	f := newFixture(t, "Adwaita")
	ctx := context.Background()

	outcome, err := f.manager.Enable(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != Succeeded {
		t.Fatalf("Enable = %s", outcome)
	}

	css := f.css(t)
	if !strings.Contains(css, filepath.Join(f.themesRoot, "Adwaita", theme.GTK3Stylesheet)) {
		t.Errorf("overlay does not import Adwaita:\n%s", css)
	}
	if !strings.Contains(css, "rgba(246, 245, 244, 0.6)") {
		t.Errorf("overlay does not carry panel opacity 0.6:\n%s", css)
	}
	if got := f.current(t); got != "Veneer" {
		t.Errorf("GTK theme = %q, want overlay", got)
	}
	if !f.sent("Overlay theme created and activated") {
		t.Errorf("notifications = %v", f.notifier.Sent())
	}
	if got := f.store.Int(settings.KeyBorderRadius); got != 12 {
		t.Errorf("border radius changed without a source change: %d", got)
	}
	if f.taskbar.Opacity() != 0.6 {
		t.Errorf("taskbar opacity = %v", f.taskbar.Opacity())
	}

	f.manager.Disable()
	if got := f.current(t); got != "Adwaita" {
		t.Errorf("GTK theme after Disable = %q, want Adwaita", got)
	}
	if shell, _ := f.shell.Current(); shell != "Yaru" {
		t.Errorf("shell theme after Disable = %q, want Yaru", shell)
	}
	if f.extractor.loads != 1 || f.extractor.saves != 1 {
		t.Errorf("cache loads/saves = %d/%d", f.extractor.loads, f.extractor.saves)
	}
}

func TestEnableTwice(t *testing.T) {
	f := newFixture(t, "Adwaita")
	if _, err := f.manager.Enable(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outcome, err := f.manager.Enable(context.Background())
	if err != nil || outcome != Skipped {
		t.Errorf("second Enable = %s, %v", outcome, err)
	}
}

func TestEnableSyncsExternalThemeChange(t *testing.T) {
	f := newFixture(t, "Foo-Light")
	if _, err := f.manager.Enable(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.store.String(settings.KeyOverlaySourceTheme); got != "Foo-Light" {
		t.Errorf("source theme = %q, want the current GTK theme", got)
	}
	if st := f.manager.State(); st.SourceTheme != "Foo-Light" {
		t.Errorf("overlay source = %q", st.SourceTheme)
	}
}

func TestCreateFailureDisablesOverlay(t *testing.T) {
	f := newFixture(t, "Missing")
	if err := f.store.SetString(settings.KeyOverlaySourceTheme, "Missing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outcome, err := f.manager.Enable(context.Background())
	if outcome != Failed || !errors.Is(err, theme.ErrNotFound) {
		t.Fatalf("Enable = %s, %v", outcome, err)
	}
	if f.store.Bool(settings.KeyEnableOverlay) {
		t.Error("enable-overlay-theme should be turned off")
	}
	if !f.sent("Failed to create overlay theme") {
		t.Errorf("notifications = %v", f.notifier.Sent())
	}
	if got := f.current(t); got != "Missing" {
		t.Errorf("GTK theme = %q, want untouched", got)
	}
}

func TestOperationsRequireEnable(t *testing.T) {
	f := newFixture(t, "Adwaita")
	ctx := context.Background()

	tests := []struct {
		name string
		op   func() (Outcome, error)
	}{
		{name: "recreate", op: func() (Outcome, error) { return f.manager.Recreate(ctx) }},
		{name: "update", op: func() (Outcome, error) { return f.manager.Update(ctx) }},
		{name: "apply", op: func() (Outcome, error) { return f.manager.ApplyNow(ctx) }},
		{name: "extract", op: func() (Outcome, error) { return f.manager.ExtractColorsNow(ctx, true) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := tt.op()
			if outcome != Failed || !errors.Is(err, ErrDisabled) {
				t.Errorf("got %s, %v", outcome, err)
			}
		})
	}
}

func TestRecreateAtMostOne(t *testing.T) {
	f := newFixture(t, "Adwaita")
	ctx := context.Background()
	if _, err := f.manager.Enable(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.gtk.BeforeSet = func(name string) {
		if name != "Veneer" {
			return
		}
		once.Do(func() {
			close(entered)
			<-release
		})
	}

	type result struct {
		outcome Outcome
		err     error
	}
	first := make(chan result, 1)
	go func() {
		o, err := f.manager.Recreate(ctx)
		first <- result{o, err}
	}()
	<-entered

	outcome, err := f.manager.Recreate(ctx)
	if err != nil || outcome != Skipped {
		t.Errorf("concurrent Recreate = %s, %v, want skipped", outcome, err)
	}
	close(release)

	r := <-first
	if r.err != nil || r.outcome != Succeeded {
		t.Errorf("first Recreate = %s, %v", r.outcome, r.err)
	}
}

func TestRecreateWaitsForUpdate(t *testing.T) {
	tests := []struct {
		name string
		run  func(ctx context.Context, m *Manager) error
		want string
	}{
		{
			name: "variant switch",
			run:  func(ctx context.Context, m *Manager) error { return m.SwitchSourceTheme(ctx, "Foo-Dark") },
			want: "Foo-Dark",
		},
		{
			name: "source setting",
			run: func(_ context.Context, m *Manager) error {
				return m.store.SetString(settings.KeyOverlaySourceTheme, "Foo-Light")
			},
			want: "Foo-Light",
		},
		{
			name: "recreate",
			run: func(ctx context.Context, m *Manager) error {
				m.derive(func() { _ = m.store.SetString(settings.KeyOverlaySourceTheme, "Foo-Light") })
				outcome, err := m.Recreate(ctx)
				if err == nil && outcome != Succeeded {
					return errors.New("recreate " + outcome.String())
				}
				return err
			},
			want: "Foo-Light",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "Adwaita")
			ctx := context.Background()
			if _, err := f.manager.Enable(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			// Hold the guard the way a running update does.
			guard, _, err := f.manager.current()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := guard.Acquire(ctx, 1); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			done := make(chan error, 1)
			go func() { done <- tt.run(ctx, f.manager) }()

			select {
			case err := <-done:
				guard.Release(1)
				t.Fatalf("returned while an update held the guard: %v", err)
			case <-time.After(30 * time.Millisecond):
			}
			guard.Release(1)
			if err := <-done; err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := f.store.String(settings.KeyOverlaySourceTheme); got != tt.want {
				t.Errorf("source setting = %q, want %q", got, tt.want)
			}
			if st := f.manager.State(); st.SourceTheme != tt.want {
				t.Errorf("overlay source = %q, want %q", st.SourceTheme, tt.want)
			}
			if css := f.css(t); !strings.Contains(css, "/"+tt.want+"/") {
				t.Errorf("overlay does not import %s:\n%s", tt.want, css)
			}
		})
	}
}

func TestDebounceCollapse(t *testing.T) {
	f := newFixture(t, "Adwaita")
	if _, err := f.manager.Enable(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, v := range []float64{0.1, 0.2, 0.3, 0.4} {
		if err := f.store.SetFloat(settings.KeyMenuOpacity, v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	waitFor(t, "debounced update", func() bool { return f.updates.Load() > 0 })
	time.Sleep(60 * time.Millisecond)

	if got := f.updates.Load(); got != 1 {
		t.Errorf("updates = %d, want 1", got)
	}
	if css := f.css(t); !strings.Contains(css, "rgba(255, 255, 255, 0.4)") {
		t.Errorf("overlay does not carry the last menu opacity:\n%s", css)
	}
}

func TestAutoUpdateOff(t *testing.T) {
	f := newFixture(t, "Adwaita")
	if err := f.store.SetBool(settings.KeyOverlayAutoUpdate, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.manager.Enable(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.store.SetFloat(settings.KeyMenuOpacity, 0.1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.manager.debounce.pending() {
		t.Error("update scheduled with overlay-auto-update off")
	}
}

func TestDerivedWritesDoNotScheduleUpdates(t *testing.T) {
	f := newFixture(t, "Adwaita")
	if _, err := f.manager.Enable(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.manager.Recreate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.store.String(settings.KeyBlurBorderColor); got != "rgba(53, 132, 228, 0.15)" {
		t.Errorf("border colour = %q, want the theme accent", got)
	}
	if got := f.store.String(settings.KeyShadowColor); got != "rgba(0, 0, 0, 0.3)" {
		t.Errorf("shadow colour = %q", got)
	}
	if f.manager.debounce.pending() {
		t.Error("derived writes scheduled an update")
	}
}

func TestRoundTripRestore(t *testing.T) {
	f := newFixture(t, "Adwaita")
	ctx := context.Background()
	if _, err := f.manager.Enable(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := f.manager.Recreate(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := f.store.SetInt(settings.KeyBorderRadius, i); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := f.manager.Update(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	f.manager.Disable()
	if got := f.current(t); got != "Adwaita" {
		t.Errorf("GTK theme = %q, want Adwaita", got)
	}
	if shell, _ := f.shell.Current(); shell != "Yaru" {
		t.Errorf("shell theme = %q, want Yaru", shell)
	}
}

func TestToggleOverlaySetting(t *testing.T) {
	f := newFixture(t, "Adwaita")
	if _, err := f.manager.Enable(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := f.store.SetBool(settings.KeyEnableOverlay, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.current(t); got != "Adwaita" {
		t.Errorf("GTK theme = %q after turning the overlay off", got)
	}
	if !f.sent("Overlay theme disabled") {
		t.Errorf("notifications = %v", f.notifier.Sent())
	}

	if err := f.store.SetBool(settings.KeyEnableOverlay, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.current(t); got != "Veneer" {
		t.Errorf("GTK theme = %q after turning the overlay on", got)
	}
}

func TestSourceThemeChangeRecreates(t *testing.T) {
	f := newFixture(t, "Adwaita")
	if _, err := f.manager.Enable(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.store.SetString(settings.KeyOverlaySourceTheme, "Foo-Light"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st := f.manager.State(); st.SourceTheme != "Foo-Light" {
		t.Errorf("overlay source = %q", st.SourceTheme)
	}
	if got := f.store.Int(settings.KeyBorderRadius); got != 4 {
		t.Errorf("border radius = %d, want the detected 4", got)
	}
}

func TestVariantSwitchFollowsColorScheme(t *testing.T) {
	f := newFixture(t, "Foo-Light")
	if err := f.store.SetBool(settings.KeyAutoSwitchScheme, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.manager.Enable(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := f.appearance.SetColorScheme(desktop.SchemePreferDark); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.store.String(settings.KeyOverlaySourceTheme); got != "Foo-Dark" {
		t.Errorf("source theme = %q, want Foo-Dark", got)
	}
	if st := f.manager.State(); st.SourceTheme != "Foo-Dark" {
		t.Errorf("overlay source = %q", st.SourceTheme)
	}
}

func TestApplyColorScheme(t *testing.T) {
	f := newFixture(t, "Adwaita")
	ctx := context.Background()
	if _, err := f.manager.Enable(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scheme := &colour.Scheme{
		Accent:   colour.RGB{R: 200, G: 40, B: 40},
		Variants: colour.Variants{PanelLight: colour.RGB{R: 230, G: 220, B: 210}, PopupLight: colour.RGB{R: 240, G: 235, B: 230}},
	}
	if err := f.manager.ApplyColorScheme(ctx, scheme); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if css := f.css(t); !strings.Contains(css, "rgba(230, 220, 210, 0.6)") {
		t.Errorf("overlay does not use extracted panel colour:\n%s", css)
	}
	if !f.sent("Colors extracted and applied from background image") {
		t.Errorf("notifications = %v", f.notifier.Sent())
	}
	if f.manager.Scheme() != scheme {
		t.Error("scheme not recorded")
	}
}

func TestApplyColorSchemeOverlayOff(t *testing.T) {
	f := newFixture(t, "Adwaita")
	ctx := context.Background()
	if err := f.store.SetBool(settings.KeyEnableOverlay, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.manager.Enable(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scheme := &colour.Scheme{Accent: colour.RGB{R: 200, G: 40, B: 40}}
	if err := f.manager.ApplyColorScheme(ctx, scheme); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.sent("Colors extracted and applied from background image") {
		t.Errorf("applied notification sent with the overlay off: %v", f.notifier.Sent())
	}
	if f.manager.Scheme() != scheme {
		t.Error("scheme not recorded")
	}
}

func TestApplyNowExtracts(t *testing.T) {
	f := newFixture(t, "Adwaita")
	ctx := context.Background()
	if _, err := f.manager.Enable(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.extractor.scheme = &colour.Scheme{Variants: colour.Variants{PanelLight: colour.RGB{R: 1, G: 2, B: 3}}}
	if err := f.store.SetBool(settings.KeyAutoColorExtraction, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outcome, err := f.manager.ApplyNow(ctx)
	if err != nil || outcome != Succeeded {
		t.Fatalf("ApplyNow = %s, %v", outcome, err)
	}
	if css := f.css(t); !strings.Contains(css, "rgba(1, 2, 3, 0.6)") {
		t.Errorf("overlay does not use extracted colours:\n%s", css)
	}
	if !f.sent("Overlay theme updated successfully") {
		t.Errorf("notifications = %v", f.notifier.Sent())
	}
}

func TestNotificationsDisabled(t *testing.T) {
	f := newFixture(t, "Adwaita")
	if err := f.store.SetBool(settings.KeyNotifications, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.manager.Enable(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := f.notifier.Sent(); len(n) != 0 {
		t.Errorf("notifications sent while disabled: %v", n)
	}
}

func TestNoCallbacksAfterDisable(t *testing.T) {
	f := newFixture(t, "Adwaita")
	f.manager.debounce = newDebouncer(100 * time.Millisecond)
	if _, err := f.manager.Enable(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.store.SetFloat(settings.KeyMenuOpacity, 0.1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.manager.Disable()
	if err := f.store.SetFloat(settings.KeyMenuOpacity, 0.2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.manager.debounce.pending() {
		t.Error("update still scheduled after Disable")
	}
	time.Sleep(200 * time.Millisecond)
	if got := f.updates.Load(); got != 0 {
		t.Errorf("updates after Disable = %d", got)
	}
}
