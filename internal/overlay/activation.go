package overlay

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/veneer/internal/desktop"
	"github.com/jmylchreest/veneer/internal/settings"
)

// DefaultShellReloadDelay separates clearing and re-setting the shell theme
// when the shell must reload an already active overlay.
const DefaultShellReloadDelay = 100 * time.Millisecond

// ActivatorConfig configures an Activator.
type ActivatorConfig struct {
	// Name is the overlay theme name.
	Name string
	GTK  desktop.ThemeSink
	// Shell may be nil when the user-theme extension is absent.
	Shell    desktop.ThemeSink
	Settings settings.Store
	// ShellRunning reports whether a shell process is alive. Defaults to
	// desktop.ShellRunning.
	ShellRunning func() bool
	ReloadDelay  time.Duration
	Logger       hclog.Logger
}

// Activator switches the desktop to the overlay and back.
type Activator struct {
	name         string
	gtk          desktop.ThemeSink
	shell        desktop.ThemeSink
	store        settings.Store
	shellRunning func() bool
	reloadDelay  time.Duration
	sleep        func(time.Duration)
	logger       hclog.Logger
}

// NewActivator creates an Activator.
func NewActivator(cfg ActivatorConfig) *Activator {
	a := &Activator{
		name:         cfg.Name,
		gtk:          cfg.GTK,
		shell:        cfg.Shell,
		store:        cfg.Settings,
		shellRunning: cfg.ShellRunning,
		reloadDelay:  cfg.ReloadDelay,
		sleep:        time.Sleep,
		logger:       cfg.Logger,
	}
	if a.shellRunning == nil {
		a.shellRunning = desktop.ShellRunning
	}
	if a.logger == nil {
		a.logger = hclog.NewNullLogger()
	}
	a.logger = a.logger.Named("activation")
	return a
}

// Activate makes the overlay the current GTK and shell theme. The themes it
// replaces are remembered on first activation so RestoreOriginal can put
// them back.
func (a *Activator) Activate(st *State) error {
	current, err := a.gtk.Current()
	if err != nil {
		return fmt.Errorf("failed to read current GTK theme: %w", err)
	}

	if !st.Snapshot {
		a.snapshot(st, current)
	}

	if current == a.name {
		// Already active: bounce through the source so GTK rereads the files.
		if st.SourceTheme != "" {
			if err := a.gtk.Set(st.SourceTheme); err != nil {
				return fmt.Errorf("failed to reload GTK theme: %w", err)
			}
		}
	}
	if err := a.gtk.Set(a.name); err != nil {
		return fmt.Errorf("failed to set GTK theme: %w", err)
	}
	if err := a.applyShell(); err != nil {
		return fmt.Errorf("failed to set shell theme: %w", err)
	}

	st.Active = true
	a.logger.Info("overlay activated", "theme", a.name, "original", st.OriginalGTK)
	return nil
}

func (a *Activator) snapshot(st *State, current string) {
	if current != a.name {
		st.OriginalGTK = current
		st.OriginalShell = ""
		if a.shell != nil {
			if shell, err := a.shell.Current(); err == nil && shell != a.name {
				st.OriginalShell = shell
			}
		}
	} else if a.store != nil {
		// The overlay survived a restart; the snapshot lives in settings.
		st.OriginalGTK = a.store.String(settings.KeyOriginalGTKTheme)
		st.OriginalShell = a.store.String(settings.KeyOriginalShellTheme)
	}
	if st.OriginalGTK == "" {
		a.logger.Warn("no original theme to remember", "current", current)
		return
	}
	st.Snapshot = true

	if a.store == nil {
		return
	}
	if err := a.store.SetString(settings.KeyOriginalGTKTheme, st.OriginalGTK); err != nil {
		a.logger.Warn("failed to persist original GTK theme", "error", err)
	}
	if err := a.store.SetString(settings.KeyOriginalShellTheme, st.OriginalShell); err != nil {
		a.logger.Warn("failed to persist original shell theme", "error", err)
	}
}

func (a *Activator) applyShell() error {
	if a.shell == nil {
		return nil
	}
	current, err := a.shell.Current()
	if err != nil {
		return err
	}
	if current == a.name && a.shellRunning() {
		if err := a.shell.Set(""); err != nil {
			return err
		}
		a.sleep(a.reloadDelay)
	}
	return a.shell.Set(a.name)
}

// Refresh makes the desktop reload an overlay that was rebuilt in place.
func (a *Activator) Refresh(st *State) error {
	if !st.Active {
		return nil
	}
	if st.SourceTheme != "" {
		if err := a.gtk.Set(st.SourceTheme); err != nil {
			return fmt.Errorf("failed to reload GTK theme: %w", err)
		}
	}
	if err := a.gtk.Set(a.name); err != nil {
		return fmt.Errorf("failed to reload GTK theme: %w", err)
	}
	if err := a.applyShell(); err != nil {
		return fmt.Errorf("failed to reload shell theme: %w", err)
	}
	a.logger.Debug("overlay refreshed", "theme", a.name)
	return nil
}

// RestoreOriginal switches back to the remembered themes. It acts once per
// snapshot; later calls are no-ops. Themes the user changed away from the
// overlay are left alone.
func (a *Activator) RestoreOriginal(st *State) error {
	st.Active = false
	if !st.Snapshot {
		return nil
	}

	var errs []error
	if current, err := a.gtk.Current(); err != nil || current == a.name {
		if err := a.gtk.Set(st.OriginalGTK); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore GTK theme: %w", err))
		}
	}
	if a.shell != nil {
		if current, err := a.shell.Current(); err != nil || current == a.name {
			if err := a.shell.Set(st.OriginalShell); err != nil {
				errs = append(errs, fmt.Errorf("failed to restore shell theme: %w", err))
			}
		}
	}

	a.logger.Info("original theme restored", "theme", st.OriginalGTK)
	st.Snapshot = false
	st.OriginalGTK = ""
	st.OriginalShell = ""
	if a.store != nil {
		_ = a.store.SetString(settings.KeyOriginalGTKTheme, "")
		_ = a.store.SetString(settings.KeyOriginalShellTheme, "")
	}
	return errors.Join(errs...)
}

// NeedsRecreation reports whether the overlay must be rebuilt to serve
// source.
func (a *Activator) NeedsRecreation(st *State, source string) bool {
	if st.SourceTheme == "" || st.SourceTheme != source || st.Dir == "" {
		return true
	}
	if _, err := os.Stat(filepath.Join(st.Dir, MarkerFile)); err != nil {
		return true
	}
	return false
}
