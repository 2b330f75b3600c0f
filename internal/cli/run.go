package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/veneer/internal/colour"
	"github.com/jmylchreest/veneer/internal/desktop"
	"github.com/jmylchreest/veneer/internal/lifecycle"
	"github.com/jmylchreest/veneer/internal/logging"
	"github.com/jmylchreest/veneer/internal/overlay"
)

var (
	runTaskbarSchema string
	runTemplateDir   string
)

// runCmd starts the agent.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the theming agent",
	Long: `Run the theming agent in the foreground.

The agent builds the overlay theme, activates it and keeps it up to date
until it receives SIGINT or SIGTERM, at which point the original themes
are restored.

Signals:
  SIGHUP   recreate the overlay from its source theme
  SIGUSR1  apply the current settings now`,
	Args: cobra.NoArgs,
	RunE: runAgent,
}

func init() {
	runCmd.Flags().StringVar(&runTaskbarSchema, "taskbar-schema", desktop.DefaultTaskbarSchema, "gsettings schema of the taskbar extension")
	runCmd.Flags().StringVar(&runTemplateDir, "template-dir", overlay.DefaultTemplateDir(), "directory with template overrides")
}

func runAgent(cmd *cobra.Command, _ []string) error {
	logger := newLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openSettings(logger)
	if err != nil {
		return err
	}
	logging.ApplySetting(logger, store, globalVerbose)
	if err := store.Watch(ctx); err != nil {
		logger.Warn("settings hot reload unavailable", "error", err)
	}

	root, err := overlayRoot()
	if err != nil {
		return err
	}
	builder, err := overlay.NewBuilder(root, overlay.DefaultName, logger, overlay.WithTemplateDir(runTemplateDir))
	if err != nil {
		return fmt.Errorf("failed to prepare overlay builder: %w", err)
	}

	cachePath, err := colour.DefaultCachePath()
	if err != nil {
		logger.Warn("palette cache disabled", "error", err)
	}

	iface := desktop.NewInterfaceSettings()
	cfg := lifecycle.Config{
		Settings:   store,
		Themes:     newDiscovery(logger),
		Builder:    builder,
		Extractor:  colour.NewExtractor(logger),
		GTK:        iface.GTKTheme(),
		Shell:      desktop.NewShellTheme(ctx),
		Appearance: iface,
		Wallpaper:  desktop.NewBackgroundSettings(),
		Notifier:   desktop.NewCommandNotifier(lifecycle.NotificationTitle, logger),
		CachePath:  cachePath,
		Logger:     logger,
		BaseLevel:  logging.BaseLevel(globalVerbose),
	}
	// A nil *TaskbarSettings must not become a non-nil interface.
	if tb := desktop.NewTaskbar(ctx, runTaskbarSchema); tb != nil {
		cfg.Taskbar = tb
	}

	manager := lifecycle.New(cfg)
	outcome, err := manager.Enable(ctx)
	if err != nil {
		logger.Error("overlay could not be enabled", "outcome", outcome, "error", err)
	}
	defer manager.Disable()

	logger.Info("agent running", "overlay", builder.Dir(), "settings", store.Path())
	return waitForSignals(ctx, manager)
}

// waitForSignals serves SIGHUP and SIGUSR1 until ctx is done.
func waitForSignals(ctx context.Context, manager *lifecycle.Manager) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGUSR1)
	defer signal.Stop(signals)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-signals:
			switch sig {
			case syscall.SIGHUP:
				_, _ = manager.Recreate(ctx)
			case syscall.SIGUSR1:
				_, _ = manager.ApplyNow(ctx)
			}
		}
	}
}
