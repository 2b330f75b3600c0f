// Package cli provides the command-line interface for veneer.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jmylchreest/veneer/internal/logging"
	"github.com/jmylchreest/veneer/internal/overlay"
	"github.com/jmylchreest/veneer/internal/settings"
	"github.com/jmylchreest/veneer/internal/theme"
	"github.com/jmylchreest/veneer/internal/version"
)

// Environment fallbacks for the global flags.
const (
	envSettings   = "VENEER_SETTINGS"
	envOverlayDir = "VENEER_OVERLAY_DIR"
	envThemeDirs  = "VENEER_THEME_DIRS"
)

var (
	// Global flags
	globalVerbose    bool
	globalSettings   string
	globalOverlayDir string
	globalThemeDirs  []string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "veneer",
		Short: "Translucent overlay themes for the GNOME desktop",
		Long: `Veneer builds a translucent overlay on top of the installed GTK theme and
keeps it in step with your settings, the desktop colour scheme and the
wallpaper.

Run the agent with "veneer run". The other commands edit the shared settings
file, which a running agent picks up immediately.`,
		Version:      version.Short(),
		SilenceUsage: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&globalSettings, "settings", os.Getenv(envSettings),
		"settings file (default ~/.config/veneer/settings.yaml, env "+envSettings+")")
	rootCmd.PersistentFlags().StringVar(&globalOverlayDir, "overlay-dir", os.Getenv(envOverlayDir),
		"directory the overlay theme is written to (default ~/.themes, env "+envOverlayDir+")")
	rootCmd.PersistentFlags().StringSliceVar(&globalThemeDirs, "theme-dirs", splitDirs(os.Getenv(envThemeDirs)),
		"theme search directories in lookup order (env "+envThemeDirs+", colon separated)")

	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)
	rootCmd.SetVersionTemplate(version.String() + "\n")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(enableCmd, disableCmd, applyCmd, recreateCmd, refreshColorsCmd)
	rootCmd.AddCommand(extractCmd, detectRadiusCmd, themesCmd, statusCmd)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print detailed version information including build date, commit hash, and Go version.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func newLogger() hclog.Logger {
	return logging.New(logging.Options{Verbose: globalVerbose})
}

func settingsPath() (string, error) {
	if globalSettings != "" {
		return globalSettings, nil
	}
	return settings.DefaultPath()
}

func openSettings(logger hclog.Logger) (*settings.File, error) {
	path, err := settingsPath()
	if err != nil {
		return nil, err
	}
	return settings.OpenFile(path, logger)
}

func overlayRoot() (string, error) {
	if globalOverlayDir != "" {
		return globalOverlayDir, nil
	}
	return overlay.DefaultRoot()
}

func themeRoots() []string {
	if len(globalThemeDirs) > 0 {
		return globalThemeDirs
	}
	return theme.DefaultSearchRoots()
}

func newDiscovery(logger hclog.Logger) *theme.Discovery {
	return theme.NewDiscovery(themeRoots(), logger, overlay.DefaultName)
}

// normalizeFlagName accepts underscores in flag names, so --overlay_dir
// works like --overlay-dir.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// splitDirs splits a colon separated list, dropping empty entries.
func splitDirs(list string) []string {
	var dirs []string
	for _, dir := range strings.Split(list, string(filepath.ListSeparator)) {
		if dir = strings.TrimSpace(dir); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
