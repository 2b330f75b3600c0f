package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/veneer/internal/overlay"
	"github.com/jmylchreest/veneer/internal/settings"
	"github.com/jmylchreest/veneer/internal/theme"
)

var (
	themesCmd = &cobra.Command{
		Use:   "themes",
		Short: "List installed themes usable as an overlay source",
		Args:  cobra.NoArgs,
		RunE:  runThemes,
	}

	detectRadiusCmd = &cobra.Command{
		Use:   "detect-radius <theme>",
		Short: "Detect the border radius a theme uses for its widgets",
		Args:  cobra.ExactArgs(1),
		RunE:  runDetectRadius,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the overlay state and the main settings",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
)

var (
	themesShowRoots     bool
	themesShowTemplates bool
)

func init() {
	themesCmd.Flags().BoolVar(&themesShowRoots, "roots", false, "list the theme search roots in lookup order")
	themesCmd.Flags().BoolVar(&themesShowTemplates, "templates", false, "list the overlay templates and where each is loaded from")
	themesCmd.MarkFlagsMutuallyExclusive("roots", "templates")
}

func runThemes(cmd *cobra.Command, _ []string) error {
	discovery := newDiscovery(newLogger())
	switch {
	case themesShowRoots:
		for _, root := range discovery.Roots() {
			fmt.Fprintln(cmd.OutOrStdout(), root)
		}
		return nil
	case themesShowTemplates:
		fmt.Fprint(cmd.OutOrStdout(), templateTable(overlay.DefaultTemplateDir()).Render())
		return nil
	}

	table := NewTable([]string{"NAME", "VARIANT", "RADIUS", "PATH"})
	table.SetColumnMaxWidth(3, 60)
	for _, name := range discovery.List() {
		desc, ok := discovery.Discover(name)
		if !ok {
			continue
		}
		table.AddRow([]string{name, variantLabel(desc.Light), radiusLabel(desc.BorderRadius), desc.Path})
	}
	fmt.Fprint(cmd.OutOrStdout(), table.Render())
	return nil
}

// templateTable lists each template with the override file in dir that
// replaces it, or "embedded".
func templateTable(dir string) *Table {
	table := NewTable([]string{"TEMPLATE", "SOURCE"})
	for _, name := range overlay.TemplateNames() {
		source := "embedded"
		if dir != "" {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				source = path
			}
		}
		table.AddRow([]string{name, source})
	}
	return table
}

func runDetectRadius(cmd *cobra.Command, args []string) error {
	return describeRadius(cmd.OutOrStdout(), newDiscovery(newLogger()), args[0])
}

// describeRadius prints the border radius of a theme and, when declared,
// its accent colour.
func describeRadius(w io.Writer, discovery *theme.Discovery, name string) error {
	if _, ok := discovery.Discover(name); !ok {
		return notFound(discovery, name)
	}
	radius := discovery.DetectBorderRadius(name)
	if radius == nil {
		return fmt.Errorf("no border-radius found in %s", name)
	}
	fmt.Fprintf(w, "%dpx\n", *radius)
	if accent := discovery.DetectAccent(name); accent != nil {
		fmt.Fprintf(w, "accent %s\n", accent.Hex())
	}
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	store, err := openSettings(newLogger())
	if err != nil {
		return err
	}
	root, err := overlayRoot()
	if err != nil {
		return err
	}
	logger := newLogger()
	st := overlay.LoadState(filepath.Join(root, overlay.DefaultName))
	builder, err := overlay.NewBuilder(root, overlay.DefaultName, logger, overlay.WithTemplateDir(overlay.DefaultTemplateDir()))
	if err != nil {
		return err
	}

	table := NewTable([]string{"KEY", "VALUE"})
	table.SetColumnMaxWidth(1, 60)
	table.AddRow([]string{"settings", store.Path()})
	table.AddRow([]string{"overlay", st.Dir})
	if st.SourceTheme != "" {
		table.AddRow([]string{"built from", st.SourceTheme})
		table.AddRow([]string{"built at", st.BuiltAt.Format("2006-01-02 15:04:05")})
		table.AddRow([]string{"fingerprint", fmt.Sprintf("%016x", st.Fingerprint)})
		table.AddRow([]string{"up to date", freshness(st, store, newDiscovery(logger), builder)})
	} else {
		table.AddRow([]string{"built from", "(not built)"})
	}
	for _, key := range []string{
		settings.KeyEnableOverlay,
		settings.KeyOverlaySourceTheme,
		settings.KeyOverlayAutoUpdate,
		settings.KeyAutoColorExtraction,
		settings.KeyAutoSwitchScheme,
		settings.KeyOriginalGTKTheme,
		settings.KeyOriginalShellTheme,
	} {
		table.AddRow([]string{key, settingValue(store, key)})
	}
	fmt.Fprint(cmd.OutOrStdout(), table.Render())
	return nil
}

// freshness compares the built overlay with what the stored settings and
// the source theme's own colours would render.
func freshness(st overlay.State, store settings.Store, discovery *theme.Discovery, builder *overlay.Builder) string {
	source := store.String(settings.KeyOverlaySourceTheme)
	if source == "" {
		source = st.SourceTheme
	}
	if source != st.SourceTheme {
		return "no (source theme changed to " + source + ")"
	}
	desc, ok := discovery.Discover(source)
	if !ok {
		return "unknown (source theme not installed)"
	}
	fp, err := builder.Fingerprint(desc, settings.ReadParams(store), nil)
	switch {
	case err != nil:
		return "unknown (" + err.Error() + ")"
	case fp == st.Fingerprint:
		return "yes"
	case store.Bool(settings.KeyAutoColorExtraction):
		return "unknown (built with wallpaper colours)"
	}
	return "no"
}

func settingValue(store *settings.File, key string) string {
	switch v := store.Snapshot()[key].(type) {
	case bool:
		return strconv.FormatBool(v)
	case string:
		if v == "" {
			return "-"
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}

func notFound(discovery *theme.Discovery, name string) error {
	err := fmt.Errorf("%w: %s", theme.ErrNotFound, name)
	if suggestions := discovery.Suggest(name); len(suggestions) > 0 {
		return fmt.Errorf("%w (did you mean %s?)", err, strings.Join(suggestions, ", "))
	}
	return err
}

func variantLabel(light bool) string {
	if light {
		return "light"
	}
	return "dark"
}

func radiusLabel(radius *int) string {
	if radius == nil {
		return "-"
	}
	return strconv.Itoa(*radius) + "px"
}
