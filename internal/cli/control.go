package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/veneer/internal/desktop"
	"github.com/jmylchreest/veneer/internal/overlay"
	"github.com/jmylchreest/veneer/internal/settings"
)

var (
	enableCmd = &cobra.Command{
		Use:   "enable",
		Short: "Enable the overlay theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return setOverlayEnabled(cmd, true)
		},
	}

	disableCmd = &cobra.Command{
		Use:   "disable",
		Short: "Disable the overlay theme and restore the original themes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := setOverlayEnabled(cmd, false); err != nil {
				return err
			}
			if !disablePurge {
				return nil
			}
			root, err := overlayRoot()
			if err != nil {
				return err
			}
			return purgeOverlay(cmd.OutOrStdout(), root)
		},
	}

	applyCmd = &cobra.Command{
		Use:   "apply",
		Short: "Ask the running agent to apply the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sendTrigger(cmd, settings.KeyTriggerApply, "apply requested")
		},
	}

	recreateCmd = &cobra.Command{
		Use:   "recreate",
		Short: "Ask the running agent to rebuild the overlay from its source theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sendTrigger(cmd, settings.KeyTriggerRecreate, "recreate requested")
		},
	}

	refreshColorsCmd = &cobra.Command{
		Use:   "refresh-colors",
		Short: "Ask the running agent to extract colours from the wallpaper again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sendTrigger(cmd, settings.KeyTriggerExtraction, "colour extraction requested")
		},
	}
)

var disablePurge bool

func init() {
	disableCmd.Flags().BoolVar(&disablePurge, "purge", false, "also delete the generated overlay theme directory")
}

// purgeOverlay deletes the overlay tree under root.
func purgeOverlay(w io.Writer, root string) error {
	builder, err := overlay.NewBuilder(root, overlay.DefaultName, newLogger())
	if err != nil {
		return err
	}
	if err := builder.Remove(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Removed %s\n", builder.Dir())
	return nil
}

func setOverlayEnabled(cmd *cobra.Command, enabled bool) error {
	store, err := openSettings(newLogger())
	if err != nil {
		return err
	}
	if err := store.SetBool(settings.KeyEnableOverlay, enabled); err != nil {
		return err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Overlay theme %s\n", state)
	warnIfNoAgent(cmd)
	return nil
}

func sendTrigger(cmd *cobra.Command, key, message string) error {
	store, err := openSettings(newLogger())
	if err != nil {
		return err
	}
	if err := toggle(store, key); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), message)
	warnIfNoAgent(cmd)
	return nil
}

// toggle flips a trigger key. The agent reacts to the change, not the value.
func toggle(store settings.Store, key string) error {
	return store.SetBool(key, !store.Bool(key))
}

func warnIfNoAgent(cmd *cobra.Command) {
	pids, err := desktop.FindProcessByName(filepath.Base(os.Args[0]), os.Getpid())
	if err != nil || len(pids) > 0 {
		return
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "warning: no running agent found; the change applies when \"veneer run\" starts")
}
