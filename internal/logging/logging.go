// Package logging builds the agent's hclog logger.
package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/term"

	"github.com/jmylchreest/veneer/internal/settings"
)

// Name is the root logger name.
const Name = "veneer"

// Options configure New.
type Options struct {
	// Verbose selects debug output.
	Verbose bool
	// Output defaults to stderr.
	Output io.Writer
	// JSON selects JSON lines instead of text.
	JSON bool
}

// New returns the root logger. Colour is used only when the output is a
// terminal.
func New(opts Options) hclog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	colour := hclog.ColorOff
	if f, ok := out.(*os.File); ok && !opts.JSON && term.IsTerminal(int(f.Fd())) {
		colour = hclog.AutoColor
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       Name,
		Level:      BaseLevel(opts.Verbose),
		Output:     out,
		JSONFormat: opts.JSON,
		Color:      colour,
	})
}

// BaseLevel returns the level used while debug-logging is off.
func BaseLevel(verbose bool) hclog.Level {
	if verbose {
		return hclog.Debug
	}
	return hclog.Info
}

// ApplySetting raises the logger to debug when debug-logging is set in s.
func ApplySetting(logger hclog.Logger, s settings.Store, verbose bool) {
	if s.Bool(settings.KeyDebugLogging) {
		logger.SetLevel(hclog.Debug)
		return
	}
	logger.SetLevel(BaseLevel(verbose))
}
