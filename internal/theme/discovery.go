// Package theme locates installed GTK themes and inspects their stylesheets.
package theme

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/veneer/internal/colour"
)

// MinStylesheetBytes is the size a gtk.css must exceed for a directory to
// count as a usable theme. Smaller files are usually stubs.
const MinStylesheetBytes = 100

// ErrNotFound is returned when a named theme is not installed.
var ErrNotFound = errors.New("theme not found")

// Stylesheet locations relative to a theme directory.
const (
	GTK3Stylesheet  = "gtk-3.0/gtk.css"
	GTK4Stylesheet  = "gtk-4.0/gtk.css"
	ShellStylesheet = "gnome-shell/gnome-shell.css"
)

// Descriptor describes an installed theme.
type Descriptor struct {
	Name string
	Path string
	// BorderRadius is the radius detected from the stylesheets, nil when
	// none of the recognised selectors declares one.
	BorderRadius *int
	Light        bool
	HasGTK3      bool
	HasGTK4      bool
	HasShell     bool
	Accent       *colour.RGB
}

// Stylesheet returns the absolute path of rel inside the theme.
func (d *Descriptor) Stylesheet(rel string) string {
	return filepath.Join(d.Path, rel)
}

// DefaultSearchRoots returns the theme directories in lookup order.
func DefaultSearchRoots() []string {
	var roots []string
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, filepath.Join(home, ".themes"))
	}
	if data := os.Getenv("XDG_DATA_HOME"); data != "" {
		roots = append(roots, filepath.Join(data, "themes"))
	} else if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, filepath.Join(home, ".local", "share", "themes"))
	}
	return append(roots, "/usr/local/share/themes", "/usr/share/themes")
}

// Discovery finds themes across ordered search roots. Descriptors are cached
// per name until Invalidate.
type Discovery struct {
	roots   []string
	exclude map[string]bool
	logger  hclog.Logger

	mu    sync.Mutex
	cache map[string]*Descriptor
}

// NewDiscovery creates a Discovery over roots (DefaultSearchRoots when
// empty). Names in exclude are never reported, which keeps the generated
// overlay out of its own source list.
func NewDiscovery(roots []string, logger hclog.Logger, exclude ...string) *Discovery {
	if len(roots) == 0 {
		roots = DefaultSearchRoots()
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	d := &Discovery{
		roots:   roots,
		exclude: make(map[string]bool, len(exclude)),
		logger:  logger.Named("theme"),
		cache:   make(map[string]*Descriptor),
	}
	for _, name := range exclude {
		d.exclude[name] = true
	}
	return d
}

// Roots returns the search roots in lookup order.
func (d *Discovery) Roots() []string {
	return append([]string(nil), d.roots...)
}

// Discover returns the first theme called name that has a usable GTK
// stylesheet.
func (d *Discovery) Discover(name string) (*Descriptor, bool) {
	if name == "" || d.exclude[name] {
		return nil, false
	}

	d.mu.Lock()
	if desc, ok := d.cache[name]; ok {
		d.mu.Unlock()
		return desc, true
	}
	d.mu.Unlock()

	for _, root := range d.roots {
		dir := filepath.Join(root, name)
		hasGTK3 := usableStylesheet(filepath.Join(dir, GTK3Stylesheet))
		hasGTK4 := usableStylesheet(filepath.Join(dir, GTK4Stylesheet))
		if !hasGTK3 && !hasGTK4 {
			continue
		}

		desc := &Descriptor{
			Name:     name,
			Path:     dir,
			HasGTK3:  hasGTK3,
			HasGTK4:  hasGTK4,
			HasShell: fileExists(filepath.Join(dir, ShellStylesheet)),
		}
		css := readStylesheets(desc)
		desc.BorderRadius = detectRadius(css)
		desc.Light = classify(name, css)
		desc.Accent = detectAccent(css)

		d.logger.Debug("discovered theme", "name", name, "path", dir,
			"light", desc.Light, "gtk3", hasGTK3, "gtk4", hasGTK4)

		d.mu.Lock()
		d.cache[name] = desc
		d.mu.Unlock()
		return desc, true
	}

	d.logger.Debug("theme not found", "name", name, "roots", d.roots)
	return nil, false
}

// Invalidate drops the cached descriptor for name, or every descriptor
// when name is empty.
func (d *Discovery) Invalidate(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if name == "" {
		d.cache = make(map[string]*Descriptor)
		return
	}
	delete(d.cache, name)
}

// DetectBorderRadius returns the border radius declared by the named theme.
func (d *Discovery) DetectBorderRadius(name string) *int {
	desc, ok := d.Discover(name)
	if !ok {
		return nil
	}
	return desc.BorderRadius
}

// DetectAccent returns the accent colour declared by the named theme.
func (d *Discovery) DetectAccent(name string) *colour.RGB {
	desc, ok := d.Discover(name)
	if !ok {
		return nil
	}
	return desc.Accent
}

// IsLight classifies the theme at path as light or dark.
// Names carrying a dark or light segment win; otherwise the declared
// background colour decides; otherwise the theme is treated as dark.
func IsLight(path string) bool {
	return classify(filepath.Base(path), readStylesheets(&Descriptor{Path: path}))
}

func usableStylesheet(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > MinStylesheetBytes
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// readStylesheets returns the GTK3, GTK4 and shell stylesheets in that
// order, skipping missing ones.
func readStylesheets(desc *Descriptor) []string {
	var sheets []string
	for _, rel := range []string{GTK3Stylesheet, GTK4Stylesheet, ShellStylesheet} {
		data, err := os.ReadFile(filepath.Join(desc.Path, rel)) // #nosec G304 - Theme stylesheet under a theme search root
		if err != nil {
			continue
		}
		sheets = append(sheets, string(data))
	}
	return sheets
}
