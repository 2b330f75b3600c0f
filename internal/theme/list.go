package theme

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/sync/errgroup"
)

// DefaultTheme is listed first when installed.
const DefaultTheme = "Adwaita"

// List returns the names of every installed theme with a usable GTK
// stylesheet, sorted, with DefaultTheme first.
func (d *Discovery) List() []string {
	found := make([][]string, len(d.roots))

	// Each root writes to its own slot; no mutex is needed.
	var g errgroup.Group
	for i, root := range d.roots {
		g.Go(func() error {
			entries, err := os.ReadDir(root)
			if err != nil {
				return nil
			}
			for _, e := range entries {
				name := e.Name()
				if d.exclude[name] || strings.HasPrefix(name, ".") {
					continue
				}
				dir := filepath.Join(root, name)
				if usableStylesheet(filepath.Join(dir, GTK3Stylesheet)) ||
					usableStylesheet(filepath.Join(dir, GTK4Stylesheet)) {
					found[i] = append(found[i], name)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool)
	var names []string
	for _, slot := range found {
		for _, name := range slot {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	slices.SortFunc(names, func(a, b string) int {
		switch {
		case a == DefaultTheme:
			return -1
		case b == DefaultTheme:
			return 1
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	})
	return names
}

// Suggest returns up to three installed theme names resembling name.
func (d *Discovery) Suggest(name string) []string {
	names := d.List()
	matches := fuzzy.Find(name, names)
	var out []string
	for _, m := range matches {
		out = append(out, names[m.Index])
		if len(out) == 3 {
			break
		}
	}
	return out
}
