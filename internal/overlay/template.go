package overlay

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Rendered files and the template each comes from.
var outputs = []struct {
	path     string
	template string
}{
	{path: "index.theme", template: "index.theme.tmpl"},
	{path: "gtk-3.0/gtk.css", template: "gtk3.css.tmpl"},
	{path: "gtk-4.0/gtk.css", template: "gtk4.css.tmpl"},
	{path: "gnome-shell/gnome-shell.css", template: "gnome-shell.css.tmpl"},
}

// TemplateNames returns the names of the embedded templates.
func TemplateNames() []string {
	names := make([]string, len(outputs))
	for i, o := range outputs {
		names[i] = o.template
	}
	return names
}

// EmbeddedTemplate returns the built-in content of a template.
func EmbeddedTemplate(name string) ([]byte, error) {
	content, err := templates.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("failed to load template %q: %w", name, err)
	}
	return content, nil
}

// DefaultTemplateDir returns ~/.config/veneer/templates, where a file
// named like an embedded template replaces it.
func DefaultTemplateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "veneer", "templates")
}

// DefaultName is the theme name the overlay is installed under.
const DefaultName = "Veneer"

// DefaultRoot returns ~/.themes.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".themes"), nil
}

// loadTemplates parses every output template, preferring overrides found in
// customDir.
func loadTemplates(customDir string) (map[string]*template.Template, map[string]bool, error) {
	parsed := make(map[string]*template.Template, len(outputs))
	custom := make(map[string]bool)
	for _, o := range outputs {
		content, fromCustom, err := loadTemplate(customDir, o.template)
		if err != nil {
			return nil, nil, err
		}
		tmpl, err := template.New(o.template).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse template %s: %w", o.template, err)
		}
		parsed[o.template] = tmpl
		custom[o.template] = fromCustom
	}
	return parsed, custom, nil
}

func loadTemplate(customDir, name string) ([]byte, bool, error) {
	if customDir != "" {
		if content, err := os.ReadFile(filepath.Join(customDir, name)); err == nil { // #nosec G304 - User template override
			return content, true, nil
		}
	}
	content, err := EmbeddedTemplate(name)
	return content, false, err
}
