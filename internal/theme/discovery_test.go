package theme

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/jmylchreest/veneer/internal/colour"
)

// padding pushes a stylesheet past MinStylesheetBytes.
var padding = "\n/* " + strings.Repeat("x", MinStylesheetBytes) + " */\n"

func writeTheme(t *testing.T, root, name, rel, css string) string {
	t.Helper()
	path := filepath.Join(root, name, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(css), 0o644); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(root, name)
}

func TestDiscoverSearchOrder(t *testing.T) {
	user := t.TempDir()
	system := t.TempDir()
	writeTheme(t, user, "Nordic", GTK3Stylesheet, "button { color: red; }"+padding)
	writeTheme(t, system, "Nordic", GTK3Stylesheet, "button { color: blue; }"+padding)

	d := NewDiscovery([]string{user, system}, nil)
	desc, ok := d.Discover("Nordic")
	if !ok {
		t.Fatal("expected theme to be found")
	}
	if desc.Path != filepath.Join(user, "Nordic") {
		t.Errorf("Path = %s, want the first root", desc.Path)
	}
	if !desc.HasGTK3 || desc.HasGTK4 {
		t.Errorf("stylesheet flags = gtk3:%v gtk4:%v", desc.HasGTK3, desc.HasGTK4)
	}
}

func TestDiscoverSizeThreshold(t *testing.T) {
	user := t.TempDir()
	system := t.TempDir()
	writeTheme(t, user, "Stub", GTK3Stylesheet, "@import 'x';")
	writeTheme(t, system, "Stub", GTK4Stylesheet, "window {}"+padding)

	d := NewDiscovery([]string{user, system}, nil)
	desc, ok := d.Discover("Stub")
	if !ok {
		t.Fatal("expected the system copy to be found")
	}
	if desc.Path != filepath.Join(system, "Stub") || !desc.HasGTK4 {
		t.Errorf("unexpected descriptor %+v", desc)
	}

	if _, ok := d.Discover("Missing"); ok {
		t.Error("expected missing theme not to be found")
	}
}

func TestDiscoverExcludesOverlay(t *testing.T) {
	root := t.TempDir()
	writeTheme(t, root, "Veneer", GTK3Stylesheet, "button {}"+padding)
	writeTheme(t, root, "Adwaita", GTK3Stylesheet, "button {}"+padding)

	d := NewDiscovery([]string{root}, nil, "Veneer")
	if _, ok := d.Discover("Veneer"); ok {
		t.Error("overlay name must not be discoverable")
	}
	if got := d.List(); !reflect.DeepEqual(got, []string{"Adwaita"}) {
		t.Errorf("List() = %v", got)
	}
}

func TestDiscoverCachesUntilInvalidate(t *testing.T) {
	root := t.TempDir()
	writeTheme(t, root, "Flat", GTK3Stylesheet, "button { border-radius: 4px; }"+padding)

	d := NewDiscovery([]string{root}, nil)
	first := d.DetectBorderRadius("Flat")
	if first == nil || *first != 4 {
		t.Fatalf("radius = %v, want 4", first)
	}

	writeTheme(t, root, "Flat", GTK3Stylesheet, "button { border-radius: 9px; }"+padding)
	if r := d.DetectBorderRadius("Flat"); *r != 4 {
		t.Errorf("cached radius = %d, want 4", *r)
	}

	d.Invalidate("Flat")
	if r := d.DetectBorderRadius("Flat"); r == nil || *r != 9 {
		t.Errorf("radius after invalidate = %v, want 9", r)
	}
}

func TestDetectRadius(t *testing.T) {
	tests := []struct {
		name string
		css  string
		want *int
	}{
		{name: "button", css: "button { padding: 2px; border-radius: 6px; }", want: intPtr(6)},
		{name: "first recognised wins", css: "label { border-radius: 2px; }\nheaderbar.titlebar { border-radius: 10px; }\nmenu { border-radius: 3px; }", want: intPtr(10)},
		{name: "selector list", css: "scale, .popup-menu-content { border-radius: 8.6px; }", want: intPtr(9)},
		{name: "pseudo class", css: "button:hover { border-radius: 5px; }", want: intPtr(5)},
		{name: "clamped", css: "popover { border-radius: 99px; }", want: intPtr(MaxBorderRadius)},
		{name: "commented out", css: "/* button { border-radius: 7px; } */ label {}", want: nil},
		{name: "unrelated selector", css: "buttonbox { border-radius: 7px; }", want: nil},
		{name: "none", css: "window { color: red; }", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectRadius([]string{tt.css})
			if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
				t.Errorf("detectRadius() = %v, want %v", deref(got), deref(tt.want))
			}
		})
	}
}

func TestIsLight(t *testing.T) {
	root := t.TempDir()
	dark := writeTheme(t, root, "Yaru-dark", GTK3Stylesheet, "@define-color theme_bg_color #ffffff;"+padding)
	light := writeTheme(t, root, "Orchis-Light", GTK3Stylesheet, "@define-color theme_bg_color #000000;"+padding)
	bright := writeTheme(t, root, "Paper", GTK3Stylesheet, "@define-color theme_bg_color #f6f5f4;"+padding)
	dim := writeTheme(t, root, "Night", GTK4Stylesheet, "@define-color window_bg_color rgb(36, 36, 36);"+padding)
	blank := writeTheme(t, root, "Plain", GTK3Stylesheet, "button {}"+padding)

	tests := []struct {
		path string
		want bool
	}{
		{dark, false},
		{light, true},
		{bright, true},
		{dim, false},
		{blank, false},
	}
	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			if got := IsLight(tt.path); got != tt.want {
				t.Errorf("IsLight(%s) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestDetectAccent(t *testing.T) {
	root := t.TempDir()
	writeTheme(t, root, "Accented", GTK4Stylesheet,
		"@define-color accent_blue #3584e4;\n@define-color accent_bg_color @accent_blue;\n@define-color theme_selected_bg_color #ff0000;"+padding)
	writeTheme(t, root, "Legacy", GTK3Stylesheet, "@define-color theme_selected_bg_color rgb(10, 20, 30);"+padding)
	writeTheme(t, root, "None", GTK3Stylesheet, "button {}"+padding)

	d := NewDiscovery([]string{root}, nil)
	if got := d.DetectAccent("Accented"); got == nil || *got != (colour.RGB{R: 0x35, G: 0x84, B: 0xe4}) {
		t.Errorf("accent = %v, want #3584e4", got)
	}
	if got := d.DetectAccent("Legacy"); got == nil || *got != (colour.RGB{R: 10, G: 20, B: 30}) {
		t.Errorf("accent = %v, want rgb(10, 20, 30)", got)
	}
	if got := d.DetectAccent("None"); got != nil {
		t.Errorf("accent = %v, want nil", got)
	}
}

func TestListAndSuggest(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	writeTheme(t, a, "Yaru", GTK3Stylesheet, "x {}"+padding)
	writeTheme(t, b, "Yaru", GTK3Stylesheet, "x {}"+padding)
	writeTheme(t, b, "Adwaita", GTK4Stylesheet, "x {}"+padding)
	writeTheme(t, b, "Arc-Dark", GTK3Stylesheet, "x {}"+padding)
	writeTheme(t, b, "Broken", GTK3Stylesheet, "x {}")

	d := NewDiscovery([]string{a, b, filepath.Join(a, "missing")}, nil)
	want := []string{"Adwaita", "Arc-Dark", "Yaru"}
	if got := d.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}

	if got := d.Suggest("yar"); len(got) == 0 || got[0] != "Yaru" {
		t.Errorf("Suggest(yar) = %v", got)
	}
}

func intPtr(v int) *int { return &v }

func deref(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
