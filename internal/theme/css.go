package theme

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jmylchreest/veneer/internal/colour"
)

// MaxBorderRadius caps detected radii.
const MaxBorderRadius = 25

// radiusSelectors are the rule selectors whose radius represents the theme.
var radiusSelectors = []string{
	"button",
	".button",
	"popover",
	"menu",
	".popup-menu-content",
	"window.csd",
	"headerbar",
	"entry",
}

var (
	commentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)
	blockPattern   = regexp.MustCompile(`([^{}]+)\{([^{}]*)\}`)
	radiusPattern  = regexp.MustCompile(`border-radius\s*:\s*(\d+(?:\.\d+)?)px`)
	definePattern  = regexp.MustCompile(`@define-color\s+([\w-]+)\s+([^;]+);`)
)

// selectorMatches reports whether a rule's selector list names one of the
// recognised selectors as a compound selector component.
func selectorMatches(selector string) bool {
	for _, part := range strings.Split(selector, ",") {
		for _, token := range strings.Fields(part) {
			token = strings.TrimLeft(token, ">+~")
			for _, want := range radiusSelectors {
				if token == want || strings.HasPrefix(token, want+".") ||
					strings.HasPrefix(token, want+":") || strings.HasPrefix(token, want+"#") {
					return true
				}
			}
		}
	}
	return false
}

// detectRadius returns the first border radius declared on a recognised
// selector across sheets, clamped to 0..MaxBorderRadius.
func detectRadius(sheets []string) *int {
	for _, css := range sheets {
		css = commentPattern.ReplaceAllString(css, "")
		for _, block := range blockPattern.FindAllStringSubmatch(css, -1) {
			if !selectorMatches(block[1]) {
				continue
			}
			m := radiusPattern.FindStringSubmatch(block[2])
			if m == nil {
				continue
			}
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			r := max(0, min(MaxBorderRadius, int(v+0.5)))
			return &r
		}
	}
	return nil
}

// defines collects @define-color declarations; earlier sheets win.
func defines(sheets []string) map[string]string {
	out := make(map[string]string)
	for _, css := range sheets {
		css = commentPattern.ReplaceAllString(css, "")
		for _, m := range definePattern.FindAllStringSubmatch(css, -1) {
			if _, ok := out[m[1]]; !ok {
				out[m[1]] = strings.TrimSpace(m[2])
			}
		}
	}
	return out
}

// lookupColour resolves the first of names to a colour, following one level
// of @name references.
func lookupColour(defs map[string]string, names ...string) *colour.RGB {
	for _, name := range names {
		v, ok := defs[name]
		if !ok {
			continue
		}
		if ref, isRef := strings.CutPrefix(v, "@"); isRef {
			if v, ok = defs[ref]; !ok {
				continue
			}
		}
		rgb, _, err := colour.ParseCSS(v)
		if err != nil {
			continue
		}
		return &rgb
	}
	return nil
}

func detectAccent(sheets []string) *colour.RGB {
	return lookupColour(defines(sheets), "accent_bg_color", "accent_color", "theme_selected_bg_color")
}

func classify(name string, sheets []string) bool {
	segments := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '.'
	})
	for _, s := range segments {
		switch s {
		case "dark":
			return false
		case "light":
			return true
		}
	}

	if bg := lookupColour(defines(sheets), "theme_bg_color", "window_bg_color"); bg != nil {
		return colour.IsLight(*bg)
	}
	return false
}
