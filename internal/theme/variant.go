package theme

import (
	"regexp"
	"strings"
)

var variantPattern = regexp.MustCompile(`(?i)^(.+)-(Dark|Light)((?:-\w+)*)$`)

// FindVariant returns the dark or light sibling of current that matches
// preferDark. The current name is returned when it already matches. The
// second result is false when current has no variant suffix or the sibling
// is not installed.
func (d *Discovery) FindVariant(current string, preferDark bool) (string, bool) {
	m := variantPattern.FindStringSubmatch(current)
	if m == nil {
		return "", false
	}
	base, variant, suffix := m[1], m[2], m[3]

	isDark := strings.EqualFold(variant, "dark")
	if isDark == preferDark {
		return current, true
	}

	target := "Light"
	if preferDark {
		target = "Dark"
	}
	switch variant {
	case strings.ToLower(variant):
		target = strings.ToLower(target)
	case strings.ToUpper(variant):
		target = strings.ToUpper(target)
	}

	sibling := base + "-" + target + suffix
	if _, ok := d.Discover(sibling); !ok {
		d.logger.Info("no variant installed", "current", current, "wanted", sibling)
		return "", false
	}
	return sibling, true
}
