package overlay

import (
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/jmylchreest/veneer/internal/colour"
	"github.com/jmylchreest/veneer/internal/settings"
	"github.com/jmylchreest/veneer/internal/theme"
)

// Surfaces used when neither an override nor an extracted scheme applies.
var (
	FallbackDarkPanel  = colour.RGB{R: 46, G: 52, B: 64}
	FallbackDarkPopup  = colour.RGB{R: 59, G: 66, B: 82}
	FallbackLightPanel = colour.RGB{R: 246, G: 245, B: 244}
	FallbackLightPopup = colour.RGB{R: 255, G: 255, B: 255}

	fallbackBorder   = colour.RGB{R: 255, G: 255, B: 255}
	fallbackBlurBase = colour.RGB{}
)

// DefaultShadow returns the shadow colour suited to a theme brightness.
func DefaultShadow(light bool) colour.RGB {
	if light {
		return colour.RGB{}
	}
	return colour.RGB{R: 255, G: 255, B: 255}
}

// style is the data passed to every template.
type style struct {
	Name   string
	Source string

	ImportGTK3  string
	ImportGTK4  string
	ImportShell string

	Panel          string
	Popup          string
	BorderColor    string
	BorderWidth    int
	BorderRadius   int
	InnerRadius    int
	PanelRadius    int
	Shadow         string
	ShadowBlur     int
	BlurRadius     int
	BlurSaturate   string
	BlurContrast   string
	BlurBrightness string
	BlurBackground string
	Accent         string
	AccentHover    string
	AltTab         bool
}

func fileURL(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

func number(v float64) string {
	return strconv.FormatFloat(float64(int64(v*1000+0.5))/1000, 'f', -1, 64)
}

// resolveStyle computes template values from the source theme, the style
// parameters and the optional extracted scheme.
func resolveStyle(name string, src *theme.Descriptor, p settings.Params, scheme *colour.Scheme) style {
	light := src.Light

	s := style{
		Name:           name,
		Source:         src.Name,
		BorderWidth:    p.BlurBorderWidth,
		BorderRadius:   p.BorderRadius,
		InnerRadius:    max(0, p.BorderRadius-4),
		BlurRadius:     p.BlurRadius,
		BlurSaturate:   number(p.BlurSaturate),
		BlurContrast:   number(p.BlurContrast),
		BlurBrightness: number(p.BlurBrightness),
		ShadowBlur:     max(4, p.BlurRadius/2),
		AltTab:         p.AltTabStyling,
	}
	if src.HasGTK3 {
		s.ImportGTK3 = fileURL(src.Stylesheet(theme.GTK3Stylesheet))
	}
	if src.HasGTK4 {
		s.ImportGTK4 = fileURL(src.Stylesheet(theme.GTK4Stylesheet))
	}
	if src.HasShell {
		s.ImportShell = fileURL(src.Stylesheet(theme.ShellStylesheet))
	}
	if p.ApplyPanelRadius {
		s.PanelRadius = p.BorderRadius
	}

	panelFallback, popupFallback := FallbackDarkPanel, FallbackDarkPopup
	if light {
		panelFallback, popupFallback = FallbackLightPanel, FallbackLightPopup
	}
	var panel, popup *colour.RGB
	if scheme != nil {
		pc, uc := scheme.Panel(light), scheme.Popup(light)
		panel, popup = &pc, &uc
	}
	s.Panel = surface(p.OverridePanelColor, p.PanelColor, panel, panelFallback, p.PanelOpacity)
	s.Popup = surface(p.OverridePopupColor, p.PopupColor, popup, popupFallback, p.MenuOpacity)

	border, borderAlpha := parseOr(p.BlurBorderColor, fallbackBorder, 0.15)
	s.BorderColor = border.CSS(borderAlpha)

	blur, blurAlpha := parseOr(p.BlurBackground, fallbackBlurBase, 0.3)
	s.BlurBackground = blur.CSS(blurAlpha * p.BlurOpacity)

	shadow, _ := parseOr(p.ShadowColor, DefaultShadow(light), 1)
	s.Shadow = shadow.CSS(p.ShadowStrength)

	var accent *colour.RGB
	switch {
	case scheme != nil:
		accent = &scheme.Accent
	case src.Accent != nil:
		accent = src.Accent
	}
	if accent != nil {
		s.Accent = accent.Hex()
		s.AccentHover = accent.CSS(0.25)
	}
	return s
}

// surface picks a panel or popup background. The configured colour wins
// when overridden; otherwise the extracted variant; otherwise the fallback.
func surface(override bool, configured string, extracted *colour.RGB, fallback colour.RGB, alpha float64) string {
	if override {
		if rgb, _, err := colour.ParseCSS(configured); err == nil {
			return rgb.CSS(alpha)
		}
	}
	if extracted != nil {
		return extracted.CSS(alpha)
	}
	return fallback.CSS(alpha)
}

func parseOr(v string, fallback colour.RGB, fallbackAlpha float64) (colour.RGB, float64) {
	rgb, alpha, err := colour.ParseCSS(v)
	if err != nil {
		return fallback, fallbackAlpha
	}
	return rgb, alpha
}
