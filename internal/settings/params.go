package settings

import "math"

// Limits applied when reading style parameters.
const (
	MaxBorderRadius = 25
	MaxBlurRadius   = 100
)

// Params is a flattened snapshot of every value rendered into overlay CSS.
type Params struct {
	PanelOpacity float64
	MenuOpacity  float64

	OverridePanelColor bool
	PanelColor         string
	OverridePopupColor bool
	PopupColor         string

	BorderRadius     int
	ApplyPanelRadius bool

	BlurRadius      int
	BlurSaturate    float64
	BlurContrast    float64
	BlurBrightness  float64
	BlurBackground  string
	BlurBorderColor string
	BlurBorderWidth int
	BlurOpacity     float64

	ShadowStrength float64
	ShadowColor    string

	AltTabStyling bool
}

// ReadParams reads a fresh Params from s, clamping out-of-range values.
func ReadParams(s Store) Params {
	return Params{
		PanelOpacity:       unit(s.Float(KeyPanelOpacity)),
		MenuOpacity:        unit(s.Float(KeyMenuOpacity)),
		OverridePanelColor: s.Bool(KeyOverridePanelColor),
		PanelColor:         s.String(KeyPanelColor),
		OverridePopupColor: s.Bool(KeyOverridePopupColor),
		PopupColor:         s.String(KeyPopupColor),
		BorderRadius:       clampInt(s.Int(KeyBorderRadius), 0, MaxBorderRadius),
		ApplyPanelRadius:   s.Bool(KeyApplyPanelRadius),
		BlurRadius:         clampInt(s.Int(KeyBlurRadius), 0, MaxBlurRadius),
		BlurSaturate:       math.Max(0, s.Float(KeyBlurSaturate)),
		BlurContrast:       math.Max(0, s.Float(KeyBlurContrast)),
		BlurBrightness:     math.Max(0, s.Float(KeyBlurBrightness)),
		BlurBackground:     s.String(KeyBlurBackground),
		BlurBorderColor:    s.String(KeyBlurBorderColor),
		BlurBorderWidth:    clampInt(s.Int(KeyBlurBorderWidth), 0, 10),
		BlurOpacity:        unit(s.Float(KeyBlurOpacity)),
		ShadowStrength:     unit(s.Float(KeyShadowStrength)),
		ShadowColor:        s.String(KeyShadowColor),
		AltTabStyling:      s.Bool(KeyAltTabStyling),
	}
}

func unit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
