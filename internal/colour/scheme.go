package colour

import (
	"math"
	"time"
)

// Lightness shifts applied when deriving variants.
const (
	darkerShift     = -0.20
	lighterShift    = 0.20
	panelDarkShift  = -0.40
	popupDarkShift  = -0.25
	panelLightShift = 0.35
	popupLightShift = 0.45

	// Clusters below this share are ignored when picking the accent.
	minAccentWeight = 0.02
	// Clusters below this share are ignored when picking the background.
	minBackgroundWeight = 0.05
)

// Variants are the lightness-shifted renditions of the dominant colour used
// for panels and popups.
type Variants struct {
	Darker     RGB `json:"darker"`
	Lighter    RGB `json:"lighter"`
	PanelDark  RGB `json:"panel_dark"`
	PopupDark  RGB `json:"popup_dark"`
	PanelLight RGB `json:"panel_light"`
	PopupLight RGB `json:"popup_light"`
}

// Source identifies the image a scheme was extracted from.
type Source struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Scheme is the set of colours derived from one wallpaper.
type Scheme struct {
	Dominant    RGB       `json:"dominant"`
	Accent      RGB       `json:"accent"`
	Background  RGB       `json:"background"`
	Variants    Variants  `json:"variants"`
	ExtractedAt time.Time `json:"extracted_at"`
	Source      Source    `json:"source"`
}

// Panel returns the panel colour for a light or dark source theme.
func (s *Scheme) Panel(light bool) RGB {
	if light {
		return s.Variants.PanelLight
	}
	return s.Variants.PanelDark
}

// Popup returns the popup colour for a light or dark source theme.
func (s *Scheme) Popup(light bool) RGB {
	if light {
		return s.Variants.PopupLight
	}
	return s.Variants.PopupDark
}

// DeriveScheme picks the dominant, accent and background colours from
// clusters (sorted by descending weight) and computes the variants.
// It returns false when clusters is empty.
func DeriveScheme(clusters []Cluster) (Scheme, bool) {
	if len(clusters) == 0 {
		return Scheme{}, false
	}

	dominant := clusters[0].Colour
	accent := pickAccent(clusters)
	background := pickBackground(clusters)

	return Scheme{
		Dominant:   dominant,
		Accent:     accent,
		Background: background,
		Variants: Variants{
			Darker:     Lighten(dominant, darkerShift),
			Lighter:    Lighten(dominant, lighterShift),
			PanelDark:  Lighten(dominant, panelDarkShift),
			PopupDark:  Lighten(dominant, popupDarkShift),
			PanelLight: Lighten(dominant, panelLightShift),
			PopupLight: Lighten(dominant, popupLightShift),
		},
	}, true
}

// pickAccent favours clusters that are both saturated and far from the
// dominant colour.
func pickAccent(clusters []Cluster) RGB {
	dominant := clusters[0].Colour
	if len(clusters) == 1 {
		return Saturate(dominant, 1.3)
	}

	best := -1
	bestScore := -1.0
	for i := 1; i < len(clusters); i++ {
		c := clusters[i]
		if c.Weight < minAccentWeight {
			continue
		}
		score := Saturation(c.Colour) * LabDistance(c.Colour, dominant)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return Saturate(dominant, 1.3)
	}
	return clusters[best].Colour
}

// pickBackground chooses the darkest cluster with a meaningful share.
func pickBackground(clusters []Cluster) RGB {
	background := clusters[0].Colour
	lowest := math.MaxFloat64
	for _, c := range clusters {
		if c.Weight < minBackgroundWeight {
			continue
		}
		if l := Luminance(RGBToColor(c.Colour)); l < lowest {
			lowest = l
			background = c.Colour
		}
	}
	return background
}
