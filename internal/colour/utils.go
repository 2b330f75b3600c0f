package colour

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Luminance returns the WCAG 2.0 relative luminance of c, from 0 (black)
// to 1 (white).
func Luminance(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return 0.2126*linear(r) + 0.7152*linear(g) + 0.0722*linear(b)
}

// linear converts a 16-bit sRGB channel to linear light.
func linear(v uint32) float64 {
	f := float64(v>>8) / 255
	if f <= 0.03928 {
		return f / 12.92
	}
	return math.Pow((f+0.055)/1.055, 2.4)
}

// IsLight reports whether rgb has an HSL lightness of at least 0.5.
func IsLight(rgb RGB) bool {
	_, _, l := hsl(rgb)
	return l >= 0.5
}

// Lighten shifts the HSL lightness of rgb by delta, clamped to [0, 1].
// Negative deltas darken.
func Lighten(rgb RGB, delta float64) RGB {
	h, s, l := hsl(rgb)
	return HSLToRGB(h, s, clampUnit(l+delta))
}

// Saturate scales the HSL saturation of rgb by factor, clamped to [0, 1].
func Saturate(rgb RGB, factor float64) RGB {
	h, s, l := hsl(rgb)
	return HSLToRGB(h, clampUnit(s*factor), l)
}

// Saturation returns the HSL saturation of rgb.
func Saturation(rgb RGB) float64 {
	_, s, _ := hsl(rgb)
	return s
}

// HSLToRGB converts hue (degrees), saturation and lightness to RGB.
func HSLToRGB(h, s, l float64) RGB {
	r, g, b := colorful.Hsl(h, s, l).Clamped().RGB255()
	return RGB{R: r, G: g, B: b}
}

func hsl(rgb RGB) (h, s, l float64) {
	return colorful.Color{
		R: float64(rgb.R) / 255,
		G: float64(rgb.G) / 255,
		B: float64(rgb.B) / 255,
	}.Hsl()
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
