// Package colour provides wallpaper colour extraction and scheme derivation.
package colour

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// RGB represents a color in RGB format.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// String returns the RGB color as a string in the format "rgb(r, g, b)".
func (rgb RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", rgb.R, rgb.G, rgb.B)
}

// Hex returns the RGB color as a hex string (e.g., "#1a2b3c").
func (rgb RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", rgb.R, rgb.G, rgb.B)
}

// CSS returns the colour as a CSS rgba() expression with the given alpha.
// Alpha is clamped to [0, 1] and rounded to three decimals.
func (rgb RGB) CSS(alpha float64) string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", rgb.R, rgb.G, rgb.B, FormatAlpha(alpha))
}

// FormatAlpha formats an alpha value the way CSS output expects it.
func FormatAlpha(alpha float64) string {
	alpha = math.Max(0, math.Min(1, alpha))
	return strconv.FormatFloat(math.Round(alpha*1000)/1000, 'f', -1, 64)
}

// ToRGB converts a color.Color to RGB.
func ToRGB(c color.Color) RGB {
	r, g, b, _ := c.RGBA()
	// RGBA returns values in the range [0, 65535], convert to [0, 255]
	return RGB{
		R: uint8(r >> 8),
		G: uint8(g >> 8),
		B: uint8(b >> 8),
	}
}

// ParseHex parses #rgb or #rrggbb notation.
func ParseHex(s string) (RGB, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return RGB{}, fmt.Errorf("invalid hex colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil // #nosec G115 -- masked by uint8 conversion
}

// ParseCSS parses a CSS colour in hex, rgb() or rgba() notation and
// returns the colour and its alpha. Colours without an alpha channel
// report 1.
func ParseCSS(s string) (RGB, float64, error) {
	v := strings.TrimSpace(strings.ToLower(s))
	if strings.HasPrefix(v, "#") {
		rgb, err := ParseHex(v)
		return rgb, 1, err
	}

	var body string
	switch {
	case strings.HasPrefix(v, "rgba(") && strings.HasSuffix(v, ")"):
		body = v[len("rgba(") : len(v)-1]
	case strings.HasPrefix(v, "rgb(") && strings.HasSuffix(v, ")"):
		body = v[len("rgb(") : len(v)-1]
	default:
		return RGB{}, 0, fmt.Errorf("unsupported colour notation %q", s)
	}

	parts := strings.Split(body, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return RGB{}, 0, fmt.Errorf("invalid colour %q: expected 3 or 4 components", s)
	}

	var channels [3]uint8
	for i := range 3 {
		n, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return RGB{}, 0, fmt.Errorf("invalid colour %q: %w", s, err)
		}
		channels[i] = uint8(math.Max(0, math.Min(255, math.Round(n))))
	}

	alpha := 1.0
	if len(parts) == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return RGB{}, 0, fmt.Errorf("invalid colour %q: %w", s, err)
		}
		alpha = math.Max(0, math.Min(1, a))
	}

	return RGB{R: channels[0], G: channels[1], B: channels[2]}, alpha, nil
}

// RGBToColor converts an RGB value to a color.Color (RGBA).
func RGBToColor(rgb RGB) color.Color {
	return color.RGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: 255}
}
