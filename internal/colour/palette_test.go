package colour

import (
	"image/color"
	"testing"
)

func TestToRGB(t *testing.T) {
	tests := []struct {
		name  string
		color color.Color
		want  RGB
	}{
		{
			name:  "red",
			color: color.RGBA{R: 255, G: 0, B: 0, A: 255},
			want:  RGB{R: 255, G: 0, B: 0},
		},
		{
			name:  "grey",
			color: color.Gray{Y: 128},
			want:  RGB{R: 128, G: 128, B: 128},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToRGB(tt.color); got != tt.want {
				t.Errorf("ToRGB() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRGBCSS(t *testing.T) {
	tests := []struct {
		name  string
		rgb   RGB
		alpha float64
		want  string
	}{
		{"panel default", RGB{R: 46, G: 52, B: 64}, 0.8, "rgba(46, 52, 64, 0.8)"},
		{"opaque", RGB{R: 255, G: 255, B: 255}, 1, "rgba(255, 255, 255, 1)"},
		{"rounded", RGB{R: 1, G: 2, B: 3}, 0.33333, "rgba(1, 2, 3, 0.333)"},
		{"clamped high", RGB{}, 1.7, "rgba(0, 0, 0, 1)"},
		{"clamped low", RGB{}, -0.2, "rgba(0, 0, 0, 0)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rgb.CSS(tt.alpha); got != tt.want {
				t.Errorf("CSS() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseCSS(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      RGB
		wantAlpha float64
		wantErr   bool
	}{
		{name: "rgba", input: "rgba(46, 52, 64, 0.8)", want: RGB{46, 52, 64}, wantAlpha: 0.8},
		{name: "rgb", input: "rgb(255,255,255)", want: RGB{255, 255, 255}, wantAlpha: 1},
		{name: "hex long", input: "#3584e4", want: RGB{0x35, 0x84, 0xe4}, wantAlpha: 1},
		{name: "hex short", input: "#fff", want: RGB{255, 255, 255}, wantAlpha: 1},
		{name: "upper case", input: "RGBA(0, 0, 0, 0.3)", want: RGB{}, wantAlpha: 0.3},
		{name: "out of range clamps", input: "rgb(300, -4, 12)", want: RGB{255, 0, 12}, wantAlpha: 1},
		{name: "named colour", input: "red", wantErr: true},
		{name: "missing component", input: "rgb(1, 2)", wantErr: true},
		{name: "bad hex", input: "#12345", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, alpha, err := ParseCSS(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("colour = %v, want %v", got, tt.want)
			}
			if alpha != tt.wantAlpha {
				t.Errorf("alpha = %v, want %v", alpha, tt.wantAlpha)
			}
		})
	}
}

func TestLighten(t *testing.T) {
	base := RGB{R: 100, G: 120, B: 140}

	if got := Lighten(base, 0); got != base {
		t.Errorf("Lighten(0) = %v, want %v", got, base)
	}
	if got := Lighten(base, 1); got != (RGB{255, 255, 255}) {
		t.Errorf("Lighten(1) = %v, want white", got)
	}
	if got := Lighten(base, -1); got != (RGB{}) {
		t.Errorf("Lighten(-1) = %v, want black", got)
	}

	darker := Lighten(base, -0.2)
	if Luminance(RGBToColor(darker)) >= Luminance(RGBToColor(base)) {
		t.Errorf("darkened colour %v is not darker than %v", darker, base)
	}
}

func TestIsLight(t *testing.T) {
	if !IsLight(RGB{246, 245, 244}) {
		t.Error("expected off-white to be light")
	}
	if IsLight(RGB{46, 52, 64}) {
		t.Error("expected slate to be dark")
	}
}
