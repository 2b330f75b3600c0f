package security

import (
	"path/filepath"
	"testing"
)

func TestWithin(t *testing.T) {
	base := filepath.Join(string(filepath.Separator), "home", "user", ".themes")
	tests := []struct {
		name    string
		rel     string
		want    string
		wantErr bool
	}{
		{name: "child", rel: "Veneer", want: filepath.Join(base, "Veneer")},
		{name: "nested", rel: "Veneer/gtk-3.0/gtk.css", want: filepath.Join(base, "Veneer", "gtk-3.0", "gtk.css")},
		{name: "empty", rel: "", wantErr: true},
		{name: "absolute", rel: "/etc/passwd", wantErr: true},
		{name: "traversal", rel: "../.config", wantErr: true},
		{name: "hidden traversal", rel: "Veneer/../../x", wantErr: true},
		{name: "base itself", rel: ".", wantErr: true},
		{name: "dotted name", rel: "..Veneer", want: filepath.Join(base, "..Veneer")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Within(base, tt.rel)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Within(%q) = %q, want error", tt.rel, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Within(%q) = %q, want %q", tt.rel, got, tt.want)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{name: "Veneer"},
		{name: "Veneer Dark"},
		{name: "", wantErr: true},
		{name: "..", wantErr: true},
		{name: "a/b", wantErr: true},
		{name: `a\b`, wantErr: true},
		{name: ".hidden", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}
}
