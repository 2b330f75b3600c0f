package colour

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	veneerimage "github.com/jmylchreest/veneer/internal/image"
)

type countingLoader struct {
	inner veneerimage.Loader
	calls int
}

func (l *countingLoader) Load(path string) (image.Image, error) {
	l.calls++
	return l.inner.Load(path)
}

func writeWallpaper(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 80))
	for y := range 80 {
		for x := range 120 {
			switch {
			case x < 70:
				img.Set(x, y, color.RGBA{R: 30, G: 45, B: 70, A: 255})
			case x < 100:
				img.Set(x, y, color.RGBA{R: 200, G: 190, B: 180, A: 255})
			default:
				img.Set(x, y, color.RGBA{R: 230, G: 90, B: 20, A: 255})
			}
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create wallpaper: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode wallpaper: %v", err)
	}
	return path
}

func fixedClock() func() time.Time {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestExtractMissingFile(t *testing.T) {
	e := NewExtractor(nil)
	if s := e.Extract(filepath.Join(t.TempDir(), "missing.png"), ExtractOptions{}); s != nil {
		t.Errorf("expected nil scheme for missing file, got %+v", s)
	}
}

func TestExtractCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o600); err != nil {
		t.Fatal(err)
	}
	if s := NewExtractor(nil).Extract(path, ExtractOptions{}); s != nil {
		t.Errorf("expected nil scheme for corrupt file, got %+v", s)
	}
}

func TestExtractDeterministic(t *testing.T) {
	path := writeWallpaper(t, t.TempDir(), "wall.png")
	e := NewExtractor(nil, WithClock(fixedClock()))

	first := e.Extract(path, ExtractOptions{Force: true})
	second := e.Extract(path, ExtractOptions{Force: true})
	if first == nil || second == nil {
		t.Fatal("expected schemes")
	}
	if *first != *second {
		t.Errorf("forced extractions differ:\n%+v\n%+v", first, second)
	}

	// The dominant stripe is the dark blue one.
	if d := first.Dominant; d.B < d.R || d.R > 60 {
		t.Errorf("Dominant = %v, want the dark blue stripe", d)
	}
	if first.Source.Size == 0 || first.Source.Path == "" {
		t.Errorf("source not recorded: %+v", first.Source)
	}
}

func TestExtractUsesCache(t *testing.T) {
	path := writeWallpaper(t, t.TempDir(), "wall.png")
	loader := &countingLoader{inner: veneerimage.NewFileLoader()}
	e := NewExtractor(nil, WithLoader(loader))

	first := e.Extract(path, ExtractOptions{})
	second := e.Extract(path, ExtractOptions{})
	if first == nil || first != second {
		t.Fatal("expected the cached scheme on the second call")
	}
	if loader.calls != 1 {
		t.Errorf("loader called %d times, want 1", loader.calls)
	}

	e.Extract(path, ExtractOptions{Force: true})
	if loader.calls != 2 {
		t.Errorf("forced extraction did not bypass the cache (calls=%d)", loader.calls)
	}

	// A different budget is a different cache entry.
	e.Extract(path, ExtractOptions{SampleBudget: 64})
	if loader.calls != 3 {
		t.Errorf("budget change reused cached scheme (calls=%d)", loader.calls)
	}
}

func TestExtractCacheInvalidatedByModification(t *testing.T) {
	dir := t.TempDir()
	path := writeWallpaper(t, dir, "wall.png")
	loader := &countingLoader{inner: veneerimage.NewFileLoader()}
	e := NewExtractor(nil, WithLoader(loader))

	e.Extract(path, ExtractOptions{})
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	e.Extract(path, ExtractOptions{})
	if loader.calls != 2 {
		t.Errorf("modified file served from cache (calls=%d)", loader.calls)
	}
}

func TestExtractCacheEviction(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(nil, WithCacheEntries(2))
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		if e.Extract(writeWallpaper(t, dir, name), ExtractOptions{}) == nil {
			t.Fatalf("extraction of %s failed", name)
		}
	}
	if got := e.Len(); got != 2 {
		t.Errorf("cache holds %d entries, want 2", got)
	}
}

func TestCachePersistence(t *testing.T) {
	dir := t.TempDir()
	path := writeWallpaper(t, dir, "wall.png")
	cachePath := filepath.Join(dir, "cache", "palette-cache.json.xz")

	e := NewExtractor(nil)
	want := e.Extract(path, ExtractOptions{})
	if want == nil {
		t.Fatal("expected a scheme")
	}
	if err := e.SaveCache(cachePath); err != nil {
		t.Fatalf("SaveCache() error = %v", err)
	}

	loader := &countingLoader{inner: veneerimage.NewFileLoader()}
	restored := NewExtractor(nil, WithLoader(loader))
	if err := restored.LoadCache(cachePath); err != nil {
		t.Fatalf("LoadCache() error = %v", err)
	}
	got := restored.Extract(path, ExtractOptions{})
	if got == nil {
		t.Fatal("expected a scheme from the restored cache")
	}
	if loader.calls != 0 {
		t.Errorf("restored cache missed (loader calls=%d)", loader.calls)
	}
	if got.Dominant != want.Dominant || got.Accent != want.Accent {
		t.Errorf("restored scheme differs: got %+v, want %+v", got, want)
	}
}

func TestLoadCacheMissing(t *testing.T) {
	if err := NewExtractor(nil).LoadCache(filepath.Join(t.TempDir(), "none.xz")); err != nil {
		t.Errorf("missing cache should not be an error: %v", err)
	}
}
