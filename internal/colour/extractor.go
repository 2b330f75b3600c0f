package colour

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	veneerimage "github.com/jmylchreest/veneer/internal/image"
)

const (
	// DefaultSampleBudget is the number of pixels clustered per image.
	DefaultSampleBudget = 4096
	// DefaultClusters is the number of k-means clusters.
	DefaultClusters = 5
	// DefaultCacheEntries bounds the in-memory scheme cache.
	DefaultCacheEntries = 16
)

// ExtractOptions tune a single extraction.
type ExtractOptions struct {
	// SampleBudget caps the number of pixels clustered. Zero uses the
	// extractor default.
	SampleBudget int
	// Force bypasses the cache.
	Force bool
}

// Extractor turns wallpaper images into colour schemes.
// It is safe for concurrent use.
type Extractor struct {
	loader       veneerimage.Loader
	kmeans       *KMeans
	sampleBudget int
	clusters     int
	maxEntries   int
	now          func() time.Time
	logger       hclog.Logger

	mu    sync.Mutex
	cache map[string]*Scheme
	order []string // least recently used first
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithSampleBudget sets the default pixel budget.
func WithSampleBudget(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.sampleBudget = n
		}
	}
}

// WithCacheEntries sets the cache capacity.
func WithCacheEntries(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.maxEntries = n
		}
	}
}

// WithClock overrides the clock used to stamp schemes.
func WithClock(now func() time.Time) ExtractorOption {
	return func(e *Extractor) {
		e.now = now
	}
}

// WithLoader overrides the image loader.
func WithLoader(l veneerimage.Loader) ExtractorOption {
	return func(e *Extractor) {
		e.loader = l
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(logger hclog.Logger, opts ...ExtractorOption) *Extractor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	e := &Extractor{
		loader:       veneerimage.NewFileLoader(),
		kmeans:       NewKMeans(),
		sampleBudget: DefaultSampleBudget,
		clusters:     DefaultClusters,
		maxEntries:   DefaultCacheEntries,
		now:          time.Now,
		logger:       logger.Named("extractor"),
		cache:        make(map[string]*Scheme),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the colour scheme of the image at path, or nil when the
// image is missing or cannot be decoded. Failures are logged, never
// returned. Results are cached by path, size and modification time unless
// opts.Force is set.
func (e *Extractor) Extract(path string, opts ExtractOptions) *Scheme {
	budget := opts.SampleBudget
	if budget <= 0 {
		budget = e.sampleBudget
	}

	src, err := identify(path)
	if err != nil {
		e.logger.Warn("cannot read wallpaper", "path", path, "error", err)
		return nil
	}
	key := cacheKey(src, budget)

	if !opts.Force {
		if s := e.lookup(key); s != nil {
			e.logger.Debug("using cached colour scheme", "path", src.Path)
			return s
		}
	}

	start := e.now()
	scheme, err := e.extract(src, budget)
	if err != nil {
		e.logger.Warn("colour extraction failed", "path", src.Path, "error", err)
		return nil
	}
	e.logger.Debug("extracted colour scheme", "path", src.Path,
		"dominant", scheme.Dominant.Hex(), "accent", scheme.Accent.Hex(),
		"elapsed", e.now().Sub(start))

	e.store(key, scheme)
	return scheme
}

func (e *Extractor) extract(src Source, budget int) (*Scheme, error) {
	img, err := e.loader.Load(src.Path)
	if err != nil {
		return nil, err
	}

	seed := ContentSeed(img)
	sampled := veneerimage.Downsample(img, budget)
	bounds := sampled.Bounds()
	pixels := make([]RGB, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := sampled.At(x, y)
			if _, _, _, a := c.RGBA(); a == 0 {
				continue
			}
			pixels = append(pixels, ToRGB(c))
		}
	}
	if len(pixels) == 0 {
		return nil, fmt.Errorf("no opaque pixels in image")
	}

	scheme, ok := DeriveScheme(e.kmeans.Cluster(pixels, e.clusters, seed))
	if !ok {
		return nil, fmt.Errorf("clustering produced no colours")
	}
	scheme.Source = src
	scheme.ExtractedAt = e.now()
	return &scheme, nil
}

// Len returns the number of cached schemes.
func (e *Extractor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.order)
}

func (e *Extractor) lookup(key string) *Scheme {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.cache[key]
	if !ok {
		return nil
	}
	e.touch(key)
	return s
}

func (e *Extractor) store(key string, s *Scheme) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.cache[key]; !ok {
		e.order = append(e.order, key)
	} else {
		e.touch(key)
	}
	e.cache[key] = s
	for len(e.order) > e.maxEntries {
		oldest := e.order[0]
		e.order = e.order[1:]
		delete(e.cache, oldest)
	}
}

// touch moves key to the most recently used position. Caller holds mu.
func (e *Extractor) touch(key string) {
	for i, k := range e.order {
		if k == key {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.order = append(e.order, key)
}

func identify(path string) (Source, error) {
	if path == "" {
		return Source{}, fmt.Errorf("image path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Source{}, err
	}
	if info.IsDir() {
		return Source{}, fmt.Errorf("path is a directory, not a file: %s", abs)
	}
	return Source{Path: abs, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func cacheKey(src Source, budget int) string {
	return fmt.Sprintf("%s|%d|%d|%d", src.Path, src.Size, src.ModTime.UnixNano(), budget)
}
