// Package overlay builds and activates the generated overlay theme.
package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"text/template"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/veneer/internal/colour"
	"github.com/jmylchreest/veneer/internal/security"
	"github.com/jmylchreest/veneer/internal/settings"
	"github.com/jmylchreest/veneer/internal/theme"
)

// ErrNoSource is returned when a build has no source theme.
var ErrNoSource = errors.New("no source theme")

// Asset directories linked from the source theme.
var assetDirs = []string{"gtk-3.0/assets", "gtk-4.0/assets", "gnome-shell/assets"}

// Result describes a build.
type Result struct {
	Dir         string
	Fingerprint uint64
	// Changed is false when the live tree already matched and nothing was
	// written.
	Changed bool
}

// rendered is a complete overlay tree held in memory.
type rendered struct {
	files map[string][]byte
	links map[string]string
	fp    uint64
}

// Builder renders overlay trees under root/name.
type Builder struct {
	root      string
	name      string
	templates map[string]*template.Template
	custom    map[string]bool
	logger    hclog.Logger

	writeFile func(path string, data []byte, perm os.FileMode) error
	rename    func(oldpath, newpath string) error
}

// BuilderOption configures a Builder.
type BuilderOption func(*builderOptions)

type builderOptions struct {
	templateDir string
}

// WithTemplateDir reads template overrides from dir.
func WithTemplateDir(dir string) BuilderOption {
	return func(o *builderOptions) {
		o.templateDir = dir
	}
}

// NewBuilder parses the templates and returns a Builder writing to
// root/name.
func NewBuilder(root, name string, logger hclog.Logger, opts ...BuilderOption) (*Builder, error) {
	if root == "" {
		return nil, fmt.Errorf("overlay root is required")
	}
	if err := security.ValidateName(name); err != nil {
		return nil, fmt.Errorf("invalid overlay name: %w", err)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	var o builderOptions
	for _, opt := range opts {
		opt(&o)
	}

	parsed, custom, err := loadTemplates(o.templateDir)
	if err != nil {
		return nil, err
	}
	b := &Builder{
		root:      root,
		name:      name,
		templates: parsed,
		custom:    custom,
		logger:    logger.Named("builder"),
		writeFile: os.WriteFile,
		rename:    os.Rename,
	}
	for tmpl, fromCustom := range custom {
		if fromCustom {
			b.logger.Info("using custom template", "template", tmpl, "dir", o.templateDir)
		}
	}
	return b, nil
}

// Dir returns the live overlay directory.
func (b *Builder) Dir() string {
	return filepath.Join(b.root, b.name)
}

// Name returns the overlay theme name.
func (b *Builder) Name() string {
	return b.name
}

// Fingerprint renders in memory and returns the fingerprint a Build with the
// same inputs would record.
func (b *Builder) Fingerprint(src *theme.Descriptor, p settings.Params, scheme *colour.Scheme) (uint64, error) {
	if src == nil {
		return 0, ErrNoSource
	}
	r, err := b.render(src, p, scheme)
	if err != nil {
		return 0, err
	}
	return r.fp, nil
}

// Build writes the overlay for src. The live tree is replaced only after
// the complete new tree has been written; on failure the previous tree is
// left untouched. A build whose fingerprint matches the live tree writes
// nothing.
func (b *Builder) Build(src *theme.Descriptor, p settings.Params, scheme *colour.Scheme) (Result, error) {
	if src == nil {
		return Result{}, ErrNoSource
	}
	r, err := b.render(src, p, scheme)
	if err != nil {
		return Result{}, err
	}

	live := b.Dir()
	res := Result{Dir: live, Fingerprint: r.fp}
	if m, _, err := readMarker(live); err == nil && parseFingerprint(m.Fingerprint) == r.fp {
		b.logger.Debug("overlay unchanged", "source", src.Name, "fingerprint", m.Fingerprint)
		return res, nil
	}

	if err := os.MkdirAll(b.root, 0o755); err != nil { // #nosec G301 - Theme directories need standard permissions
		return Result{}, fmt.Errorf("failed to create overlay root: %w", err)
	}
	staging, err := os.MkdirTemp(b.root, "."+b.name+".staging-")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create staging directory: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(staging)
		}
	}()

	if err := b.write(staging, src, r); err != nil {
		return Result{}, err
	}
	if err := b.swap(staging, live); err != nil {
		return Result{}, err
	}
	committed = true

	b.logger.Info("overlay built", "source", src.Name, "dir", live, "fingerprint", formatFingerprint(r.fp))
	res.Changed = true
	return res, nil
}

// Remove deletes the live overlay tree.
func (b *Builder) Remove() error {
	if err := os.RemoveAll(b.Dir()); err != nil {
		return fmt.Errorf("failed to remove overlay: %w", err)
	}
	return nil
}

func (b *Builder) render(src *theme.Descriptor, p settings.Params, scheme *colour.Scheme) (rendered, error) {
	data := resolveStyle(b.name, src, p, scheme)

	r := rendered{files: make(map[string][]byte, len(outputs)), links: make(map[string]string)}
	for _, o := range outputs {
		var buf bytes.Buffer
		if err := b.templates[o.template].Execute(&buf, data); err != nil {
			return rendered{}, fmt.Errorf("failed to execute template %s: %w", o.template, err)
		}
		r.files[o.path] = buf.Bytes()
	}
	for _, rel := range assetDirs {
		target := filepath.Join(src.Path, rel)
		if info, err := os.Stat(target); err == nil && info.IsDir() {
			r.links[rel] = target
		}
	}

	h := xxhash.New()
	_, _ = h.WriteString(src.Name)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(src.Path)
	_, _ = h.Write([]byte{0})
	for _, path := range sortedKeys(r.files) {
		_, _ = h.WriteString(path)
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(r.files[path])
		_, _ = h.Write([]byte{0})
	}
	for _, path := range sortedKeys(r.links) {
		_, _ = h.WriteString(path)
		_, _ = h.Write([]byte{'>'})
		_, _ = h.WriteString(r.links[path])
		_, _ = h.Write([]byte{0})
	}
	r.fp = h.Sum64()
	return r, nil
}

func (b *Builder) write(dir string, src *theme.Descriptor, r rendered) error {
	if err := os.Chmod(dir, 0o755); err != nil { // #nosec G302 - Theme directories must be readable by the desktop
		return fmt.Errorf("failed to set overlay permissions: %w", err)
	}
	for _, path := range sortedKeys(r.files) {
		full, err := security.Within(dir, path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil { // #nosec G301 - Theme directories need standard permissions
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
		}
		if err := b.writeFile(full, r.files[path], 0o644); err != nil { // #nosec G306 - Theme files must be readable by the desktop
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	for _, path := range sortedKeys(r.links) {
		full, err := security.Within(dir, path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil { // #nosec G301 - Theme directories need standard permissions
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
		}
		if err := os.Symlink(r.links[path], full); err != nil {
			return fmt.Errorf("failed to link %s: %w", path, err)
		}
	}

	data, err := encodeMarker(marker{
		Source:      src.Name,
		SourcePath:  src.Path,
		Fingerprint: formatFingerprint(r.fp),
	})
	if err != nil {
		return err
	}
	if err := b.writeFile(filepath.Join(dir, MarkerFile), data, 0o644); err != nil { // #nosec G306 - Marker is not sensitive
		return fmt.Errorf("failed to write marker: %w", err)
	}
	return nil
}

// swap moves staging into place, keeping the previous tree until the new
// one is live.
func (b *Builder) swap(staging, live string) error {
	old := filepath.Join(b.root, "."+b.name+".old")
	_ = os.RemoveAll(old)

	_, err := os.Lstat(live)
	hadLive := err == nil
	if hadLive {
		if err := b.rename(live, old); err != nil {
			return fmt.Errorf("failed to move previous overlay aside: %w", err)
		}
	}
	if err := b.rename(staging, live); err != nil {
		if hadLive {
			if rerr := b.rename(old, live); rerr != nil {
				b.logger.Error("failed to restore previous overlay", "dir", live, "error", rerr)
			}
		}
		return fmt.Errorf("failed to move overlay into place: %w", err)
	}
	if hadLive {
		if err := os.RemoveAll(old); err != nil {
			b.logger.Warn("failed to remove previous overlay", "dir", old, "error", err)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
