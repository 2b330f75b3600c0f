package desktop

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const gsettingsTimeout = 5 * time.Second

// runFunc executes gsettings with args and returns stdout.
type runFunc func(ctx context.Context, args ...string) ([]byte, error)

// GSettings reads and writes one schema through the gsettings binary.
type GSettings struct {
	schema string
	bin    string
	run    runFunc
}

// NewGSettings returns a client for schema.
func NewGSettings(schema string) *GSettings {
	g := &GSettings{schema: schema, bin: "gsettings"}
	g.run = g.exec
	return g
}

// Schema returns the schema id.
func (g *GSettings) Schema() string {
	return g.schema
}

// Available reports whether the schema is installed.
func (g *GSettings) Available(ctx context.Context) bool {
	out, err := g.run(ctx, "list-schemas")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == g.schema {
			return true
		}
	}
	return false
}

// Get returns the value of key with GVariant string quoting removed.
func (g *GSettings) Get(ctx context.Context, key string) (string, error) {
	out, err := g.run(ctx, "get", g.schema, key)
	if err != nil {
		return "", fmt.Errorf("gsettings get %s %s: %w", g.schema, key, err)
	}
	return parseValue(string(out)), nil
}

// SetString writes a string value.
func (g *GSettings) SetString(ctx context.Context, key, value string) error {
	return g.SetRaw(ctx, key, quote(value))
}

// SetRaw writes a value already in GVariant text form (true, 0.5, 'x').
func (g *GSettings) SetRaw(ctx context.Context, key, value string) error {
	if _, err := g.run(ctx, "set", g.schema, key, value); err != nil {
		return fmt.Errorf("gsettings set %s %s: %w", g.schema, key, err)
	}
	return nil
}

// Monitor streams changes of key (or of every key when key is empty) to fn
// until ctx is done. It returns once the monitor process has started.
func (g *GSettings) Monitor(ctx context.Context, key string, fn func(key, value string)) error {
	args := []string{"monitor", g.schema}
	if key != "" {
		args = append(args, key)
	}
	// #nosec G204 -- fixed binary, arguments are schema and key names
	cmd := exec.CommandContext(ctx, g.bin, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("gsettings monitor %s: %w", g.schema, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("gsettings monitor %s: %w", g.schema, err)
	}

	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			k, v, ok := parseMonitorLine(scanner.Text())
			if !ok {
				continue
			}
			fn(k, v)
		}
		_ = cmd.Wait()
	}()
	return nil
}

func (g *GSettings) exec(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, gsettingsTimeout)
	defer cancel()
	// #nosec G204 -- fixed binary, arguments are schema and key names
	out, err := exec.CommandContext(ctx, g.bin, args...).Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(ee.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

// parseMonitorLine splits "key: value" output from gsettings monitor.
func parseMonitorLine(line string) (string, string, bool) {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(key), parseValue(value), true
}

// parseValue strips GVariant type annotations and string quoting.
func parseValue(raw string) string {
	v := strings.TrimSpace(raw)
	for _, prefix := range []string{"uint32 ", "int32 ", "int64 ", "uint64 ", "double ", "@s "} {
		v = strings.TrimPrefix(v, prefix)
	}
	if len(v) >= 2 && (v[0] == '\'' || v[0] == '"') && v[len(v)-1] == v[0] {
		inner := v[1 : len(v)-1]
		var b strings.Builder
		for i := 0; i < len(inner); i++ {
			if inner[i] == '\\' && i+1 < len(inner) {
				i++
			}
			b.WriteByte(inner[i])
		}
		return b.String()
	}
	return v
}

// quote renders s as a GVariant string literal.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}
