// Package security validates paths the agent writes to or removes.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Within returns base joined with rel after checking that the result stays
// strictly inside base. rel must be relative and free of "..".
func Within(base, rel string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("empty base directory")
	}
	if rel == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute path not allowed: %s", rel)
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == ".." {
			return "", fmt.Errorf("path contains directory traversal (..): %s", rel)
		}
	}

	cleanBase := filepath.Clean(base)
	joined := filepath.Join(cleanBase, rel)
	if !strings.HasPrefix(joined, cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path would escape %s: %s", cleanBase, rel)
	}
	return joined, nil
}

// ValidateName checks that name is a single path element usable as a
// directory name.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("invalid name %q", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("name must not contain path separators: %q", name)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("name must not be hidden: %q", name)
	}
	return nil
}
