// Package security validates operator-supplied file paths.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// forbiddenChars are shell metacharacters never accepted in a path.
var forbiddenChars = []string{";", "&", "|", "$", "`", "(", ")", "{", "}", "<", ">", "!", "\n", "\r"}

// ErrEmptyPath is returned for an empty path.
var ErrEmptyPath = errors.New("path cannot be empty")

// ResolvePath cleans path, makes it absolute and follows symlinks. Paths that
// do not exist yet are returned cleaned.
func ResolvePath(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	for _, char := range forbiddenChars {
		if strings.Contains(path, char) {
			return "", fmt.Errorf("path contains forbidden character %q: %s", char, path)
		}
	}

	clean, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(clean)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return clean, nil
		}
		return "", fmt.Errorf("resolve path: %w", err)
	}
	return resolved, nil
}
