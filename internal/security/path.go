// Package security provides the input validators that sit between the tool
// executors and the machine: path confinement for file access, filename
// checks for generated images, and a size cap for shell commands.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathOutsideRoot indicates a path escaping the project root (CWE-22).
var ErrPathOutsideRoot = errors.New("path outside project root")

// Path confines file access to a single root directory.
// The zero value is not usable; construct with NewPath.
type Path struct {
	root string
}

// NewPath creates a validator rooted at root. The root is resolved to an
// absolute path once at construction.
func NewPath(root string) (*Path, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", root, err)
	}
	return &Path{root: abs}, nil
}

// Root returns the absolute root directory.
func (p *Path) Root() string { return p.root }

// Validate cleans rel (absolute paths are allowed if they stay inside the
// root), verifies the result is confined to the root, and resolves symlinks
// so a link cannot smuggle access outside. It returns the safe absolute
// path. Non-existent files pass as long as the literal path is confined,
// which allows tools to create new files.
func (p *Path) Validate(rel string) (string, error) {
	cleaned := filepath.Clean(rel)

	abs := cleaned
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(p.root, cleaned)
	}
	abs = filepath.Clean(abs)

	if !p.contains(abs) {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideRoot, abs)
	}

	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			// New file: the literal path passed confinement above.
			return abs, nil
		}
		return "", fmt.Errorf("resolving symlinks for %s: %w", abs, err)
	}
	if real != abs && !p.contains(real) {
		return "", fmt.Errorf("%w: %s resolves to %s", ErrPathOutsideRoot, abs, real)
	}
	return abs, nil
}

// contains reports whether abs is the root itself or inside it.
func (p *Path) contains(abs string) bool {
	if abs == p.root {
		return true
	}
	return strings.HasPrefix(abs, p.root+string(filepath.Separator))
}
