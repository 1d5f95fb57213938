package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidFilename indicates a filename that is empty or carries path
// components; generated artifacts are always written as bare names inside
// their designated directory.
var ErrInvalidFilename = errors.New("invalid filename")

// MaxFilenameLength bounds generated filenames. Model-produced names are
// untrusted input.
const MaxFilenameLength = 255

// ValidateFilename checks a model-supplied filename for an image or other
// generated artifact. Only a bare file name is accepted: no separators, no
// parent references, no hidden leading dot.
func ValidateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidFilename)
	}
	if len(name) > MaxFilenameLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidFilename, MaxFilenameLength)
	}
	if filepath.Base(name) != name {
		return fmt.Errorf("%w: %q contains path components", ErrInvalidFilename, name)
	}
	if name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	if strings.ContainsAny(name, "\x00\n\r") {
		return fmt.Errorf("%w: control characters in %q", ErrInvalidFilename, name)
	}
	return nil
}
