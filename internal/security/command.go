package security

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCommand indicates a shell command that fails basic validation.
var ErrInvalidCommand = errors.New("invalid command")

// MaxCommandLength is the maximum command line size in bytes. Prevents
// abuse via extremely long model-generated command strings.
const MaxCommandLength = 10000

// ValidateCommand performs baseline validation of a model-supplied shell
// command. The assistant intentionally runs arbitrary commands on behalf of
// the developer, so this is a sanity gate, not an allowlist: it rejects
// empty input, oversized input, and NUL bytes.
func ValidateCommand(command string) error {
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidCommand)
	}
	if len(command) > MaxCommandLength {
		return fmt.Errorf("%w: length %d exceeds maximum %d bytes", ErrInvalidCommand, len(command), MaxCommandLength)
	}
	if strings.ContainsRune(command, '\x00') {
		return fmt.Errorf("%w: NUL byte", ErrInvalidCommand)
	}
	return nil
}
