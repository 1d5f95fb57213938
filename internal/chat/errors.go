package chat

import "errors"

// Sentinel errors for callers that need to classify failures.
var (
	// ErrModelInvocation wraps failures of the underlying model call that
	// survived retries. The session stays usable; the error turn has
	// already been appended to the history.
	ErrModelInvocation = errors.New("model invocation failed")

	// ErrNoImageGenerator is returned by GenerateImage when the service
	// was built without an image generator.
	ErrNoImageGenerator = errors.New("no image generator configured")
)
