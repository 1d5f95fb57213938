package session

import "errors"

// Sentinel errors for store operations, checked with errors.Is.
var (
	// ErrNotFound indicates the requested chat id has no stored document.
	ErrNotFound = errors.New("chat not found")

	// ErrInvalidID indicates a chat id that is empty or would escape the
	// chats directory.
	ErrInvalidID = errors.New("invalid chat id")
)
