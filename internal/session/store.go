package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// lockFile guards the chats directory against concurrent writer processes
// (two widget hosts sharing one project checkout).
const lockFile = ".chats.lock"

// Store persists chats as one JSON document per chat id inside a single
// directory. All operations are fallible and the caller is expected to
// degrade gracefully: a failed save never aborts a conversation.
//
// Store is safe for concurrent use within one process; cross-process
// writes are serialized with a file lock.
type Store struct {
	dir    string
	lock   *flock.Flock
	logger *slog.Logger
}

// NewStore creates a Store over dir, creating the directory if needed.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating chats directory %s: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		lock:   flock.New(filepath.Join(dir, lockFile)),
		logger: logger,
	}, nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string { return s.dir }

// validateID rejects ids that are empty or would resolve outside the
// chats directory.
func validateID(id string) error {
	if id == "" {
		return ErrInvalidID
	}
	if filepath.Base(id) != id || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes the chat document for id, overwriting any previous version.
// The timestamp is set at save time.
func (s *Store) Save(ctx context.Context, id, model string, turns []Turn) error {
	if err := validateID(id); err != nil {
		return err
	}

	chat := SavedChat{
		ID:        id,
		Model:     model,
		Messages:  turns,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(chat, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding chat %s: %w", id, err)
	}

	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("locking chats directory: %w", err)
	}
	if !locked {
		return fmt.Errorf("locking chats directory: lock not acquired")
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("unlocking chats directory", "error", err)
		}
	}()

	// Write-then-rename so a crashed save never leaves a torn document.
	tmp := s.path(id) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing chat %s: %w", id, err)
	}
	if err := os.Rename(tmp, s.path(id)); err != nil {
		return fmt.Errorf("renaming chat %s: %w", id, err)
	}

	s.logger.Debug("saved chat", "id", id, "turns", len(turns))
	return nil
}

// Get loads the chat document for id.
func (s *Store) Get(_ context.Context, id string) (*SavedChat, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("reading chat %s: %w", id, err)
	}

	var chat SavedChat
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, fmt.Errorf("decoding chat %s: %w", id, err)
	}
	return &chat, nil
}

// List returns every stored chat sorted by timestamp descending. Ties keep
// a stable order (by filename, the order the directory listing produced).
// Unreadable or corrupt documents are skipped with a warning rather than
// failing the whole listing.
func (s *Store) List(_ context.Context) ([]*SavedChat, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading chats directory: %w", err)
	}

	chats := make([]*SavedChat, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			s.logger.Warn("skipping unreadable chat", "file", name, "error", err)
			continue
		}
		var chat SavedChat
		if err := json.Unmarshal(data, &chat); err != nil {
			s.logger.Warn("skipping corrupt chat", "file", name, "error", err)
			continue
		}
		chats = append(chats, &chat)
	}

	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].Timestamp.After(chats[j].Timestamp)
	})
	return chats, nil
}

// Remove deletes the chat document for id.
func (s *Store) Remove(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("removing chat %s: %w", id, err)
	}
	s.logger.Debug("removed chat", "id", id)
	return nil
}
