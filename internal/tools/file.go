package tools

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nextlive/nextlive/internal/project"
	"github.com/nextlive/nextlive/internal/security"
)

// MaxReadFileSize caps getFile reads (10 MB) so a stray binary cannot blow
// up the prompt.
const MaxReadFileSize = 10 * 1024 * 1024

// GetFileInput is the decoded argument shape for getFile.
type GetFileInput struct {
	FileName  string `json:"fileName"`
	LineStart int    `json:"lineStart,omitempty"`
	LineEnd   int    `json:"lineEnd,omitempty"`
}

// EditFileInput is the decoded argument shape for editFile.
type EditFileInput struct {
	FileName  string `json:"fileName"`
	LineStart int    `json:"lineStart,omitempty"`
	LineEnd   int    `json:"lineEnd,omitempty"`
	Code      string `json:"code"`
}

// FileTools implements getFile and editFile over the project source tree.
// Bare filenames resolve through a depth-first search of the tree; the
// first match wins. All access is confined to the tree root.
type FileTools struct {
	tree   *project.Tree
	paths  *security.Path
	logger *slog.Logger
}

// NewFileTools creates the file toolset.
func NewFileTools(tree *project.Tree, paths *security.Path, logger *slog.Logger) (*FileTools, error) {
	if tree == nil {
		return nil, fmt.Errorf("project tree is required")
	}
	if paths == nil {
		return nil, fmt.Errorf("path validator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileTools{tree: tree, paths: paths, logger: logger}, nil
}

// Executors returns the getFile and editFile executors.
func (f *FileTools) Executors() []Executor {
	return []Executor{
		NewTool(getFileDeclaration(), f.GetFile),
		NewTool(editFileDeclaration(), f.EditFile),
	}
}

// resolve maps a model-supplied filename to a validated absolute path.
// A bare name found in the tree resolves to its first depth-first match.
// Names carrying a path separator never hit the search: they are taken
// literally, relative to the tree root, so two files sharing a base name
// cannot shadow each other.
func (f *FileTools) resolve(fileName string) (string, error) {
	rel := fileName
	if !strings.ContainsRune(fileName, '/') {
		if found, ok := f.tree.Find(fileName); ok {
			rel = found
		}
	}
	return f.paths.Validate(rel)
}

// GetFile reads a file, optionally restricted to a 1-indexed inclusive
// line range.
func (f *FileTools) GetFile(_ context.Context, args map[string]any) Result {
	if _, err := requireString(args, "fileName"); err != nil {
		return Errorf("getFile: %v", err)
	}
	in, err := decodeArgs[GetFileInput](args)
	if err != nil {
		return Errorf("getFile: %v", err)
	}
	f.logger.Info("GetFile called", "fileName", in.FileName, "lineStart", in.LineStart, "lineEnd", in.LineEnd)

	path, err := f.resolve(in.FileName)
	if err != nil {
		return Errorf("getFile: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Errorf("File not found: %s", in.FileName)
		}
		return Errorf("getFile: %v", err)
	}
	if info.Size() > MaxReadFileSize {
		return Errorf("getFile: %s exceeds maximum readable size", in.FileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Errorf("getFile: %v", err)
	}
	content := string(data)

	if in.LineStart > 0 && in.LineEnd > 0 {
		content, err = sliceLines(content, in.LineStart, in.LineEnd)
		if err != nil {
			return Errorf("getFile: %v", err)
		}
	}
	return Ok(content)
}

// EditFile writes a file. With a line range it splices the range with the
// supplied code block; without one it replaces (or creates) the whole
// file. A range on a non-existent file is an error, not an implicit
// create.
func (f *FileTools) EditFile(_ context.Context, args map[string]any) Result {
	if _, err := requireString(args, "fileName"); err != nil {
		return Errorf("editFile: %v", err)
	}
	if _, ok := args["code"]; !ok {
		return Errorf("editFile: missing required parameter %q", "code")
	}
	in, err := decodeArgs[EditFileInput](args)
	if err != nil {
		return Errorf("editFile: %v", err)
	}
	f.logger.Info("EditFile called", "fileName", in.FileName, "lineStart", in.LineStart, "lineEnd", in.LineEnd)

	path, err := f.resolve(in.FileName)
	if err != nil {
		return Errorf("editFile: %v", err)
	}

	ranged := in.LineStart > 0 && in.LineEnd > 0
	if ranged {
		if err := spliceFile(path, in.LineStart, in.LineEnd, in.Code); err != nil {
			return Errorf("editFile: %v", err)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return Errorf("editFile: %v", err)
		}
		if err := os.WriteFile(path, []byte(in.Code), 0o600); err != nil {
			return Errorf("editFile: %v", err)
		}
	}
	return Ok(fmt.Sprintf("Successfully edited file: %s", in.FileName))
}

// sliceLines returns lines start..end (1-indexed, inclusive) of content.
// end is clamped to the last line; start past the end is an error.
func sliceLines(content string, start, end int) (string, error) {
	if start < 1 || end < start {
		return "", fmt.Errorf("invalid line range %d-%d", start, end)
	}
	lines := strings.Split(content, "\n")
	if start > len(lines) {
		return "", fmt.Errorf("line range %d-%d starts beyond end of file (%d lines)", start, end, len(lines))
	}
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start-1:end], "\n"), nil
}

// spliceFile replaces lines start..end of the file at path with the code
// block as a single unit, preserving everything outside the range.
func spliceFile(path string, start, end int, code string) error {
	if start < 1 || end < start {
		return fmt.Errorf("invalid line range %d-%d", start, end)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("cannot specify line numbers for non-existent file")
		}
		return err
	}

	lines := strings.Split(string(data), "\n")
	if start > len(lines) {
		return fmt.Errorf("line range %d-%d starts beyond end of file (%d lines)", start, end, len(lines))
	}
	if end > len(lines) {
		end = len(lines)
	}

	spliced := make([]string, 0, len(lines)-(end-start))
	spliced = append(spliced, lines[:start-1]...)
	spliced = append(spliced, code)
	spliced = append(spliced, lines[end:]...)

	return os.WriteFile(path, []byte(strings.Join(spliced, "\n")), 0o600)
}
