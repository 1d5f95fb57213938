// Package project builds and queries the host project's source file tree.
//
// The tree serves two consumers: the system prompt, which embeds a JSON
// rendering of the structure so the model knows what exists, and the file
// tools, which resolve a bare filename like "page.tsx" to its
// project-relative path.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Node kinds in the rendered tree.
const (
	TypeFile      = "file"
	TypeDirectory = "directory"
)

// Node is one entry in the project tree.
type Node struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Type     string  `json:"type"`
	Children []*Node `json:"children,omitempty"`
}

// DefaultSkipDirs are directories never descended into.
func DefaultSkipDirs() []string {
	return []string{"node_modules", ".next", ".git"}
}

// DefaultExtensions are the source file extensions included in the tree.
func DefaultExtensions() []string {
	return []string{".ts", ".tsx", ".js", ".jsx", ".css", ".html", ".json", ".md"}
}

// Tree scans a root directory on demand. It holds no cached state: the
// session rebuilds the structure at the start of every message so edits
// made by earlier tool calls are visible.
type Tree struct {
	root string
	skip map[string]bool
	exts map[string]bool
}

// Option configures a Tree.
type Option func(*Tree)

// WithSkipDirs replaces the skipped directory names.
func WithSkipDirs(dirs []string) Option {
	return func(t *Tree) {
		t.skip = make(map[string]bool, len(dirs))
		for _, d := range dirs {
			t.skip[d] = true
		}
	}
}

// WithExtensions replaces the included file extensions.
func WithExtensions(exts []string) Option {
	return func(t *Tree) {
		t.exts = make(map[string]bool, len(exts))
		for _, e := range exts {
			t.exts[strings.ToLower(e)] = true
		}
	}
}

// New creates a Tree rooted at root.
func New(root string, opts ...Option) *Tree {
	t := &Tree{root: root}
	WithSkipDirs(DefaultSkipDirs())(t)
	WithExtensions(DefaultExtensions())(t)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Root returns the scanned root directory.
func (t *Tree) Root() string { return t.root }

// Build walks the root and returns the tree. Entries are sorted by name so
// the rendering, and therefore filename resolution order, is deterministic.
func (t *Tree) Build() ([]*Node, error) {
	return t.buildDir(t.root, "")
}

func (t *Tree) buildDir(dir, base string) ([]*Node, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var nodes []*Node
	for _, entry := range entries {
		name := entry.Name()
		rel := filepath.Join(base, name)

		if entry.IsDir() {
			if t.skip[name] {
				continue
			}
			children, err := t.buildDir(filepath.Join(dir, name), rel)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, &Node{
				Name:     name,
				Path:     rel,
				Type:     TypeDirectory,
				Children: children,
			})
			continue
		}

		if !t.exts[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		nodes = append(nodes, &Node{Name: name, Path: rel, Type: TypeFile})
	}
	return nodes, nil
}

// StructureJSON renders the tree as indented JSON for prompt embedding.
func (t *Tree) StructureJSON() (string, error) {
	nodes, err := t.Build()
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(nodes, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling project structure: %w", err)
	}
	return string(data), nil
}

// Find resolves a bare filename to its project-relative path using a
// depth-first search; the first match wins. Ambiguous names therefore
// resolve to the lexically first depth-first hit. The boolean reports
// whether a match was found.
func (t *Tree) Find(fileName string) (string, bool) {
	nodes, err := t.Build()
	if err != nil {
		return "", false
	}
	return findIn(nodes, fileName)
}

func findIn(nodes []*Node, fileName string) (string, bool) {
	for _, n := range nodes {
		if n.Type == TypeFile && n.Name == fileName {
			return n.Path, true
		}
		if n.Type == TypeDirectory {
			if path, ok := findIn(n.Children, fileName); ok {
				return path, ok
			}
		}
	}
	return "", false
}
