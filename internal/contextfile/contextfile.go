// Package contextfile loads user-supplied reference files and formats
// them for oracle prompts. Markdown files additionally get an outline of
// their headings so the model can navigate long documents.
package contextfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// DefaultMaxSize caps a single context file at 1 MiB.
const DefaultMaxSize = 1 << 20

// textExtensions are the file types accepted without a warning.
var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".json": true, ".yaml": true, ".yml": true,
	".sh": true, ".bash": true, ".py": true, ".js": true, ".ts": true,
	".conf": true, ".cfg": true, ".ini": true, ".toml": true,
	".xml": true, ".html": true, ".css": true, ".sql": true,
	".log": true, ".env": true, ".rst": true,
	".c": true, ".cpp": true, ".h": true, ".java": true, ".go": true,
	".rb": true, ".php": true, ".pl": true, ".swift": true,
}

// File is one loaded context file.
type File struct {
	Path    string
	Name    string
	Content string
	Size    int64
	Outline []string // markdown heading outline, nil for other types
}

// Loader validates and reads context files.
type Loader struct {
	MaxSize  int64
	markdown goldmark.Markdown

	// Warnf receives non-fatal notices (odd extension, empty file).
	Warnf func(format string, args ...any)
}

// NewLoader builds a loader with the default size cap.
func NewLoader() *Loader {
	return &Loader{
		MaxSize:  DefaultMaxSize,
		markdown: goldmark.New(),
	}
}

func (l *Loader) warnf(format string, args ...any) {
	if l.Warnf != nil {
		l.Warnf(format, args...)
	}
}

// Validate checks that path names a readable regular file within the
// size cap.
func (l *Loader) Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("context file does not exist: %s", path)
		}
		return fmt.Errorf("stat context file %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("context path is not a regular file: %s", path)
	}
	if info.Size() > l.MaxSize {
		return fmt.Errorf("context file too large: %s is %d bytes (limit %d)", path, info.Size(), l.MaxSize)
	}
	if info.Size() == 0 {
		l.warnf("context file is empty: %s", path)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != "" && !textExtensions[ext] {
		l.warnf("context file %s has extension %s, which may not be text", path, ext)
	}
	return nil
}

// Load validates and reads a single file.
func (l *Loader) Load(path string) (*File, error) {
	if err := l.Validate(path); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read context file %s: %w", path, err)
	}
	f := &File{
		Path:    path,
		Name:    filepath.Base(path),
		Content: strings.ToValidUTF8(string(content), "�"),
		Size:    int64(len(content)),
	}
	if strings.EqualFold(filepath.Ext(path), ".md") {
		f.Outline = l.outline(content)
	}
	return f, nil
}

// LoadAll reads every path, skipping files that fail validation (each
// skip goes through Warnf). It errors only when nothing loaded at all
// while paths were given.
func (l *Loader) LoadAll(paths []string) ([]*File, error) {
	var files []*File
	for _, path := range paths {
		f, err := l.Load(path)
		if err != nil {
			l.warnf("skipping context file: %v", err)
			continue
		}
		files = append(files, f)
	}
	if len(paths) > 0 && len(files) == 0 {
		return nil, fmt.Errorf("none of the %d context files could be loaded", len(paths))
	}
	return files, nil
}

// outline walks the markdown AST and collects heading titles.
func (l *Loader) outline(source []byte) []string {
	doc := l.markdown.Parser().Parse(gmtext.NewReader(source))
	var headings []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok {
			title := headingText(heading, source)
			if title != "" {
				headings = append(headings, strings.Repeat("#", heading.Level)+" "+title)
			}
		}
		return ast.WalkContinue, nil
	})
	return headings
}

func headingText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(source))
		}
	}
	return strings.TrimSpace(b.String())
}

// Format renders loaded files as a prompt fragment.
func Format(files []*File) string {
	if len(files) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("=== User Provided Context Files ===\n")
	for _, f := range files {
		lineCount := strings.Count(f.Content, "\n") + 1
		fmt.Fprintf(&b, "\n--- File: %s (%d bytes, %d lines) ---\n", f.Name, f.Size, lineCount)
		if len(f.Outline) > 0 {
			b.WriteString("Document outline:\n")
			for _, h := range f.Outline {
				fmt.Fprintf(&b, "  %s\n", h)
			}
			b.WriteString("\n")
		}
		b.WriteString(f.Content)
		if !strings.HasSuffix(f.Content, "\n") {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "--- End of %s ---\n", f.Name)
	}
	b.WriteString("\nConsider these files when generating commands.\n")
	b.WriteString("=== End of User Context ===")
	return b.String()
}
