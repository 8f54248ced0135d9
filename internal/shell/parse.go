// Package shell provides a small typed parser over command lines. It
// classifies a raw command into a shape (simple, sequenced, piped, directory
// change) so that callers make gate and interception decisions on structure
// instead of repeated substring scans.
package shell

import "strings"

// Shape categorizes the top-level structure of a command line.
type Shape int

const (
	// ShapeSimple is a single command with no sequencing or pipes.
	ShapeSimple Shape = iota
	// ShapeSequenced contains &&, || or ; outside quotes.
	ShapeSequenced
	// ShapePiped is one or more | segments with no sequencing operators.
	ShapePiped
	// ShapeDirectoryChange is a bare cd (optionally with a target), with no
	// sequencing or pipes. It is never physically executed; the caller folds
	// it into the tracked working directory.
	ShapeDirectoryChange
)

// String returns the string representation of Shape.
func (s Shape) String() string {
	switch s {
	case ShapeSimple:
		return "simple"
	case ShapeSequenced:
		return "sequenced"
	case ShapePiped:
		return "piped"
	case ShapeDirectoryChange:
		return "cd"
	default:
		return "unknown"
	}
}

// Segment is one pipeline segment of a command line.
type Segment struct {
	Raw     string
	Leading string // first token, lowercased; empty for a blank segment
}

// Command is the parsed form of a raw command line.
type Command struct {
	Raw      string
	Shape    Shape
	Segments []Segment

	// TargetDir is the cd argument for ShapeDirectoryChange. Empty means
	// "cd" with no argument (the user's home directory).
	TargetDir string
}

// Leading returns the leading token of the first segment.
func (c Command) Leading() string {
	if len(c.Segments) == 0 {
		return ""
	}
	return c.Segments[0].Leading
}

// Parse classifies a raw command line. A cd embedded in a sequenced or piped
// command is deliberately NOT a directory change: only a standalone cd is
// intercepted.
func Parse(raw string) Command {
	cmd := Command{Raw: raw}

	if hasSequencing(raw) {
		cmd.Shape = ShapeSequenced
		cmd.Segments = []Segment{makeSegment(raw)}
		return cmd
	}

	segments := splitPipeline(raw)
	if len(segments) > 1 {
		cmd.Shape = ShapePiped
		for _, seg := range segments {
			cmd.Segments = append(cmd.Segments, makeSegment(seg))
		}
		return cmd
	}

	seg := makeSegment(raw)
	cmd.Segments = []Segment{seg}

	if seg.Leading == "cd" {
		cmd.Shape = ShapeDirectoryChange
		tokens := Fields(raw)
		if len(tokens) > 1 {
			cmd.TargetDir = tokens[1]
		}
		return cmd
	}

	cmd.Shape = ShapeSimple
	return cmd
}

func makeSegment(raw string) Segment {
	seg := Segment{Raw: strings.TrimSpace(raw)}
	tokens := Fields(raw)
	if len(tokens) > 0 {
		seg.Leading = strings.ToLower(tokens[0])
	}
	return seg
}

// hasSequencing reports whether raw contains &&, || or ; outside quotes.
func hasSequencing(raw string) bool {
	var inSingle, inDouble bool
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case ch == '\\' && !inSingle && i+1 < len(raw):
			i++ // skip escaped character
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
		case ch == '"' && !inSingle:
			inDouble = !inDouble
		case inSingle || inDouble:
			// operators inside quotes are literal
		case ch == ';':
			return true
		case ch == '&' && i+1 < len(raw) && raw[i+1] == '&':
			return true
		case ch == '|' && i+1 < len(raw) && raw[i+1] == '|':
			return true
		}
	}
	return false
}

// splitPipeline splits raw on | outside quotes. A || would have been caught
// by hasSequencing before this is called.
func splitPipeline(raw string) []string {
	var segments []string
	var inSingle, inDouble bool
	start := 0
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case ch == '\\' && !inSingle && i+1 < len(raw):
			i++
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
		case ch == '"' && !inSingle:
			inDouble = !inDouble
		case ch == '|' && !inSingle && !inDouble:
			segments = append(segments, raw[start:i])
			start = i + 1
		}
	}
	segments = append(segments, raw[start:])
	return segments
}

// Fields splits a command line into tokens honoring single quotes, double
// quotes and backslash escapes. It is intentionally simpler than a full
// shell lexer: it only needs to expose leading tokens and cd arguments.
func Fields(raw string) []string {
	var tokens []string
	var current strings.Builder
	var inSingle, inDouble, started bool

	flush := func() {
		if started {
			tokens = append(tokens, current.String())
			current.Reset()
			started = false
		}
	}

	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case ch == '\\' && !inSingle && i+1 < len(raw):
			i++
			current.WriteByte(raw[i])
			started = true
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
			started = true
		case ch == '"' && !inSingle:
			inDouble = !inDouble
			started = true
		case (ch == ' ' || ch == '\t') && !inSingle && !inDouble:
			flush()
		default:
			current.WriteByte(ch)
			started = true
		}
	}
	flush()
	return tokens
}
