package executor

import (
	"strings"

	"github.com/rcoury/aish/internal/shell"
)

// DefaultAllowList is the fixed set of command names that run without user
// confirmation. Everything else, and any command with sequencing operators,
// requires explicit approval.
var DefaultAllowList = []string{
	"ls", "dir", "pwd", "echo", "date", "whoami", "hostname", "uname", "cd",
}

// Confirmer obtains explicit user approval for a command. It is an external
// collaborator; the gate only depends on this contract.
type Confirmer interface {
	Confirm(command string) bool
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(command string) bool

// Confirm implements Confirmer.
func (f ConfirmerFunc) Confirm(command string) bool { return f(command) }

// Gate is the pre-execution safety checkpoint. Commands whose every leading
// token is allow-listed are pre-approved; sequenced commands never are.
type Gate struct {
	allow     map[string]bool
	confirmer Confirmer
}

// NewGate builds a gate from the default allow-list plus extra entries.
func NewGate(extra []string, confirmer Confirmer) *Gate {
	allow := make(map[string]bool, len(DefaultAllowList)+len(extra))
	for _, name := range DefaultAllowList {
		allow[name] = true
	}
	for _, name := range extra {
		allow[strings.ToLower(strings.TrimSpace(name))] = true
	}
	return &Gate{allow: allow, confirmer: confirmer}
}

// PreApproved reports whether the parsed command may run without asking.
// Sequenced commands (&&, ||, ;) always require approval. A pipeline is
// pre-approved only when every segment's leading token is allow-listed.
func (g *Gate) PreApproved(cmd shell.Command) bool {
	switch cmd.Shape {
	case shell.ShapeSequenced:
		return false
	case shell.ShapePiped:
		for _, seg := range cmd.Segments {
			if !g.allow[seg.Leading] {
				return false
			}
		}
		return true
	default:
		return g.allow[cmd.Leading()]
	}
}

// Authorize runs the safety check for a raw command line, consulting the
// confirmer when the command is not pre-approved. Returns false when the
// user declines.
func (g *Gate) Authorize(raw string) bool {
	if g.PreApproved(shell.Parse(raw)) {
		return true
	}
	if g.confirmer == nil {
		return false
	}
	return g.confirmer.Confirm(raw)
}
