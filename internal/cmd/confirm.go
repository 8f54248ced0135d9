package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// PromptConfirmer asks the user on the terminal before a command runs.
// Anything other than y/yes declines.
type PromptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPromptConfirmer reads answers from in and writes prompts to out.
func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm shows the command and waits for an answer. EOF or a read
// error counts as a decline.
func (p *PromptConfirmer) Confirm(command string) bool {
	shown := command
	if !color.NoColor {
		shown = color.New(color.FgYellow, color.Bold).Sprint(command)
	}
	fmt.Fprintf(p.out, "\nExecute: %s\nProceed? [y/N] ", shown)

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
