package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func confirm(t *testing.T, input string) (bool, string) {
	t.Helper()
	var out bytes.Buffer
	p := NewPromptConfirmer(strings.NewReader(input), &out)
	return p.Confirm("rm -rf /tmp/scratch"), out.String()
}

func TestConfirmAccepts(t *testing.T) {
	for _, input := range []string{"y\n", "Y\n", "yes\n", " YES \n"} {
		ok, _ := confirm(t, input)
		assert.True(t, ok, "input %q", input)
	}
}

func TestConfirmDeclines(t *testing.T) {
	for _, input := range []string{"n\n", "no\n", "\n", "anything\n"} {
		ok, _ := confirm(t, input)
		assert.False(t, ok, "input %q", input)
	}
}

func TestConfirmDeclinesOnEOF(t *testing.T) {
	ok, _ := confirm(t, "")
	assert.False(t, ok)
}

func TestConfirmShowsCommand(t *testing.T) {
	_, out := confirm(t, "n\n")
	assert.Contains(t, out, "rm -rf /tmp/scratch")
	assert.Contains(t, out, "[y/N]")
}
