package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcoury/aish/internal/shell"
)

type recordingConfirmer struct {
	asked  []string
	answer bool
}

func (r *recordingConfirmer) Confirm(command string) bool {
	r.asked = append(r.asked, command)
	return r.answer
}

func TestGatePreApproved(t *testing.T) {
	g := NewGate(nil, nil)

	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"allow-listed simple", "ls -la", true},
		{"allow-listed uppercase", "LS /tmp", true},
		{"unlisted simple", "rm -rf /tmp/x", false},
		{"sequenced always asks", "ls && rm -rf /", false},
		{"sequenced allow-listed parts still ask", "ls; pwd", false},
		{"pipeline all allow-listed", "ls | echo", true},
		{"pipeline with unlisted segment", "ls | grep x", false},
		{"cd is allow-listed", "cd /tmp", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.PreApproved(shell.Parse(tt.raw)))
		})
	}
}

func TestGateExtraAllowListEntries(t *testing.T) {
	g := NewGate([]string{"Git", " df "}, nil)
	assert.True(t, g.PreApproved(shell.Parse("git status")))
	assert.True(t, g.PreApproved(shell.Parse("df -h")))
}

func TestGateAuthorizeConsultsConfirmer(t *testing.T) {
	c := &recordingConfirmer{answer: true}
	g := NewGate(nil, c)

	assert.True(t, g.Authorize("ls"))
	assert.Empty(t, c.asked, "pre-approved commands never reach the confirmer")

	assert.True(t, g.Authorize("rm /tmp/x"))
	assert.Equal(t, []string{"rm /tmp/x"}, c.asked)

	c.answer = false
	assert.False(t, g.Authorize("rm /tmp/x"))
}

func TestGateAuthorizeNilConfirmerDeclines(t *testing.T) {
	g := NewGate(nil, nil)
	assert.False(t, g.Authorize("rm -rf /"))
}
