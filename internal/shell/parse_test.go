package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseShapes(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		shape Shape
	}{
		{"simple", "ls -la /tmp", ShapeSimple},
		{"sequenced and", "mkdir /tmp/x && cd /tmp/x", ShapeSequenced},
		{"sequenced or", "test -f x || touch x", ShapeSequenced},
		{"sequenced semicolon", "echo a; echo b", ShapeSequenced},
		{"piped", "ps aux | grep nginx | wc -l", ShapePiped},
		{"cd bare", "cd", ShapeDirectoryChange},
		{"cd with target", "cd /var/log", ShapeDirectoryChange},
		{"cd in sequence is not a directory change", "cd /tmp && ls", ShapeSequenced},
		{"cd in pipe is not a directory change", "cd /tmp | cat", ShapePiped},
		{"quoted operators are literal", `echo "a && b; c | d"`, ShapeSimple},
		{"single-quoted pipe", "echo 'a|b'", ShapeSimple},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.shape, Parse(tt.raw).Shape)
		})
	}
}

func TestParsePipelineSegments(t *testing.T) {
	cmd := Parse("ps aux | grep nginx | wc -l")
	assert.Len(t, cmd.Segments, 3)
	assert.Equal(t, "ps", cmd.Segments[0].Leading)
	assert.Equal(t, "grep", cmd.Segments[1].Leading)
	assert.Equal(t, "wc", cmd.Segments[2].Leading)
}

func TestParseDirectoryChangeTarget(t *testing.T) {
	assert.Equal(t, "/var/log", Parse("cd /var/log").TargetDir)
	assert.Equal(t, "", Parse("cd").TargetDir)
	assert.Equal(t, "my dir", Parse(`cd "my dir"`).TargetDir)
}

func TestParseLeading(t *testing.T) {
	assert.Equal(t, "ls", Parse("LS -la").Leading())
	assert.Equal(t, "", Parse("   ").Leading())
}

func TestFields(t *testing.T) {
	assert.Equal(t, []string{"ls", "-la", "/tmp"}, Fields("ls -la /tmp"))
	assert.Equal(t, []string{"echo", "hello world"}, Fields(`echo "hello world"`))
	assert.Equal(t, []string{"echo", "a b", "c"}, Fields(`echo 'a b' c`))
	assert.Equal(t, []string{"echo", "a b"}, Fields(`echo a\ b`))
	assert.Empty(t, Fields("   "))
}
