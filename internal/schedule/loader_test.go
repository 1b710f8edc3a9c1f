package schedule

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `meta:
  name: demo
  description: demo schedule
overlays:
  - text: "Say hello!"
    foreground: "#FFFFFF"
    background: "#00000080"
    start_ms: 500
    duration_ms: 3500
  - text: "Wave goodbye"
    foreground: "#FFD700"
    background: "#00000080"
    start_ms: 5000
    duration_ms: 2000
`

func TestLoad(t *testing.T) {
	sched, err := Load(strings.NewReader(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "demo", sched.Meta.Name)
	require.Len(t, sched.Overlays, 2)
	assert.Equal(t, "Say hello!", sched.Overlays[0].Text)
	assert.Equal(t, uint(500), sched.Overlays[0].StartMs)
	assert.Equal(t, uint(3500), sched.Overlays[0].DurationMs)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{
			name:   "empty file",
			yaml:   "",
			errMsg: "empty schedule file",
		},
		{
			name: "unknown field rejected",
			yaml: `meta:
  name: demo
overlays:
  - text: "hi"
    foreground: "#FFFFFF"
    background: "#00000080"
    duration_ms: 1000
    fade_ms: 250
`,
			errMsg: "failed to parse schedule",
		},
		{
			name: "invalid overlay",
			yaml: `meta:
  name: demo
overlays:
  - text: "hi"
    foreground: "#FFFFFF"
    background: "#00000080"
    duration_ms: 0
`,
			errMsg: "invalid schedule",
		},
		{
			name:   "not yaml",
			yaml:   "{{{{",
			errMsg: "failed to parse schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "captions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0600))

	sched, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", sched.Meta.Name)
}

func TestLoadFile_NotFound(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open schedule file")
}

func TestDefault(t *testing.T) {
	sched := Default()
	require.NoError(t, sched.Validate())

	// The built-in schedule must not rely on the overlap policy.
	for i := 0; i < len(sched.Overlays); i++ {
		for j := i + 1; j < len(sched.Overlays); j++ {
			a, b := sched.Overlays[i], sched.Overlays[j]
			overlap := a.Start() < b.End() && b.Start() < a.End()
			assert.False(t, overlap, "overlays %d and %d overlap", i, j)
		}
	}
}
