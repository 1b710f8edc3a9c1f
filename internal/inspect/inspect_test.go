package inspect

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeInitSegment builds a minimal single-track init segment.
func encodeInitSegment(t *testing.T) []byte {
	t.Helper()
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(90000, "video", "und")

	var buf bytes.Buffer
	require.NoError(t, init.Encode(&buf))
	return buf.Bytes()
}

func TestRead(t *testing.T) {
	data := encodeInitSegment(t)

	report, err := Read(bytes.NewReader(data))
	require.NoError(t, err)

	require.Len(t, report.Tracks, 1)
	assert.Equal(t, uint32(1), report.Tracks[0].ID)
	assert.NotEmpty(t, report.Tracks[0].Handler)
}

func TestRead_NotMP4(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("definitely not an mp4")))
	assert.Error(t, err)
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, encodeInitSegment(t), 0600))

	report, err := File(path)
	require.NoError(t, err)
	assert.Len(t, report.Tracks, 1)
}

func TestFile_Missing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "missing.mp4"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open artifact")
}
