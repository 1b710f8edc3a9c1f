// Package artifact builds and saves the finalized recording.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Artifact is the finalized recording: the concatenated encoded output, its
// content type, and a suggested filename.
type Artifact struct {
	Data     []byte
	MIME     string
	Filename string
}

// New concatenates the buffered chunks in arrival order into one artifact.
// Chunk order must be preserved exactly as produced by the encoder.
func New(chunks [][]byte, mime, ext string, now time.Time) *Artifact {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	data := make([]byte, 0, total)
	for _, c := range chunks {
		data = append(data, c...)
	}
	return &Artifact{
		Data:     data,
		MIME:     mime,
		Filename: Filename(ext, now),
	}
}

// Filename returns a collision-resistant filename built from the extension,
// the given time, and a short random suffix.
func Filename(ext string, now time.Time) string {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("clip-%s-%s%s", now.UTC().Format("20060102-150405"), suffix, ext)
}

// Saver makes a finished artifact available to the user.
type Saver interface {
	Save(a *Artifact) error
}

// DirSaver writes artifacts into a directory, creating it if needed.
type DirSaver struct {
	Dir string
}

// Save writes the artifact under its suggested filename.
func (s DirSaver) Save(a *Artifact) error {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, a.Filename)
	if err := os.WriteFile(path, a.Data, 0600); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}
