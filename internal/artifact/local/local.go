// Package local implements the artifact Store on the local filesystem.
package local

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/4xachi/pcast/internal/artifact"
	"github.com/4xachi/pcast/internal/podcast"
)

// Store writes artifacts into a single directory.
type Store struct {
	dir string
}

// New creates a filesystem store rooted at dir. The directory is created on
// first save.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Name returns the backend identifier.
func (s *Store) Name() string { return "local" }

// Save writes <dir>/<id>.txt and <dir>/<id>.wav. Files of an earlier
// artifact with the same id are left untouched and the save fails.
func (s *Store) Save(ctx context.Context, a *podcast.Artifact) (artifact.Location, error) {
	if a.ID == "" {
		return artifact.Location{}, fmt.Errorf("artifact has no id")
	}
	if err := ctx.Err(); err != nil {
		return artifact.Location{}, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return artifact.Location{}, fmt.Errorf("creating output directory: %w", err)
	}

	loc := artifact.Location{
		Audio:      filepath.Join(s.dir, artifact.AudioName(a.ID)),
		Transcript: filepath.Join(s.dir, artifact.TranscriptName(a.ID)),
	}
	if err := writeNew(loc.Transcript, []byte(a.Transcript)); err != nil {
		return artifact.Location{}, fmt.Errorf("writing transcript: %w", err)
	}
	if err := writeNew(loc.Audio, a.Audio); err != nil {
		_ = os.Remove(loc.Transcript)
		return artifact.Location{}, fmt.Errorf("writing audio: %w", err)
	}

	slog.Info("artifact saved", "id", a.ID, "audio", loc.Audio, "transcript", loc.Transcript)
	return loc, nil
}

// writeNew creates path and writes data to it. An existing file is an error,
// never overwritten.
func writeNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
