// Package artifact names finished podcasts and defines where they are kept.
//
// A run produces two files that share one id: <id>.wav holds the audio and
// <id>.txt the transcript. Backends live in sub-packages.
package artifact

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/4xachi/pcast/internal/podcast"
)

const maxTopicRunes = 30

// ID derives the artifact id from the topic, generation time and run id:
// podcast_<topic>_<YYYYMMDD_HHMMSS>_<run>. The topic keeps letters, digits,
// underscores, hyphens and spaces, is cut to 30 runes, trimmed, and has its
// spaces replaced by underscores. run contributes its first 8 letters or
// digits so runs finishing in the same second get distinct ids; an empty run
// leaves the suffix off.
func ID(topic string, t time.Time, run string) string {
	var sb strings.Builder
	n := 0
	for _, r := range topic {
		if n == maxTopicRunes {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || unicode.IsSpace(r) {
			sb.WriteRune(r)
			n++
		}
	}
	name := strings.TrimSpace(sb.String())
	name = strings.Join(strings.Fields(name), "_")
	if name == "" {
		name = "untitled"
	}
	id := "podcast_" + name + "_" + t.Format("20060102_150405")
	if suffix := runSuffix(run); suffix != "" {
		id += "_" + suffix
	}
	return id
}

const runSuffixLen = 8

func runSuffix(run string) string {
	var sb strings.Builder
	for _, r := range run {
		if sb.Len() == runSuffixLen {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Location is where a saved artifact's files ended up.
type Location struct {
	Audio      string `json:"audio"`
	Transcript string `json:"transcript"`
}

// Store persists artifacts.
type Store interface {
	// Name returns the backend identifier (e.g., "local", "minio").
	Name() string

	// Save writes the audio and transcript of a. a.ID must be set.
	Save(ctx context.Context, a *podcast.Artifact) (Location, error)
}

// AudioName and TranscriptName return the file names used for an artifact id.
func AudioName(id string) string      { return id + ".wav" }
func TranscriptName(id string) string { return id + ".txt" }
