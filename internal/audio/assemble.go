package audio

import (
	"cmp"
	"log/slog"
	"slices"
	"time"

	"github.com/4xachi/pcast/internal/podcast"
	"github.com/4xachi/pcast/internal/script"
)

// Assembler concatenates per-turn segments into one track.
type Assembler struct {
	SampleRate int
	Channels   int

	// Gap is the silence inserted between consecutive segments.
	Gap time.Duration
}

// NewAssembler returns a mono assembler at the given rate.
func NewAssembler(sampleRate int, gap time.Duration) *Assembler {
	return &Assembler{SampleRate: sampleRate, Channels: 1, Gap: gap}
}

// Format returns the output PCM format.
func (a *Assembler) Format() Format {
	return Format{SampleRate: a.SampleRate, Channels: a.Channels, BitsPerSample: 16}
}

// Assemble orders segments by turn ordinal, normalizes them to the output
// format and joins them with a Gap of silence between each pair. Duration is
// the sum of the segments' own durations plus the gaps, so resampling
// rounding does not change it. The
// transcript is rendered from turns, so it lists every turn whether or not
// its audio was substituted.
func (a *Assembler) Assemble(segments []podcast.AudioSegment, turns []podcast.ScriptTurn, cfg podcast.Config) (*podcast.Artifact, error) {
	if len(segments) == 0 {
		return nil, podcast.AssemblyError(nil, "no audio segments to assemble")
	}

	ordered := slices.Clone(segments)
	slices.SortFunc(ordered, func(x, y podcast.AudioSegment) int { return cmp.Compare(x.Index, y.Index) })
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Index == ordered[i-1].Index {
			return nil, podcast.AssemblyError(nil, "duplicate segment for turn %d", ordered[i].Index)
		}
	}

	out := a.Format()
	gap := Silence(a.Gap, out.SampleRate, out.Channels)
	gapDur := out.Duration(len(gap))

	var (
		track []byte
		total time.Duration
	)
	for i, seg := range ordered {
		from := Format{SampleRate: seg.SampleRate, Channels: seg.Channels, BitsPerSample: seg.BitsPerSample}
		pcm, err := Normalize(seg.PCM, from, out.SampleRate, out.Channels)
		if err != nil {
			return nil, podcast.AssemblyError(err, "normalizing turn %d", seg.Index)
		}
		if i > 0 {
			track = append(track, gap...)
			total += gapDur
		}
		track = append(track, pcm...)
		if seg.Duration > 0 {
			total += seg.Duration
		} else {
			total += out.Duration(len(pcm))
		}
	}

	orderedTurns := slices.Clone(turns)
	slices.SortFunc(orderedTurns, func(x, y podcast.ScriptTurn) int { return cmp.Compare(x.Index, y.Index) })

	slog.Debug("audio assembled", "segments", len(ordered), "pcm_bytes", len(track), "duration", total)
	return &podcast.Artifact{
		Topic:       cfg.Topic,
		Audio:       EncodeWAV(track, out),
		ContentType: "audio/wav",
		SampleRate:  out.SampleRate,
		Duration:    total,
		Transcript:  script.Transcript(orderedTurns, cfg),
		Turns:       orderedTurns,
	}, nil
}
