// Package script turns raw dialogue text from the text service into ordered,
// speaker-attributed turns, and renders turns back into transcript text.
//
// Parsing is lenient: every line is first classified into a tagged variant
// (turn, continuation, blank) and the classified lines are then folded into
// turns. Lines that precede the first recognised speaker are discarded with a
// warning, and continuation lines are appended to the turn before them.
package script

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/4xachi/pcast/internal/podcast"
)

// LineKind tags a classified script line.
type LineKind int

const (
	// LineBlank is an empty or whitespace-only line.
	LineBlank LineKind = iota
	// LineTurn starts a new turn for Speaker.
	LineTurn
	// LineContinuation carries text without a speaker label.
	LineContinuation
	// LineDiscarded is a continuation that arrived before any turn.
	LineDiscarded
)

func (k LineKind) String() string {
	switch k {
	case LineBlank:
		return "blank"
	case LineTurn:
		return "turn"
	case LineContinuation:
		return "continuation"
	case LineDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("LineKind(%d)", int(k))
	}
}

// Line is one classified input line.
type Line struct {
	Kind    LineKind
	Number  int // 1-based line number in the raw text
	Speaker podcast.Speaker
	Text    string
}

// Result is the output of Parse.
type Result struct {
	Turns    []podcast.ScriptTurn
	Lines    []Line
	Warnings []string
}

type label struct {
	speaker podcast.Speaker
	folded  string
	runes   int
}

// Matcher recognises the two configured speaker labels.
type Matcher struct {
	labels []label
	caser  cases.Caser
}

// NewMatcher builds a matcher for cfg's speaker names. Matchers are not safe
// for concurrent use.
func NewMatcher(cfg podcast.Config) *Matcher {
	m := &Matcher{caser: cases.Fold()}
	for _, sp := range []podcast.Speaker{podcast.SpeakerA, podcast.SpeakerB} {
		name := norm.NFC.String(strings.TrimSpace(cfg.SpeakerName(sp)))
		if name == "" {
			continue
		}
		m.labels = append(m.labels, label{
			speaker: sp,
			folded:  m.caser.String(name),
			runes:   utf8.RuneCountInString(name),
		})
	}
	// The longer name is tried first so "Sam" does not shadow "Samantha".
	if len(m.labels) == 2 && m.labels[1].runes > m.labels[0].runes {
		m.labels[0], m.labels[1] = m.labels[1], m.labels[0]
	}
	return m
}

const emphasis = "*_"

// Match reports whether line starts with a speaker label and returns the
// speaker and the utterance after the separator.
func (m *Matcher) Match(line string) (podcast.Speaker, string, bool) {
	s := strings.TrimLeft(strings.TrimSpace(norm.NFC.String(line)), emphasis)
	for _, l := range m.labels {
		rest, ok := m.cutFolded(s, l.folded)
		if !ok {
			continue
		}
		if text, ok := afterSeparator(rest); ok {
			return l.speaker, text, true
		}
	}
	return "", "", false
}

// cutFolded returns what follows the shortest prefix of s whose case folding
// equals folded. Folding can change length ("ß" folds to "ss"), so the prefix
// is grown a rune at a time.
func (m *Matcher) cutFolded(s, folded string) (string, bool) {
	for end := 0; end < len(s); {
		_, size := utf8.DecodeRuneInString(s[end:])
		end += size
		f := m.caser.String(s[:end])
		if f == folded {
			return s[end:], true
		}
		if !strings.HasPrefix(folded, f) {
			return "", false
		}
	}
	return "", false
}

// afterSeparator accepts the text following a name: optional emphasis markers
// and an optional parenthetical stage direction, then a colon or dash.
func afterSeparator(rest string) (string, bool) {
	rest = strings.TrimLeft(rest, emphasis+" \t")
	if strings.HasPrefix(rest, "(") {
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return "", false
		}
		rest = strings.TrimLeft(rest[end+1:], emphasis+" \t")
	}

	r, size := utf8.DecodeRuneInString(rest)
	switch r {
	case ':', '：', '-', '–', '—':
	default:
		return "", false
	}
	rest = strings.TrimLeft(rest[size:], emphasis)
	return strings.TrimSpace(rest), true
}

// Classify tags a single line.
func (m *Matcher) Classify(number int, line string) Line {
	if strings.TrimFunc(line, unicode.IsSpace) == "" {
		return Line{Kind: LineBlank, Number: number}
	}
	if sp, text, ok := m.Match(line); ok {
		return Line{Kind: LineTurn, Number: number, Speaker: sp, Text: text}
	}
	return Line{Kind: LineContinuation, Number: number, Text: strings.TrimSpace(line)}
}

// Parse converts raw dialogue text into ordered turns. It fails with a
// ParseError only when no turn with non-empty text is found.
func Parse(raw string, cfg podcast.Config) (*Result, error) {
	m := NewMatcher(cfg)
	res := &Result{}

	var turns []podcast.ScriptTurn
	for i, text := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		line := m.Classify(i+1, text)

		switch line.Kind {
		case LineTurn:
			turns = append(turns, podcast.ScriptTurn{Speaker: line.Speaker, Text: line.Text})
		case LineContinuation:
			if len(turns) == 0 {
				line.Kind = LineDiscarded
				res.Warnings = append(res.Warnings, fmt.Sprintf("line %d discarded before any speaker: %.80q", line.Number, line.Text))
				break
			}
			last := &turns[len(turns)-1]
			if last.Text == "" {
				last.Text = line.Text
			} else {
				last.Text += " " + line.Text
			}
		}
		res.Lines = append(res.Lines, line)
	}

	for _, t := range turns {
		if t.Text == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("empty turn for %s dropped", cfg.SpeakerName(t.Speaker)))
			continue
		}
		t.Index = len(res.Turns)
		res.Turns = append(res.Turns, t)
	}

	if len(res.Turns) == 0 {
		return nil, podcast.ParseError("no dialogue lines labelled %q or %q found in %d lines", cfg.SpeakerA, cfg.SpeakerB, len(res.Lines))
	}
	return res, nil
}

// Transcript renders turns as "Name: utterance" lines in ordinal order.
func Transcript(turns []podcast.ScriptTurn, cfg podcast.Config) string {
	var sb strings.Builder
	for i, t := range turns {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(cfg.SpeakerName(t.Speaker))
		sb.WriteString(": ")
		sb.WriteString(t.Text)
	}
	return sb.String()
}
