package script

import (
	"reflect"
	"strings"
	"testing"

	"github.com/4xachi/pcast/internal/podcast"
)

func samRobin() podcast.Config {
	return podcast.Config{
		SpeakerA: "Sam",
		SpeakerB: "Robin",
		VoiceA:   podcast.VoiceMale,
		VoiceB:   podcast.VoiceFemale,
		Language: podcast.LanguageEnglish,
		Accent:   podcast.AccentNeutral,
		Duration: podcast.DurationShort,
		Topic:    "greetings",
	}
}

func TestParse_Scenario(t *testing.T) {
	res, err := Parse("Sam: Hello there.\nRobin: Hi Sam, great to be here.", samRobin())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []podcast.ScriptTurn{
		{Speaker: podcast.SpeakerA, Index: 0, Text: "Hello there."},
		{Speaker: podcast.SpeakerB, Index: 1, Text: "Hi Sam, great to be here."},
	}
	if !reflect.DeepEqual(res.Turns, want) {
		t.Errorf("expected %+v, got %+v", want, res.Turns)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", res.Warnings)
	}
}

func TestParse_LabelTolerance(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		speaker podcast.Speaker
		text    string
	}{
		{"colon", "Sam: one", podcast.SpeakerA, "one"},
		{"case", "ROBIN: two", podcast.SpeakerB, "two"},
		{"padding", "   robin   :   three  ", podcast.SpeakerB, "three"},
		{"dash", "Sam - four", podcast.SpeakerA, "four"},
		{"em dash", "Sam — five", podcast.SpeakerA, "five"},
		{"markdown", "**Robin:** six", podcast.SpeakerB, "six"},
		{"stage direction", "Sam (laughing): seven", podcast.SpeakerA, "seven"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(tt.line, samRobin())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(res.Turns) != 1 {
				t.Fatalf("expected 1 turn, got %d", len(res.Turns))
			}
			if res.Turns[0].Speaker != tt.speaker || res.Turns[0].Text != tt.text {
				t.Errorf("expected %s %q, got %s %q", tt.speaker, tt.text, res.Turns[0].Speaker, res.Turns[0].Text)
			}
		})
	}
}

func TestParse_ContinuationAndDiscard(t *testing.T) {
	raw := strings.Join([]string{
		"Here is your podcast script:",
		"",
		"Sam: Welcome to the show.",
		"Today we talk about bees.",
		"Robin: Thanks Sam.",
		"Samuel says hi too.",
	}, "\n")

	res, err := Parse(raw, samRobin())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(res.Turns))
	}
	if res.Turns[0].Text != "Welcome to the show. Today we talk about bees." {
		t.Errorf("unexpected first turn %q", res.Turns[0].Text)
	}
	if res.Turns[1].Text != "Thanks Sam. Samuel says hi too." {
		t.Errorf("unexpected second turn %q", res.Turns[1].Text)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "line 1") {
		t.Errorf("expected one discard warning for line 1, got %v", res.Warnings)
	}
	if res.Lines[0].Kind != LineDiscarded || res.Lines[1].Kind != LineBlank || res.Lines[3].Kind != LineContinuation {
		t.Errorf("unexpected line kinds: %v %v %v", res.Lines[0].Kind, res.Lines[1].Kind, res.Lines[3].Kind)
	}
	for _, turn := range res.Turns {
		if strings.Contains(turn.Text, "podcast script") {
			t.Error("discarded line leaked into a turn")
		}
	}
}

func TestParse_EmptyTurnsDroppedAndOrdinalsContiguous(t *testing.T) {
	raw := "Sam:\nRobin:   \nSam: first\nRobin:\nSam: second\nRobin: third"
	res, err := Parse(raw, samRobin())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Turns) != 3 {
		t.Fatalf("expected 3 turns, got %+v", res.Turns)
	}
	for i, turn := range res.Turns {
		if turn.Index != i {
			t.Errorf("expected ordinal %d, got %d", i, turn.Index)
		}
		if strings.TrimSpace(turn.Text) == "" {
			t.Errorf("turn %d is empty", i)
		}
	}
}

func TestParse_LabelThenTextOnNextLine(t *testing.T) {
	res, err := Parse("Sam:\nHello from the next line.", samRobin())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Turns) != 1 || res.Turns[0].Text != "Hello from the next line." {
		t.Errorf("unexpected turns %+v", res.Turns)
	}
}

func TestParse_LongerNameWins(t *testing.T) {
	cfg := samRobin()
	cfg.SpeakerB = "Samantha"
	res, err := Parse("Samantha: hi\nSam: hello", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Turns[0].Speaker != podcast.SpeakerB || res.Turns[1].Speaker != podcast.SpeakerA {
		t.Errorf("unexpected speakers %+v", res.Turns)
	}
}

func TestParse_FoldingChangesLength(t *testing.T) {
	tests := []struct {
		name, line string
	}{
		{"Straße", "STRASSE: guten Tag"},
		{"STRASSE", "Straße: guten Tag"},
		{"Straße", "strasse - guten Tag"},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.line, func(t *testing.T) {
			cfg := samRobin()
			cfg.SpeakerB = tt.name
			res, err := Parse(tt.line, cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(res.Turns) != 1 || res.Turns[0].Speaker != podcast.SpeakerB || res.Turns[0].Text != "guten Tag" {
				t.Errorf("unexpected turns %+v", res.Turns)
			}
		})
	}
}

func TestMatcher_InvalidUTF8(t *testing.T) {
	m := NewMatcher(samRobin())
	if _, _, ok := m.Match("Sa\xffm: hi"); ok {
		t.Error("expected no match for a label broken by invalid utf-8")
	}
}

func TestParse_Imbalanced(t *testing.T) {
	res, err := Parse("Sam: a\nSam: b\nSam: c", samRobin())
	if err != nil {
		t.Fatalf("expected imbalance to be accepted, got %v", err)
	}
	if len(res.Turns) != 3 {
		t.Errorf("expected 3 turns, got %d", len(res.Turns))
	}
}

func TestParse_NoDialogue(t *testing.T) {
	for _, raw := range []string{"", "   \n\n", "Alex: hi\nJordan: hello", "Sam:\nRobin:"} {
		res, err := Parse(raw, samRobin())
		if err == nil {
			t.Errorf("%q: expected error, got %+v", raw, res)
			continue
		}
		if podcast.KindOf(err) != podcast.KindParse {
			t.Errorf("%q: expected parse error, got %v", raw, err)
		}
	}
}

func TestParse_Deterministic(t *testing.T) {
	raw := "intro\nSam: a\nmore\nRobin: b\n\nSam: c"
	first, err := Parse(raw, samRobin())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range 5 {
		again, _ := Parse(raw, samRobin())
		if !reflect.DeepEqual(first, again) {
			t.Fatal("parse is not deterministic")
		}
	}
}

func TestTranscript_RoundTrip(t *testing.T) {
	cfg := samRobin()
	turns := []podcast.ScriptTurn{
		{Speaker: podcast.SpeakerA, Index: 0, Text: "Hello there."},
		{Speaker: podcast.SpeakerB, Index: 1, Text: "Hi Sam: great to be here."},
		{Speaker: podcast.SpeakerB, Index: 2, Text: "Shall we start?"},
		{Speaker: podcast.SpeakerA, Index: 3, Text: "Yes - let's."},
	}

	text := Transcript(turns, cfg)
	if !strings.HasPrefix(text, "Sam: Hello there.\nRobin: Hi Sam: great") {
		t.Errorf("unexpected transcript %q", text)
	}

	res, err := Parse(text, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.Turns, turns) {
		t.Errorf("round trip mismatch:\n want %+v\n got  %+v", turns, res.Turns)
	}
}

func TestLineKind_String(t *testing.T) {
	if LineDiscarded.String() != "discarded" || LineKind(42).String() != "LineKind(42)" {
		t.Error("unexpected LineKind strings")
	}
}
