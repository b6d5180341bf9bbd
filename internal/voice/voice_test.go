package voice

import (
	"slices"
	"testing"

	"github.com/4xachi/pcast/internal/podcast"
)

var (
	allCategories = []podcast.VoiceCategory{podcast.VoiceMale, podcast.VoiceFemale, podcast.VoiceNeutral}
	allAccents    = []podcast.Accent{podcast.AccentEnglish, podcast.AccentTagalog, podcast.AccentNeutral}
)

func TestCatalog_Has29DistinctVoices(t *testing.T) {
	all := Catalog()
	if len(all) != 29 {
		t.Fatalf("expected 29 voices, got %d", len(all))
	}
	seen := make(map[string]bool)
	for _, v := range all {
		if seen[v] {
			t.Errorf("duplicate voice %q", v)
		}
		seen[v] = true
	}
	if len(Voices(podcast.VoiceMale)) != 15 || len(Voices(podcast.VoiceFemale)) != 13 || len(Voices(podcast.VoiceNeutral)) != 1 {
		t.Error("unexpected category partition")
	}
}

func TestResolve_EveryDocumentedCombination(t *testing.T) {
	for _, cat := range allCategories {
		for _, acc := range allAccents {
			p, err := Resolve(cat, acc)
			if err != nil {
				t.Fatalf("%s/%s: unexpected error %v", cat, acc, err)
			}
			if !slices.Contains(Voices(cat), p.VoiceID) {
				t.Errorf("%s/%s: voice %q outside its category", cat, acc, p.VoiceID)
			}
			if p.Category != cat || p.Accent != acc {
				t.Errorf("%s/%s: profile mislabelled: %+v", cat, acc, p)
			}
			if p.Style == "" || p.SpeakingRate <= 0 {
				t.Errorf("%s/%s: missing prosody hints: %+v", cat, acc, p)
			}
		}
	}
}

func TestResolve_Deterministic(t *testing.T) {
	first, _ := Resolve(podcast.VoiceFemale, podcast.AccentTagalog)
	for range 10 {
		p, _ := Resolve(podcast.VoiceFemale, podcast.AccentTagalog)
		if p != first {
			t.Fatalf("expected %+v, got %+v", first, p)
		}
	}
}

func TestResolve_AccentNarrowsSubset(t *testing.T) {
	en, _ := Resolve(podcast.VoiceMale, podcast.AccentEnglish)
	tl, _ := Resolve(podcast.VoiceMale, podcast.AccentTagalog)
	if en.VoiceID == tl.VoiceID {
		t.Errorf("expected different voices per accent, both %q", en.VoiceID)
	}
	if tl.LanguageTag != "fil-PH" {
		t.Errorf("expected fil-PH, got %q", tl.LanguageTag)
	}
}

func TestResolve_UnmappedIsConfigurationError(t *testing.T) {
	_, err := Resolve("robot", podcast.AccentEnglish)
	if podcast.KindOf(err) != podcast.KindConfiguration {
		t.Errorf("expected configuration error, got %v", err)
	}
	_, err = Resolve(podcast.VoiceMale, "martian")
	if podcast.KindOf(err) != podcast.KindConfiguration {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestResolvePair(t *testing.T) {
	tests := []struct {
		name     string
		a, b     podcast.VoiceCategory
		wantSame bool
	}{
		{"mixed", podcast.VoiceMale, podcast.VoiceFemale, false},
		{"both male", podcast.VoiceMale, podcast.VoiceMale, false},
		{"both female", podcast.VoiceFemale, podcast.VoiceFemale, false},
		{"both neutral", podcast.VoiceNeutral, podcast.VoiceNeutral, true},
	}

	for _, tt := range tests {
		for _, acc := range allAccents {
			t.Run(tt.name+"/"+string(acc), func(t *testing.T) {
				pair, err := ResolvePair(podcast.Config{VoiceA: tt.a, VoiceB: tt.b, Accent: acc})
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if (pair.A.VoiceID == pair.B.VoiceID) != tt.wantSame {
					t.Errorf("expected same=%v, got A=%q B=%q", tt.wantSame, pair.A.VoiceID, pair.B.VoiceID)
				}
				if pair.For(podcast.SpeakerB) != pair.B {
					t.Error("For(B) returned the wrong profile")
				}
			})
		}
	}
}
