// Package voice maps (voice category, accent) pairs to concrete synthesizer
// voices and prosody hints.
//
// The catalog is the 29 prebuilt Gemini speech voices, partitioned by
// category. An accent never changes the category; it narrows the category's
// candidates to the voices that carry that accent best and fixes the language
// tag, speaking rate and delivery instruction passed to the TTS backend.
package voice

import (
	"fmt"

	"github.com/4xachi/pcast/internal/podcast"
)

var catalog = map[podcast.VoiceCategory][]string{
	podcast.VoiceMale: {
		"algenib", "alnilam", "charon", "enceladus", "fenrir", "iapetus", "orus",
		"puck", "pulcherrima", "rasalgethi", "sadachbia", "sadaltager",
		"schedar", "umbriel", "zubenelgenubi",
	},
	podcast.VoiceFemale: {
		"achernar", "aoede", "autonoe", "callirrhoe", "despina", "erinome",
		"gacrux", "kore", "laomedeia", "leda", "sulafat", "vindemiatrix", "zephyr",
	},
	podcast.VoiceNeutral: {"achird"},
}

// accentSubsets lists, per accent and category, the preferred candidates in
// selection order. Every entry must be a member of the category's catalog.
var accentSubsets = map[podcast.Accent]map[podcast.VoiceCategory][]string{
	podcast.AccentEnglish: {
		podcast.VoiceMale:    {"charon", "orus", "iapetus", "schedar", "alnilam"},
		podcast.VoiceFemale:  {"kore", "aoede", "erinome", "sulafat", "achernar"},
		podcast.VoiceNeutral: {"achird"},
	},
	podcast.AccentTagalog: {
		podcast.VoiceMale:    {"puck", "fenrir", "umbriel", "sadachbia", "rasalgethi"},
		podcast.VoiceFemale:  {"leda", "zephyr", "despina", "callirrhoe", "laomedeia"},
		podcast.VoiceNeutral: {"achird"},
	},
	podcast.AccentNeutral: catalog,
}

type accentHints struct {
	languageTag  string
	speakingRate float64
	style        string
}

var hints = map[podcast.Accent]accentHints{
	podcast.AccentEnglish: {
		languageTag:  "en-US",
		speakingRate: 1.0,
		style:        "Speak with an American/standard English accent throughout the podcast. Use clear American pronunciation, intonation patterns, and speech rhythms.",
	},
	podcast.AccentTagalog: {
		languageTag:  "fil-PH",
		speakingRate: 0.95,
		style:        "Speak with a Filipino/Tagalog accent throughout the podcast. Use Filipino English pronunciation patterns, rhythms and intonation even when speaking in English.",
	},
	podcast.AccentNeutral: {
		speakingRate: 1.0,
		style:        "Read the following podcast line in a natural, conversational tone. Use a natural, relaxed speaking style as if chatting with friends on a podcast.",
	},
}

// Catalog returns every voice identifier, male first, then female, then neutral.
func Catalog() []string {
	var all []string
	for _, cat := range []podcast.VoiceCategory{podcast.VoiceMale, podcast.VoiceFemale, podcast.VoiceNeutral} {
		all = append(all, catalog[cat]...)
	}
	return all
}

// Voices returns the voice identifiers of a category.
func Voices(category podcast.VoiceCategory) []string {
	return append([]string(nil), catalog[category]...)
}

func candidates(category podcast.VoiceCategory, accent podcast.Accent) ([]string, error) {
	byCategory, ok := accentSubsets[accent]
	if !ok {
		return nil, podcast.ConfigurationError(nil, "no voices mapped for accent %q", accent)
	}
	list := byCategory[category]
	if len(list) == 0 {
		return nil, podcast.ConfigurationError(nil, "no voices mapped for category %q with accent %q", category, accent)
	}
	return list, nil
}

func profile(id string, category podcast.VoiceCategory, accent podcast.Accent) podcast.VoiceProfile {
	h := hints[accent]
	return podcast.VoiceProfile{
		VoiceID:      id,
		Category:     category,
		Accent:       accent,
		LanguageTag:  h.languageTag,
		SpeakingRate: h.speakingRate,
		Style:        h.style,
	}
}

// Resolve returns the voice profile for a category and accent. The result is
// deterministic: the first candidate of the accent subset.
func Resolve(category podcast.VoiceCategory, accent podcast.Accent) (podcast.VoiceProfile, error) {
	list, err := candidates(category, accent)
	if err != nil {
		return podcast.VoiceProfile{}, err
	}
	return profile(list[0], category, accent), nil
}

// Pair holds the resolved voices of both speakers.
type Pair struct {
	A podcast.VoiceProfile
	B podcast.VoiceProfile
}

// For returns the profile of the given speaker.
func (p Pair) For(s podcast.Speaker) podcast.VoiceProfile {
	if s == podcast.SpeakerB {
		return p.B
	}
	return p.A
}

// ResolvePair resolves both speakers of cfg. When both speakers share a
// category, speaker B takes the next candidate so the two voices differ; a
// single-voice subset is shared.
func ResolvePair(cfg podcast.Config) (Pair, error) {
	a, err := Resolve(cfg.VoiceA, cfg.Accent)
	if err != nil {
		return Pair{}, fmt.Errorf("speaker A: %w", err)
	}
	listB, err := candidates(cfg.VoiceB, cfg.Accent)
	if err != nil {
		return Pair{}, fmt.Errorf("speaker B: %w", err)
	}

	idB := listB[0]
	if idB == a.VoiceID && len(listB) > 1 {
		idB = listB[1]
	}
	return Pair{A: a, B: profile(idB, cfg.VoiceB, cfg.Accent)}, nil
}
