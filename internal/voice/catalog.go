package voice

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Provider tags embedded in voice ids.
const (
	ProviderGemini = "gemini"
	ProviderGoogle = "google"
)

// Tier distinguishes voice families with provider-specific quirks. Chirp3 HD
// voices reject the pitch parameter entirely.
const (
	TierStandard = "standard"
	TierChirp3HD = "chirp3-hd"
)

// Ref is a structured voice identifier: provider tag, BCP-47 language and a
// catalog index, e.g. "gemini-en-US-0" or "google-en-US-2". Parsing happens
// once at the provider-select boundary; nothing downstream matches on
// substrings.
type Ref struct {
	Provider string
	Language string
	Index    int
}

// ID renders the canonical string form of the reference.
func (r Ref) ID() string {
	return fmt.Sprintf("%s-%s-%d", r.Provider, r.Language, r.Index)
}

// Voice is a resolved catalog entry.
type Voice struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Provider    string `json:"provider"`
	Language    string `json:"languageCode"`
	Tier        string `json:"type"`
}

type catalogEntry struct {
	name        string
	displayName string
	tier        string
}

// geminiVoices maps a language to the prebuilt voices of the generative
// model, in catalog-index order.
var geminiVoices = map[string][]catalogEntry{
	"en-US": {
		{name: "Puck", displayName: "Puck (Playful, Young)"},
		{name: "Charon", displayName: "Charon (Serious, Mature)"},
		{name: "Kore", displayName: "Kore (Warm, Friendly)"},
		{name: "Fenrir", displayName: "Fenrir (Deep, Authoritative)"},
		{name: "Aoede", displayName: "Aoede (Musical, Expressive)"},
		{name: "Alloy", displayName: "Alloy (Neutral, Professional)"},
		{name: "Echo", displayName: "Echo (Clear, Articulate)"},
		{name: "Nova", displayName: "Nova (Modern, Vibrant)"},
	},
	"en-GB": {
		{name: "Puck", displayName: "Puck UK (Playful British)"},
		{name: "Charon", displayName: "Charon UK (Serious British)"},
		{name: "Kore", displayName: "Kore UK (Warm British)"},
	},
	"es-US": {
		{name: "Puck", displayName: "Puck Spanish (Playful)"},
		{name: "Charon", displayName: "Charon Spanish (Serious)"},
		{name: "Kore", displayName: "Kore Spanish (Warm)"},
	},
	"es-ES": {
		{name: "Puck", displayName: "Puck España (Playful)"},
		{name: "Charon", displayName: "Charon España (Serious)"},
	},
	"fr-FR": {
		{name: "Puck", displayName: "Puck French (Playful)"},
		{name: "Charon", displayName: "Charon French (Serious)"},
		{name: "Kore", displayName: "Kore French (Warm)"},
	},
	"de-DE": {
		{name: "Puck", displayName: "Puck German (Playful)"},
		{name: "Charon", displayName: "Charon German (Serious)"},
	},
	"it-IT": {
		{name: "Puck", displayName: "Puck Italian (Playful)"},
		{name: "Kore", displayName: "Kore Italian (Warm)"},
	},
	"pt-BR": {
		{name: "Puck", displayName: "Puck Portuguese (Playful)"},
		{name: "Charon", displayName: "Charon Portuguese (Serious)"},
	},
	"hi-IN": {
		{name: "Puck", displayName: "Puck Hindi (Playful)"},
		{name: "Kore", displayName: "Kore Hindi (Warm)"},
	},
	"ja-JP": {
		{name: "Puck", displayName: "Puck Japanese (Playful)"},
		{name: "Charon", displayName: "Charon Japanese (Serious)"},
	},
	"ko-KR": {
		{name: "Puck", displayName: "Puck Korean (Playful)"},
		{name: "Kore", displayName: "Kore Korean (Warm)"},
	},
}

// googleVoices maps a language to the managed-cloud Chirp3 HD catalog.
var googleVoices = map[string][]catalogEntry{
	"en-US": {
		{name: "en-US-Chirp3-HD-Puck", displayName: "Puck HD (Playful)", tier: TierChirp3HD},
		{name: "en-US-Chirp3-HD-Charon", displayName: "Charon HD (Serious)", tier: TierChirp3HD},
		{name: "en-US-Chirp3-HD-Kore", displayName: "Kore HD (Warm)", tier: TierChirp3HD},
		{name: "en-US-Chirp3-HD-Aoede", displayName: "Aoede HD (Expressive)", tier: TierChirp3HD},
	},
	"en-GB": {
		{name: "en-GB-Chirp3-HD-Puck", displayName: "Puck HD UK (Playful)", tier: TierChirp3HD},
		{name: "en-GB-Chirp3-HD-Kore", displayName: "Kore HD UK (Warm)", tier: TierChirp3HD},
	},
	"es-US": {
		{name: "es-US-Chirp3-HD-Puck", displayName: "Puck HD Spanish (Playful)", tier: TierChirp3HD},
		{name: "es-US-Chirp3-HD-Kore", displayName: "Kore HD Spanish (Warm)", tier: TierChirp3HD},
	},
	"fr-FR": {
		{name: "fr-FR-Chirp3-HD-Puck", displayName: "Puck HD French (Playful)", tier: TierChirp3HD},
		{name: "fr-FR-Chirp3-HD-Charon", displayName: "Charon HD French (Serious)", tier: TierChirp3HD},
	},
	"de-DE": {
		{name: "de-DE-Chirp3-HD-Puck", displayName: "Puck HD German (Playful)", tier: TierChirp3HD},
	},
	"hi-IN": {
		{name: "hi-IN-Chirp3-HD-Kore", displayName: "Kore HD Hindi (Warm)", tier: TierChirp3HD},
	},
	"ja-JP": {
		{name: "ja-JP-Chirp3-HD-Puck", displayName: "Puck HD Japanese (Playful)", tier: TierChirp3HD},
	},
}

var catalogs = map[string]map[string][]catalogEntry{
	ProviderGemini: geminiVoices,
	ProviderGoogle: googleVoices,
}

// ParseID parses a structured voice id of the form
// "<provider>-<language>-<index>".
func ParseID(id string) (Ref, error) {
	parts := strings.Split(id, "-")
	if len(parts) < 4 {
		return Ref{}, fmt.Errorf("malformed voice id %q", id)
	}
	provider := parts[0]
	if _, ok := catalogs[provider]; !ok {
		return Ref{}, fmt.Errorf("unknown provider tag in voice id %q", id)
	}
	idx, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil || idx < 0 {
		return Ref{}, fmt.Errorf("bad catalog index in voice id %q", id)
	}
	lang := strings.Join(parts[1:len(parts)-1], "-")
	return Ref{Provider: provider, Language: lang, Index: idx}, nil
}

// Resolve looks up the catalog entry for a reference. The boolean is false
// when the provider has no such voice.
func Resolve(ref Ref) (Voice, bool) {
	entries, ok := catalogs[ref.Provider][ref.Language]
	if !ok || ref.Index >= len(entries) {
		return Voice{}, false
	}
	e := entries[ref.Index]
	tier := e.tier
	if tier == "" {
		tier = TierStandard
	}
	return Voice{
		Name:        e.name,
		DisplayName: e.displayName,
		Provider:    ref.Provider,
		Language:    ref.Language,
		Tier:        tier,
	}, true
}

// Equivalent maps a voice onto the other provider's catalog for the same
// language, used when the broker falls back. The same catalog index is
// preferred; the first entry serves when the index is out of range. The
// boolean is false when the other provider does not cover the language.
func Equivalent(v Voice, provider string) (Voice, bool) {
	entries, ok := catalogs[provider][v.Language]
	if !ok || len(entries) == 0 {
		return Voice{}, false
	}
	idx := 0
	for i, e := range entries {
		if strings.Contains(e.name, FamilyName(v.Name)) {
			idx = i
			break
		}
	}
	return Resolve(Ref{Provider: provider, Language: v.Language, Index: idx})
}

// FamilyName strips the managed-cloud prefix ("en-US-Chirp3-HD-Puck" →
// "Puck"). Plan allowlists are written in family names, so entitlement
// checks go through this.
func FamilyName(name string) string {
	if i := strings.LastIndex(name, "-"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Supports reports whether a provider's catalog covers the language.
func Supports(provider, language string) bool {
	_, ok := catalogs[provider][language]
	return ok
}

// Languages lists every language served by at least one provider, with the
// total voice count, sorted by code.
type Language struct {
	Code       string `json:"code"`
	VoiceCount int    `json:"voiceCount"`
}

func Languages() []Language {
	counts := map[string]int{}
	for _, byLang := range catalogs {
		for lang, entries := range byLang {
			counts[lang] += len(entries)
		}
	}
	langs := make([]Language, 0, len(counts))
	for code, n := range counts {
		langs = append(langs, Language{Code: code, VoiceCount: n})
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i].Code < langs[j].Code })
	return langs
}

// ListedVoice is a catalog entry with its public id, for the voices endpoint.
type ListedVoice struct {
	ID string `json:"id"`
	Voice
}

// VoicesFor lists all voices of every provider for a language, gemini first.
func VoicesFor(language string) []ListedVoice {
	var out []ListedVoice
	for _, provider := range []string{ProviderGemini, ProviderGoogle} {
		for i := range catalogs[provider][language] {
			ref := Ref{Provider: provider, Language: language, Index: i}
			v, _ := Resolve(ref)
			out = append(out, ListedVoice{ID: ref.ID(), Voice: v})
		}
	}
	return out
}
