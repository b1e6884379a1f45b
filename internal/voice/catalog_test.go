package voice

import "testing"

func TestParseIDRoundTrip(t *testing.T) {
	cases := []struct {
		id   string
		want Ref
	}{
		{"gemini-en-US-0", Ref{Provider: ProviderGemini, Language: "en-US", Index: 0}},
		{"gemini-pt-BR-1", Ref{Provider: ProviderGemini, Language: "pt-BR", Index: 1}},
		{"google-en-US-2", Ref{Provider: ProviderGoogle, Language: "en-US", Index: 2}},
	}
	for _, c := range cases {
		got, err := ParseID(c.id)
		if err != nil {
			t.Errorf("ParseID(%q) error: %v", c.id, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseID(%q) = %+v, want %+v", c.id, got, c.want)
		}
		if got.ID() != c.id {
			t.Errorf("Ref.ID() = %q, want %q", got.ID(), c.id)
		}
	}
}

func TestParseIDRejectsMalformed(t *testing.T) {
	for _, id := range []string{"", "Puck", "gemini-en-US", "aws-en-US-0", "gemini-en-US-x"} {
		if _, err := ParseID(id); err == nil {
			t.Errorf("ParseID(%q) succeeded, want error", id)
		}
	}
}

func TestResolveOutOfRange(t *testing.T) {
	if _, ok := Resolve(Ref{Provider: ProviderGemini, Language: "en-US", Index: 99}); ok {
		t.Error("resolved an index past the catalog end")
	}
	if _, ok := Resolve(Ref{Provider: ProviderGoogle, Language: "ko-KR", Index: 0}); ok {
		t.Error("resolved a language the provider does not serve")
	}
}

func TestResolveTier(t *testing.T) {
	v, ok := Resolve(Ref{Provider: ProviderGoogle, Language: "en-US", Index: 0})
	if !ok {
		t.Fatal("google en-US voice 0 missing")
	}
	if v.Tier != TierChirp3HD {
		t.Errorf("tier = %q, want %q", v.Tier, TierChirp3HD)
	}
	g, ok := Resolve(Ref{Provider: ProviderGemini, Language: "en-US", Index: 0})
	if !ok {
		t.Fatal("gemini en-US voice 0 missing")
	}
	if g.Tier != TierStandard {
		t.Errorf("tier = %q, want %q", g.Tier, TierStandard)
	}
}

func TestEquivalentKeepsVoiceFamily(t *testing.T) {
	puck, _ := Resolve(Ref{Provider: ProviderGemini, Language: "en-US", Index: 0})
	mapped, ok := Equivalent(puck, ProviderGoogle)
	if !ok {
		t.Fatal("no google equivalent for gemini en-US Puck")
	}
	if mapped.Name != "en-US-Chirp3-HD-Puck" {
		t.Errorf("mapped to %q, want the Puck family voice", mapped.Name)
	}

	back, ok := Equivalent(mapped, ProviderGemini)
	if !ok {
		t.Fatal("no gemini equivalent for google Puck")
	}
	if back.Name != "Puck" {
		t.Errorf("mapped back to %q, want Puck", back.Name)
	}
}

func TestEquivalentUnservedLanguage(t *testing.T) {
	korean, _ := Resolve(Ref{Provider: ProviderGemini, Language: "ko-KR", Index: 0})
	if _, ok := Equivalent(korean, ProviderGoogle); ok {
		t.Error("google should not serve ko-KR")
	}
}

func TestFamilyName(t *testing.T) {
	if got := FamilyName("en-US-Chirp3-HD-Puck"); got != "Puck" {
		t.Errorf("FamilyName = %q, want Puck", got)
	}
	if got := FamilyName("Kore"); got != "Kore" {
		t.Errorf("FamilyName = %q, want Kore", got)
	}
}

func TestVoicesForIDsParseBack(t *testing.T) {
	listed := VoicesFor("en-US")
	if len(listed) == 0 {
		t.Fatal("no en-US voices listed")
	}
	for _, lv := range listed {
		ref, err := ParseID(lv.ID)
		if err != nil {
			t.Errorf("listed id %q does not parse: %v", lv.ID, err)
			continue
		}
		v, ok := Resolve(ref)
		if !ok || v.Name != lv.Name {
			t.Errorf("listed id %q resolves to %q, want %q", lv.ID, v.Name, lv.Name)
		}
	}
}

func TestLanguagesCounts(t *testing.T) {
	langs := Languages()
	byCode := map[string]int{}
	for _, l := range langs {
		byCode[l.Code] = l.VoiceCount
	}
	if byCode["en-US"] != len(geminiVoices["en-US"])+len(googleVoices["en-US"]) {
		t.Errorf("en-US voice count = %d", byCode["en-US"])
	}
	if byCode["ko-KR"] != len(geminiVoices["ko-KR"]) {
		t.Errorf("ko-KR voice count = %d", byCode["ko-KR"])
	}
}
