package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"

	"voicecast/internal/voice"
)

func newGoogleTestAdapter(t *testing.T, handler http.HandlerFunc) *GoogleAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc, err := texttospeech.NewService(context.Background(),
		option.WithEndpoint(srv.URL),
		option.WithAPIKey("test-key"),
	)
	if err != nil {
		t.Fatalf("creating test client: %v", err)
	}
	return &GoogleAdapter{svc: svc, logger: zerolog.Nop()}
}

func chirpVoice() voice.Voice {
	return voice.Voice{
		Name:     "en-US-Chirp3-HD-Puck",
		Provider: voice.ProviderGoogle,
		Language: "en-US",
		Tier:     voice.TierChirp3HD,
	}
}

func TestGoogleSynthesize(t *testing.T) {
	audio := []byte("mp3-bytes")
	var got texttospeech.SynthesizeSpeechRequest
	a := newGoogleTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(texttospeech.SynthesizeSpeechResponse{
			AudioContent: base64.StdEncoding.EncodeToString(audio),
		})
	})

	res, err := a.Synthesize(context.Background(), Request{
		Text:     "hello",
		Voice:    chirpVoice(),
		Language: "en-US",
		Speed:    1.5,
		Pitch:    0.5,
	})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(res.Audio) != string(audio) {
		t.Errorf("audio = %q", res.Audio)
	}
	if res.Format != FormatMP3 {
		t.Errorf("format = %q", res.Format)
	}

	if got.Input.Text != "hello" {
		t.Errorf("request text = %q", got.Input.Text)
	}
	if got.Voice.Name != "en-US-Chirp3-HD-Puck" || got.Voice.LanguageCode != "en-US" {
		t.Errorf("request voice = %+v", got.Voice)
	}
	if got.AudioConfig.AudioEncoding != "MP3" {
		t.Errorf("encoding = %q", got.AudioConfig.AudioEncoding)
	}
	if got.AudioConfig.SpeakingRate != 1.5 {
		t.Errorf("speaking rate = %v", got.AudioConfig.SpeakingRate)
	}
	// Chirp3 HD voices reject pitch, so it must stay unset.
	if got.AudioConfig.Pitch != 0 {
		t.Errorf("pitch = %v, want omitted", got.AudioConfig.Pitch)
	}
}

func TestGoogleSynthesizeUpstreamQuota(t *testing.T) {
	a := newGoogleTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "quota exceeded"}}`))
	})

	_, err := a.Synthesize(context.Background(), Request{Text: "hi", Voice: chirpVoice(), Language: "en-US"})
	if !errors.Is(err, ErrUpstreamQuota) {
		t.Errorf("error = %v, want ErrUpstreamQuota", err)
	}
}

func TestGoogleSynthesizeEmptyResponse(t *testing.T) {
	a := newGoogleTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(texttospeech.SynthesizeSpeechResponse{})
	})

	_, err := a.Synthesize(context.Background(), Request{Text: "hi", Voice: chirpVoice(), Language: "en-US"})
	if !errors.Is(err, ErrNoAudioContent) {
		t.Errorf("error = %v, want ErrNoAudioContent", err)
	}
}

func TestGoogleSynthesizeUnconfigured(t *testing.T) {
	a := NewGoogleAdapter(context.Background(), "", zerolog.Nop())
	if a.Configured() {
		t.Fatal("adapter without a key reports configured")
	}
	_, err := a.Synthesize(context.Background(), Request{Text: "hi", Voice: chirpVoice(), Language: "en-US"})
	if !errors.Is(err, ErrUnconfigured) {
		t.Errorf("error = %v, want ErrUnconfigured", err)
	}
}

func TestGoogleSynthesizeForeignVoice(t *testing.T) {
	a := newGoogleTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("adapter called the endpoint for a foreign voice")
	})
	_, err := a.Synthesize(context.Background(), Request{
		Text:     "hi",
		Voice:    voice.Voice{Name: "Puck", Provider: voice.ProviderGemini, Language: "en-US"},
		Language: "en-US",
	})
	if !errors.Is(err, ErrInvalidVoice) {
		t.Errorf("error = %v, want ErrInvalidVoice", err)
	}
}

func TestClampRate(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 1.0},
		{0.1, googleMinSpeakingRate},
		{1.5, 1.5},
		{10, googleMaxSpeakingRate},
	}
	for _, tc := range cases {
		if got := clampRate(tc.in); got != tc.want {
			t.Errorf("clampRate(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestRescalePitch(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{0.5, 2.0},
		{-0.5, -2.0},
		{1, 4.0},
		{100, googleMaxPitch},
		{-100, -googleMaxPitch},
	}
	for _, tc := range cases {
		if got := rescalePitch(tc.in); got != tc.want {
			t.Errorf("rescalePitch(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
