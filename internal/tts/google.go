package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"

	"voicecast/internal/voice"
)

// Provider-specific parameter ranges.
const (
	googleMinSpeakingRate = 0.25
	googleMaxSpeakingRate = 4.0
	googleMaxPitch        = 20.0
	// The canonical [-1, +1] pitch maps onto the provider scale with this
	// factor; only the inner quarter of the provider range is exposed.
	googlePitchScale = 4.0
)

const googleTimeout = 30 * time.Second

// GoogleAdapter drives the managed cloud synthesis endpoint. The provider
// returns a ready MP3 container, so no header assembly is needed.
type GoogleAdapter struct {
	svc    *texttospeech.Service
	logger zerolog.Logger
}

// NewGoogleAdapter creates the managed-cloud adapter. An empty apiKey
// leaves the adapter unconfigured; a client construction failure is logged
// and likewise results in an unconfigured adapter rather than a startup
// failure, since the other provider may still serve.
func NewGoogleAdapter(ctx context.Context, apiKey string, logger zerolog.Logger) *GoogleAdapter {
	lg := logger.With().Str("adapter", "google").Logger()
	a := &GoogleAdapter{logger: lg}
	if apiKey == "" {
		return a
	}
	svc, err := texttospeech.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		lg.Error().Err(err).Msg("Failed to create Cloud TTS client")
		return a
	}
	a.svc = svc
	return a
}

func (a *GoogleAdapter) Provider() string { return voice.ProviderGoogle }

func (a *GoogleAdapter) Configured() bool { return a.svc != nil }

func (a *GoogleAdapter) Supports(language string) bool {
	return voice.Supports(voice.ProviderGoogle, language)
}

// Synthesize requests an MP3 directly from the synthesis endpoint. Speed is
// clamped to the provider's speaking-rate range; pitch is rescaled from the
// canonical range, except for Chirp3 HD voices, which reject pitch and get
// it silently omitted.
func (a *GoogleAdapter) Synthesize(ctx context.Context, req Request) (*Result, error) {
	if !a.Configured() {
		return nil, ErrUnconfigured
	}
	if req.Voice.Provider != voice.ProviderGoogle {
		return nil, fmt.Errorf("%w: %s is not a google voice", ErrInvalidVoice, req.Voice.Name)
	}

	audioConfig := &texttospeech.AudioConfig{
		AudioEncoding:    "MP3",
		SpeakingRate:     clampRate(req.Speed),
		EffectsProfileId: []string{"headphone-class-device"},
	}
	if req.Voice.Tier != voice.TierChirp3HD {
		audioConfig.Pitch = rescalePitch(req.Pitch)
	}

	synthReq := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: req.Text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: req.Language,
			Name:         req.Voice.Name,
		},
		AudioConfig: audioConfig,
	}

	callCtx, cancel := context.WithTimeout(ctx, googleTimeout)
	defer cancel()

	resp, err := a.svc.Text.Synthesize(synthReq).Context(callCtx).Do()
	if err != nil {
		return nil, classifyGoogleError(err)
	}
	if resp.AudioContent == "" {
		return nil, ErrNoAudioContent
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decoding audio content: %w", err)
	}

	a.logger.Debug().Str("voice", req.Voice.Name).Int("bytes", len(audio)).Msg("Synthesized speech")

	return &Result{
		Audio:      audio,
		Format:     FormatMP3,
		SampleRate: pcmSampleRate,
	}, nil
}

func clampRate(speed float64) float64 {
	if speed == 0 {
		return 1.0
	}
	if speed < googleMinSpeakingRate {
		return googleMinSpeakingRate
	}
	if speed > googleMaxSpeakingRate {
		return googleMaxSpeakingRate
	}
	return speed
}

func rescalePitch(pitch float64) float64 {
	p := pitch * googlePitchScale
	if p > googleMaxPitch {
		return googleMaxPitch
	}
	if p < -googleMaxPitch {
		return -googleMaxPitch
	}
	return p
}

func classifyGoogleError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %s", ErrUpstreamQuota, apiErr.Message)
		}
		return fmt.Errorf("cloud tts: %s (HTTP %d)", apiErr.Message, apiErr.Code)
	}
	return fmt.Errorf("cloud tts: %w", err)
}
