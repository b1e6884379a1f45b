package tts

import (
	"context"
	"errors"

	"voicecast/internal/voice"
)

// Typed synthesis failures. The broker classifies on these instead of
// matching provider error strings.
var (
	// ErrUnconfigured means the provider's credentials are absent. Not a
	// synthesis failure: an explicit request for an unconfigured provider
	// is surfaced immediately, without fallback.
	ErrUnconfigured = errors.New("provider_unconfigured")
	// ErrInvalidVoice means the requested voice is outside the adapter's
	// catalog. A caller error, surfaced as 400 and never retried.
	ErrInvalidVoice = errors.New("invalid_voice")
	// ErrNoAudioData means the generative response lacked the expected
	// audio payload field.
	ErrNoAudioData = errors.New("no_audio_data")
	// ErrNoAudioContent means the managed-cloud response was empty.
	ErrNoAudioContent = errors.New("no_audio_content")
	// ErrSafetyBlocked means the content was rejected by safety filters.
	// The block is content-inherent, so it is never retried against
	// another provider.
	ErrSafetyBlocked = errors.New("safety_blocked")
	// ErrUpstreamQuota means the external API's own rate limit tripped.
	ErrUpstreamQuota = errors.New("upstream_quota_exceeded")
)

// Audio container formats returned by adapters.
const (
	FormatWAV = "wav"
	FormatMP3 = "mp3"
)

// Request is the canonical generation request handed to an adapter after
// voice resolution. Speed is a multiplier around 1.0; Pitch is in the
// canonical [-1, +1] range and rescaled per provider.
type Request struct {
	Text     string
	Voice    voice.Voice
	Language string
	Speed    float64
	Pitch    float64
	Style    string
}

// Result is a normalized synthesis result: a ready-to-serve audio container
// plus its encoding metadata.
type Result struct {
	Audio      []byte
	Format     string
	SampleRate int
}

// Adapter translates the canonical request into one provider's wire format
// and normalizes the response. Implementations bound their own network
// calls with a provider-specific timeout.
type Adapter interface {
	Provider() string
	// Configured reports whether credentials are present.
	Configured() bool
	// Supports reports whether the provider's catalog covers the language.
	Supports(language string) bool
	Synthesize(ctx context.Context, req Request) (*Result, error)
}
