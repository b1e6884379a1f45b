package broker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voicecast/internal/model"
	"voicecast/internal/plan"
	"voicecast/internal/quota"
	"voicecast/internal/tts"
	"voicecast/internal/voice"
)

// ProviderAuto lets the broker pick the adapter. The managed-cloud adapter
// is preferred when it serves the language, to conserve the more
// rate-limited generative upstream.
const ProviderAuto = "auto"

// secondsPerCharacter is the playback duration estimate applied to input
// text length.
const secondsPerCharacter = 0.06

// VoiceNotAllowedError is an entitlement denial, raised before any provider
// is touched or quota consumed. Allowed carries the caller's allowlist for
// the upgrade prompt.
type VoiceNotAllowedError struct {
	Voice   string
	All     bool
	Allowed []string
}

func (e *VoiceNotAllowedError) Error() string {
	return fmt.Sprintf("voice %q is not available on the current plan", e.Voice)
}

// ErrProviderUnavailable means the caller named a provider whose
// credentials are absent. Explicit choices never fall back.
var ErrProviderUnavailable = errors.New("provider_unavailable")

// Ledger is the slice of the quota ledger the broker needs.
type Ledger interface {
	GetUsage(ctx context.Context, userID string) (*model.UsagePeriod, error)
	Commit(ctx context.Context, userID string, charactersConsumed int) error
}

// Saver persists a finished artifact, object first, then record.
type Saver interface {
	Save(ctx context.Context, a *model.Artifact, audio []byte) error
}

// Caller identifies who is generating. UserID is empty and Plan nil for
// anonymous callers, who are metered against the free tier with a zero
// usage snapshot and never committed to the ledger.
type Caller struct {
	UserID string
	Plan   *plan.Plan
}

// GenerateParams is one generation request. VoiceID is a structured id
// ("<provider>-<language>-<index>"); Provider overrides the id's embedded
// provider when set to a concrete name, or is ProviderAuto/empty.
type GenerateParams struct {
	Text     string
	VoiceID  string
	Provider string
	Speed    float64
	Pitch    float64
	Style    string
}

// Result is a completed generation.
type Result struct {
	ArtifactID          string
	Filename            string
	Audio               []byte
	Format              string
	Voice               voice.Voice
	Duration            float64
	CharactersUsed      int
	RemainingCharacters int // plan.Unlimited when uncapped
}

// Broker runs the generation pipeline: entitlement, quota check, provider
// select, synthesize with one fallback, persist, quota commit. Side effect
// ordering is fixed; the commit never runs when persistence failed, and a
// failed generation consumes no quota.
type Broker struct {
	adapters map[string]tts.Adapter
	ledger   Ledger
	store    Saver
	logger   zerolog.Logger
}

func New(adapters []tts.Adapter, ledger Ledger, store Saver, logger zerolog.Logger) *Broker {
	byProvider := make(map[string]tts.Adapter, len(adapters))
	for _, a := range adapters {
		byProvider[a.Provider()] = a
	}
	return &Broker{
		adapters: byProvider,
		ledger:   ledger,
		store:    store,
		logger:   logger.With().Str("service", "Broker").Logger(),
	}
}

// Generate executes the full pipeline for one request.
func (b *Broker) Generate(ctx context.Context, caller Caller, params GenerateParams) (*Result, error) {
	ref, err := voice.ParseID(params.VoiceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tts.ErrInvalidVoice, err)
	}
	v, ok := voice.Resolve(ref)
	if !ok {
		return nil, fmt.Errorf("%w: no catalog entry for %q", tts.ErrInvalidVoice, params.VoiceID)
	}

	if access := plan.CheckVoiceAccess(caller.Plan, voice.FamilyName(v.Name)); !access.Allowed {
		return nil, &VoiceNotAllowedError{Voice: v.Name, All: access.All, Allowed: access.Voices}
	}

	p, usage, err := b.quotaSnapshot(ctx, caller)
	if err != nil {
		return nil, err
	}
	if err := quota.Check(p, usage, len(params.Text)); err != nil {
		return nil, err
	}

	primary, v, err := b.selectProvider(params.Provider, v)
	if err != nil {
		return nil, err
	}

	res, v, err := b.synthesize(ctx, primary, v, params)
	if err != nil {
		return nil, err
	}

	artifactID := uuid.NewString()
	filename := fmt.Sprintf("tts-%s-%s.%s", v.Provider, artifactID, res.Format)
	a := &model.Artifact{
		ID:         artifactID,
		Filename:   filename,
		Text:       params.Text,
		TextLength: len(params.Text),
		Voice:      v.Name,
		Language:   v.Language,
		Provider:   v.Provider,
		Format:     res.Format,
		Duration:   estimateDuration(params.Text),
		Settings: model.ArtifactSettings{
			Speed: params.Speed,
			Pitch: params.Pitch,
			Style: params.Style,
		},
	}
	if caller.UserID != "" {
		a.UserID = &caller.UserID
	}
	if err := b.store.Save(ctx, a, res.Audio); err != nil {
		return nil, err
	}

	if caller.UserID != "" {
		if err := b.ledger.Commit(ctx, caller.UserID, len(params.Text)); err != nil {
			return nil, err
		}
	}

	return &Result{
		ArtifactID:          artifactID,
		Filename:            filename,
		Audio:               res.Audio,
		Format:              res.Format,
		Voice:               v,
		Duration:            a.Duration,
		CharactersUsed:      len(params.Text),
		RemainingCharacters: remaining(p, usage, len(params.Text)),
	}, nil
}

// quotaSnapshot returns the plan and current-month usage the request is
// judged against. Anonymous callers get the free tier with a zero snapshot.
func (b *Broker) quotaSnapshot(ctx context.Context, caller Caller) (plan.Plan, model.UsagePeriod, error) {
	p := plan.Free()
	if caller.Plan != nil {
		p = *caller.Plan
	}
	if caller.UserID == "" {
		return p, model.UsagePeriod{}, nil
	}
	usage, err := b.ledger.GetUsage(ctx, caller.UserID)
	if err != nil {
		return plan.Plan{}, model.UsagePeriod{}, err
	}
	return p, *usage, nil
}

// selectProvider picks the adapter and maps the voice onto its catalog. An
// explicit choice that is unconfigured is surfaced immediately; in auto
// mode the managed-cloud adapter is preferred when configured for the
// language, and the voice id's own provider serves otherwise.
func (b *Broker) selectProvider(requested string, v voice.Voice) (tts.Adapter, voice.Voice, error) {
	requested = strings.ToLower(strings.TrimSpace(requested))
	if requested != "" && requested != ProviderAuto {
		a, ok := b.adapters[requested]
		if !ok || !a.Configured() {
			return nil, voice.Voice{}, fmt.Errorf("%w: %s", ErrProviderUnavailable, requested)
		}
		mapped, ok := mapVoice(v, requested)
		if !ok {
			return nil, voice.Voice{}, fmt.Errorf("%w: %s has no voice for %s", tts.ErrInvalidVoice, requested, v.Language)
		}
		return a, mapped, nil
	}

	for _, provider := range []string{voice.ProviderGoogle, voice.ProviderGemini} {
		a, ok := b.adapters[provider]
		if !ok || !a.Configured() || !a.Supports(v.Language) {
			continue
		}
		mapped, ok := mapVoice(v, provider)
		if !ok {
			continue
		}
		return a, mapped, nil
	}
	return nil, voice.Voice{}, fmt.Errorf("%w: no configured provider serves %s", ErrProviderUnavailable, v.Language)
}

// mapVoice keeps the voice as-is when it already belongs to the provider,
// otherwise translates it to the provider's nearest equivalent.
func mapVoice(v voice.Voice, provider string) (voice.Voice, bool) {
	if v.Provider == provider {
		return v, true
	}
	return voice.Equivalent(v, provider)
}

// synthesize calls the selected adapter, retrying exactly once against the
// other configured adapter serving the language. Safety blocks are
// content-inherent and never retried. The fallback's error, being the last
// and most specific failure, is the one surfaced.
func (b *Broker) synthesize(ctx context.Context, primary tts.Adapter, v voice.Voice, params GenerateParams) (*tts.Result, voice.Voice, error) {
	res, err := primary.Synthesize(ctx, b.request(v, params))
	if err == nil {
		return res, v, nil
	}
	if errors.Is(err, tts.ErrSafetyBlocked) || errors.Is(err, tts.ErrInvalidVoice) {
		return nil, voice.Voice{}, err
	}

	fallback, fv, ok := b.fallbackFor(primary, v)
	if !ok {
		return nil, voice.Voice{}, err
	}
	b.logger.Warn().Err(err).
		Str("provider", primary.Provider()).
		Str("fallback", fallback.Provider()).
		Msg("Synthesis failed, retrying on fallback provider")

	res, ferr := fallback.Synthesize(ctx, b.request(fv, params))
	if ferr != nil {
		return nil, voice.Voice{}, ferr
	}
	return res, fv, nil
}

func (b *Broker) request(v voice.Voice, params GenerateParams) tts.Request {
	return tts.Request{
		Text:     params.Text,
		Voice:    v,
		Language: v.Language,
		Speed:    params.Speed,
		Pitch:    params.Pitch,
		Style:    params.Style,
	}
}

// fallbackFor finds the one other configured adapter that serves the
// voice's language, with the voice translated onto its catalog.
func (b *Broker) fallbackFor(primary tts.Adapter, v voice.Voice) (tts.Adapter, voice.Voice, bool) {
	for provider, a := range b.adapters {
		if provider == primary.Provider() || !a.Configured() || !a.Supports(v.Language) {
			continue
		}
		if mapped, ok := voice.Equivalent(v, provider); ok {
			return a, mapped, true
		}
	}
	return nil, voice.Voice{}, false
}

func estimateDuration(text string) float64 {
	return math.Ceil(float64(len(text)) * secondsPerCharacter)
}

func remaining(p plan.Plan, usage model.UsagePeriod, consumed int) int {
	if p.Limits.MonthlyCharacters == plan.Unlimited {
		return plan.Unlimited
	}
	r := p.Limits.MonthlyCharacters - usage.CharactersUsed - consumed
	if r < 0 {
		r = 0
	}
	return r
}
