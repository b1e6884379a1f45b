package broker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"voicecast/internal/model"
	"voicecast/internal/plan"
	"voicecast/internal/quota"
	"voicecast/internal/tts"
	"voicecast/internal/voice"
)

type fakeAdapter struct {
	provider   string
	configured bool
	err        error

	mu      sync.Mutex
	calls   int
	lastReq tts.Request
}

func (a *fakeAdapter) Provider() string { return a.provider }
func (a *fakeAdapter) Configured() bool { return a.configured }

func (a *fakeAdapter) Supports(language string) bool {
	return voice.Supports(a.provider, language)
}

func (a *fakeAdapter) Synthesize(ctx context.Context, req tts.Request) (*tts.Result, error) {
	a.mu.Lock()
	a.calls++
	a.lastReq = req
	a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	format := tts.FormatWAV
	if a.provider == voice.ProviderGoogle {
		format = tts.FormatMP3
	}
	return &tts.Result{Audio: []byte("audio-" + a.provider), Format: format, SampleRate: 24000}, nil
}

type fakeLedger struct {
	mu      sync.Mutex
	usage   map[string]*model.UsagePeriod
	commits int
	getErr  error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{usage: map[string]*model.UsagePeriod{}}
}

func (l *fakeLedger) GetUsage(ctx context.Context, userID string) (*model.UsagePeriod, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.getErr != nil {
		return nil, l.getErr
	}
	u, ok := l.usage[userID]
	if !ok {
		u = &model.UsagePeriod{UserID: userID}
		l.usage[userID] = u
	}
	snapshot := *u
	return &snapshot, nil
}

func (l *fakeLedger) Commit(ctx context.Context, userID string, charactersConsumed int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.usage[userID]
	if !ok {
		u = &model.UsagePeriod{UserID: userID}
		l.usage[userID] = u
	}
	u.CharactersUsed += charactersConsumed
	u.APICalls++
	u.ArtifactsGenerated++
	l.commits++
	return nil
}

type fakeStore struct {
	mu    sync.Mutex
	saved []*model.Artifact
	err   error
}

func (s *fakeStore) Save(ctx context.Context, a *model.Artifact, audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, a)
	return nil
}

func freeCaller(userID string) Caller {
	p := plan.Free()
	return Caller{UserID: userID, Plan: &p}
}

func newTestBroker(gemini, google *fakeAdapter, ledger Ledger, store Saver) *Broker {
	return New([]tts.Adapter{gemini, google}, ledger, store, zerolog.Nop())
}

func TestGenerateHappyPathCommitsAfterSave(t *testing.T) {
	gemini := &fakeAdapter{provider: voice.ProviderGemini, configured: true}
	google := &fakeAdapter{provider: voice.ProviderGoogle, configured: true}
	ledger := newFakeLedger()
	store := &fakeStore{}
	b := newTestBroker(gemini, google, ledger, store)

	res, err := b.Generate(context.Background(), freeCaller("u1"), GenerateParams{
		Text: "hello world", VoiceID: "gemini-en-US-0", Provider: "gemini", Speed: 1.0,
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if res.Format != tts.FormatWAV {
		t.Errorf("format = %q", res.Format)
	}
	if res.CharactersUsed != len("hello world") {
		t.Errorf("charactersUsed = %d", res.CharactersUsed)
	}
	if want := 1000 - len("hello world"); res.RemainingCharacters != want {
		t.Errorf("remaining = %d, want %d", res.RemainingCharacters, want)
	}
	if len(store.saved) != 1 {
		t.Fatalf("saved %d artifacts", len(store.saved))
	}
	a := store.saved[0]
	if a.UserID == nil || *a.UserID != "u1" {
		t.Error("artifact not attributed to the caller")
	}
	if !strings.HasPrefix(a.Filename, "tts-gemini-") || !strings.HasSuffix(a.Filename, ".wav") {
		t.Errorf("filename = %q", a.Filename)
	}
	if ledger.commits != 1 {
		t.Errorf("commits = %d, want 1", ledger.commits)
	}
	if got := ledger.usage["u1"].CharactersUsed; got != len("hello world") {
		t.Errorf("ledger characters = %d", got)
	}
}

func TestGenerateEntitlementDenialBeforeProvider(t *testing.T) {
	gemini := &fakeAdapter{provider: voice.ProviderGemini, configured: true}
	google := &fakeAdapter{provider: voice.ProviderGoogle, configured: true}
	ledger := newFakeLedger()
	b := newTestBroker(gemini, google, ledger, &fakeStore{})

	// Fenrir (index 3) is outside the free allowlist.
	_, err := b.Generate(context.Background(), freeCaller("u1"), GenerateParams{
		Text: "hi", VoiceID: "gemini-en-US-3",
	})
	var denied *VoiceNotAllowedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected VoiceNotAllowedError, got %v", err)
	}
	if denied.Voice != "Fenrir" {
		t.Errorf("denied voice = %q", denied.Voice)
	}
	if len(denied.Allowed) == 0 {
		t.Error("denial should carry the allowlist")
	}
	if gemini.calls+google.calls != 0 {
		t.Error("provider touched despite entitlement denial")
	}
	if ledger.commits != 0 {
		t.Error("quota committed despite entitlement denial")
	}
}

func TestGenerateQuotaDenialBeforeProvider(t *testing.T) {
	gemini := &fakeAdapter{provider: voice.ProviderGemini, configured: true}
	google := &fakeAdapter{provider: voice.ProviderGoogle, configured: true}
	ledger := newFakeLedger()
	ledger.usage["u1"] = &model.UsagePeriod{UserID: "u1", CharactersUsed: 999}
	b := newTestBroker(gemini, google, ledger, &fakeStore{})

	_, err := b.Generate(context.Background(), freeCaller("u1"), GenerateParams{
		Text: "more than one character", VoiceID: "gemini-en-US-0",
	})
	var exceeded *quota.ExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected quota denial, got %v", err)
	}
	if gemini.calls+google.calls != 0 {
		t.Error("provider touched despite quota denial")
	}
}

func TestGenerateFallbackOnce(t *testing.T) {
	gemini := &fakeAdapter{provider: voice.ProviderGemini, configured: true, err: errors.New("boom")}
	google := &fakeAdapter{provider: voice.ProviderGoogle, configured: true}
	ledger := newFakeLedger()
	store := &fakeStore{}
	b := newTestBroker(gemini, google, ledger, store)

	res, err := b.Generate(context.Background(), freeCaller("u1"), GenerateParams{
		Text: "hello", VoiceID: "gemini-en-US-0", Provider: "gemini",
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if gemini.calls != 1 || google.calls != 1 {
		t.Errorf("calls gemini=%d google=%d, want 1 and 1", gemini.calls, google.calls)
	}
	if res.Voice.Provider != voice.ProviderGoogle {
		t.Errorf("result provider = %q, want google fallback", res.Voice.Provider)
	}
	if google.lastReq.Voice.Name != "en-US-Chirp3-HD-Puck" {
		t.Errorf("fallback voice = %q, want the Puck equivalent", google.lastReq.Voice.Name)
	}
	if res.Format != tts.FormatMP3 {
		t.Errorf("format = %q", res.Format)
	}
	if ledger.commits != 1 {
		t.Errorf("commits = %d", ledger.commits)
	}
}

func TestGenerateDoubleFailureSurfacesLastError(t *testing.T) {
	lastErr := errors.New("google also down")
	gemini := &fakeAdapter{provider: voice.ProviderGemini, configured: true, err: errors.New("gemini down")}
	google := &fakeAdapter{provider: voice.ProviderGoogle, configured: true, err: lastErr}
	ledger := newFakeLedger()
	b := newTestBroker(gemini, google, ledger, &fakeStore{})

	_, err := b.Generate(context.Background(), freeCaller("u1"), GenerateParams{
		Text: "hello", VoiceID: "gemini-en-US-0", Provider: "gemini",
	})
	if !errors.Is(err, lastErr) {
		t.Fatalf("expected the fallback's error, got %v", err)
	}
	if gemini.calls != 1 || google.calls != 1 {
		t.Errorf("calls gemini=%d google=%d, fallback must run exactly once", gemini.calls, google.calls)
	}
	if ledger.commits != 0 {
		t.Error("failed generation consumed quota")
	}
}

func TestGenerateSafetyBlockNeverFallsBack(t *testing.T) {
	gemini := &fakeAdapter{provider: voice.ProviderGemini, configured: true, err: tts.ErrSafetyBlocked}
	google := &fakeAdapter{provider: voice.ProviderGoogle, configured: true}
	b := newTestBroker(gemini, google, newFakeLedger(), &fakeStore{})

	_, err := b.Generate(context.Background(), freeCaller("u1"), GenerateParams{
		Text: "hello", VoiceID: "gemini-en-US-0", Provider: "gemini",
	})
	if !errors.Is(err, tts.ErrSafetyBlocked) {
		t.Fatalf("expected ErrSafetyBlocked, got %v", err)
	}
	if google.calls != 0 {
		t.Error("safety block was retried against the other provider")
	}
}

func TestGenerateExplicitUnconfiguredProvider(t *testing.T) {
	gemini := &fakeAdapter{provider: voice.ProviderGemini, configured: false}
	google := &fakeAdapter{provider: voice.ProviderGoogle, configured: true}
	b := newTestBroker(gemini, google, newFakeLedger(), &fakeStore{})

	_, err := b.Generate(context.Background(), freeCaller("u1"), GenerateParams{
		Text: "hello", VoiceID: "gemini-en-US-0", Provider: "gemini",
	})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if google.calls != 0 {
		t.Error("explicit provider choice must not fall back")
	}
}

func TestGenerateAutoPrefersGoogle(t *testing.T) {
	gemini := &fakeAdapter{provider: voice.ProviderGemini, configured: true}
	google := &fakeAdapter{provider: voice.ProviderGoogle, configured: true}
	b := newTestBroker(gemini, google, newFakeLedger(), &fakeStore{})

	res, err := b.Generate(context.Background(), freeCaller("u1"), GenerateParams{
		Text: "hello", VoiceID: "gemini-en-US-0",
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if res.Voice.Provider != voice.ProviderGoogle {
		t.Errorf("auto selected %q, want google", res.Voice.Provider)
	}
	if gemini.calls != 0 {
		t.Error("gemini called despite google being available")
	}
}

func TestGenerateAutoFallsBackToGeminiForUnservedLanguage(t *testing.T) {
	gemini := &fakeAdapter{provider: voice.ProviderGemini, configured: true}
	google := &fakeAdapter{provider: voice.ProviderGoogle, configured: true}
	enterprise, _ := plan.Lookup("enterprise")
	b := newTestBroker(gemini, google, newFakeLedger(), &fakeStore{})

	// Google has no ko-KR catalog, so auto must use gemini.
	res, err := b.Generate(context.Background(), Caller{UserID: "u1", Plan: &enterprise}, GenerateParams{
		Text: "annyeong", VoiceID: "gemini-ko-KR-0",
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if res.Voice.Provider != voice.ProviderGemini {
		t.Errorf("auto selected %q, want gemini for ko-KR", res.Voice.Provider)
	}
}

func TestGenerateAnonymousNeverCommits(t *testing.T) {
	gemini := &fakeAdapter{provider: voice.ProviderGemini, configured: true}
	google := &fakeAdapter{provider: voice.ProviderGoogle, configured: false}
	ledger := newFakeLedger()
	store := &fakeStore{}
	b := newTestBroker(gemini, google, ledger, store)

	res, err := b.Generate(context.Background(), Caller{}, GenerateParams{
		Text: "hello", VoiceID: "gemini-en-US-0",
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if ledger.commits != 0 {
		t.Error("anonymous generation committed quota")
	}
	if len(store.saved) != 1 || store.saved[0].UserID != nil {
		t.Error("anonymous artifact should have no owner")
	}
	if res.RemainingCharacters != plan.Free().Limits.MonthlyCharacters-len("hello") {
		t.Errorf("remaining = %d", res.RemainingCharacters)
	}
}

func TestGeneratePersistenceFailureSkipsCommit(t *testing.T) {
	gemini := &fakeAdapter{provider: voice.ProviderGemini, configured: true}
	google := &fakeAdapter{provider: voice.ProviderGoogle, configured: false}
	ledger := newFakeLedger()
	store := &fakeStore{err: errors.New("disk full")}
	b := newTestBroker(gemini, google, ledger, store)

	_, err := b.Generate(context.Background(), freeCaller("u1"), GenerateParams{
		Text: "hello", VoiceID: "gemini-en-US-0",
	})
	if err == nil {
		t.Fatal("expected persistence failure")
	}
	if ledger.commits != 0 {
		t.Error("quota committed although persistence failed")
	}
}

func TestGenerateUnknownVoiceID(t *testing.T) {
	gemini := &fakeAdapter{provider: voice.ProviderGemini, configured: true}
	google := &fakeAdapter{provider: voice.ProviderGoogle, configured: true}
	b := newTestBroker(gemini, google, newFakeLedger(), &fakeStore{})

	for _, id := range []string{"not-a-voice", "gemini-zz-ZZ-0", "gemini-en-US-99"} {
		_, err := b.Generate(context.Background(), freeCaller("u1"), GenerateParams{Text: "hi", VoiceID: id})
		if !errors.Is(err, tts.ErrInvalidVoice) {
			t.Errorf("VoiceID %q: expected ErrInvalidVoice, got %v", id, err)
		}
	}
}

func TestGenerateConcurrentCommitsSum(t *testing.T) {
	gemini := &fakeAdapter{provider: voice.ProviderGemini, configured: true}
	google := &fakeAdapter{provider: voice.ProviderGoogle, configured: false}
	ledger := newFakeLedger()
	b := newTestBroker(gemini, google, ledger, &fakeStore{})
	enterprise, _ := plan.Lookup("enterprise")

	const workers = 20
	text := "hello"
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Generate(context.Background(), Caller{UserID: "u1", Plan: &enterprise}, GenerateParams{
				Text: text, VoiceID: "gemini-en-US-0",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent generate failed: %v", err)
		}
	}

	u := ledger.usage["u1"]
	if u.CharactersUsed != workers*len(text) {
		t.Errorf("characters = %d, want %d", u.CharactersUsed, workers*len(text))
	}
	if u.APICalls != workers {
		t.Errorf("api calls = %d, want %d", u.APICalls, workers)
	}
}

func TestEstimateDuration(t *testing.T) {
	cases := []struct {
		length int
		want   float64
	}{
		{100, 6}, {1, 1}, {50, 3}, {51, 4},
	}
	for _, c := range cases {
		text := strings.Repeat("a", c.length)
		if got := estimateDuration(text); got != c.want {
			t.Errorf("estimateDuration(len %d) = %v, want %v", c.length, got, c.want)
		}
	}
}
