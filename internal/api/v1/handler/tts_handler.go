package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"voicecast/internal/api/v1/dto"
	"voicecast/internal/artifact"
	"voicecast/internal/broker"
	"voicecast/internal/middleware"
	"voicecast/internal/plan"
	"voicecast/internal/quota"
	"voicecast/internal/repository"
	"voicecast/internal/tts"
	"voicecast/internal/voice"
)

// TTSHandler serves speech generation, audio retrieval and the read-only
// catalog endpoints.
type TTSHandler struct {
	broker     *broker.Broker
	store      *artifact.Store
	users      repository.UserRepository
	adapters   []tts.Adapter
	validate   *validator.Validate
	production bool
	logger     zerolog.Logger
}

// NewTTSHandler creates a new TTSHandler.
func NewTTSHandler(b *broker.Broker, store *artifact.Store, users repository.UserRepository, adapters []tts.Adapter, validate *validator.Validate, production bool, logger zerolog.Logger) *TTSHandler {
	return &TTSHandler{
		broker:     b,
		store:      store,
		users:      users,
		adapters:   adapters,
		validate:   validate,
		production: production,
		logger:     logger,
	}
}

// RegisterRoutes registers the TTS endpoints. Generation is optionally
// authenticated: anonymous callers get the free-tier voice subset.
func (h *TTSHandler) RegisterRoutes(mux *http.ServeMux, optionalAuthMw func(http.Handler) http.Handler) {
	mux.Handle("/tts/generate-speech", optionalAuthMw(http.HandlerFunc(h.generateSpeech)))
	mux.Handle("/tts/languages", http.HandlerFunc(h.languages))
	mux.Handle("/tts/voices/", http.HandlerFunc(h.voices))
	mux.Handle("/tts/providers/status", http.HandlerFunc(h.providersStatus))
	mux.Handle("/tts/pricing/plans", http.HandlerFunc(h.pricingPlans))
	mux.Handle("/audio/", http.HandlerFunc(h.streamAudio))
	mux.Handle("/download/", http.HandlerFunc(h.downloadAudio))
}

// generateSpeech godoc
// @Summary Generate speech from text
// @Description Runs the generation pipeline and returns URLs for the audio.
// @Tags tts
// @Accept json
// @Produce json
// @Param request body dto.GenerateSpeechRequest true "Generation request"
// @Success 200 {object} dto.GenerateSpeechResponse
// @Failure 400 {string} string "invalid input or voice"
// @Failure 403 {string} string "voice not allowed on the current plan"
// @Failure 429 {string} string "monthly quota exceeded"
// @Failure 500 {string} string "generation failed"
// @Router /tts/generate-speech [post]
func (h *TTSHandler) generateSpeech(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req dto.GenerateSpeechRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON payload", Details: h.details(err)})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Validation failed", Kind: "invalid_input", Details: h.details(err)})
		return
	}

	caller, err := h.callerFor(r)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to resolve caller plan")
		writeError(w, http.StatusInternalServerError, errorBody{Error: "Failed to resolve account", Details: h.details(err)})
		return
	}

	speed := req.Speed
	if speed == 0 {
		speed = 1.0
	}
	res, err := h.broker.Generate(r.Context(), caller, broker.GenerateParams{
		Text:     req.Text,
		VoiceID:  req.VoiceID,
		Provider: req.Provider,
		Speed:    speed,
		Pitch:    req.Pitch,
		Style:    req.Style,
	})
	if err != nil {
		h.writeGenerateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GenerateSpeechResponse{
		Success:             true,
		AudioID:             res.ArtifactID,
		Filename:            res.Filename,
		URL:                 "/v1/audio/" + res.ArtifactID,
		DownloadURL:         "/v1/download/" + res.ArtifactID,
		Duration:            res.Duration,
		Voice:               res.Voice.Name,
		Language:            res.Voice.Language,
		Provider:            res.Voice.Provider,
		AudioFormat:         res.Format,
		CharactersUsed:      res.CharactersUsed,
		RemainingCharacters: res.RemainingCharacters,
	})
}

// writeGenerateError maps pipeline failures onto the error taxonomy.
func (h *TTSHandler) writeGenerateError(w http.ResponseWriter, err error) {
	var notAllowed *broker.VoiceNotAllowedError
	var exceeded *quota.ExceededError
	switch {
	case errors.As(err, &notAllowed):
		allowed := any("all")
		if !notAllowed.All {
			allowed = notAllowed.Allowed
		}
		writeError(w, http.StatusForbidden, errorBody{
			Error: notAllowed.Error(),
			Kind:  "voice_not_allowed",
			Extra: map[string]any{"allowedVoices": allowed},
		})
	case errors.As(err, &exceeded):
		writeError(w, http.StatusTooManyRequests, errorBody{
			Error: exceeded.Error(),
			Kind:  fmt.Sprintf("%s_cap_exceeded", exceeded.Kind),
			Extra: map[string]any{
				"usage": map[string]any{
					"charactersUsed": exceeded.Usage.CharactersUsed,
					"apiCalls":       exceeded.Usage.APICalls,
				},
				"limits": map[string]any{
					"monthlyCharacters": exceeded.Limit.MonthlyCharacters,
					"apiCalls":          exceeded.Limit.APICalls,
				},
			},
		})
	case errors.Is(err, tts.ErrInvalidVoice):
		writeError(w, http.StatusBadRequest, errorBody{Error: "Unknown or invalid voice", Kind: "invalid_voice", Details: h.details(err)})
	case errors.Is(err, tts.ErrSafetyBlocked):
		writeError(w, http.StatusBadRequest, errorBody{Error: "Content blocked by safety filters. Please try different text.", Kind: "safety_blocked"})
	case errors.Is(err, tts.ErrUpstreamQuota):
		writeError(w, http.StatusServiceUnavailable, errorBody{Error: "Provider quota exceeded. Please try again later.", Kind: "upstream_quota"})
	case errors.Is(err, broker.ErrProviderUnavailable):
		writeError(w, http.StatusServiceUnavailable, errorBody{Error: "Requested provider is not configured", Kind: "provider_unavailable"})
	default:
		h.logger.Error().Err(err).Msg("Speech generation failed")
		writeError(w, http.StatusInternalServerError, errorBody{Error: "Failed to generate speech", Details: h.details(err)})
	}
}

// streamAudio godoc
// @Summary Stream generated audio
// @Tags tts
// @Produce audio/wav
// @Success 200 {file} binary
// @Failure 404 {string} string "unknown or expired audio id"
// @Router /audio/{id} [get]
func (h *TTSHandler) streamAudio(w http.ResponseWriter, r *http.Request) {
	id, ok := h.audioID(r, "/audio/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	audio, _, contentType, err := h.store.Fetch(r.Context(), id)
	if err != nil {
		h.writeFetchError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(audio)
}

// downloadAudio serves the same bytes with an attachment disposition and a
// normalized filename.
func (h *TTSHandler) downloadAudio(w http.ResponseWriter, r *http.Request) {
	id, ok := h.audioID(r, "/download/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	audio, filename, contentType, err := h.store.Fetch(r.Context(), id)
	if err != nil {
		h.writeFetchError(w, r, err)
		return
	}
	download := "gemini-tts-" + id + ".wav"
	if strings.HasSuffix(filename, ".mp3") {
		download = "google-chirp3-" + id + ".mp3"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download))
	_, _ = w.Write(audio)
}

func (h *TTSHandler) audioID(r *http.Request, prefix string) (string, bool) {
	if r.Method != http.MethodGet {
		return "", false
	}
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func (h *TTSHandler) writeFetchError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, artifact.ErrNotFound) {
		writeError(w, http.StatusNotFound, errorBody{Error: "Audio not found or expired"})
		return
	}
	h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to fetch audio")
	writeError(w, http.StatusInternalServerError, errorBody{Error: "Failed to fetch audio", Details: h.details(err)})
}

func (h *TTSHandler) languages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"languages": voice.Languages(),
	})
}

func (h *TTSHandler) voices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	lang := strings.TrimPrefix(r.URL.Path, "/tts/voices/")
	listed := voice.VoicesFor(lang)
	if len(listed) == 0 {
		writeError(w, http.StatusNotFound, errorBody{Error: "No voices for language " + lang})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"language": lang,
		"voices":   listed,
	})
}

func (h *TTSHandler) providersStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	statuses := make([]dto.ProviderStatus, 0, len(h.adapters))
	for _, a := range h.adapters {
		statuses = append(statuses, dto.ProviderStatus{Provider: a.Provider(), Configured: a.Configured()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"providers": statuses,
	})
}

func (h *TTSHandler) pricingPlans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"plans":   plan.All(),
	})
}

// callerFor resolves the request's plan view. Anonymous requests get a nil
// plan, which the broker meters as the free tier.
func (h *TTSHandler) callerFor(r *http.Request) (broker.Caller, error) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		return broker.Caller{}, nil
	}
	user, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		return broker.Caller{}, err
	}
	p := plan.Free()
	if user != nil {
		if looked, err := plan.Lookup(user.Plan); err == nil {
			p = looked
		}
	}
	return broker.Caller{UserID: userID, Plan: &p}, nil
}

func (h *TTSHandler) details(err error) string {
	if h.production {
		return ""
	}
	return err.Error()
}
