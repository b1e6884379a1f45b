package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"voicecast/internal/api/v1/dto"
	"voicecast/internal/script"
	"voicecast/internal/tts"
)

// ScriptHandler serves script drafting.
type ScriptHandler struct {
	scripts    *script.Service
	validate   *validator.Validate
	production bool
	logger     zerolog.Logger
}

// NewScriptHandler creates a new ScriptHandler.
func NewScriptHandler(scripts *script.Service, validate *validator.Validate, production bool, logger zerolog.Logger) *ScriptHandler {
	return &ScriptHandler{scripts: scripts, validate: validate, production: production, logger: logger}
}

// RegisterRoutes registers the script endpoints.
func (h *ScriptHandler) RegisterRoutes(mux *http.ServeMux, optionalAuthMw func(http.Handler) http.Handler) {
	mux.Handle("/tts/generate-script", optionalAuthMw(http.HandlerFunc(h.generateScript)))
	mux.Handle("/tts/script-options", http.HandlerFunc(h.scriptOptions))
}

// generateScript godoc
// @Summary Draft a TTS-ready script
// @Description Generates a speakable script for a topic with the generative model.
// @Tags scripts
// @Accept json
// @Produce json
// @Param request body dto.GenerateScriptRequest true "Script request"
// @Success 200 {object} dto.GenerateScriptResponse
// @Failure 400 {string} string "invalid input"
// @Failure 500 {string} string "script generation failed"
// @Router /tts/generate-script [post]
func (h *ScriptHandler) generateScript(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req dto.GenerateScriptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON payload", Details: h.details(err)})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Validation failed", Kind: "invalid_input", Details: h.details(err)})
		return
	}
	if !h.scripts.Configured() {
		writeError(w, http.StatusServiceUnavailable, errorBody{Error: "Script generation is not configured", Kind: "provider_unavailable"})
		return
	}

	res, err := h.scripts.Generate(r.Context(), script.Params{
		Topic:    req.Topic,
		Type:     req.Type,
		Style:    req.Style,
		Duration: req.Duration,
	})
	if err != nil {
		switch {
		case errors.Is(err, script.ErrInvalidKind):
			writeError(w, http.StatusBadRequest, errorBody{Error: "Invalid script type or style", Kind: "invalid_input", Details: h.details(err)})
		case errors.Is(err, tts.ErrSafetyBlocked):
			writeError(w, http.StatusBadRequest, errorBody{Error: "Content blocked by safety filters. Please try a different topic or style.", Kind: "safety_blocked"})
		case errors.Is(err, tts.ErrUpstreamQuota):
			writeError(w, http.StatusServiceUnavailable, errorBody{Error: "Provider quota exceeded. Please try again later.", Kind: "upstream_quota"})
		default:
			h.logger.Error().Err(err).Msg("Script generation failed")
			writeError(w, http.StatusInternalServerError, errorBody{Error: "Failed to generate script", Details: h.details(err)})
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.GenerateScriptResponse{
		Success:           true,
		Script:            res.Script,
		Type:              res.Type,
		Style:             res.Style,
		WordCount:         res.WordCount,
		EstimatedDuration: res.EstimatedDuration,
	})
}

// scriptOptions lists the type and style catalogs for the script form.
func (h *ScriptHandler) scriptOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"types":   script.Types(),
		"styles":  script.Styles(),
	})
}

func (h *ScriptHandler) details(err error) string {
	if h.production {
		return ""
	}
	return err.Error()
}
