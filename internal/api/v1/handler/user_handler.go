package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"voicecast/internal/api/v1/dto"
	"voicecast/internal/middleware"
	"voicecast/internal/plan"
	"voicecast/internal/repository"
)

// UserHandler serves the authenticated user's usage dashboard view.
type UserHandler struct {
	users      repository.UserRepository
	usage      repository.UsageRepository
	production bool
	logger     zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users repository.UserRepository, usage repository.UsageRepository, production bool, logger zerolog.Logger) *UserHandler {
	return &UserHandler{users: users, usage: usage, production: production, logger: logger}
}

// RegisterRoutes registers the user endpoints.
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/users/me/usage", authMw(http.HandlerFunc(h.getUsage)))
}

// getUsage godoc
// @Summary Current-month usage and plan limits
// @Tags users
// @Produce json
// @Success 200 {object} dto.UsageResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "failed to load usage"
// @Router /users/me/usage [get]
func (h *UserHandler) getUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load user")
		writeError(w, http.StatusInternalServerError, errorBody{Error: "Failed to load usage", Details: h.details(err)})
		return
	}
	p := plan.Free()
	if user != nil {
		if looked, err := plan.Lookup(user.Plan); err == nil {
			p = looked
		}
	}

	usage, err := h.usage.GetUsage(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load usage period")
		writeError(w, http.StatusInternalServerError, errorBody{Error: "Failed to load usage", Details: h.details(err)})
		return
	}

	remaining := plan.Unlimited
	if p.Limits.MonthlyCharacters != plan.Unlimited {
		remaining = p.Limits.MonthlyCharacters - usage.CharactersUsed
		if remaining < 0 {
			remaining = 0
		}
	}

	writeJSON(w, http.StatusOK, dto.UsageResponse{
		Plan:                p.ID,
		PlanName:            p.Name,
		MonthYear:           usage.MonthYear,
		CharactersUsed:      usage.CharactersUsed,
		CharacterLimit:      p.Limits.MonthlyCharacters,
		RemainingCharacters: remaining,
		APICalls:            usage.APICalls,
		APICallLimit:        p.Limits.APICalls,
		ArtifactsGenerated:  usage.ArtifactsGenerated,
	})
}

func (h *UserHandler) details(err error) string {
	if h.production {
		return ""
	}
	return err.Error()
}
