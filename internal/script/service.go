package script

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"voicecast/internal/tts"
)

// ErrInvalidKind is returned when the requested script type or style is not
// in the catalog.
var ErrInvalidKind = errors.New("invalid_script_kind")

// Type describes one script format the writer can produce.
type Type struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	TargetAudience string `json:"targetAudience"`
	KeyElements    []string `json:"keyElements"`
}

// Style is a tonal register applied to any script type.
type Style struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var types = map[string]Type{
	"advertisement": {
		ID:             "advertisement",
		Name:           "Advertisement",
		Description:    "Short persuasive copy that sells a product or service",
		TargetAudience: "Potential customers",
		KeyElements:    []string{"hook", "value proposition", "call to action"},
	},
	"podcast": {
		ID:             "podcast",
		Name:           "Podcast Intro",
		Description:    "Opening segment that sets up an episode and welcomes listeners",
		TargetAudience: "Podcast listeners",
		KeyElements:    []string{"greeting", "episode teaser", "host introduction"},
	},
	"educational": {
		ID:             "educational",
		Name:           "Educational",
		Description:    "Clear explanatory narration that teaches a concept step by step",
		TargetAudience: "Learners and students",
		KeyElements:    []string{"concept introduction", "worked explanation", "summary"},
	},
	"story": {
		ID:             "story",
		Name:           "Story",
		Description:    "Narrative with characters and an arc, written to be read aloud",
		TargetAudience: "General listeners",
		KeyElements:    []string{"setting", "conflict", "resolution"},
	},
	"announcement": {
		ID:             "announcement",
		Name:           "Announcement",
		Description:    "Concise public notice delivering one clear message",
		TargetAudience: "General audience",
		KeyElements:    []string{"attention line", "core message", "next steps"},
	},
}

var styles = map[string]Style{
	"professional": {ID: "professional", Name: "Professional", Description: "Polished, confident and businesslike"},
	"casual":       {ID: "casual", Name: "Casual", Description: "Relaxed and conversational, like talking to a friend"},
	"energetic":    {ID: "energetic", Name: "Energetic", Description: "Upbeat and enthusiastic with strong momentum"},
	"calm":         {ID: "calm", Name: "Calm", Description: "Soothing and measured, easy to listen to"},
	"dramatic":     {ID: "dramatic", Name: "Dramatic", Description: "Heightened tension and emphasis for storytelling"},
}

// wordsPerMinute drives the playback duration estimate.
const wordsPerMinute = 150

// Params is one script request. Duration is free text ("30 seconds") and
// optional.
type Params struct {
	Topic    string
	Type     string
	Style    string
	Duration string
}

// Result is a generated script with its metrics.
type Result struct {
	Script            string `json:"script"`
	Type              string `json:"type"`
	Style             string `json:"style"`
	WordCount         int    `json:"wordCount"`
	EstimatedDuration string `json:"estimatedDuration"`
}

// Generator is the text-generation backend. The generative TTS adapter's
// text mode satisfies it.
type Generator interface {
	Configured() bool
	GenerateText(ctx context.Context, prompt string, cfg tts.TextConfig) (string, error)
}

// Service drafts TTS-ready scripts with the generative model.
type Service struct {
	gen    Generator
	logger zerolog.Logger
}

func NewService(gen Generator, logger zerolog.Logger) *Service {
	return &Service{
		gen:    gen,
		logger: logger.With().Str("service", "ScriptService").Logger(),
	}
}

func (s *Service) Configured() bool { return s.gen.Configured() }

// Types lists the script type catalog in stable order.
func Types() []Type {
	ids := []string{"advertisement", "podcast", "educational", "story", "announcement"}
	out := make([]Type, 0, len(ids))
	for _, id := range ids {
		out = append(out, types[id])
	}
	return out
}

// Styles lists the style catalog in stable order.
func Styles() []Style {
	ids := []string{"professional", "casual", "energetic", "calm", "dramatic"}
	out := make([]Style, 0, len(ids))
	for _, id := range ids {
		out = append(out, styles[id])
	}
	return out
}

// Generate drafts one script and computes its word count and an estimated
// spoken duration at a normal reading pace.
func (s *Service) Generate(ctx context.Context, params Params) (*Result, error) {
	t, ok := types[params.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidKind, params.Type)
	}
	st, ok := styles[params.Style]
	if !ok {
		return nil, fmt.Errorf("%w: unknown style %q", ErrInvalidKind, params.Style)
	}

	text, err := s.gen.GenerateText(ctx, buildPrompt(t, st, params), tts.TextConfig{
		Temperature:     0.8,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 2048,
	})
	if err != nil {
		return nil, err
	}

	words := len(strings.Fields(text))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	plural := "s"
	if minutes == 1 {
		plural = ""
	}

	s.logger.Info().Str("type", t.ID).Str("style", st.ID).Int("words", words).Msg("Script generated")

	return &Result{
		Script:            text,
		Type:              t.Name,
		Style:             st.Name,
		WordCount:         words,
		EstimatedDuration: fmt.Sprintf("~%d minute%s", minutes, plural),
	}, nil
}

// buildPrompt renders the drafting instructions. The formatting rules keep
// the output directly speakable: no markdown, stage directions or headers.
func buildPrompt(t Type, st Style, params Params) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a clean %s script with a %s tone for text-to-speech conversion.\n\n",
		strings.ToLower(t.Name), strings.ToLower(st.Name))
	fmt.Fprintf(&b, "Topic/Idea: %s\n\n", params.Topic)
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "- Script Type: %s - %s\n", t.Name, t.Description)
	fmt.Fprintf(&b, "- Style: %s - %s\n", st.Name, st.Description)
	fmt.Fprintf(&b, "- Target Audience: %s\n", t.TargetAudience)
	fmt.Fprintf(&b, "- Key Elements: %s", strings.Join(t.KeyElements, ", "))
	if d := strings.TrimSpace(params.Duration); d != "" {
		fmt.Fprintf(&b, "\n- Duration: %s", d)
	}
	b.WriteString(`

CRITICAL FORMATTING RULES FOR TEXT-TO-SPEECH:
- Output ONLY the spoken text that should be read aloud
- NO markdown formatting (no **bold**, *italics*, etc.)
- NO stage directions or instructions in brackets like (pause), [music], etc.
- NO titles, headers, or labels like "Advertisement Script:" or "Narrator:"
- NO timing markers like (0:00-0:15)
- NO meta-commentary or notes
- Write in complete sentences that flow naturally when spoken
- Use punctuation for natural speech rhythm and breathing
- Add natural pauses with ellipses... for dramatic effect
- Use exclamation points! for emphasis and energy
- Include question marks? to create natural inflection
- Use varied sentence lengths for natural rhythm
- If multiple speakers, clearly indicate speaker changes with line breaks
- Focus on what the voice should actually say with natural speech patterns

Generate a clean, TTS-ready script with natural voice effects:`)
	return b.String()
}
