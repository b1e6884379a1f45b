package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"voicecast/internal/voice"
)

const (
	geminiBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	geminiTTSModel  = "gemini-2.5-flash-preview-tts"
	geminiTextModel = "gemini-2.5-flash-preview"
)

// GeminiAdapter drives the generative content endpoint in audio mode. The
// provider returns base64-encoded raw PCM (24 kHz, mono, 16-bit), which the
// adapter wraps in a WAV container before it is a playable file.
type GeminiAdapter struct {
	client  *http.Client
	baseURL string
	apiKey  string
	logger  zerolog.Logger
}

// NewGeminiAdapter creates the generative-model adapter. An empty apiKey
// leaves the adapter unconfigured.
func NewGeminiAdapter(apiKey string, logger zerolog.Logger) *GeminiAdapter {
	return &GeminiAdapter{
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: geminiBaseURL,
		apiKey:  apiKey,
		logger:  logger.With().Str("adapter", "gemini").Logger(),
	}
}

func (a *GeminiAdapter) Provider() string { return voice.ProviderGemini }

func (a *GeminiAdapter) Configured() bool { return a.apiKey != "" }

func (a *GeminiAdapter) Supports(language string) bool {
	return voice.Supports(voice.ProviderGemini, language)
}

type geminiGenerateRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string           `json:"responseModalities,omitempty"`
	SpeechConfig       *geminiSpeechCfg   `json:"speechConfig,omitempty"`
	Temperature        *float64           `json:"temperature,omitempty"`
	TopK               *int               `json:"topK,omitempty"`
	TopP               *float64           `json:"topP,omitempty"`
	MaxOutputTokens    *int               `json:"maxOutputTokens,omitempty"`
}

type geminiSpeechCfg struct {
	VoiceConfig geminiVoiceCfg `json:"voiceConfig"`
}

type geminiVoiceCfg struct {
	PrebuiltVoiceConfig geminiPrebuiltVoice `json:"prebuiltVoiceConfig"`
}

type geminiPrebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Synthesize sends the text (optionally prefixed with a style instruction)
// to the generative endpoint with a named prebuilt voice and normalizes the
// response into a WAV container.
func (a *GeminiAdapter) Synthesize(ctx context.Context, req Request) (*Result, error) {
	if !a.Configured() {
		return nil, ErrUnconfigured
	}
	if req.Voice.Provider != voice.ProviderGemini {
		return nil, fmt.Errorf("%w: %s is not a gemini voice", ErrInvalidVoice, req.Voice.Name)
	}

	promptText := req.Text
	if s := strings.TrimSpace(req.Style); s != "" {
		promptText = s + ": " + req.Text
	}

	body := geminiGenerateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: promptText}}}},
		GenerationConfig: geminiGenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &geminiSpeechCfg{
				VoiceConfig: geminiVoiceCfg{
					PrebuiltVoiceConfig: geminiPrebuiltVoice{VoiceName: req.Voice.Name},
				},
			},
		},
	}

	resp, err := a.generateContent(ctx, geminiTTSModel, body)
	if err != nil {
		return nil, err
	}

	if resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: %s", ErrSafetyBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, ErrNoAudioData
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == "SAFETY" {
		return nil, ErrSafetyBlocked
	}

	var encoded string
	for _, part := range candidate.Content.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			encoded = part.InlineData.Data
			break
		}
	}
	if encoded == "" {
		return nil, ErrNoAudioData
	}

	pcm, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding audio payload: %w", err)
	}

	a.logger.Debug().Str("voice", req.Voice.Name).Int("pcm_bytes", len(pcm)).Msg("Synthesized speech")

	return &Result{
		Audio:      pcmToWAV(pcm, pcmSampleRate, pcmNumChannels, pcmBitsPerSample),
		Format:     FormatWAV,
		SampleRate: pcmSampleRate,
	}, nil
}

// TextConfig tunes a plain-text generation call.
type TextConfig struct {
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
}

// GenerateText runs the same generative endpoint in text mode, for script
// drafting. Safety blocks classify the same way as in audio mode.
func (a *GeminiAdapter) GenerateText(ctx context.Context, prompt string, cfg TextConfig) (string, error) {
	if !a.Configured() {
		return "", ErrUnconfigured
	}

	body := geminiGenerateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     &cfg.Temperature,
			TopK:            &cfg.TopK,
			TopP:            &cfg.TopP,
			MaxOutputTokens: &cfg.MaxOutputTokens,
		},
	}

	resp, err := a.generateContent(ctx, geminiTextModel, body)
	if err != nil {
		return "", err
	}
	if resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: %s", ErrSafetyBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("generative endpoint returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == "SAFETY" {
		return "", ErrSafetyBlocked
	}
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		return "", errors.New("generative endpoint returned empty text")
	}
	return text.String(), nil
}

// generateContent posts one generateContent call and decodes the response,
// classifying provider errors into the adapter taxonomy.
func (a *GeminiAdapter) generateContent(ctx context.Context, model string, body geminiGenerateRequest) (*geminiGenerateResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", a.baseURL, model, a.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call generative endpoint: %w", err)
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var errResp geminiErrorResponse
		_ = json.Unmarshal(respBody, &errResp)
		switch {
		case httpResp.StatusCode == http.StatusTooManyRequests,
			errResp.Error.Status == "RESOURCE_EXHAUSTED":
			return nil, fmt.Errorf("%w: %s", ErrUpstreamQuota, errResp.Error.Message)
		case errResp.Error.Message != "":
			return nil, fmt.Errorf("generative endpoint: %s (HTTP %d)", errResp.Error.Message, httpResp.StatusCode)
		default:
			return nil, fmt.Errorf("generative endpoint: HTTP %d", httpResp.StatusCode)
		}
	}

	var resp geminiGenerateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}
