package dto

// GenerateSpeechRequest is the body of POST /tts/generate-speech. VoiceID
// is a structured "<provider>-<language>-<index>" id; Provider may override
// it or be "auto".
type GenerateSpeechRequest struct {
	Text         string  `json:"text" validate:"required,min=1,max=5000"`
	VoiceID      string  `json:"voiceId" validate:"required"`
	LanguageCode string  `json:"languageCode"`
	Speed        float64 `json:"speed" validate:"omitempty,gte=0.25,lte=4"`
	Pitch        float64 `json:"pitch" validate:"omitempty,gte=-1,lte=1"`
	Style        string  `json:"style" validate:"omitempty,max=100"`
	Provider     string  `json:"provider" validate:"omitempty,oneof=auto gemini google"`
}

// GenerateSpeechResponse points the client at the generated audio and
// reports the quota spent on it.
type GenerateSpeechResponse struct {
	Success             bool    `json:"success"`
	AudioID             string  `json:"audioId"`
	Filename            string  `json:"filename"`
	URL                 string  `json:"url"`
	DownloadURL         string  `json:"downloadUrl"`
	Duration            float64 `json:"duration"`
	Voice               string  `json:"voice"`
	Language            string  `json:"language"`
	Provider            string  `json:"provider"`
	AudioFormat         string  `json:"audioFormat"`
	CharactersUsed      int     `json:"charactersUsed"`
	RemainingCharacters int     `json:"remainingCharacters"`
}

// GenerateScriptRequest is the body of POST /tts/generate-script.
type GenerateScriptRequest struct {
	Topic    string `json:"topic" validate:"required,min=1,max=500"`
	Type     string `json:"type" validate:"required"`
	Style    string `json:"style" validate:"required"`
	Duration string `json:"duration" validate:"omitempty,max=50"`
}

// GenerateScriptResponse carries the drafted script and its metrics.
type GenerateScriptResponse struct {
	Success           bool   `json:"success"`
	Script            string `json:"script"`
	Type              string `json:"type"`
	Style             string `json:"style"`
	WordCount         int    `json:"wordCount"`
	EstimatedDuration string `json:"estimatedDuration"`
}

// ProviderStatus reports whether one provider's credentials are present.
type ProviderStatus struct {
	Provider   string `json:"provider"`
	Configured bool   `json:"configured"`
}
