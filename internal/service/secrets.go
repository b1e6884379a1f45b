package service

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/rs/zerolog"

	"voicecast/internal/config"
)

// Secret names looked up in the project when the overlay runs.
const (
	secretGeminiKey     = "gemini-api-key"
	secretGoogleTTSKey  = "google-tts-api-key"
	secretRazorpayKeyID = "razorpay-key-id"
	secretRazorpayKey   = "razorpay-key-secret"
)

// OverlaySecrets fills empty provider and payment credentials from GCP
// Secret Manager. A no-op when SECRETS_GCP_PROJECT is unset; environment
// variables always win over managed secrets. Individual missing secrets
// are logged and skipped, leaving that provider unconfigured.
func OverlaySecrets(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if cfg.SecretsGCPProject == "" {
		return nil
	}
	log := logger.With().Str("service", "SecretManager").Logger()

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	defer func() {
		_ = client.Close()
	}()

	fetch := func(name string, dst *string) {
		if *dst != "" {
			return
		}
		resource := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", cfg.SecretsGCPProject, name)
		result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
			Name: resource,
		})
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("Secret not available")
			return
		}
		*dst = string(result.Payload.Data)
	}

	fetch(secretGeminiKey, &cfg.GeminiAPIKey)
	fetch(secretGoogleTTSKey, &cfg.GoogleTTSAPIKey)
	fetch(secretRazorpayKeyID, &cfg.RazorpayKeyID)
	fetch(secretRazorpayKey, &cfg.RazorpayKeySecret)
	return nil
}
