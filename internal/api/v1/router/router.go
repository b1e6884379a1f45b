package router

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"voicecast/internal/api/v1/handler"
	"voicecast/internal/artifact"
	"voicecast/internal/broker"
	"voicecast/internal/config"
	"voicecast/internal/middleware"
	"voicecast/internal/payment"
	"voicecast/internal/repository"
	"voicecast/internal/script"
	"voicecast/internal/tts"
)

// New wires the whole application: database pool, object storage, provider
// adapters, repositories, services and handlers. The returned sweeper is
// started by main so its lifetime follows the server's shutdown context.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, *artifact.Sweeper, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("Router initializing")

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create DB pool")
		return nil, nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to ping DB")
		return nil, nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	s3Config, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load S3 config")
		return nil, nil, nil, err
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	validate := validator.New(validator.WithRequiredStructEnabled())

	// Provider adapters. Either may be unconfigured; the broker routes
	// around missing credentials.
	geminiAdapter := tts.NewGeminiAdapter(cfg.GeminiAPIKey, logger)
	googleAdapter := tts.NewGoogleAdapter(ctx, cfg.GoogleTTSAPIKey, logger)
	adapters := []tts.Adapter{geminiAdapter, googleAdapter}

	userRepo := repository.NewUserRepo(pool)
	usageRepo := repository.NewUsageRepo(pool)
	artifactRepo := repository.NewArtifactRepo(pool)
	paymentRepo := repository.NewPaymentRepo(pool)
	subscriptionRepo := repository.NewSubscriptionRepo(pool, usageRepo)

	store := artifact.NewStore(s3Client, artifactRepo, cfg.S3Bucket, logger)
	sweeper := artifact.NewSweeper(store, logger)
	brk := broker.New(adapters, usageRepo, store, logger)
	scriptSvc := script.NewService(geminiAdapter, logger)

	var orders payment.OrderClient
	if cfg.RazorpayKeyID != "" && cfg.RazorpayKeySecret != "" {
		orders = razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret).Order
	}
	paymentSvc := payment.NewService(orders, paymentRepo, subscriptionRepo, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, logger)

	production := cfg.IsProduction()
	ttsHandler := handler.NewTTSHandler(brk, store, userRepo, adapters, validate, production, logger)
	scriptHandler := handler.NewScriptHandler(scriptSvc, validate, production, logger)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, validate, production, logger)
	userHandler := handler.NewUserHandler(userRepo, usageRepo, production, logger)

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)
	optionalAuthMiddleware := middleware.OptionalAuthMiddleware(cfg.JWTSecret)

	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	ttsHandler.RegisterRoutes(apiV1Mux, optionalAuthMiddleware)
	scriptHandler.RegisterRoutes(apiV1Mux, optionalAuthMiddleware)
	paymentHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Redirect /api/* to /v1/* for clients on the old path scheme.
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/")
		http.Redirect(w, r, "/v1/"+rest, http.StatusMovedPermanently)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), pool, sweeper, nil
}

// removeDisableGzip is a workaround for S3 signature errors with some
// S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
