package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/fieldops-copilot/server/internal/api"
	"github.com/fieldops-copilot/server/internal/copilot"
	"github.com/fieldops-copilot/server/internal/copilot/audit"
	"github.com/fieldops-copilot/server/internal/copilot/llm"
	"github.com/fieldops-copilot/server/internal/copilot/llm/gemini"
	"github.com/fieldops-copilot/server/internal/copilot/llm/openai"
	"github.com/fieldops-copilot/server/internal/copilot/llm/scripted"
	"github.com/fieldops-copilot/server/internal/copilot/model"
	"github.com/fieldops-copilot/server/internal/copilot/plan"
	"github.com/fieldops-copilot/server/internal/copilot/registry"
	"github.com/fieldops-copilot/server/internal/copilot/repo"
	"github.com/fieldops-copilot/server/internal/copilot/tools"
	"github.com/fieldops-copilot/server/internal/core"
	logx "github.com/fieldops-copilot/server/pkg/logger"
	pkgredis "github.com/fieldops-copilot/server/pkg/redis"
)

// AppConfig defines every configurable parameter, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`

	// Infrastructure
	Redis       pkgredis.Config
	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	// Copilot configs
	Provider     model.ProviderConfig
	Conversation model.ConversationConfig
	Plan         model.PlanConfig
	Gateway      model.GatewayConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment)})

	conversationTTL := mustDuration("CONVERSATION_TTL", cfg.Conversation.TTL)
	planTTL := mustDuration("PLAN_TTL", cfg.Plan.TTL)
	previewTTL := mustDuration("PAYMENT_PREVIEW_TTL", cfg.Plan.PreviewTTL)
	rateWindow := mustDuration("RATE_LIMIT_WINDOW", cfg.Gateway.RateLimitWindow)

	rdb, err := cfg.Redis.New()
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialise redis client")
	}
	defer rdb.Close()
	logx.Info().Msg("connected to redis")

	sink := buildAuditSink(ctx, cfg.PostgresDSN)

	conversations := repo.NewRedisConversationRepository(rdb, conversationTTL)
	plans := repo.NewRedisPlanStore(rdb, planTTL)
	previews := repo.NewRedisPreviewStore(rdb, previewTTL)
	subscriptions := repo.NewRedisSubscriptionStore(rdb)

	checker := registry.NewPermissionChecker(subscriptions)
	reg := registry.New(checker, sink)
	tools.RegisterAll(reg, tools.NewStore(), previews, previewTTL, checker)

	selector := buildSelector(ctx, cfg.Provider)
	logx.Info().Str("provider", selector.Primary()).Msg("completion provider selected")

	workflow := plan.NewWorkflow(plans, previews, reg, sink, planTTL, previewTTL)
	gateway := copilot.NewGateway(conversations, workflow, reg, selector, sink, copilot.Options{
		MaxTurns:             cfg.Conversation.MaxTurns,
		Temperature:          cfg.Provider.Temperature,
		MaxTokens:            cfg.Provider.MaxTokens,
		RateLimitWindow:      rateWindow,
		RateLimitMaxFailures: cfg.Gateway.RateLimitMaxFailures,
	})

	router := api.NewRouter(api.NewHandler(gateway, reg, sink))
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logx.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logx.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// buildAuditSink prefers Postgres and falls back to memory when no DSN is
// configured or the database is unreachable.
func buildAuditSink(ctx context.Context, dsn string) audit.Sink {
	if dsn == "" {
		logx.Warn().Msg("POSTGRES_DSN not set, audit entries stay in memory")
		return audit.NewMemorySink()
	}
	db, err := audit.Open(dsn)
	if err != nil {
		logx.Error().Err(err).Msg("postgres unreachable, audit entries stay in memory")
		return audit.NewMemorySink()
	}
	sink, err := audit.NewPostgresSink(ctx, db)
	if err != nil {
		logx.Error().Err(err).Msg("audit schema setup failed, audit entries stay in memory")
		return audit.NewMemorySink()
	}
	logx.Info().Msg("audit sink backed by postgres")
	return sink
}

// buildSelector picks the primary completion backend from configuration. The
// deterministic scripted provider is always the fallback, so the server works
// without any LLM credentials.
func buildSelector(ctx context.Context, cfg model.ProviderConfig) *llm.Selector {
	fallback := scripted.New()

	var primary llm.Provider
	choice := cfg.Provider
	if choice == "auto" {
		switch {
		case cfg.GeminiAPIKey != "":
			choice = "gemini"
		case cfg.OpenAIAPIKey != "":
			choice = "openai"
		default:
			choice = "scripted"
		}
	}

	switch choice {
	case "gemini":
		p, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL)
		if err != nil {
			logx.Error().Err(err).Msg("gemini provider setup failed, using scripted fallback")
		} else {
			primary = p
		}
	case "openai":
		var opts []openai.Option
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
		}
		p, err := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, opts...)
		if err != nil {
			logx.Error().Err(err).Msg("openai provider setup failed, using scripted fallback")
		} else {
			primary = p
		}
	case "scripted":
		// fallback already covers it
	default:
		logx.Warn().Str("provider", choice).Msg("unknown LLM_PROVIDER, using scripted fallback")
	}

	selector, err := llm.NewSelector(primary, fallback)
	if err != nil {
		logx.Fatal().Err(err).Msg("selector setup failed")
	}
	return selector
}

func mustDuration(name, raw string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		logx.Fatal().Err(err).Str("value", raw).Msgf("invalid %s", name)
	}
	return d
}
