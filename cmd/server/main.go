package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dtremaine/clauseflow/internal/api"
	"github.com/dtremaine/clauseflow/internal/config"
	"github.com/dtremaine/clauseflow/internal/events"
	"github.com/dtremaine/clauseflow/internal/extract"
	"github.com/dtremaine/clauseflow/internal/llm"
	"github.com/dtremaine/clauseflow/internal/logging"
	"github.com/dtremaine/clauseflow/internal/policy"
	"github.com/dtremaine/clauseflow/internal/schedule"
	"github.com/dtremaine/clauseflow/internal/score"
	"github.com/dtremaine/clauseflow/internal/sign"
	"github.com/dtremaine/clauseflow/internal/textextract"
	"github.com/dtremaine/clauseflow/internal/workflow"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = config.Default()
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded", "db", cfg.DB.Path, "model", cfg.Gemini.Model)

	ctx := context.Background()

	store, err := workflow.NewStore(cfg.DB.Path)
	if err != nil {
		slog.Error("failed to open workflow store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	gemini, err := llm.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbeddingModel)
	if err != nil {
		slog.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}
	defer gemini.Close()

	model := llm.NewRetrier(gemini, llm.RetryConfig{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
	})

	playbook := policy.DefaultPlaybook()
	if cfg.Playbook.Path != "" {
		playbook, err = policy.LoadPlaybook(cfg.Playbook.Path)
		if err != nil {
			slog.Error("failed to load playbook", "path", cfg.Playbook.Path, "error", err)
			os.Exit(1)
		}
	}

	memIndex, err := policy.BuildMemoryIndex(ctx, model, playbook)
	if err != nil {
		slog.Error("failed to build policy index", "error", err)
		os.Exit(1)
	}
	index := policy.NewIndex(memIndex, model)

	extractor := extract.NewExtractor(model, playbook)
	scorer := score.NewScorer(model, index, playbook, cfg.Playbook.TopK)
	signer, err := sign.NewLocalSigner()
	if err != nil {
		slog.Error("failed to create signer", "error", err)
		os.Exit(1)
	}
	scheduler := schedule.NewLocalScheduler()

	var emitter events.Emitter = events.NewLogEmitter()
	if cfg.PubSub.Enabled {
		psEmitter, err := events.NewPubSubEmitter(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicID)
		if err != nil {
			slog.Error("failed to create pubsub emitter", "error", err)
			os.Exit(1)
		}
		defer psEmitter.Close()
		emitter = events.NewMultiEmitter(events.NewLogEmitter(), psEmitter)
	}

	engine := workflow.NewEngine(store, extractor, scorer, signer, scheduler, emitter)

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(cfg,
		api.NewWorkflowHandler(engine, textextract.NewPlainText()),
		api.NewAuthHandler(cfg),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}
