package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/worldsun-app/coopeartion-project/internal/ai"
	"github.com/worldsun-app/coopeartion-project/internal/catalog"
	"github.com/worldsun-app/coopeartion-project/internal/config"
	"github.com/worldsun-app/coopeartion-project/internal/embedcache"
	"github.com/worldsun-app/coopeartion-project/internal/filestore"
	"github.com/worldsun-app/coopeartion-project/internal/handler"
	"github.com/worldsun-app/coopeartion-project/internal/job"
	"github.com/worldsun-app/coopeartion-project/internal/middleware"
	"github.com/worldsun-app/coopeartion-project/internal/planner"
	"github.com/worldsun-app/coopeartion-project/internal/schedule"
	"github.com/worldsun-app/coopeartion-project/internal/search"
	"github.com/worldsun-app/coopeartion-project/internal/service"
	"github.com/worldsun-app/coopeartion-project/internal/session"
	"github.com/worldsun-app/coopeartion-project/internal/telegram"
	"github.com/worldsun-app/coopeartion-project/internal/workspace"
)

// core is the retrieval and generation stack shared by every subcommand.
type core struct {
	manager    *ai.Manager
	holder     *catalog.Holder
	planner    *planner.Planner
	embedStore *embedcache.BoltStore
}

func (c *core) Close() {
	if c.embedStore != nil {
		_ = c.embedStore.Close()
	}
}

func buildCore(ctx context.Context, cfg *config.Config) (*core, error) {
	logger := logutil.GetLogger(ctx)
	providerArgs := cfg.AI.Data
	if providerArgs == nil {
		providerArgs = cfg.AI
	}
	provider, err := ai.NewProvider(cfg.AI.Provider, providerArgs)
	if err != nil {
		return nil, fmt.Errorf("init ai provider: %w", err)
	}
	models := append([]string{cfg.AI.Model}, cfg.AI.FallbackModels...)
	plain, grounded := ai.BuildGenerators(provider, models)

	c := &core{}
	embedder := ai.NewEmbedder(provider, cfg.AI.EmbedModel)
	if cfg.AI.EmbedCachePath != "" {
		store, err := embedcache.OpenBoltStore(cfg.AI.EmbedCachePath)
		if err != nil {
			return nil, err
		}
		c.embedStore = store
		embedder = embedcache.WrapBoltCacheToEmbedder(embedder, store)
	}
	embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.AI.EmbedCacheSize, time.Duration(cfg.AI.EmbedCacheTTL)*time.Second)
	c.manager = ai.NewManager(plain, grounded, embedder, ai.ManagerConfig{Timeout: cfg.AI.Timeout})

	objects, err := filestore.New(cfg.FileStore)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init file store: %w", err)
	}
	backend, err := search.NewBackend(cfg.Search)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init search backend: %w", err)
	}
	c.holder = catalog.NewHolder(objects, c.manager.Embedder())
	c.planner = planner.NewDefault(search.NewRetriever(backend), c.holder, c.manager.Embedder())
	logger.Info("retrieval stack ready",
		zap.String("ai_provider", cfg.AI.Provider),
		zap.Strings("models", models),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("search", cfg.Search.Type),
	)
	return c, nil
}

func runServer(cfg *config.Config) error {
	if err := cfg.ValidateServer(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := logutil.GetLogger(ctx)

	c, err := buildCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	store, err := session.NewRedisStore(ctx, cfg.Session.RedisURL, cfg.Session.KeyPrefix)
	if err != nil {
		return fmt.Errorf("init session store: %w", err)
	}
	defer store.Close()

	advisor := service.NewAdvisorService(c.manager, c.planner, workspace.New(cfg.Workspace), store, service.AdvisorConfig{
		SessionTTL: time.Duration(cfg.Session.TTLHours) * time.Hour,
		Language:   cfg.AnswerLang,
	})

	scheduler := schedule.NewCronScheduler()
	refresh := job.NewCatalogRefreshJob(c.holder)
	if err := scheduler.AddJob(refresh, cfg.Catalog.RefreshCron); err != nil {
		return fmt.Errorf("schedule catalog refresh: %w", err)
	}
	if c.embedStore != nil {
		cleanup := job.NewEmbeddingCacheCleanupJob(c.embedStore, cfg.AI.EmbedCacheMaxAgeDays)
		if err := scheduler.AddJob(cleanup, cfg.AI.EmbedCacheCleanupCron); err != nil {
			return fmt.Errorf("schedule embedding cache cleanup: %w", err)
		}
	}
	// The first build runs before serving so keyword resolution has a catalog.
	if err := scheduler.RunNow(ctx, refresh.Name()); err != nil {
		logger.Warn("initial catalog build failed, retrieval runs unscoped until next refresh", zap.Error(err))
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	deps := handler.RouterDeps{
		Chat:      handler.NewChatHandler(advisor),
		Catalog:   handler.NewCatalogHandler(c.holder),
		RateLimit: time.Duration(cfg.RateLimit) * time.Second,
	}
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()
	logger.Info("http server listening", zap.String("addr", addr))

	if cfg.Telegram.Enable {
		bot, err := telegram.New(cfg.Telegram.Token, advisor)
		if err != nil {
			return fmt.Errorf("init telegram bot: %w", err)
		}
		go func() {
			if err := bot.Run(ctx); err != nil {
				logger.Error("telegram bot stopped", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("server stopping...")
	return nil
}
