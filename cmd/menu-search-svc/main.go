// Package main 菜单语义检索服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"menu-search-api/internal/application/index"
	"menu-search-api/internal/application/menuload"
	"menu-search-api/internal/application/search"
	"menu-search-api/internal/config"
	"menu-search-api/internal/infrastructure/embedding"
	"menu-search-api/internal/infrastructure/persistence/milvus"
	"menu-search-api/internal/infrastructure/persistence/redis"
	"menu-search-api/internal/infrastructure/persistence/sqvect"
	"menu-search-api/internal/infrastructure/qu"
	"menu-search-api/internal/interfaces/http/handler"
	"menu-search-api/internal/interfaces/http/middleware"
	"menu-search-api/internal/interfaces/http/router"
	"menu-search-api/pkg/logger"
	"menu-search-api/pkg/metrics"
	"menu-search-api/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting menu-search-svc",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// [1/4] 上游认证
	phase := time.Now()
	quClient := qu.NewClient(&cfg.Qu)
	if _, err := quClient.Token(ctx); err != nil {
		logger.Fatal(ctx, "[1/4] failed to obtain access token", err)
	}
	metrics.BootstrapPhaseDuration.WithLabelValues("auth").Observe(time.Since(phase).Seconds())
	log.Info("[1/4] access token obtained", "expires_at", quClient.TokenExpiry())

	// [2/4] 菜单快照
	phase = time.Now()
	loader := menuload.NewLoader(cfg.Cache.Dir, quClient, quClient, cfg.Index.Concurrency)
	tree, err := loader.LoadMenu(ctx)
	if err != nil {
		logger.Fatal(ctx, "[2/4] failed to load menu", err)
	}
	metrics.BootstrapPhaseDuration.WithLabelValues("menu").Observe(time.Since(phase).Seconds())
	log.Info("[2/4] menu loaded",
		"snapshot_id", tree.SnapshotID,
		"categories", len(tree.Categories),
		"items", len(tree.TopLevelItems()),
	)

	// [3/4] 修饰项子树
	phase = time.Now()
	modifiers, stats, err := loader.LoadModifiers(ctx, tree)
	if err != nil {
		logger.Fatal(ctx, "[3/4] failed to load modifiers", err)
	}
	metrics.BootstrapPhaseDuration.WithLabelValues("modifiers").Observe(time.Since(phase).Seconds())
	log.Info("[3/4] modifiers loaded",
		"from_cache", stats.FromCache,
		"fetched", stats.Fetched,
		"skipped", stats.Skipped,
	)

	// [4/4] 向量索引
	phase = time.Now()
	embedder, err := embedding.New(ctx, &cfg.Embedding)
	if err != nil {
		logger.Fatal(ctx, "[4/4] failed to create embedder", err)
	}

	store, milvusClient, err := newVectorStore(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "[4/4] failed to create vector store", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close vector store", "error", err)
		}
	}()

	pipeline := index.NewPipeline(embedder, store, cfg.Embedding.Dimension, cfg.Index.BatchSize, cfg.Index.Concurrency)
	report, err := pipeline.Run(ctx, tree, modifiers)
	if err != nil {
		logger.Fatal(ctx, "[4/4] failed to build index", err)
	}
	metrics.BootstrapPhaseDuration.WithLabelValues("index").Observe(time.Since(phase).Seconds())
	metrics.IndexReady.Set(1)
	log.Info("[4/4] index built",
		"item_points", report.ItemPoints,
		"modifier_points", report.ModifierPoints,
		"skipped", report.Skipped,
	)

	// 查询服务与 HTTP 层
	searchService := search.NewService(embedder, store, tree, modifiers)

	var redisClient *redis.Client
	var limiter middleware.RateLimiter
	if cfg.Security.RateLimit.Enabled {
		redisClient, err = redis.NewClient(&cfg.Redis)
		if err != nil {
			logger.Fatal(ctx, "failed to connect redis", err)
		}
		defer redisClient.Close()
		limiter = redis.NewRateLimiter(redisClient)
	}

	r := router.New(cfg, router.Handlers{
		Health: handler.NewHealthHandler(redisClient, milvusClient),
		Menu:   handler.NewMenuHandler(searchService),
		Search: handler.NewSearchHandler(searchService),
	}, limiter)

	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	// 启动服务器
	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}

// newVectorStore 按配置选择向量后端
// 返回的 milvus 客户端仅用于健康检查，sqvect 后端时为空
func newVectorStore(ctx context.Context, cfg *config.Config) (index.VectorStore, *milvus.Client, error) {
	switch cfg.Vector.Backend {
	case "milvus", "":
		client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
		if err != nil {
			return nil, nil, err
		}
		return milvus.NewStore(client), client, nil
	case "sqvect":
		store, err := sqvect.NewStore(cfg.Vector.Sqvect.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector backend: %s", cfg.Vector.Backend)
	}
}
