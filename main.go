package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"starpress/config"
	"starpress/internal/cache"
	"starpress/internal/handler"
	"starpress/internal/logging"
	"starpress/internal/model"
	"starpress/internal/parser"
	"starpress/internal/ratelimit"
	"starpress/internal/scheduler"
	"starpress/internal/service"
	"starpress/internal/trends"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	logger := logging.New(cfg.Logging.Level)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatal("failed to create data directory:", err)
	}

	db, err := gorm.Open(sqlite.Open(cfg.Database.Path), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect database:", err)
	}
	db.AutoMigrate(&model.Content{}, &model.Prompt{})

	// the shared store is optional; the limiter falls back to local counters
	// and the cache degrades to always-miss when it is unreachable
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("shared store unreachable, running degraded", "addr", cfg.Redis.Addr, "error", err)
	}
	cancel()

	store := cache.New(rdb, logger.With("component", "cache"))

	local := ratelimit.NewLocalLimiter(time.Minute)
	defer local.Close()
	limiter := ratelimit.New(rdb, local, cfg.RateLimit.Namespaces, logger.With("component", "ratelimit"))

	sources := make([]trends.Source, 0, len(cfg.Trends.Feeds)+1)
	for _, feed := range cfg.Trends.Feeds {
		sources = append(sources, trends.NewFeedSource(feed.Name, feed.URL))
	}
	if cfg.Trends.TrendingURL != "" {
		sources = append(sources, trends.NewTrendingSource("trending", cfg.Trends.TrendingURL, cfg.Trends.Keywords))
	}
	aggregator := trends.NewAggregator(sources, cfg.Trends.Retries, cfg.Trends.Timeout(), logger.With("component", "trends"))

	prompts := service.NewPromptService(db, aggregator, logger.With("component", "prompts"))
	content := service.NewContentService(db, store,
		time.Duration(cfg.Cache.RecordTTL)*time.Second,
		time.Duration(cfg.Cache.ListTTL)*time.Second,
		logger.With("component", "content"))

	publisher := service.NewPublisher(service.PublisherDeps{
		DB:         db,
		Cache:      store,
		Parser:     parser.New(cfg.Parser.TitleCaseMinLen),
		Generator:  service.NewLLMGenerator(cfg.Generator),
		Prompts:    prompts,
		Content:    content,
		Syndicator: service.NewSyndicator(cfg.Syndicate.WebhookURL, cfg.Site.BaseURL, logger.With("component", "syndicate")),
		Images:     service.NewImageClient(cfg.Images.ApiKey),
		SiteURL:    cfg.Site.BaseURL,
		SiteAuthor: cfg.Site.Author,
		Logger:     logger.With("component", "publisher"),
	})

	if err := prompts.EnsurePool(context.Background()); err != nil {
		logger.Warn("initial prompt pool build failed", "error", err)
	}

	sched := scheduler.NewScheduler(prompts, publisher, content, cfg.Cron, logger.With("component", "scheduler"))
	sched.Start()
	defer sched.Stop()

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()

	h := handler.NewHandler(handler.HandlerDeps{
		Content:   content,
		Prompts:   prompts,
		Publisher: publisher,
		Limiter:   limiter,
		Site:      cfg.Site,
		AdminKey:  cfg.AdminKey,
		Logger:    logger.With("component", "handler"),
	})
	h.SetScheduler(sched)
	h.RegisterRoutes(r)

	logger.Info("server starting", "addr", cfg.GetServerAddress())
	if err := r.Run(cfg.GetServerAddress()); err != nil {
		log.Fatal("server error:", err)
	}
}
