package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"starpress/config"
	"starpress/internal/cache"
	"starpress/internal/model"
	"starpress/internal/parser"
	"starpress/internal/service"
)

type noTopics struct{}

func (noTopics) Collect(ctx context.Context) []string { return nil }

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.Content{}, &model.Prompt{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := cache.New(nil, logger)
	prompts := service.NewPromptService(db, noTopics{}, logger)
	content := service.NewContentService(db, store, time.Minute, time.Minute, logger)
	publisher := service.NewPublisher(service.PublisherDeps{
		DB:      db,
		Cache:   store,
		Parser:  parser.New(10),
		Prompts: prompts,
		Content: content,
		Logger:  logger,
	})

	return NewScheduler(prompts, publisher, content, config.CronConfig{
		PoolRefresh: "0 5 * * *",
		AutoPublish: "0 */6 * * *",
		ViewFlush:   "*/5 * * * *",
	}, logger)
}

func TestSchedulerReportsNextRuns(t *testing.T) {
	s := newTestScheduler(t)
	s.Start()
	defer s.Stop()

	now := time.Now()
	if next := s.GetNextPoolRefresh(); !next.After(now) {
		t.Fatalf("pool refresh has no future run: %v", next)
	}
	if next := s.GetNextAutoPublish(); !next.After(now) {
		t.Fatalf("auto publish has no future run: %v", next)
	}
	if s.GetNextAutoPublish().Sub(now) > 6*time.Hour {
		t.Fatalf("auto publish scheduled too far out: %v", s.GetNextAutoPublish())
	}
}

func TestSchedulerNextRunsZeroBeforeStart(t *testing.T) {
	s := newTestScheduler(t)
	if !s.GetNextPoolRefresh().IsZero() {
		t.Fatal("unstarted scheduler should report a zero next run")
	}
}
