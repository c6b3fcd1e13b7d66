package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"starpress/config"
	"starpress/internal/service"
)

// Scheduler drives the recurring jobs: daily prompt-pool rebuild, scheduled
// pipeline runs, and the view-counter flush.
type Scheduler struct {
	cron      *cron.Cron
	prompts   *service.PromptService
	publisher *service.Publisher
	content   *service.ContentService
	config    config.CronConfig
	logger    *slog.Logger

	refreshEntryID cron.EntryID
	publishEntryID cron.EntryID
}

func NewScheduler(prompts *service.PromptService, publisher *service.Publisher, content *service.ContentService, cfg config.CronConfig, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		prompts:   prompts,
		publisher: publisher,
		content:   content,
		config:    cfg,
		logger:    logger,
	}
}

func (s *Scheduler) Start() {
	s.refreshEntryID, _ = s.cron.AddFunc(s.config.PoolRefresh, func() {
		s.logger.Info("cron: refreshing prompt pool")
		if err := s.prompts.RefreshPool(context.Background()); err != nil {
			s.logger.Error("cron: prompt pool refresh failed", "error", err)
		}
	})

	s.publishEntryID, _ = s.cron.AddFunc(s.config.AutoPublish, func() {
		s.logger.Info("cron: running publish pipeline")
		if _, err := s.publisher.Publish(context.Background(), service.PublishRequest{}); err != nil {
			s.logger.Error("cron: scheduled publish failed", "error", err)
		}
	})

	s.cron.AddFunc(s.config.ViewFlush, func() {
		s.content.FlushViews(context.Background())
	})

	s.cron.Start()
	s.logger.Info("scheduler started",
		"pool_refresh", s.config.PoolRefresh,
		"auto_publish", s.config.AutoPublish,
		"view_flush", s.config.ViewFlush)
}

// GetNextPoolRefresh reports when the pool rebuild fires next.
func (s *Scheduler) GetNextPoolRefresh() time.Time {
	return s.cron.Entry(s.refreshEntryID).Next
}

// GetNextAutoPublish reports when the next scheduled pipeline run fires.
func (s *Scheduler) GetNextAutoPublish() time.Time {
	return s.cron.Entry(s.publishEntryID).Next
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
