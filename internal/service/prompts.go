package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"starpress/internal/model"
	"starpress/internal/trends"
)

const promptPoolSize = 20

// TopicSource collects candidate topics; the trend aggregator implements it.
type TopicSource interface {
	Collect(ctx context.Context) []string
}

var contentTypes = []string{"guide", "news-update", "explainer", "listicle"}
var tones = []string{"curious", "practical", "wonder-struck"}
var templates = []string{"deep-dive", "faq", "checklist"}

// staticTopics is the fallback pool used when every trend source fails or
// returns nothing.
var staticTopics = []string{
	"How to photograph the full moon with a phone",
	"Best telescopes for beginners this year",
	"Why the next lunar eclipse matters",
	"A month-by-month meteor shower calendar",
	"Reading a star chart without an app",
	"What causes the northern lights",
	"Saturn at opposition: a viewing guide",
	"Light pollution and how to escape it",
	"The brightest comets of the decade",
	"Understanding moon phases for stargazers",
}

// PromptService owns the bounded daily prompt pool. Prompts are regenerated
// on a 24-hour cycle or on explicit refresh, and are only ever mutated to
// flip their status.
type PromptService struct {
	db     *gorm.DB
	topics TopicSource
	picker *trends.Picker
	logger *slog.Logger
}

func NewPromptService(db *gorm.DB, topics TopicSource, logger *slog.Logger) *PromptService {
	return &PromptService{
		db:     db,
		topics: topics,
		picker: trends.NewPicker(nil),
		logger: logger,
	}
}

// RefreshPool drops pending prompts and rebuilds the pool from the current
// trend pool, falling back to the static topic list when the aggregation
// comes back empty.
func (s *PromptService) RefreshPool(ctx context.Context) error {
	pool := s.topics.Collect(ctx)
	if len(pool) == 0 {
		s.logger.Warn("trend pool empty, using static topics")
		pool = staticTopics
	}

	if err := s.db.WithContext(ctx).
		Where("status = ?", model.PromptPending).
		Delete(&model.Prompt{}).Error; err != nil {
		return err
	}

	s.picker.Reset()
	for i := 0; i < promptPoolSize; i++ {
		topic := s.picker.Pick(pool)
		if topic == "" {
			break
		}
		prompt := model.Prompt{
			ID:          uuid.NewString(),
			Topic:       topic,
			ContentType: contentTypes[i%len(contentTypes)],
			Tone:        tones[i%len(tones)],
			Template:    templates[i%len(templates)],
			Status:      model.PromptPending,
		}
		if err := s.db.WithContext(ctx).Create(&prompt).Error; err != nil {
			return err
		}
	}

	s.logger.Info("prompt pool refreshed", "size", promptPoolSize, "topics", len(pool))
	return nil
}

// EnsurePool refreshes only when no pending prompts exist, so startup does
// not clobber a pool built earlier the same day.
func (s *PromptService) EnsurePool(ctx context.Context) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Prompt{}).
		Where("status = ?", model.PromptPending).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.RefreshPool(ctx)
}

// List returns the pool, pending first, newest first within status.
func (s *PromptService) List(ctx context.Context) ([]model.Prompt, error) {
	var prompts []model.Prompt
	err := s.db.WithContext(ctx).
		Order("status ASC, created_at DESC").
		Find(&prompts).Error
	return prompts, err
}

// NextPending pops the oldest pending prompt, or nil when the pool is drained.
func (s *PromptService) NextPending(ctx context.Context) (*model.Prompt, error) {
	var prompt model.Prompt
	err := s.db.WithContext(ctx).
		Where("status = ?", model.PromptPending).
		Order("created_at ASC").
		First(&prompt).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prompt, nil
}

// MarkCompleted flips the prompt status in place.
func (s *PromptService) MarkCompleted(ctx context.Context, id string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&model.Prompt{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": model.PromptCompleted, "used_at": now}).Error
}

// FallbackTopic serves the publisher when both the pool and the aggregator
// come up empty.
func (s *PromptService) FallbackTopic() string {
	return s.picker.Pick(staticTopics)
}
