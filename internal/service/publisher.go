package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"starpress/internal/cache"
	"starpress/internal/enrich"
	"starpress/internal/model"
	"starpress/internal/parser"
)

var (
	// ErrNoTopic means topic selection produced nothing usable; the run
	// aborts before the external generator is called.
	ErrNoTopic = errors.New("no usable topic")
	// ErrUnparsable means the generated text yielded no title; nothing is
	// persisted.
	ErrUnparsable = errors.New("generated text has no usable title")
	// ErrGeneratorDisabled means no generation credentials are configured.
	ErrGeneratorDisabled = errors.New("generator is not configured")
)

// PublishRequest drives one pipeline run. An empty Topic makes the publisher
// select one from the prompt pool, then the live trend pool, then the static
// fallback list.
type PublishRequest struct {
	Topic       string `json:"topic"`
	ContentType string `json:"content_type"`
	Tone        string `json:"tone"`
	Template    string `json:"template"`
	Draft       bool   `json:"draft"`
}

// Publisher runs the pipeline: select topic, generate, parse, enrich,
// persist, invalidate, then hand off to the side channels. Each publish
// request is one linear sequence; concurrency only exists across requests.
type Publisher struct {
	db         *gorm.DB
	cache      *cache.Cache
	parser     *parser.Parser
	generator  Generator
	prompts    *PromptService
	content    *ContentService
	syndicator *Syndicator
	images     *ImageClient
	siteURL    string
	siteAuthor string
	logger     *slog.Logger
}

type PublisherDeps struct {
	DB         *gorm.DB
	Cache      *cache.Cache
	Parser     *parser.Parser
	Generator  Generator
	Prompts    *PromptService
	Content    *ContentService
	Syndicator *Syndicator
	Images     *ImageClient
	SiteURL    string
	SiteAuthor string
	Logger     *slog.Logger
}

func NewPublisher(deps PublisherDeps) *Publisher {
	return &Publisher{
		db:         deps.DB,
		cache:      deps.Cache,
		parser:     deps.Parser,
		generator:  deps.Generator,
		prompts:    deps.Prompts,
		content:    deps.Content,
		syndicator: deps.Syndicator,
		images:     deps.Images,
		siteURL:    strings.TrimRight(deps.SiteURL, "/"),
		siteAuthor: deps.SiteAuthor,
		logger:     deps.Logger,
	}
}

// Publish runs one pipeline pass. A run that aborts before persistence leaves
// no record behind and performs no cache invalidation.
func (p *Publisher) Publish(ctx context.Context, req PublishRequest) (*model.Content, error) {
	genReq, promptID, err := p.selectRecipe(ctx, req)
	if err != nil {
		return nil, err
	}

	if p.generator == nil || !p.generator.Enabled() {
		return nil, ErrGeneratorDisabled
	}

	raw, err := p.generator.Generate(ctx, genReq)
	if err != nil {
		return nil, fmt.Errorf("generate %q: %w", genReq.Topic, err)
	}

	draft := p.parser.Parse(raw)
	if draft.Title == "" {
		return nil, fmt.Errorf("%w (topic %q)", ErrUnparsable, genReq.Topic)
	}

	rec := p.buildRecord(draft, req.Draft)
	rec.Body = p.enrichBody(draft, rec)

	if err := p.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("persist record: %w", err)
	}

	// invalidation is unconditional once the record is durable
	p.invalidateAfterPublish(ctx, rec, false)

	if promptID != "" {
		if err := p.prompts.MarkCompleted(ctx, promptID); err != nil {
			p.logger.Warn("mark prompt completed failed", "prompt", promptID, "error", err)
		}
	}

	if rec.Status == model.StatusPublished {
		p.dispatchSideChannels(rec, draft.ImageQuery)
	}

	p.logger.Info("pipeline run complete", "slug", rec.Slug, "status", rec.Status)
	return rec, nil
}

// PublishDraft promotes an existing draft record. A fresh slug is computed at
// publish time, never reused across attempts.
func (p *Publisher) PublishDraft(ctx context.Context, id string) (*model.Content, error) {
	rec, err := p.content.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}

	oldSlug := rec.Slug
	now := time.Now()
	rec.Slug = freshSlug(rec.Title)
	rec.Status = model.StatusPublished
	rec.PublishedAt = &now

	if err := p.db.WithContext(ctx).Save(rec).Error; err != nil {
		return nil, fmt.Errorf("persist record: %w", err)
	}

	p.cache.Invalidate(ctx, cache.RecordKey(oldSlug))
	p.invalidateAfterPublish(ctx, rec, true)

	p.dispatchSideChannels(rec, "")

	p.logger.Info("draft published", "slug", rec.Slug)
	return rec, nil
}

func (p *Publisher) selectRecipe(ctx context.Context, req PublishRequest) (GenerationRequest, string, error) {
	genReq := GenerationRequest{
		Topic:       strings.TrimSpace(req.Topic),
		ContentType: req.ContentType,
		Tone:        req.Tone,
		Template:    req.Template,
	}

	promptID := ""
	if genReq.Topic == "" {
		prompt, err := p.prompts.NextPending(ctx)
		if err != nil {
			p.logger.Warn("prompt pool read failed", "error", err)
		}
		if prompt != nil {
			genReq.Topic = prompt.Topic
			promptID = prompt.ID
			if genReq.ContentType == "" {
				genReq.ContentType = prompt.ContentType
			}
			if genReq.Tone == "" {
				genReq.Tone = prompt.Tone
			}
			if genReq.Template == "" {
				genReq.Template = prompt.Template
			}
		} else {
			genReq.Topic = p.prompts.FallbackTopic()
		}
	}

	if genReq.Topic == "" {
		return GenerationRequest{}, "", ErrNoTopic
	}
	if genReq.ContentType == "" {
		genReq.ContentType = "guide"
	}
	if genReq.Tone == "" {
		genReq.Tone = "curious"
	}

	return genReq, promptID, nil
}

func (p *Publisher) buildRecord(draft parser.Draft, asDraft bool) *model.Content {
	now := time.Now()
	rec := &model.Content{
		ID:             uuid.NewString(),
		Title:          draft.Title,
		Slug:           freshSlug(draft.Title),
		Excerpt:        draft.Excerpt,
		Tags:           draft.Tags,
		Category:       draft.Category,
		Citations:      draft.Citations,
		SEOTitle:       draft.SEOTitle,
		SEODescription: draft.SEODescription,
		TrustScore:     trustScore(draft),
		Status:         model.StatusPublished,
	}
	if asDraft {
		rec.Status = model.StatusDraft
	} else {
		rec.PublishedAt = &now
	}
	return rec
}

func (p *Publisher) enrichBody(draft parser.Draft, rec *model.Content) string {
	meta := enrich.Meta{
		Title:      rec.Title,
		Excerpt:    rec.Excerpt,
		CoverImage: rec.CoverImage,
		Author:     p.siteAuthor,
		SiteURL:    p.siteURL,
		Slug:       rec.Slug,
		Tags:       rec.Tags,
	}
	chain := enrich.Default(meta, p.content.RelatedByTags, p.logger)
	return chain.Run(draft.Body)
}

// invalidateAfterPublish applies the two invalidation triggers: a new record
// clears the coarse list cache only; an edit/republish also clears the
// record's own key.
func (p *Publisher) invalidateAfterPublish(ctx context.Context, rec *model.Content, republish bool) {
	if republish {
		p.cache.Invalidate(ctx, cache.RecordKey(rec.Slug))
	}
	p.cache.InvalidatePrefix(ctx, cache.KeyListPrefix)
}

// dispatchSideChannels fires syndication and cover-image lookup after the
// durable write. Both are best-effort and contained.
func (p *Publisher) dispatchSideChannels(rec *model.Content, imageQuery string) {
	if p.syndicator != nil && p.syndicator.Enabled() {
		posts := p.syndicator.BuildPosts(rec)
		if err := p.db.Model(rec).Update("social_posts", posts).Error; err != nil {
			p.logger.Warn("store syndication payloads failed", "slug", rec.Slug, "error", err)
		}
		p.syndicator.Dispatch(posts)
	}

	if p.images != nil && p.images.Enabled() && rec.CoverImage == "" {
		query := imageQuery
		if query == "" {
			query = rec.Title
		}
		go p.attachCoverImage(rec.ID, rec.Slug, query)
	}
}

func (p *Publisher) attachCoverImage(id, slug, query string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	imageURL, err := p.images.Search(ctx, query)
	if err != nil {
		p.logger.Warn("cover image lookup failed", "slug", slug, "error", err)
		return
	}

	err = p.db.WithContext(ctx).Model(&model.Content{}).
		Where("id = ?", id).
		Update("cover_image", imageURL).Error
	if err != nil {
		p.logger.Warn("cover image store failed", "slug", slug, "error", err)
		return
	}

	// the cached copy predates the image
	p.cache.Invalidate(ctx, cache.RecordKey(slug))
}

// freshSlug derives a URL-safe slug from the title plus a uniqueness suffix,
// recomputed on every attempt so collisions cannot carry over.
func freshSlug(title string) string {
	base := enrich.Slugify(title)
	if base == "" {
		base = "untitled"
	}
	return base + "-" + uuid.NewString()[:8]
}

// trustScore is a rough quality signal derived from how complete the parsed
// record came back.
func trustScore(draft parser.Draft) float64 {
	score := 40.0
	if draft.Excerpt != "" {
		score += 10
	}
	if draft.SEOTitle != "" && draft.SEODescription != "" {
		score += 10
	}
	if len(draft.Tags) > 0 {
		score += 10
	}
	score += float64(len(draft.Citations)) * 6
	if score > 100 {
		score = 100
	}
	return score
}
