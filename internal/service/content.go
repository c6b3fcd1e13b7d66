package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"starpress/internal/cache"
	"starpress/internal/model"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// ListParams are the recognized list-query filters.
type ListParams struct {
	Page     int
	Limit    int
	Sort     string // newest, oldest, views
	Category string
	Tag      string
	Search   string
}

// ListResult is one page of published records plus paging info.
type ListResult struct {
	Data  []model.Content `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ContentService reads and mutates content records, fronted by the cache.
// View counts are buffered in memory and flushed periodically; a crash loses
// at most one flush interval of counts.
type ContentService struct {
	db        *gorm.DB
	cache     *cache.Cache
	recordTTL time.Duration
	listTTL   time.Duration
	logger    *slog.Logger

	viewMu  sync.Mutex
	viewBuf map[string]int64
}

func NewContentService(db *gorm.DB, c *cache.Cache, recordTTL, listTTL time.Duration, logger *slog.Logger) *ContentService {
	return &ContentService{
		db:        db,
		cache:     c,
		recordTTL: recordTTL,
		listTTL:   listTTL,
		logger:    logger,
		viewBuf:   make(map[string]int64),
	}
}

func (p ListParams) normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	switch p.Sort {
	case "oldest", "views":
	default:
		p.Sort = "newest"
	}
	return p
}

func (p ListParams) cacheKey() string {
	return cache.ListKey(fmt.Sprintf("p%d:l%d:s%s:c%s:t%s:q%s",
		p.Page, p.Limit, p.Sort, p.Category, p.Tag, p.Search))
}

// List returns a page of published records, cache-first.
func (s *ContentService) List(ctx context.Context, params ListParams) (*ListResult, error) {
	params = params.normalize()
	key := params.cacheKey()

	if raw, ok := s.cache.Get(ctx, key); ok {
		var result ListResult
		if err := json.Unmarshal([]byte(raw), &result); err == nil {
			return &result, nil
		}
	}

	query := s.db.WithContext(ctx).Model(&model.Content{}).
		Where("status = ?", model.StatusPublished)

	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.Tag != "" {
		// tags are stored as a JSON array of lowercase tokens
		query = query.Where("tags LIKE ?", fmt.Sprintf(`%%"%s"%%`, params.Tag))
	}
	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("title LIKE ? OR excerpt LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	switch params.Sort {
	case "oldest":
		query = query.Order("published_at ASC")
	case "views":
		query = query.Order("views DESC")
	default:
		query = query.Order("published_at DESC")
	}

	var records []model.Content
	err := query.Offset((params.Page - 1) * params.Limit).
		Limit(params.Limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	result := &ListResult{Data: records, Total: total, Page: params.Page, Limit: params.Limit}

	if encoded, err := json.Marshal(result); err == nil {
		s.cache.Set(ctx, key, string(encoded), s.listTTL)
	}

	return result, nil
}

// GetBySlug returns one published record, cache-first. Draft records are not
// addressable by slug.
func (s *ContentService) GetBySlug(ctx context.Context, slug string) (*model.Content, error) {
	key := cache.RecordKey(slug)

	if raw, ok := s.cache.Get(ctx, key); ok {
		var rec model.Content
		if err := json.Unmarshal([]byte(raw), &rec); err == nil {
			return &rec, nil
		}
	}

	var rec model.Content
	err := s.db.WithContext(ctx).
		Where("slug = ? AND status = ?", slug, model.StatusPublished).
		First(&rec).Error
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(&rec); err == nil {
		s.cache.Set(ctx, key, string(encoded), s.recordTTL)
	}

	return &rec, nil
}

// RelatedByTags finds other published records sharing at least one tag,
// excluding the given slug.
func (s *ContentService) RelatedByTags(tags []string, excludeSlug string, limit int) ([]model.Content, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	query := s.db.Model(&model.Content{}).
		Where("status = ? AND slug <> ?", model.StatusPublished, excludeSlug)

	tagQuery := s.db.Session(&gorm.Session{NewDB: true})
	cond := tagQuery
	for i, tag := range tags {
		like := fmt.Sprintf(`%%"%s"%%`, tag)
		if i == 0 {
			cond = cond.Where("tags LIKE ?", like)
		} else {
			cond = cond.Or("tags LIKE ?", like)
		}
	}

	var records []model.Content
	err := query.Where(cond).
		Order("published_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// AddView buffers one view for the slug.
func (s *ContentService) AddView(slug string) {
	s.viewMu.Lock()
	s.viewBuf[slug]++
	s.viewMu.Unlock()
}

// FlushViews writes the buffered counters to the store and clears the buffer.
func (s *ContentService) FlushViews(ctx context.Context) {
	s.viewMu.Lock()
	pending := s.viewBuf
	s.viewBuf = make(map[string]int64)
	s.viewMu.Unlock()

	for slug, count := range pending {
		err := s.db.WithContext(ctx).Model(&model.Content{}).
			Where("slug = ?", slug).
			UpdateColumn("views", gorm.Expr("views + ?", count)).Error
		if err != nil {
			s.logger.Warn("view flush failed", "slug", slug, "error", err)
		}
	}
}

// GetDraft loads one draft record by id for the authoring workflow.
func (s *ContentService) GetDraft(ctx context.Context, id string) (*model.Content, error) {
	var rec model.Content
	err := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, model.StatusDraft).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DraftEdit is the explicit draft-edit path; only these fields may change.
type DraftEdit struct {
	Title   *string `json:"title"`
	Excerpt *string `json:"excerpt"`
	Body    *string `json:"body"`
}

// UpdateDraft applies an edit to a draft record.
func (s *ContentService) UpdateDraft(ctx context.Context, id string, edit DraftEdit) (*model.Content, error) {
	rec, err := s.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}

	if edit.Title != nil {
		rec.Title = *edit.Title
	}
	if edit.Excerpt != nil {
		rec.Excerpt = *edit.Excerpt
	}
	if edit.Body != nil {
		rec.Body = *edit.Body
	}

	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// DeleteDraft removes a draft record.
func (s *ContentService) DeleteDraft(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, model.StatusDraft).
		Delete(&model.Content{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Counts reports record totals for the status endpoint.
func (s *ContentService) Counts(ctx context.Context) (published, drafts int64, err error) {
	db := s.db.WithContext(ctx).Model(&model.Content{})
	if err = db.Where("status = ?", model.StatusPublished).Count(&published).Error; err != nil {
		return
	}
	err = s.db.WithContext(ctx).Model(&model.Content{}).
		Where("status = ?", model.StatusDraft).Count(&drafts).Error
	return
}
