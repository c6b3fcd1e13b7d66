package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"starpress/config"
	"starpress/internal/model"
	"starpress/internal/ratelimit"
	"starpress/internal/service"
)

// Handler owns the HTTP surface.
type Handler struct {
	content   *service.ContentService
	prompts   *service.PromptService
	publisher *service.Publisher
	limiter   *ratelimit.Limiter
	site      config.SiteConfig
	adminKey  string
	logger    *slog.Logger
	scheduler interface {
		GetNextPoolRefresh() time.Time
		GetNextAutoPublish() time.Time
	}
}

type HandlerDeps struct {
	Content   *service.ContentService
	Prompts   *service.PromptService
	Publisher *service.Publisher
	Limiter   *ratelimit.Limiter
	Site      config.SiteConfig
	AdminKey  string
	Logger    *slog.Logger
}

func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		content:   deps.Content,
		prompts:   deps.Prompts,
		publisher: deps.Publisher,
		limiter:   deps.Limiter,
		site:      deps.Site,
		adminKey:  deps.AdminKey,
		logger:    deps.Logger,
	}
}

// SetScheduler wires the cron reference for the status endpoint.
func (h *Handler) SetScheduler(scheduler interface {
	GetNextPoolRefresh() time.Time
	GetNextAutoPublish() time.Time
}) {
	h.scheduler = scheduler
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	public := r.Group("/", ratelimit.Middleware(h.limiter, "api"))
	{
		public.GET("/content", h.ListContent)
		public.GET("/content/:slug", h.GetContent)
		public.GET("/feed.xml", h.Feed)
	}

	r.POST("/content/:slug/views", ratelimit.Middleware(h.limiter, "views"), h.AddView)

	admin := r.Group("/api/admin", h.adminAuth(), ratelimit.Middleware(h.limiter, "admin"))
	{
		admin.GET("/prompts", h.ListPrompts)
		admin.POST("/prompts", h.RefreshPrompts)
		admin.POST("/publish-manual", h.PublishManual)
		admin.GET("/drafts/:id", h.GetDraft)
		admin.PUT("/drafts/:id", h.UpdateDraft)
		admin.DELETE("/drafts/:id", h.DeleteDraft)
		admin.POST("/drafts/:id/publish", h.PublishDraft)
		admin.GET("/status", h.Status)
	}
}

// adminAuth guards the admin group. Without a configured key the whole group
// is disabled.
func (h *Handler) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Admin-Key")
		if h.adminKey == "" || key != h.adminKey {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// ===== public content =====

func (h *Handler) ListContent(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	result, err := h.content.List(c.Request.Context(), service.ListParams{
		Page:     page,
		Limit:    limit,
		Sort:     c.Query("sort"),
		Category: c.Query("category"),
		Tag:      c.Query("tag"),
		Search:   c.Query("search"),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list content"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetContent(c *gin.Context) {
	rec, err := h.content.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load content"})
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *Handler) AddView(c *gin.Context) {
	slug := c.Param("slug")
	if _, err := h.content.GetBySlug(c.Request.Context(), slug); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
		return
	}

	h.content.AddView(slug)
	c.JSON(http.StatusAccepted, gin.H{"message": "view recorded"})
}

// ===== admin =====

func (h *Handler) ListPrompts(c *gin.Context) {
	prompts, err := h.prompts.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list prompts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": prompts})
}

func (h *Handler) RefreshPrompts(c *gin.Context) {
	if err := h.prompts.RefreshPool(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to refresh prompt pool"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "prompt pool refreshed"})
}

func (h *Handler) PublishManual(c *gin.Context) {
	var req service.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.publisher.Publish(c.Request.Context(), req)
	if err != nil {
		h.logger.Warn("manual publish failed", "error", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) GetDraft(c *gin.Context) {
	rec, err := h.content.GetDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) UpdateDraft(c *gin.Context) {
	var edit service.DraftEdit
	if err := c.ShouldBindJSON(&edit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.content.UpdateDraft(c.Request.Context(), c.Param("id"), edit)
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update draft"})
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *Handler) DeleteDraft(c *gin.Context) {
	err := h.content.DeleteDraft(c.Request.Context(), c.Param("id"))
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete draft"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) PublishDraft(c *gin.Context) {
	rec, err := h.publisher.PublishDraft(c.Request.Context(), c.Param("id"))
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
		return
	}
	if err != nil {
		h.logger.Warn("draft publish failed", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish draft"})
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *Handler) Status(c *gin.Context) {
	published, drafts, err := h.content.Counts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load status"})
		return
	}

	prompts, _ := h.prompts.List(c.Request.Context())
	pending := 0
	for _, p := range prompts {
		if p.Status == model.PromptPending {
			pending++
		}
	}

	status := gin.H{
		"published_records": published,
		"draft_records":     drafts,
		"pending_prompts":   pending,
	}
	if h.scheduler != nil {
		status["next_pool_refresh"] = h.scheduler.GetNextPoolRefresh()
		status["next_auto_publish"] = h.scheduler.GetNextAutoPublish()
	}

	c.JSON(http.StatusOK, status)
}
