package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"starpress/config"
	"starpress/internal/cache"
	"starpress/internal/model"
	"starpress/internal/parser"
	"starpress/internal/ratelimit"
	"starpress/internal/service"
)

const testAdminKey = "test-admin-key"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.Content{}, &model.Prompt{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type stubGen struct{ raw string }

func (g stubGen) Enabled() bool { return true }
func (g stubGen) Generate(ctx context.Context, req service.GenerationRequest) (string, error) {
	return g.raw, nil
}

type noTopics struct{}

func (noTopics) Collect(ctx context.Context) []string { return nil }

const generatedDoc = `## TITLE
Watching The Perseids

## EXCERPT
The year's most reliable meteor shower peaks in August.

## TAGS
meteors

## CATEGORY
Meteor Showers

## CONTENT
The Perseids peak around August 12.
`

func newTestRouter(t *testing.T, gen service.Generator) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := discardLogger()
	store := cache.New(rdb, logger)

	local := ratelimit.NewLocalLimiter(0)
	t.Cleanup(local.Close)
	limiter := ratelimit.New(rdb, local, map[string]config.RateLimitRule{
		"api":   {Max: 100, Window: 60},
		"views": {Max: 100, Window: 60},
		"admin": {Max: 100, Window: 60},
	}, logger)

	prompts := service.NewPromptService(db, noTopics{}, logger)
	content := service.NewContentService(db, store, time.Minute, time.Minute, logger)
	publisher := service.NewPublisher(service.PublisherDeps{
		DB:         db,
		Cache:      store,
		Parser:     parser.New(10),
		Generator:  gen,
		Prompts:    prompts,
		Content:    content,
		SiteURL:    "https://starpress.example",
		SiteAuthor: "Night Desk",
		Logger:     logger,
	})

	h := NewHandler(HandlerDeps{
		Content:   content,
		Prompts:   prompts,
		Publisher: publisher,
		Limiter:   limiter,
		Site: config.SiteConfig{
			BaseURL: "https://starpress.example",
			Name:    "Starpress",
			Author:  "Night Desk",
		},
		AdminKey: testAdminKey,
		Logger:   logger,
	})

	r := gin.New()
	h.RegisterRoutes(r)
	return r, db
}

func seedPublished(t *testing.T, db *gorm.DB, slug, title string) *model.Content {
	t.Helper()
	now := time.Now()
	rec := &model.Content{
		ID:          uuid.NewString(),
		Title:       title,
		Slug:        slug,
		Excerpt:     "About " + title,
		Body:        "<p>" + title + "</p>",
		Status:      model.StatusPublished,
		PublishedAt: &now,
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("seed %s: %v", slug, err)
	}
	return rec
}

func doRequest(r *gin.Engine, method, path, body string, admin bool) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("X-Admin-Key", testAdminKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListContent(t *testing.T) {
	r, db := newTestRouter(t, stubGen{raw: generatedDoc})
	seedPublished(t, db, "first-post", "First Post")

	w := doRequest(r, http.MethodGet, "/content", "", false)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-RateLimit-Limit") == "" {
		t.Fatal("missing rate limit headers on a public route")
	}

	var result service.ListResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Total != 1 || result.Data[0].Slug != "first-post" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestGetContent(t *testing.T) {
	r, db := newTestRouter(t, stubGen{raw: generatedDoc})
	seedPublished(t, db, "moon-post", "Moon Post")

	w := doRequest(r, http.MethodGet, "/content/moon-post", "", false)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = doRequest(r, http.MethodGet, "/content/missing", "", false)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestAddView(t *testing.T) {
	r, db := newTestRouter(t, stubGen{raw: generatedDoc})
	seedPublished(t, db, "viewed", "Viewed Post")

	w := doRequest(r, http.MethodPost, "/content/viewed/views", "", false)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}

	w = doRequest(r, http.MethodPost, "/content/missing/views", "", false)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown slug, got %d", w.Code)
	}
}

func TestFeed(t *testing.T) {
	r, db := newTestRouter(t, stubGen{raw: generatedDoc})
	seedPublished(t, db, "feed-post", "Feed Post")

	w := doRequest(r, http.MethodGet, "/feed.xml", "", false)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "rss+xml") {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<rss") || !strings.Contains(body, "<title>Feed Post</title>") {
		t.Fatalf("feed body malformed:\n%s", body)
	}
	if !strings.Contains(body, "https://starpress.example/content/feed-post") {
		t.Fatalf("feed item link malformed:\n%s", body)
	}
}

func TestAdminAuth(t *testing.T) {
	r, _ := newTestRouter(t, stubGen{raw: generatedDoc})

	w := doRequest(r, http.MethodGet, "/api/admin/status", "", false)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without key, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/status", nil)
	req.Header.Set("X-Admin-Key", "wrong")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with wrong key, got %d", rec.Code)
	}

	w = doRequest(r, http.MethodGet, "/api/admin/status", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d", w.Code)
	}

	var status map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := status["published_records"]; !ok {
		t.Fatalf("status payload incomplete: %v", status)
	}
}

func TestPublishManual(t *testing.T) {
	r, db := newTestRouter(t, stubGen{raw: generatedDoc})

	w := doRequest(r, http.MethodPost, "/api/admin/publish-manual", `{"topic":"perseids"}`, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var rec model.Content
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Title != "Watching The Perseids" {
		t.Fatalf("unexpected title %q", rec.Title)
	}

	var count int64
	db.Model(&model.Content{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 persisted record, got %d", count)
	}
}

func TestPublishManualUnprocessable(t *testing.T) {
	r, _ := newTestRouter(t, stubGen{raw: "nothing the parser can use"})

	w := doRequest(r, http.MethodPost, "/api/admin/publish-manual", `{"topic":"perseids"}`, true)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDraftLifecycleOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t, stubGen{raw: generatedDoc})

	w := doRequest(r, http.MethodPost, "/api/admin/publish-manual", `{"topic":"perseids","draft":true}`, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("draft creation failed: %d %s", w.Code, w.Body.String())
	}
	var draft model.Content
	if err := json.Unmarshal(w.Body.Bytes(), &draft); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if draft.Status != model.StatusDraft {
		t.Fatalf("expected draft status, got %s", draft.Status)
	}

	w = doRequest(r, http.MethodPut, "/api/admin/drafts/"+draft.ID, `{"title":"Edited Title"}`, true)
	if w.Code != http.StatusOK {
		t.Fatalf("draft update failed: %d %s", w.Code, w.Body.String())
	}

	w = doRequest(r, http.MethodPost, "/api/admin/drafts/"+draft.ID+"/publish", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("draft publish failed: %d %s", w.Code, w.Body.String())
	}
	var published model.Content
	if err := json.Unmarshal(w.Body.Bytes(), &published); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if published.Status != model.StatusPublished || published.Title != "Edited Title" {
		t.Fatalf("promotion incomplete: %+v", published)
	}

	// promoted records are no longer drafts
	w = doRequest(r, http.MethodDelete, "/api/admin/drafts/"+draft.ID, "", true)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting a published record, got %d", w.Code)
	}
}

func TestRefreshPromptsEndpoint(t *testing.T) {
	r, db := newTestRouter(t, stubGen{raw: generatedDoc})

	w := doRequest(r, http.MethodPost, "/api/admin/prompts", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	db.Model(&model.Prompt{}).Count(&count)
	if count == 0 {
		t.Fatal("refresh built no prompts")
	}

	w = doRequest(r, http.MethodGet, "/api/admin/prompts", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
