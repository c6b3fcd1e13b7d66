package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/feeds"

	"starpress/internal/service"
)

const feedSize = 20

// Feed serves an RSS 2.0 feed of the latest published records.
func (h *Handler) Feed(c *gin.Context) {
	result, err := h.content.List(c.Request.Context(), service.ListParams{
		Page:  1,
		Limit: feedSize,
		Sort:  "newest",
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build feed"})
		return
	}

	feed := &feeds.Feed{
		Title:       h.site.Name,
		Link:        &feeds.Link{Href: h.site.BaseURL},
		Description: h.site.Name + " — automated stargazing coverage",
		Author:      &feeds.Author{Name: h.site.Author},
		Created:     time.Now(),
	}

	feed.Items = make([]*feeds.Item, 0, len(result.Data))
	for _, rec := range result.Data {
		item := &feeds.Item{
			Title:       rec.Title,
			Link:        &feeds.Link{Href: fmt.Sprintf("%s/content/%s", h.site.BaseURL, rec.Slug)},
			Id:          rec.ID,
			Description: rec.Excerpt,
			Created:     rec.CreatedAt,
		}
		if rec.PublishedAt != nil {
			item.Created = *rec.PublishedAt
		}
		feed.Items = append(feed.Items, item)
	}

	rss, err := feed.ToRss()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render feed"})
		return
	}

	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}
