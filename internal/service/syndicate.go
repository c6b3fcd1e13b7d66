package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"starpress/internal/model"
)

var syndicationNetworks = []string{"x", "facebook"}

// Syndicator pushes freshly published records to social targets through a
// webhook. Delivery is fire-and-forget: failures are logged and never reach
// the publish path.
type Syndicator struct {
	webhookURL string
	siteURL    string
	client     *http.Client
	logger     *slog.Logger
}

// NewSyndicator wires the webhook client; an empty URL disables syndication.
func NewSyndicator(webhookURL, siteURL string, logger *slog.Logger) *Syndicator {
	return &Syndicator{
		webhookURL: webhookURL,
		siteURL:    strings.TrimRight(siteURL, "/"),
		client:     &http.Client{Timeout: 20 * time.Second},
		logger:     logger,
	}
}

func (s *Syndicator) Enabled() bool {
	return s.webhookURL != ""
}

// BuildPosts prepares one payload per network; the publisher persists these
// on the record before dispatch.
func (s *Syndicator) BuildPosts(rec *model.Content) []model.SocialPost {
	link := fmt.Sprintf("%s/content/%s", s.siteURL, rec.Slug)
	text := rec.Title
	if rec.Excerpt != "" {
		text += " — " + rec.Excerpt
	}

	posts := make([]model.SocialPost, 0, len(syndicationNetworks))
	for _, network := range syndicationNetworks {
		posts = append(posts, model.SocialPost{
			Network: network,
			Text:    text,
			URL:     link,
		})
	}
	return posts
}

// Dispatch sends the payloads on a detached context. Best effort only.
func (s *Syndicator) Dispatch(posts []model.SocialPost) {
	if !s.Enabled() || len(posts) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		for _, post := range posts {
			if err := s.send(ctx, post); err != nil {
				s.logger.Warn("syndication failed", "network", post.Network, "error", err)
			}
		}
	}()
}

func (s *Syndicator) send(ctx context.Context, post model.SocialPost) error {
	payload, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("marshal post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
