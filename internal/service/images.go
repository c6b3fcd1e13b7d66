package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ImageClient looks up a cover image for a record. Absence of an API key
// disables the lookup; callers treat it as best-effort either way.
type ImageClient struct {
	apiKey string
	client *http.Client
}

// NewImageClient wires the Pexels-compatible search client.
func NewImageClient(apiKey string) *ImageClient {
	return &ImageClient{
		apiKey: apiKey,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *ImageClient) Enabled() bool {
	return c.apiKey != ""
}

type imageSearchResponse struct {
	Photos []struct {
		Src struct {
			Large string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}

// Search returns the first matching image URL for the query.
func (c *ImageClient) Search(ctx context.Context, query string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("image search is not configured")
	}

	endpoint := "https://api.pexels.com/v1/search?per_page=1&query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image api returned %d", resp.StatusCode)
	}

	var parsed imageSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Photos) == 0 {
		return "", fmt.Errorf("no image found for %q", query)
	}

	return parsed.Photos[0].Src.Large, nil
}
