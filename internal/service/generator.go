package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"starpress/config"
)

// GenerationRequest is the recipe handed to the external generator.
type GenerationRequest struct {
	Topic       string
	ContentType string
	Tone        string
	Template    string
}

// Generator produces one raw text blob in the labeled-section format the
// parser expects.
type Generator interface {
	Enabled() bool
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// LLMGenerator talks to an OpenAI-compatible chat-completions endpoint. A
// missing API key disables generation instead of failing startup.
type LLMGenerator struct {
	apiURL string
	apiKey string
	model  string
	client *http.Client
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewLLMGenerator wires the client from config.
func NewLLMGenerator(cfg config.GeneratorConfig) *LLMGenerator {
	return &LLMGenerator{
		apiURL: strings.TrimRight(cfg.ApiURL, "/"),
		apiKey: cfg.ApiKey,
		model:  cfg.Model,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (g *LLMGenerator) Enabled() bool {
	return g.apiKey != ""
}

const systemPrompt = `You are the staff writer for an astronomy blog. Respond with labeled
markdown sections using these exact headings: ## TITLE, ## EXCERPT,
## SEO_TITLE, ## SEO_DESCRIPTION, ## TAGS, ## CATEGORY, ## IMAGE_QUERY,
## CONTENT, ## CITATIONS. Tags are comma separated. Citations are lines of
the form "- source name | url | claim". The CONTENT section is markdown with
level-2 headings.`

// Generate calls the chat endpoint and returns the raw completion text.
func (g *LLMGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	if !g.Enabled() {
		return "", fmt.Errorf("generator is not configured")
	}

	user := fmt.Sprintf("Write a %s article about %q in a %s tone.", req.ContentType, req.Topic, req.Tone)
	if req.Template != "" {
		user += fmt.Sprintf(" Structure it as a %s.", req.Template)
	}

	body := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: user},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.apiURL+"/chat/completions", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call generator: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generator returned %d: %s", resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("generator returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
