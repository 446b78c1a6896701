package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TextGenerator sends a prompt to the AI backend and returns the raw
// completion text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client talks to the text-generation endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Data struct {
		Response string `json:"response"`
	} `json:"data"`
}

// Generate posts the prompt and returns the raw completion. Non-2xx responses
// are returned as errors; callers above the generator layer never see them.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ai/generate_text", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("api request failed (status %d): %s", resp.StatusCode, string(raw))
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return parsed.Data.Response, nil
}
