// Package llm holds the text-generation providers: an OpenAI-compatible chat
// completion client and an Anthropic Messages client.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cognicore/semantica/pkg/semantica/textgen"
)

// maxResponseBytes bounds how much of a completion response is read.
const maxResponseBytes = 8 << 20

// Client calls an OpenAI-compatible chat completion endpoint.
type Client struct {
	BaseURL string // API root, e.g. https://api.openai.com/v1, or the full completions URL
	APIKey  string
	Model   string

	HTTPClient *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete implements textgen.Client.
func (c *Client) Complete(ctx context.Context, req textgen.Request) (textgen.Response, error) {
	if c.BaseURL == "" || c.Model == "" {
		return textgen.Response{}, fmt.Errorf("llm: base URL and model required")
	}
	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload, err := c.send(ctx, chatRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return textgen.Response{}, err
	}
	if len(payload.Choices) == 0 || payload.Choices[0].Message.Content == "" {
		return textgen.Response{}, fmt.Errorf("llm: empty response")
	}
	return textgen.Response{
		Text:     payload.Choices[0].Message.Content,
		Tokens:   payload.Usage.TotalTokens,
		Provider: "openai",
	}, nil
}

func (c *Client) send(ctx context.Context, body chatRequest) (*chatResponse, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("llm: read response: %w", err)
	}
	if len(raw) > maxResponseBytes {
		return nil, fmt.Errorf("llm: response exceeds %d bytes", maxResponseBytes)
	}
	var payload chatResponse
	decodeErr := json.Unmarshal(raw, &payload)
	if payload.Error != nil {
		return nil, fmt.Errorf("llm error: %s", payload.Error.Message)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("llm: HTTP %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("llm: decode response: %w", decodeErr)
	}
	return &payload, nil
}

func (c *Client) endpoint() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}
