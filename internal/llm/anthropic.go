package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/cognicore/semantica/pkg/semantica/textgen"
)

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  string
	maxTok int
}

// AnthropicConfig configures NewAnthropic.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string // optional, for proxies and tests
	Model      string
	MaxTokens  int // used when a request sets none, default 4096
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewAnthropic creates a client. The SDK's own retries are disabled; a
// failed call is reported to the caller, which may fall back to another
// provider.
func NewAnthropic(cfg AnthropicConfig) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	maxTok := cfg.MaxTokens
	if maxTok <= 0 {
		maxTok = 4096
	}
	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
		maxTok: maxTok,
	}
}

// Complete implements textgen.Client.
func (c *AnthropicClient) Complete(ctx context.Context, req textgen.Request) (textgen.Response, error) {
	if c.model == "" {
		return textgen.Response{}, fmt.Errorf("anthropic: model required")
	}
	maxTok := req.MaxTokens
	if maxTok <= 0 {
		maxTok = c.maxTok
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(maxTok),
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return textgen.Response{}, fmt.Errorf("anthropic: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return textgen.Response{}, fmt.Errorf("anthropic: empty response")
	}
	return textgen.Response{
		Text:     text.String(),
		Tokens:   int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		Provider: "anthropic",
	}, nil
}
