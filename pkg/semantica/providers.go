package semantica

import (
	"net/http"

	"github.com/cognicore/semantica/internal/llm"
	"github.com/cognicore/semantica/internal/serpapi"
	"github.com/cognicore/semantica/pkg/semantica/config"
	"github.com/cognicore/semantica/pkg/semantica/serp"
	"github.com/cognicore/semantica/pkg/semantica/textgen"
)

// Providers builds the text generation clients named by cfg. The analyzer
// tries cfg.Analyzer first and the other provider second. The writer is a
// single client, OpenAI or Anthropic when OpenAI has no key, so a failed
// generation request is never retried elsewhere. Providers without an API key
// are left out, and either result is nil when no provider is usable.
func Providers(cfg config.LLM) (analyzer, writer textgen.Client) {
	var openai, anthropic textgen.Client
	if cfg.OpenAI.APIKey != "" {
		c := &llm.Client{
			BaseURL: cfg.OpenAI.BaseURL,
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
		}
		if cfg.OpenAI.Timeout > 0 {
			c.HTTPClient = &http.Client{Timeout: cfg.OpenAI.Timeout}
		}
		openai = c
	}
	if cfg.Anthropic.APIKey != "" {
		anthropic = llm.NewAnthropic(llm.AnthropicConfig{
			APIKey:    cfg.Anthropic.APIKey,
			BaseURL:   cfg.Anthropic.BaseURL,
			Model:     cfg.Anthropic.Model,
			MaxTokens: cfg.Anthropic.MaxTokens,
			Timeout:   cfg.Anthropic.Timeout,
		})
	}

	order := []textgen.Client{openai, anthropic}
	if cfg.Analyzer == "anthropic" {
		order = []textgen.Client{anthropic, openai}
	}
	writer = openai
	if writer == nil {
		writer = anthropic
	}
	return chain(order...), writer
}

func chain(clients ...textgen.Client) textgen.Client {
	var out textgen.Chain
	for _, c := range clients {
		if c != nil {
			out = append(out, c)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

// Searcher returns the SerpAPI searcher for cfg, or nil without an API key.
func Searcher(cfg config.Search) serp.Searcher {
	if cfg.APIKey == "" {
		return nil
	}
	return serpapi.New(cfg.APIKey, cfg.BaseURL, cfg.Timeout)
}
