// Package textgen defines the text-generation collaborator used to build
// analysis reports and to write content.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Request is a single completion request.
type Request struct {
	Prompt      string
	System      string
	Temperature float64
	MaxTokens   int
}

// Response carries the completion text and the tokens it cost.
type Response struct {
	Text     string
	Tokens   int
	Provider string
}

// Client is implemented by every completion provider.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Chain tries each client in order and returns the first success.
type Chain []Client

// Complete implements Client. When every provider fails the errors are joined.
func (c Chain) Complete(ctx context.Context, req Request) (Response, error) {
	if len(c) == 0 {
		return Response{}, errors.New("textgen: no providers configured")
	}
	var errs []error
	for _, client := range c {
		if client == nil {
			continue
		}
		resp, err := client.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return Response{}, fmt.Errorf("textgen: all providers failed: %w", errors.Join(errs...))
}

// Func adapts a plain function to Client.
type Func func(ctx context.Context, req Request) (Response, error)

// Complete implements Client.
func (f Func) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

var (
	fenceOpen   = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	fenceClose  = regexp.MustCompile("\\s*```$")
	citationRef = regexp.MustCompile(`:contentReference\[[^\]]+\]\{[^}]+\}`)
)

// Clean strips markdown code fences and provider citation markers from
// model output.
func Clean(text string) string {
	text = strings.TrimSpace(text)
	text = fenceOpen.ReplaceAllString(text, "")
	text = fenceClose.ReplaceAllString(text, "")
	text = citationRef.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
