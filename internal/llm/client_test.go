package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/semantica/pkg/semantica/textgen"
)

type roundTrip func(*http.Request) *http.Response

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req), nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestCompleteSuccess(t *testing.T) {
	var sent chatRequest
	client := &Client{
		BaseURL: "https://api.test/v1",
		APIKey:  "sk-test",
		Model:   "gpt-test",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				assert.Equal(t, "https://api.test/v1/chat/completions", req.URL.String())
				assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
				body, _ := io.ReadAll(req.Body)
				require.NoError(t, json.Unmarshal(body, &sent))
				return jsonResponse(200, `{
					"choices":[{"message":{"role":"assistant","content":"<p>Hola</p>"}}],
					"usage":{"total_tokens":42}
				}`)
			}),
		},
	}

	resp, err := client.Complete(context.Background(), textgen.Request{
		Prompt:      "Escribe",
		System:      "Eres redactor",
		Temperature: 0.2,
		MaxTokens:   100,
	})

	require.NoError(t, err)
	assert.Equal(t, textgen.Response{Text: "<p>Hola</p>", Tokens: 42, Provider: "openai"}, resp)
	assert.Equal(t, "gpt-test", sent.Model)
	assert.Equal(t, []chatMessage{{Role: "system", Content: "Eres redactor"}, {Role: "user", Content: "Escribe"}}, sent.Messages)
	assert.InDelta(t, 0.2, sent.Temperature, 1e-9)
	assert.Equal(t, 100, sent.MaxTokens)
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"api error", 200, `{"error":{"message":"bad key"}}`, "llm error: bad key"},
		{"http status", 502, `<html>bad gateway</html>`, "HTTP 502"},
		{"no choices", 200, `{"choices":[]}`, "empty response"},
		{"garbage", 200, `not json`, "decode response"},
		{"oversized", 200, `{"choices":[{"message":{"role":"assistant","content":"` + strings.Repeat("a", maxResponseBytes) + `"}}]}`, "exceeds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &Client{
				BaseURL: "https://api.test/v1/chat/completions",
				Model:   "gpt-test",
				HTTPClient: &http.Client{
					Transport: roundTrip(func(req *http.Request) *http.Response {
						assert.Equal(t, "/v1/chat/completions", req.URL.Path)
						return jsonResponse(tt.status, tt.body)
					}),
				},
			}

			_, err := client.Complete(context.Background(), textgen.Request{Prompt: "q"})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCompleteRequiresModel(t *testing.T) {
	_, err := (&Client{BaseURL: "https://api.test"}).Complete(context.Background(), textgen.Request{})
	assert.Error(t, err)
}

func TestAnthropicComplete(t *testing.T) {
	var sent map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("X-Api-Key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &sent))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"{\"semantic_keywords\":[]}"}],
			"stop_reason":"end_turn",
			"usage":{"input_tokens":30,"output_tokens":12}
		}`)
	}))
	defer srv.Close()

	client := NewAnthropic(AnthropicConfig{APIKey: "ak-test", BaseURL: srv.URL + "/", Model: "claude-test"})

	resp, err := client.Complete(context.Background(), textgen.Request{Prompt: "Analiza", System: "JSON only", Temperature: 0.2})

	require.NoError(t, err)
	assert.Equal(t, `{"semantic_keywords":[]}`, resp.Text)
	assert.Equal(t, 42, resp.Tokens)
	assert.Equal(t, "anthropic", resp.Provider)
	assert.Equal(t, "claude-test", sent["model"])
	assert.EqualValues(t, 4096, sent["max_tokens"])
}

func TestAnthropicFailureIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"api_error","message":"boom"}}`)
	}))
	defer srv.Close()

	client := NewAnthropic(AnthropicConfig{APIKey: "ak-test", BaseURL: srv.URL + "/", Model: "claude-test"})

	_, err := client.Complete(context.Background(), textgen.Request{Prompt: "Analiza"})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestChainFallsBackToSecondProvider(t *testing.T) {
	failing := &Client{
		BaseURL: "https://down.test",
		Model:   "gpt-test",
		HTTPClient: &http.Client{Transport: roundTrip(func(*http.Request) *http.Response {
			return jsonResponse(503, `{"error":{"message":"overloaded"}}`)
		})},
	}
	working := &Client{
		BaseURL: "https://up.test",
		Model:   "gpt-test",
		HTTPClient: &http.Client{Transport: roundTrip(func(*http.Request) *http.Response {
			return jsonResponse(200, `{"choices":[{"message":{"content":"ok"}}]}`)
		})},
	}

	resp, err := textgen.Chain{failing, working}.Complete(context.Background(), textgen.Request{Prompt: "q"})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
}
