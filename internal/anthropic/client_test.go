package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/CulleyHarrelson/svg-cli/internal/svg"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSVG = `<svg width="100" height="100" xmlns="http://www.w3.org/2000/svg"><circle cx="50" cy="50" r="40" fill="blue"/></svg>`

// wireRequest mirrors the JSON body the Messages endpoint receives.
type wireRequest struct {
	Model     string `json:"model"`
	MaxTokens int64  `json:"max_tokens"`
	System    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

func textResponse(text string) string {
	body, _ := json.Marshal(map[string]any{
		"content": []map[string]string{{"type": "text", "text": text}},
	})
	return string(body)
}

func respondWith(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}
}

func newTestClient(t *testing.T, apiKey string, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(apiKey, "", option.WithBaseURL(srv.URL))
}

func TestCreateRequestShape(t *testing.T) {
	var (
		calls   int
		gotPath string
		gotBody []byte
	)
	client := newTestClient(t, "sk-ant-test", func(w http.ResponseWriter, r *http.Request) {
		calls++
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		respondWith(textResponse(testSVG))(w, r)
	})

	doc, err := client.Create(context.Background(), "a blue circle")
	require.NoError(t, err)
	assert.Equal(t, testSVG, doc)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "/v1/messages", gotPath)

	var req wireRequest
	require.NoError(t, json.Unmarshal(gotBody, &req))
	assert.Equal(t, string(DefaultModel), req.Model)
	assert.Equal(t, int64(4096), req.MaxTokens)
	require.Len(t, req.System, 1)
	assert.Equal(t, systemPrompt, req.System[0].Text)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	require.Len(t, req.Messages[0].Content, 1)
	assert.Equal(t, "Create an SVG image based on this description: a blue circle", req.Messages[0].Content[0].Text)
	assert.Equal(t, 1, strings.Count(string(gotBody), "a blue circle"), "prompt should appear exactly once")
}

func TestEditRequestBlockOrder(t *testing.T) {
	existing := "  <svg height=\"5\">\n  <rect fill=\"red\"/>\n</svg>\n"

	var gotBody []byte
	client := newTestClient(t, "sk-ant-test", func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		respondWith(textResponse(testSVG))(w, r)
	})

	_, err := client.Edit(context.Background(), "make the rect green", existing)
	require.NoError(t, err)

	var req wireRequest
	require.NoError(t, json.Unmarshal(gotBody, &req))
	require.Len(t, req.Messages, 1)
	require.Len(t, req.Messages[0].Content, 2)
	assert.Equal(t, "Here is an SVG file. make the rect green", req.Messages[0].Content[0].Text)
	assert.Equal(t, existing, req.Messages[0].Content[1].Text, "existing document must ride along verbatim")
}

func TestAuthHeaderConsoleKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("ANTHROPIC_AUTH_TOKEN", "")

	var apiKey, authz string
	client := newTestClient(t, "sk-ant-abc123", func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("X-Api-Key")
		authz = r.Header.Get("Authorization")
		respondWith(textResponse(testSVG))(w, r)
	})

	_, err := client.Create(context.Background(), "a circle")
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-abc123", apiKey)
	assert.Empty(t, authz)
}

func TestAuthHeaderBearerToken(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("ANTHROPIC_AUTH_TOKEN", "")

	var apiKey, authz string
	client := newTestClient(t, "some-session-token", func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("X-Api-Key")
		authz = r.Header.Get("Authorization")
		respondWith(textResponse(testSVG))(w, r)
	})

	_, err := client.Create(context.Background(), "a circle")
	require.NoError(t, err)
	assert.Equal(t, "Bearer some-session-token", authz)
	assert.Empty(t, apiKey)
}

// The credential normally arrives through ANTHROPIC_API_KEY, which the SDK
// also reads as a client default. Header selection must still be exclusive.
func TestAuthHeaderBearerTokenFromEnvCredential(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "corporate-gateway-token")

	var apiKey, authz string
	client := newTestClient(t, "corporate-gateway-token", func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("X-Api-Key")
		authz = r.Header.Get("Authorization")
		respondWith(textResponse(testSVG))(w, r)
	})

	_, err := client.Create(context.Background(), "a circle")
	require.NoError(t, err)
	assert.Equal(t, "Bearer corporate-gateway-token", authz)
	assert.Empty(t, apiKey)
}

func TestAuthHeaderConsoleKeyDropsStaleBearerToken(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-abc123")
	t.Setenv("ANTHROPIC_AUTH_TOKEN", "stale-session-token")

	var apiKey, authz string
	client := newTestClient(t, "sk-ant-abc123", func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("X-Api-Key")
		authz = r.Header.Get("Authorization")
		respondWith(textResponse(testSVG))(w, r)
	})

	_, err := client.Create(context.Background(), "a circle")
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-abc123", apiKey)
	assert.Empty(t, authz)
}

func TestProtocolVersionHeader(t *testing.T) {
	var version string
	client := newTestClient(t, "sk-ant-abc123", func(w http.ResponseWriter, r *http.Request) {
		version = r.Header.Get("Anthropic-Version")
		respondWith(textResponse(testSVG))(w, r)
	})

	_, err := client.Create(context.Background(), "a circle")
	require.NoError(t, err)
	assert.Equal(t, "2023-06-01", version)
}

func TestModelSelection(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		respondWith(textResponse(testSVG))(w, r)
	}))
	t.Cleanup(srv.Close)

	client := NewClient("sk-ant-test", ModelClaudeHaiku4_5, option.WithBaseURL(srv.URL))
	_, err := client.Create(context.Background(), "a circle")
	require.NoError(t, err)

	var req wireRequest
	require.NoError(t, json.Unmarshal(gotBody, &req))
	assert.Equal(t, string(ModelClaudeHaiku4_5), req.Model)
}

func TestCreateStripsSurroundingProse(t *testing.T) {
	client := newTestClient(t, "sk-ant-test",
		respondWith(textResponse("Here you go:\n"+testSVG+"\nHope that helps!")))

	doc, err := client.Create(context.Background(), "a circle")
	require.NoError(t, err)
	assert.Equal(t, testSVG, doc)
}

func TestCreateNoSVGInResponse(t *testing.T) {
	client := newTestClient(t, "sk-ant-test",
		respondWith(textResponse("I can only describe the image in words.")))

	_, err := client.Create(context.Background(), "a circle")
	require.ErrorIs(t, err, svg.ErrMissingOpenTag)
}

func TestCreateUnterminatedSVG(t *testing.T) {
	client := newTestClient(t, "sk-ant-test",
		respondWith(textResponse(`<svg width="100"><rect/>`)))

	_, err := client.Create(context.Background(), "a circle")
	require.ErrorIs(t, err, svg.ErrMissingCloseTag)
}

func TestCreateEmptyContent(t *testing.T) {
	client := newTestClient(t, "sk-ant-test", respondWith(`{"content":[]}`))

	_, err := client.Create(context.Background(), "a circle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

// Only block zero is consulted; an SVG in a later block is not found. Known
// limitation of the response handling, kept deliberately.
func TestCreateIgnoresLaterBlocks(t *testing.T) {
	body, _ := json.Marshal(map[string]any{
		"content": []map[string]any{
			{"type": "tool_use", "id": "t1", "name": "draw", "input": map[string]any{}},
			{"type": "text", "text": testSVG},
		},
	})
	client := newTestClient(t, "sk-ant-test", respondWith(string(body)))

	_, err := client.Create(context.Background(), "a circle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not text")
}

func TestCreateServerErrorNoRetry(t *testing.T) {
	var calls int
	client := newTestClient(t, "sk-ant-test", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"type":"error","error":{"type":"api_error","message":"overloaded"}}`)
	})

	_, err := client.Create(context.Background(), "a circle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic API call failed")
	assert.Equal(t, 1, calls, "failed calls are not retried")
}
