package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/testforge/pkg/llm"
	"github.com/entrhq/testforge/pkg/types"
)

func sseServer(t *testing.T, lines []string, gotBody *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		if gotBody != nil {
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, gotBody))
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, l := range lines {
			fmt.Fprintf(w, "%s\n\n", l)
		}
	}))
}

func TestNewProviderRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewProvider("")
	require.Error(t, err)

	t.Setenv("OPENAI_API_KEY", "sk-env")
	p, err := NewProvider("")
	require.NoError(t, err)
	assert.Equal(t, "sk-env", p.GetAPIKey())
	assert.Equal(t, DefaultModel, p.GetModel())
}

func TestNewProviderOptions(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "")
	p, err := NewProvider("sk-test", WithModel("gpt-4o-mini"), WithBaseURL("http://localhost:8080/v1/"))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", p.GetModel())
	assert.Equal(t, "http://localhost:8080/v1", p.GetBaseURL())
	assert.Equal(t, "gpt-4o-mini", p.GetModelInfo().Name)
	assert.Equal(t, "http://localhost:8080/v1", p.GetModelInfo().Metadata["base_url"])
}

func TestStreamCompletion(t *testing.T) {
	var body map[string]interface{}
	srv := sseServer(t, []string{
		": keep-alive comment",
		`data: {"choices":[{"delta":{"role":"assistant","content":""}}]}`,
		`data: {"choices":[{"delta":{"content":"<tool>"}}]}`,
		`data: not-json`,
		`data: {"choices":[{"delta":{"content":"</tool>"},"finish_reason":"stop"}]}`,
		`data: {"choices":[],"usage":{"prompt_tokens":42,"completion_tokens":3,"total_tokens":45}}`,
		`data: [DONE]`,
	}, &body)
	defer srv.Close()

	p, err := NewProvider("sk-test", WithBaseURL(srv.URL), WithTemperature(0))
	require.NoError(t, err)

	stream, err := p.StreamCompletion(context.Background(), []*types.Message{
		types.NewSystemMessage("system"),
		types.NewUserMessage("hi"),
	})
	require.NoError(t, err)

	msg, usage, err := llm.Collect(stream)
	require.NoError(t, err)
	assert.Equal(t, types.RoleAssistant, msg.Role)
	assert.Equal(t, "<tool></tool>", msg.Content)
	require.NotNil(t, usage)
	assert.Equal(t, 45, usage.TotalTokens)

	assert.Equal(t, true, body["stream"])
	assert.Equal(t, DefaultModel, body["model"])
	assert.Equal(t, float64(0), body["temperature"])
	msgs, ok := body["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestStreamCompletionHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, err := NewProvider("sk-test", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = p.StreamCompletion(context.Background(), []*types.Message{types.NewUserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestComplete(t *testing.T) {
	srv := sseServer(t, []string{
		`data: {"choices":[{"delta":{"role":"assistant","content":"hello"}}]}`,
		`data: [DONE]`,
	}, nil)
	defer srv.Close()

	p, err := NewProvider("sk-test", WithBaseURL(srv.URL))
	require.NoError(t, err)

	msg, err := p.Complete(context.Background(), []*types.Message{types.NewUserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
}

func TestConvertToOpenAIMessages(t *testing.T) {
	out := convertToOpenAIMessages([]*types.Message{
		types.NewSystemMessage("s"),
		types.NewUserMessage("u"),
		types.NewAssistantMessage("a"),
		{Role: "tool", Content: "t"},
	})
	require.Len(t, out, 4)
	assert.NotNil(t, out[0].OfSystem)
	assert.NotNil(t, out[1].OfUser)
	assert.NotNil(t, out[2].OfAssistant)
	assert.NotNil(t, out[3].OfUser)
}
