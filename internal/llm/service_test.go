package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 0,
  "model": "gpt-4o-mini",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Mist rises over the forest."}}],
  "usage": {"prompt_tokens": 30, "completion_tokens": 6, "total_tokens": 36}
}`

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewService("test-key", "", nil, option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
}

func TestGenerateSendsPromptAndReturnsContent(t *testing.T) {
	var got map[string]any
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody)
	})

	ctx := WithOperationType(context.Background(), "narration.setup")
	text, err := svc.Generate(ctx, "Describe the forest.", 64)

	require.NoError(t, err)
	assert.Equal(t, "Mist rises over the forest.", text)
	assert.Equal(t, DefaultModel, got["model"])
	assert.EqualValues(t, 64, got["max_completion_tokens"])
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "Describe the forest.", messages[1].(map[string]any)["content"])
}

func TestGenerateWrapsServiceErrors(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error": {"message": "overloaded", "type": "server_error"}}`)
	})

	_, err := svc.Generate(context.Background(), "prompt", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text completion failed")
}

func TestGenerateRejectsEmptyChoices(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id": "x", "object": "chat.completion", "created": 0, "model": "m", "choices": []}`)
	})

	_, err := svc.Generate(context.Background(), "prompt", 10)
	assert.EqualError(t, err, "no completion choices returned")
}

func TestNewServiceModelOverride(t *testing.T) {
	assert.Equal(t, "gpt-4.1", NewService("k", "gpt-4.1", nil).Model())
	assert.Equal(t, DefaultModel, NewService("k", " ", nil).Model())
}
