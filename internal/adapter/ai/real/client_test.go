package real_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/excel-interviewer/internal/adapter/ai/real"
	"github.com/fairyhunter13/excel-interviewer/internal/config"
	"github.com/fairyhunter13/excel-interviewer/internal/domain"
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}))
}

func testCfg(baseURL string) config.Config {
	return config.Config{
		OpenRouterAPIKey:  "test-key",
		OpenRouterBaseURL: baseURL,
		ChatModel:         "test-model",
	}
}

func TestChatJSON_Success(t *testing.T) {
	t.Parallel()
	srv := chatServer(t, http.StatusOK, "```json\n{\"overall_score\": 8}\n```")
	defer srv.Close()

	c := real.New(testCfg(srv.URL))
	out, err := c.ChatJSON(context.Background(), "system", "user", 100)
	require.NoError(t, err)
	assert.JSONEq(t, `{"overall_score": 8}`, out)
}

func TestChatJSON_MissingKey(t *testing.T) {
	t.Parallel()
	c := real.New(config.Config{OpenRouterBaseURL: "http://unused"})
	_, err := c.ChatJSON(context.Background(), "s", "u", 100)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestChatJSON_Non2xx(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := real.New(testCfg(srv.URL))
	_, err := c.ChatJSON(context.Background(), "s", "u", 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestChatJSON_NonJSONContent(t *testing.T) {
	t.Parallel()
	srv := chatServer(t, http.StatusOK, "sorry, I cannot answer that")
	defer srv.Close()

	c := real.New(testCfg(srv.URL))
	_, err := c.ChatJSON(context.Background(), "s", "u", 100)
	assert.ErrorIs(t, err, domain.ErrSchemaInvalid)
}

func TestChatJSON_EmptyChoices(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	c := real.New(testCfg(srv.URL))
	_, err := c.ChatJSON(context.Background(), "s", "u", 100)
	assert.ErrorIs(t, err, domain.ErrSchemaInvalid)
}
