package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageza/mealplanner/backend/internal/apperrors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{Provider: "groq", APIKey: "test-key", BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func completion(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []interface{}{
			map[string]interface{}{"message": map[string]interface{}{"role": "assistant", "content": content}},
		},
	}
}

func TestNewClient(t *testing.T) {
	t.Run("should apply provider defaults", func(t *testing.T) {
		client, err := NewClient(Config{Provider: "OpenAI", APIKey: "k"}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, "openai", client.Provider())
		assert.Equal(t, "gpt-3.5-turbo", client.model)
		assert.Equal(t, "https://api.openai.com/v1", client.baseURL)
	})

	t.Run("should reject unknown providers", func(t *testing.T) {
		client, err := NewClient(Config{Provider: "mystery"}, zap.NewNop())
		assert.Nil(t, client)
		assert.Error(t, err)
	})
}

func TestClient_GenerateText(t *testing.T) {
	t.Run("should send a chat completion request", func(t *testing.T) {
		var got ChatCompletionRequest
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_ = json.NewEncoder(w).Encode(completion("hello"))
		})

		text, err := client.GenerateText(context.Background(), "say hi", WithTemperature(0.2))
		require.NoError(t, err)
		assert.Equal(t, "hello", text)
		assert.Equal(t, "llama-3.3-70b-versatile", got.Model)
		require.Len(t, got.Messages, 1)
		assert.Equal(t, Message{Role: "user", Content: "say hi"}, got.Messages[0])
		require.NotNil(t, got.Temperature)
		assert.InDelta(t, 0.2, *got.Temperature, 0.0001)
	})

	t.Run("should map provider statuses to error codes", func(t *testing.T) {
		cases := []struct {
			status   int
			code     apperrors.Code
			httpCode int
		}{
			{http.StatusTooManyRequests, apperrors.CodeRateLimited, http.StatusTooManyRequests},
			{http.StatusUnauthorized, apperrors.CodeUnauthorized, http.StatusBadGateway},
			{http.StatusBadRequest, apperrors.CodeBadRequest, http.StatusBadRequest},
			{http.StatusInternalServerError, apperrors.CodeProviderError, http.StatusBadGateway},
			{http.StatusServiceUnavailable, apperrors.CodeProviderError, http.StatusBadGateway},
		}
		for _, tc := range cases {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":{"message":"provider says no"}}`))
			})

			_, err := client.GenerateText(context.Background(), "p")
			require.Error(t, err)
			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tc.code, appErr.Code, "status %d", tc.status)
			assert.Equal(t, tc.httpCode, appErr.StatusCode(), "status %d", tc.status)
			assert.Equal(t, "provider says no", appErr.Details)
		}
	})

	t.Run("should treat an empty choice list as a provider error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		})

		_, err := client.GenerateText(context.Background(), "p")
		assert.True(t, apperrors.Is(err, apperrors.CodeProviderError))
	})
}

func TestClient_GenerateJSON(t *testing.T) {
	t.Run("should strip code fences before parsing", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(completion("```json\n{\"recipes\": [{\"name\": \"Soup\"}]}\n```"))
		})

		out, err := client.GenerateJSON(context.Background(), "p")
		require.NoError(t, err)
		recipes, ok := out["recipes"].([]interface{})
		require.True(t, ok)
		assert.Len(t, recipes, 1)
	})

	t.Run("should report malformed JSON distinctly", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(completion("Here are your recipes: {oops"))
		})

		_, err := client.GenerateJSON(context.Background(), "p")
		assert.True(t, apperrors.Is(err, apperrors.CodeMalformedResponse))
	})
}

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                  "{\"a\":1}",
		"```json\n{\"a\":1}\n```":    "{\"a\":1}",
		"```\n{\"a\":1}\n```":        "{\"a\":1}",
		"```JSON {\"a\":1}```":       "{\"a\":1}",
		"  \n```json\n[1,2]\n```\n ": "[1,2]",
	}
	for in, want := range cases {
		assert.Equal(t, want, StripCodeFences(in), in)
	}
}
