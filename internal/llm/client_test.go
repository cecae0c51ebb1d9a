package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) *Config {
	return &Config{
		APIKey:      "test-key",
		APIURL:      url,
		Model:       "test-model",
		MaxTokens:   64,
		Temperature: 0.2,
		Timeout:     5,
	}
}

const okResponse = `{
	"id": "test-id",
	"object": "chat.completion",
	"created": 1234567890,
	"model": "test-model",
	"choices": [{
		"index": 0,
		"message": {"role": "assistant", "content": "hello"},
		"finish_reason": "stop"
	}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 1, "total_tokens": 11}
}`

func TestNewClient(t *testing.T) {
	config := testConfig("https://api.example.com")

	client, err := NewClient(config)
	require.NoError(t, err)
	assert.Equal(t, config.APIURL, client.baseURL)
	assert.Equal(t, "test-model", client.Model())

	_, err = NewClient(&Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestConfig_Headers(t *testing.T) {
	withKey := testConfig("http://x")
	assert.Equal(t, "Bearer test-key", withKey.GetHeaders()["Authorization"])

	local := testConfig("http://x")
	local.APIKey = ""
	require.NoError(t, local.Validate())
	_, ok := local.GetHeaders()["Authorization"]
	assert.False(t, ok)
}

func TestSimpleChat(t *testing.T) {
	var got ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okResponse))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	reply, err := client.SimpleChat(context.Background(), "Translate 'hola'", "be brief")
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "be brief", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, 64, got.MaxTokens)
	assert.InDelta(t, 0.2, got.Temperature, 1e-9)
}

func TestClientErrorHandling(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:    "api error payload",
			status:  http.StatusUnauthorized,
			body:    `{"error": {"message": "Invalid API key", "type": "invalid_request_error", "code": "invalid_api_key"}}`,
			wantErr: "Invalid API key",
		},
		{
			name:    "plain text failure",
			status:  http.StatusBadGateway,
			body:    `upstream unavailable`,
			wantErr: "status 502",
		},
		{
			name:    "invalid json",
			status:  http.StatusOK,
			body:    `{"choices": [`,
			wantErr: "failed to parse response",
		},
		{
			name:    "no choices",
			status:  http.StatusOK,
			body:    `{"choices": []}`,
			wantErr: "no choices in response",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := NewClient(testConfig(server.URL))
			require.NoError(t, err)

			_, err = client.SimpleChat(context.Background(), "hi", "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClientContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.SimpleChat(ctx, "hi", "")
	assert.Error(t, err)
}

func TestClientConcurrentRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okResponse))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.SimpleChat(context.Background(), "hi", "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
