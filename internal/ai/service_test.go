// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedText_GracefulDegradation(t *testing.T) {
	failing := &MockProvider{
		EmbedFunc: func(text string) ([]float32, error) {
			return nil, fmt.Errorf("provider down")
		},
	}
	svc := NewServiceWithProviders(failing, failing)

	assert.Nil(t, svc.EmbedText("some text"))
	assert.Equal(t, 1, failing.CallCount)
}

func TestEmbedText_DisabledService(t *testing.T) {
	mock := &MockProvider{}
	svc := NewServiceWithProviders(mock, mock)
	svc.SetEnabled(false)

	assert.Nil(t, svc.EmbedText("some text"))
	assert.Equal(t, 0, mock.CallCount, "disabled service must not call the provider")
}

func TestEmbedText_EmptyInput(t *testing.T) {
	mock := &MockProvider{}
	svc := NewServiceWithProviders(mock, mock)

	assert.Nil(t, svc.EmbedText(""))
	assert.Equal(t, 0, mock.CallCount)
}

func TestCompose_ParsesStrictJSON(t *testing.T) {
	mock := &MockProvider{
		GenerateFunc: func(system, prompt string) (string, error) {
			return `{"answer":"Black holes trap light.","summary":"Explained black holes.","keywords":["black hole","gravity"]}`, nil
		},
	}
	svc := NewServiceWithProviders(mock, mock)

	draft := svc.Compose("What is a black hole?", "")
	assert.Equal(t, "Black holes trap light.", draft.Answer)
	assert.Equal(t, "Explained black holes.", draft.Summary)
	assert.Equal(t, []string{"black hole", "gravity"}, draft.Keywords)
}

func TestCompose_StripsCodeFences(t *testing.T) {
	mock := &MockProvider{
		GenerateFunc: func(system, prompt string) (string, error) {
			return "```json\n{\"answer\":\"ok\",\"summary\":\"s\",\"keywords\":[\"k\"]}\n```", nil
		},
	}
	svc := NewServiceWithProviders(mock, mock)

	draft := svc.Compose("q", "")
	assert.Equal(t, "ok", draft.Answer)
}

func TestCompose_RepairsTruncatedJSON(t *testing.T) {
	mock := &MockProvider{
		GenerateFunc: func(system, prompt string) (string, error) {
			// Output cut off mid answer, no closing quote or brace
			return `{"answer": "The deploy failed because the migr`, nil
		},
	}
	svc := NewServiceWithProviders(mock, mock)

	draft := svc.Compose("q", "")
	assert.Contains(t, draft.Answer, "The deploy failed because the migr")
	assert.Contains(t, draft.Answer, "truncated")
	assert.Equal(t, []string{"truncated"}, draft.Keywords)
}

func TestCompose_PlaceholderOnProviderError(t *testing.T) {
	mock := &MockProvider{
		GenerateFunc: func(system, prompt string) (string, error) {
			return "", fmt.Errorf("timeout")
		},
	}
	svc := NewServiceWithProviders(mock, mock)

	draft := svc.Compose("q", "")
	require.NotNil(t, draft)
	assert.NotEmpty(t, draft.Answer)
	assert.Equal(t, "Error occurred", draft.Summary)
}

func TestCompose_IncludesContextInPrompt(t *testing.T) {
	var seenPrompt string
	mock := &MockProvider{
		GenerateFunc: func(system, prompt string) (string, error) {
			seenPrompt = prompt
			return `{"answer":"a","summary":"s","keywords":[]}`, nil
		},
	}
	svc := NewServiceWithProviders(mock, mock)

	svc.Compose("the question", "turn 3: we chose sqlite")
	assert.Contains(t, seenPrompt, "we chose sqlite")
	assert.Contains(t, seenPrompt, "the question")
}

func TestGenerateTitle(t *testing.T) {
	mock := &MockProvider{
		GenerateFunc: func(system, prompt string) (string, error) {
			return "\"**Deploy Pipeline Debugging**\"", nil
		},
	}
	svc := NewServiceWithProviders(mock, mock)

	assert.Equal(t, "Deploy Pipeline Debugging", svc.GenerateTitle("why did the deploy fail"))
}

func TestGenerateTitle_FallbackOnError(t *testing.T) {
	mock := &MockProvider{
		GenerateFunc: func(system, prompt string) (string, error) {
			return "", fmt.Errorf("unavailable")
		},
	}
	svc := NewServiceWithProviders(mock, mock)

	assert.Equal(t, "New Conversation", svc.GenerateTitle("hello"))
	assert.Equal(t, "New Conversation", svc.GenerateTitle(""))
}

func TestOpenAIClient_EmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req OpenAIEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Answer out of order; the client must restore index order
		fmt.Fprint(w, `{"object":"list","data":[
			{"object":"embedding","index":1,"embedding":[0.4,0.5]},
			{"object":"embedding","index":0,"embedding":[0.1,0.2]}
		],"model":"test-embed"}`)
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "test-key", "chat", "test-embed", 2, 0, 5*time.Second)

	vectors, err := client.EmbedBatch([]string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0.1, 0.2}, vectors[0])
	assert.Equal(t, []float32{0.4, 0.5}, vectors[1])
}

func TestOpenAIClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req OpenAIChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hello there"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "", "chat-model", "embed-model", 0, 256, 5*time.Second)

	out, err := client.Generate("be brief", "say hello")
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
}

func TestOpenAIClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error","code":"invalid_api_key"}}`)
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "wrong", "chat", "embed", 0, 0, 5*time.Second)

	_, err := client.Embed("text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}
