// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EmbeddingProvider generates embedding vectors for turn text
type EmbeddingProvider interface {
	// Embed generates an embedding vector for the given text
	Embed(text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for multiple texts
	EmbedBatch(texts []string) ([][]float32, error)

	// GetModelInfo returns information about the embedding model
	GetModelInfo() ModelInfo
}

// TextProvider generates chat completions
type TextProvider interface {
	// Generate produces a completion for the given system and user prompts
	Generate(system, prompt string) (string, error)
}

// ModelInfo contains metadata about the embedding model
type ModelInfo struct {
	Name       string
	Version    string
	Dimensions int
	Provider   string
}

// OpenAIClient talks to an OpenAI-compatible API for both embeddings and
// chat completions. Local runtimes (Ollama, LM Studio, vLLM) expose the
// same surface, so one client covers all of them.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	chatModel  string
	embedModel string
	dimensions int
	maxTokens  int
	httpClient *http.Client
}

// OpenAIEmbeddingRequest represents the request body for the embeddings API
type OpenAIEmbeddingRequest struct {
	Input          interface{} `json:"input"` // string or []string
	Model          string      `json:"model"`
	EncodingFormat string      `json:"encoding_format,omitempty"`
	Dimensions     int         `json:"dimensions,omitempty"`
}

// OpenAIEmbeddingResponse represents the response from the embeddings API
type OpenAIEmbeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// OpenAIChatRequest represents the request body for the chat completions API
type OpenAIChatRequest struct {
	Model     string              `json:"model"`
	Messages  []OpenAIChatMessage `json:"messages"`
	MaxTokens int                 `json:"max_tokens,omitempty"`
}

// OpenAIChatMessage is a single chat message
type OpenAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIChatResponse represents the response from the chat completions API
type OpenAIChatResponse struct {
	Choices []struct {
		Message      OpenAIChatMessage `json:"message"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
}

// OpenAIErrorResponse represents an API error response
type OpenAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// NewOpenAIClient creates a client against an OpenAI-compatible base URL
func NewOpenAIClient(baseURL, apiKey, chatModel, embedModel string, dimensions, maxTokens int, timeout time.Duration) *OpenAIClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		chatModel:  chatModel,
		embedModel: embedModel,
		dimensions: dimensions,
		maxTokens:  maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Embed generates an embedding vector for the given text
func (c *OpenAIClient) Embed(text string) ([]float32, error) {
	vectors, err := c.EmbedBatch([]string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vectors[0], nil
}

// EmbedBatch generates embedding vectors for multiple texts
func (c *OpenAIClient) EmbedBatch(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	reqBody := OpenAIEmbeddingRequest{
		Input: texts,
		Model: c.embedModel,
	}

	// Only include dimensions if explicitly set and supported by model
	if c.dimensions > 0 {
		reqBody.Dimensions = c.dimensions
	}

	body, err := c.post("/embeddings", reqBody)
	if err != nil {
		return nil, err
	}

	var embResp OpenAIEmbeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// Sort by index to ensure correct order
	vectors := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index < len(vectors) {
			vectors[data.Index] = data.Embedding
		}
	}

	return vectors, nil
}

// Generate produces a chat completion for the given prompts
func (c *OpenAIClient) Generate(system, prompt string) (string, error) {
	messages := []OpenAIChatMessage{}
	if system != "" {
		messages = append(messages, OpenAIChatMessage{Role: "system", Content: system})
	}
	messages = append(messages, OpenAIChatMessage{Role: "user", Content: prompt})

	reqBody := OpenAIChatRequest{
		Model:     c.chatModel,
		Messages:  messages,
		MaxTokens: c.maxTokens,
	}

	body, err := c.post("/chat/completions", reqBody)
	if err != nil {
		return "", err
	}

	var chatResp OpenAIChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// post sends a JSON request and returns the raw success body
func (c *OpenAIClient) post(path string, reqBody interface{}) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp OpenAIErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("API error: %s", errResp.Error.Message)
		}
		return nil, fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	return body, nil
}

// GetModelInfo returns information about the embedding model
func (c *OpenAIClient) GetModelInfo() ModelInfo {
	return ModelInfo{
		Name:       c.embedModel,
		Version:    "v1",
		Dimensions: c.dimensions,
		Provider:   "openai",
	}
}

// MockProvider is a mock implementation for testing
type MockProvider struct {
	EmbedFunc    func(text string) ([]float32, error)
	GenerateFunc func(system, prompt string) (string, error)
	CallCount    int
	ModelInfo    ModelInfo
}

// Embed calls the mock function
func (m *MockProvider) Embed(text string) ([]float32, error) {
	m.CallCount++
	if m.EmbedFunc != nil {
		return m.EmbedFunc(text)
	}
	return make([]float32, 8), nil
}

// EmbedBatch calls Embed for each text
func (m *MockProvider) EmbedBatch(texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Generate calls the mock function
func (m *MockProvider) Generate(system, prompt string) (string, error) {
	m.CallCount++
	if m.GenerateFunc != nil {
		return m.GenerateFunc(system, prompt)
	}
	return "", fmt.Errorf("no mock generation configured")
}

// GetModelInfo returns mock model info
func (m *MockProvider) GetModelInfo() ModelInfo {
	if m.ModelInfo.Name != "" {
		return m.ModelInfo
	}
	return ModelInfo{
		Name:       "mock-model",
		Version:    "v1",
		Dimensions: 8,
		Provider:   "mock",
	}
}
