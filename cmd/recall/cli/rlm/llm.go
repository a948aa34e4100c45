package rlm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrLlmCallFailed tags transport and API failures from the local LLM.
var ErrLlmCallFailed = errors.New("llm-call-failed")

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LlmEffect performs one chat completion. The REPL and the sandbox only see
// this signature; tests inject scripted implementations.
type LlmEffect func(ctx context.Context, messages []Message) (string, error)

// ollamaRequest is the non-streaming Ollama /api/chat request body.
type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	NumPredict int `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

// OllamaClient talks to a local Ollama chat endpoint.
type OllamaClient struct {
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// NewOllamaClient builds a client from the RLM config. The per-call timeout
// comes from timeoutMs.
func NewOllamaClient(cfg Config) *OllamaClient {
	return &OllamaClient{
		baseURL:   strings.TrimSuffix(cfg.Endpoint, "/"),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
		},
	}
}

// Chat performs one non-streaming chat completion and returns the assistant
// message content.
func (c *OllamaClient) Chat(ctx context.Context, messages []Message) (string, error) {
	reqBody := ollamaRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	}
	if c.maxTokens > 0 {
		reqBody.Options = &ollamaOptions{NumPredict: c.maxTokens}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: encoding request: %v", ErrLlmCallFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLlmCallFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLlmCallFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrLlmCallFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrLlmCallFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrLlmCallFailed, err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrLlmCallFailed, parsed.Error)
	}
	return parsed.Message.Content, nil
}
