// Package openai implements the script Generator using OpenAI's Chat
// Completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/4xachi/pcast/internal/config"
	"github.com/4xachi/pcast/internal/scriptgen"
)

const systemPrompt = "You are a podcast scriptwriter. You write natural two-person dialogue, one speaker turn per line, in the form \"Name: dialogue\"."

// Generator uses the OpenAI Chat Completions API.
type Generator struct {
	apiKey  string
	model   string
	chatURL string
	client  *http.Client
}

// New creates a new OpenAI generator from config.
func New(cfg config.OpenAIConfig) *Generator {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	return &Generator{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		chatURL: strings.TrimRight(base, "/") + "/chat/completions",
		client:  &http.Client{},
	}
}

// Name returns the backend identifier.
func (g *Generator) Name() string { return "openai" }

// Complete sends the prompt to the Chat Completions API.
func (g *Generator) Complete(ctx context.Context, req scriptgen.Request) (string, error) {
	reqBody := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshalling chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.chatURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if resp.StatusCode == http.StatusBadRequest && bytes.Contains(respBody, []byte("content_filter")) {
			return "", fmt.Errorf("%w: %s", scriptgen.ErrContentBlocked, respBody)
		}
		return "", fmt.Errorf("chat failed (status %d): %s", resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from chat API")
	}

	choice := chatResp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", scriptgen.ErrContentBlocked
	}

	slog.Debug("chat completion", "model", g.model, "finish_reason", choice.FinishReason, "chars", len(choice.Message.Content))
	return choice.Message.Content, nil
}

// Close is a no-op for the OpenAI generator.
func (g *Generator) Close() error { return nil }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
