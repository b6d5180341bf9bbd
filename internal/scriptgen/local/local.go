// Package local implements the script Generator using a self-hosted model.
//
// It targets Ollama's /api/generate endpoint and also understands
// OpenAI-compatible chat responses (vLLM, llama.cpp server) so either kind of
// server can sit behind the configured endpoint.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/4xachi/pcast/internal/config"
	"github.com/4xachi/pcast/internal/scriptgen"
)

// Generator uses a self-hosted LLM for script generation.
type Generator struct {
	endpoint string
	model    string
	client   *http.Client
}

// New creates a new local generator from config.
func New(cfg config.LocalConfig) *Generator {
	model := cfg.Model
	if model == "" {
		model = "llama3"
	}
	return &Generator{
		endpoint: cfg.Endpoint,
		model:    model,
		client:   &http.Client{},
	}
}

// Name returns the backend identifier.
func (g *Generator) Name() string { return "local" }

// Complete sends the prompt to the local model endpoint.
func (g *Generator) Complete(ctx context.Context, req scriptgen.Request) (string, error) {
	reqBody := map[string]any{
		"model":  g.model,
		"prompt": req.Prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": req.Temperature,
			"num_predict": req.MaxTokens,
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshalling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("reading llm response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(data) > 2048 {
			data = data[:2048]
		}
		return "", fmt.Errorf("llm failed (status %d): %s", resp.StatusCode, data)
	}

	content := extractContent(data)
	if content == "" {
		return "", fmt.Errorf("llm response has no content: %.200s", data)
	}

	slog.Debug("local completion", "model", g.model, "chars", len(content))
	return content, nil
}

// Close is a no-op for the local generator.
func (g *Generator) Close() error { return nil }

// extractContent pulls the text out of an OpenAI-style or Ollama-style response.
func extractContent(data []byte) string {
	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &chatResp); err == nil && len(chatResp.Choices) > 0 {
		return chatResp.Choices[0].Message.Content
	}

	var ollamaResp struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(data, &ollamaResp); err == nil {
		return ollamaResp.Response
	}
	return ""
}
