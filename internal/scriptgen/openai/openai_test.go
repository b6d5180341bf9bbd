package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/4xachi/pcast/internal/config"
	"github.com/4xachi/pcast/internal/scriptgen"
)

func TestGenerator_Complete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Sam: Hi.\nRobin: Hello."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	g := New(config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o", BaseURL: srv.URL + "/v1/"})
	text, err := g.Complete(context.Background(), scriptgen.Request{Prompt: "write", Temperature: 0.8, MaxTokens: 4000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Sam: Hi.\nRobin: Hello." {
		t.Errorf("unexpected text %q", text)
	}
	if got.Model != "gpt-4o" || got.MaxTokens != 4000 || len(got.Messages) != 2 || got.Messages[1].Content != "write" {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestGenerator_CompleteErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantBlocked bool
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, false},
		{"filtered request", http.StatusBadRequest, `{"error":{"code":"content_filter"}}`, true},
		{"filtered completion", http.StatusOK, `{"choices":[{"message":{"content":""},"finish_reason":"content_filter"}]}`, true},
		{"no choices", http.StatusOK, `{"choices":[]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(config.OpenAIConfig{BaseURL: srv.URL}).Complete(context.Background(), scriptgen.Request{Prompt: "x"})
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, scriptgen.ErrContentBlocked) != tt.wantBlocked {
				t.Errorf("expected blocked=%v, got %v", tt.wantBlocked, err)
			}
			if tt.status == http.StatusInternalServerError && !strings.Contains(err.Error(), "500") {
				t.Errorf("expected status in error, got %v", err)
			}
		})
	}
}
