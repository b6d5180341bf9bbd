package local

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/4xachi/pcast/internal/config"
	"github.com/4xachi/pcast/internal/scriptgen"
)

func TestGenerator_CompleteOllama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "llama3" || body["stream"] != false {
			t.Errorf("unexpected request %v", body)
		}
		_, _ = w.Write([]byte(`{"model":"llama3","response":"Sam: Hi.","done":true}`))
	}))
	defer srv.Close()

	text, err := New(config.LocalConfig{Endpoint: srv.URL}).Complete(context.Background(), scriptgen.Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Sam: Hi." {
		t.Errorf("unexpected text %q", text)
	}
}

func TestExtractContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"chat", `{"choices":[{"message":{"content":"a"}}]}`, "a"},
		{"ollama", `{"response":"b"}`, "b"},
		{"garbage", `not json`, ""},
	}
	for _, tt := range tests {
		if got := extractContent([]byte(tt.in)); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, got)
		}
	}
}

func TestGenerator_CompleteStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := New(config.LocalConfig{Endpoint: srv.URL}).Complete(context.Background(), scriptgen.Request{}); err == nil {
		t.Fatal("expected error")
	}
}
