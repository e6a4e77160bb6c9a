package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gabrbl/tilde-news-summary/internal/news"
)

func TestSummarizeBuildsPromptAndReturnsContent(t *testing.T) {
	var gotReq ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "  Quiet session overall.\n"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	sum := NewSummarizer(client, "test-model")

	got, err := sum.Summarize(context.Background(), []news.Article{
		{Time: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), Source: "google", Headline: "Acme beats estimates"},
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "Quiet session overall." {
		t.Errorf("summary = %q", got)
	}

	if gotReq.Model != "test-model" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(gotReq.Messages))
	}
	user := gotReq.Messages[1].Content
	if !strings.Contains(user, "Acme beats estimates") || !strings.Contains(user, "2024-06-03") {
		t.Errorf("user prompt missing article details: %q", user)
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	sum := NewSummarizer(NewClient("k"), "")
	if _, err := sum.Summarize(context.Background(), nil); err == nil {
		t.Error("expected error for empty article list")
	}
}

func TestChatCompletionMissingKey(t *testing.T) {
	c := NewClient("")
	if _, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{}); err == nil {
		t.Error("expected error without API key")
	}
}

func TestChatCompletionAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{Model: "m"})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("err = %v, want api error mentioning 429", err)
	}
}
