package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/gabrbl/tilde-news-summary/internal/news"
)

const summarySystemPrompt = `You are a financial news editor. Given a list of headlines with their sources and publication dates, write a single short paragraph summarizing the key developments. Be concise and neutral. Do not list the headlines back; synthesize them. Plain text only.`

// Summarizer condenses article lists into a short synopsis via a chat model.
type Summarizer struct {
	client ChatClient
	model  string
}

// NewSummarizer creates a Summarizer using the given chat client and model.
func NewSummarizer(client ChatClient, model string) *Summarizer {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Summarizer{client: client, model: model}
}

// Summarize implements news.Summarizer.
func (s *Summarizer) Summarize(ctx context.Context, articles []news.Article) (string, error) {
	if len(articles) == 0 {
		return "", fmt.Errorf("llm: nothing to summarize")
	}

	resp, err := s.client.ChatCompletion(ctx, ChatCompletionRequest{
		Model: s.model,
		Messages: []Message{
			{Role: "system", Content: summarySystemPrompt},
			{Role: "user", Content: formatArticles(articles)},
		},
		Temperature: 0.3,
		MaxTokens:   300,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: empty completion")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func formatArticles(articles []news.Article) string {
	var b strings.Builder
	for _, a := range articles {
		fmt.Fprintf(&b, "- [%s] %s (%s)\n", a.Source, a.Headline, a.Time.Format("2006-01-02"))
	}
	return b.String()
}
