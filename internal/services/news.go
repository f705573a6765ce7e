package services

import (
	"context"
	"log/slog"

	"thomas-backend/internal/perplexity"
)

const newsSystemPrompt = "You are Thomas, a helpful news assistant. Provide brief, informative news updates with recent information. " +
	"Use bullet points for clarity. Keep it concise and professional. No need to repeatedly introduce yourself. " +
	"Focus on the news content with dates when available."

const DefaultNewsQuery = "latest technology trends"

type NewsService struct {
	llm *perplexity.Client
}

func NewNewsService(llm *perplexity.Client) *NewsService {
	return &NewsService{llm: llm}
}

// Fetch returns a news update for the query, or a canned blurb when the
// completion API is unconfigured or failing. Nothing is persisted.
func (s *NewsService) Fetch(ctx context.Context, query string) string {
	if query == "" {
		query = DefaultNewsQuery
	}

	if !s.llm.Configured() {
		return DemoNews()
	}

	messages := []perplexity.Message{
		{Role: "system", Content: newsSystemPrompt},
		{Role: "user", Content: "Latest news update about: " + query},
	}

	text, outcome := s.llm.Complete(ctx, messages)
	if outcome != perplexity.OutcomeOK {
		slog.Warn("News completion failed, serving demo news", "outcome", outcome.String())
		return DemoNews()
	}
	return cleanReply(text)
}
