package invoice

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/invoice-agent/internal/ai"
)

// summaryGenerator is the slice of the LLM gateway the summarizer needs.
type summaryGenerator interface {
	Generate(ctx context.Context, req ai.GenerateRequest) (string, error)
}

const summarySystemPrompt = `You write invoice line item descriptions for a freelancer.
Given several work log descriptions for the same project and category, produce ONE concise, professional line item description (at most 15 words).
Respond with the description text only. No quotes, no bullet points, no commentary.`

// AISummarizer generates combined line-item descriptions through the LLM
// gateway. The engine falls back to deterministic labels whenever it fails,
// so the summarizer surfaces errors instead of guessing.
type AISummarizer struct {
	gateway summaryGenerator
}

// NewAISummarizer creates a summarizer backed by the gateway.
func NewAISummarizer(gateway summaryGenerator) *AISummarizer {
	return &AISummarizer{gateway: gateway}
}

// SummarizeCategory produces a single description covering the partition.
func (s *AISummarizer) SummarizeCategory(ctx context.Context, project string, category string, descriptions []string) (string, error) {
	if category == "" {
		category = "general work"
	}
	prompt := fmt.Sprintf("Project: %s\nCategory: %s\n\nWork performed:\n- %s",
		project, category, strings.Join(descriptions, "\n- "))

	summary, err := s.gateway.Generate(ctx, ai.GenerateRequest{
		Prompt:       prompt,
		SystemPrompt: summarySystemPrompt,
		Temperature:  0.3,
		MaxTokens:    100,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(summary), `"`)), nil
}
