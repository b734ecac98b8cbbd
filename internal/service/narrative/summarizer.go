// internal/service/narrative/summarizer.go

package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"

	"mediaintel/internal/domain/dashboard"
	"mediaintel/internal/domain/mention"
)

const maxPromptLength = 6000

// Config holds narrative summarizer settings
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

// ChatClient is the part of the OpenAI client the summarizer uses
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Summarizer writes a short narrative from a dashboard's figures and insights
type Summarizer struct {
	client    ChatClient
	model     string
	maxTokens int
}

// NewSummarizer creates a summarizer backed by the OpenAI API.
// It returns nil when no API key is configured.
func NewSummarizer(cfg Config) *Summarizer {
	if cfg.APIKey == "" {
		return nil
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return NewSummarizerWithClient(openai.NewClientWithConfig(clientConfig), cfg)
}

// NewSummarizerWithClient creates a summarizer around an existing client
func NewSummarizerWithClient(client ChatClient, cfg Config) *Summarizer {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 250
	}

	return &Summarizer{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}
}

// Summarize asks the model for a short executive summary of the dashboard
func (s *Summarizer) Summarize(ctx context.Context, d *dashboard.Dashboard) (string, error) {
	prompt := buildPrompt(d)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You are a media analyst who writes concise executive summaries of media-monitoring dashboards.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   s.maxTokens,
			N:           1,
			Temperature: 0.4,
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai chat completion error: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.New("openai returned empty response or choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildPrompt(d *dashboard.Dashboard) string {
	var b strings.Builder
	s := d.Summary

	b.WriteString("Write a 3-4 sentence summary of this media coverage for a communications team.\n\n")
	fmt.Fprintf(&b, "Mentions: %d\nEngagements: %.0f\nReach: %.0f\n", s.TotalMentions, s.TotalEngagements, s.TotalReach)
	if !s.From.IsZero() {
		fmt.Fprintf(&b, "Period: %s to %s\n", s.From.Format(mention.DateLayout), s.To.Format(mention.DateLayout))
	}
	fmt.Fprintf(&b, "Positive share: %.1f%%\nNegative share: %.1f%%\n", s.PositiveShare*100, s.NegativeShare*100)
	if key := d.Filter.Key(); key != "" {
		fmt.Fprintf(&b, "Filters: %s\n", key)
	}

	b.WriteString("\nInsights:\n")
	for _, c := range d.Charts {
		if c.Empty {
			continue
		}
		for _, insight := range c.Insights {
			fmt.Fprintf(&b, "- %s: %s\n", c.Title, insight)
		}
	}

	return truncate(b.String(), maxPromptLength)
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
