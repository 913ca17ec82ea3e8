// Package forecast queries independent forecasting sources for trading
// and lending proposals. Each source is its own failure domain: one
// failing call never disturbs the others.
package forecast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"

	apperrors "monad-trader/internal/errors"
	"monad-trader/internal/models"
)

// Source is one independent forecasting opinion provider.
type Source interface {
	Name() string
	TradeProposal(ctx context.Context, indicators models.MarketIndicators) (models.TradeProposal, error)
	LendingProposal(ctx context.Context, metrics models.LendingMetrics) (models.LendingProposal, error)
}

// ModelSource is an OpenAI-compatible chat-completion source. DeepSeek
// and similar providers differ only in base URL and model name.
type ModelSource struct {
	name   string
	model  string
	client *openai.Client
}

// NewModelSource builds a source against an OpenAI-compatible endpoint.
// An empty baseURL keeps the default OpenAI endpoint.
func NewModelSource(name, baseURL, apiKey, model string) *ModelSource {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &ModelSource{
		name:   name,
		model:  model,
		client: openai.NewClientWithConfig(cfg),
	}
}

// Name identifies the source in provenance annotations and logs.
func (s *ModelSource) Name() string {
	return s.name
}

// TradeProposal asks the model for a trading recommendation over the
// full indicator payload.
func (s *ModelSource) TradeProposal(ctx context.Context, indicators models.MarketIndicators) (models.TradeProposal, error) {
	payload, err := json.Marshal(indicators)
	if err != nil {
		return models.TradeProposal{}, fmt.Errorf("marshal indicators: %w", err)
	}

	raw, err := s.complete(ctx, tradingSystemPrompt, tradingUserPrompt(string(payload)))
	if err != nil {
		return models.TradeProposal{}, apperrors.NewSourceError(s.name, "trade proposal", err)
	}
	return ParseTradeProposal(s.name, raw)
}

// LendingProposal asks the model for a lending strategy over the
// protocol metrics summary.
func (s *ModelSource) LendingProposal(ctx context.Context, metrics models.LendingMetrics) (models.LendingProposal, error) {
	payload, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return models.LendingProposal{}, fmt.Errorf("marshal lending metrics: %w", err)
	}

	raw, err := s.complete(ctx, lendingSystemPrompt, lendingUserPrompt(string(payload)))
	if err != nil {
		return models.LendingProposal{}, apperrors.NewSourceError(s.name, "lending proposal", err)
	}
	return ParseLendingProposal(s.name, raw)
}

func (s *ModelSource) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.2,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}
	return resp.Choices[0].Message.Content, nil
}
