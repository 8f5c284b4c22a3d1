package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/noah-isme/gettogather-api/internal/models"
	"github.com/noah-isme/gettogather-api/pkg/config"
)

// Extraction is the structured filter set returned by the language model.
type Extraction struct {
	SearchTerm string             `json:"searchTerm,omitempty"`
	Category   models.Category    `json:"category,omitempty"`
	Status     models.EventStatus `json:"status,omitempty"`
	DateRange  models.DateRange   `json:"dateRange,omitempty"`
}

// Extractor turns free text into structured filters.
type Extractor interface {
	Configured() bool
	Extract(ctx context.Context, query string) (Extraction, error)
}

// ErrEmptyCompletion is returned when the model answers without content.
var ErrEmptyCompletion = errors.New("language model returned no content")

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMExtractor asks an OpenAI-compatible chat endpoint to extract filters.
type LLMExtractor struct {
	client      chatCompleter
	model       string
	temperature float32
	configured  bool
}

// NewLLMExtractor builds an extractor for the configured endpoint. A missing or
// placeholder key yields an unconfigured extractor that is never called.
func NewLLMExtractor(cfg config.LLMConfig) *LLMExtractor {
	e := &LLMExtractor{model: cfg.Model, temperature: cfg.Temperature}
	if config.IsPlaceholder(cfg.APIKey, config.PlaceholderAPIKey) {
		return e
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	e.client = openai.NewClientWithConfig(clientCfg)
	e.configured = true
	return e
}

// Configured reports whether a credential is present.
func (e *LLMExtractor) Configured() bool {
	return e != nil && e.configured
}

// Extract sends one completion request. Values outside the closed enumerations are dropped.
func (e *LLMExtractor) Extract(ctx context.Context, query string) (Extraction, error) {
	if !e.Configured() {
		return Extraction{}, fmt.Errorf("language model not configured")
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(query)},
		},
		Temperature: e.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return Extraction{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Extraction{}, ErrEmptyCompletion
	}

	var out Extraction
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return Extraction{}, fmt.Errorf("decode extraction: %w", err)
	}
	return out.normalized(), nil
}

func (x Extraction) normalized() Extraction {
	x.SearchTerm = strings.TrimSpace(x.SearchTerm)
	if !x.Category.Valid() {
		x.Category = ""
	}
	if !x.Status.Valid() {
		x.Status = ""
	}
	if !x.DateRange.Valid() {
		x.DateRange = ""
	}
	return x
}
