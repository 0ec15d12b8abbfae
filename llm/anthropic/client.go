// Package anthropic implements the completion capability over
// Anthropic's Messages API. The assistants protocol and audio
// transcription are OpenAI-only; this provider serves free-text and
// function-constrained completions.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/parley-llm/parley/llm"
)

// Anthropic requires an explicit completion token budget.
const defaultMaxTokens = 1024

// Client implements llm.CompletionClient for Anthropic's API.
type Client struct {
	client *anthropic.Client
	model  string
	logger zerolog.Logger
}

// NewClient creates a new Client with the given API key.
func NewClient(apiKey, model string, logger zerolog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, llm.NewConfigurationError("anthropic api key is not configured")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		client: &client,
		model:  model,
		logger: logger,
	}, nil
}

// Complete implements llm.CompletionClient.
func (c *Client) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if req == nil {
		return nil, llm.NewValidationError("request is required")
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	if model == "" {
		return nil, llm.NewConfigurationError("anthropic model is not configured")
	}

	msgs, system := ToMessageParams(req.Messages)

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if req.Function != nil {
		tool, err := ToToolParam(req.Function)
		if err != nil {
			return nil, err
		}
		params.Tools = []anthropic.ToolUnionParam{tool}
		params.ToolChoice = PinnedToolChoice(req.Function.Name)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, convertError(err)
	}

	var text strings.Builder
	var toolCalls []llm.ToolCall
	for _, blockUnion := range message.Content {
		switch block := blockUnion.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(block.Text)
		case anthropic.ToolUseBlock:
			toolCalls = append(toolCalls, llm.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}

	return &llm.CompletionResponse{
		Text:         text.String(),
		FinishReason: FromStopReason(message.StopReason),
		ToolCalls:    toolCalls,
		Usage: &llm.Usage{
			InputTokens:  message.Usage.InputTokens,
			OutputTokens: message.Usage.OutputTokens,
		},
	}, nil
}

// convertError converts Anthropic API errors to llm.Error values.
func convertError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return llm.NewTransientError("anthropic request failed", err)
	}

	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &llm.Error{
			Kind:        llm.ErrorKindConfiguration,
			Message:     fmt.Sprintf("anthropic rejected credentials (status %d)", apiErr.StatusCode),
			Retryable:   false,
			StatusCode:  apiErr.StatusCode,
			ProviderErr: err,
		}
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return &llm.Error{
			Kind:        llm.ErrorKindProtocol,
			Message:     fmt.Sprintf("anthropic rejected request (status %d)", apiErr.StatusCode),
			Retryable:   false,
			StatusCode:  apiErr.StatusCode,
			ProviderErr: err,
		}
	default:
		return &llm.Error{
			Kind:        llm.ErrorKindTransient,
			Message:     fmt.Sprintf("anthropic server error (status %d)", apiErr.StatusCode),
			Retryable:   true,
			StatusCode:  apiErr.StatusCode,
			ProviderErr: err,
		}
	}
}

// Ensure Client implements llm.CompletionClient
var _ llm.CompletionClient = (*Client)(nil)
