// Package openai implements the full provider capability surface over
// OpenAI's API: chat completion, the assistants protocol, and audio
// transcription.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/parley-llm/parley/llm"
)

// Client wraps the OpenAI SDK client. It implements llm.CompletionClient,
// llm.AssistantClient, and llm.Transcriber.
type Client struct {
	client *openai.Client
	model  string // Default model to use if not specified in request
}

// NewClient creates a new Client.
// An empty apiKey is a configuration error: it indicates an unconfigured
// deployment, not a bad request.
// If baseURL is empty, the default OpenAI API endpoint is used.
func NewClient(apiKey, baseURL, model, organization string) (*Client, error) {
	if apiKey == "" {
		return nil, llm.NewConfigurationError("openai api key is not configured")
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if organization != "" {
		config.OrgID = organization
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
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
		return nil, llm.NewConfigurationError("openai model is not configured")
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: ToChatMessages(req.Messages),
	}

	// Pin the tool choice when a function is requested: the model must
	// return exactly one call to the named function.
	if req.Function != nil {
		chatReq.Tools = []openai.Tool{ToFunctionTool(req.Function)}
		chatReq.ToolChoice = PinnedToolChoice(req.Function.Name)
		chatReq.ParallelToolCalls = false
	}

	if req.MaxTokens > 0 {
		chatReq.MaxTokens = int(req.MaxTokens)
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}

	chatResp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, convertError(err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, llm.NewProtocolError("no choices in completion response")
	}

	choice := chatResp.Choices[0]
	return &llm.CompletionResponse{
		Text:         choice.Message.Content,
		FinishReason: FromFinishReason(choice.FinishReason),
		ToolCalls:    FromToolCalls(choice.Message.ToolCalls),
		Usage: &llm.Usage{
			InputTokens:  int64(chatResp.Usage.PromptTokens),
			OutputTokens: int64(chatResp.Usage.CompletionTokens),
		},
	}, nil
}

// convertError converts OpenAI API errors to llm.Error values.
func convertError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		// Network-level failure, not an API response.
		return llm.NewTransientError("openai request failed", err)
	}

	switch apiErr.HTTPStatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &llm.Error{
			Kind:        llm.ErrorKindConfiguration,
			Message:     fmt.Sprintf("openai rejected credentials: %s", apiErr.Message),
			Retryable:   false,
			StatusCode:  apiErr.HTTPStatusCode,
			ProviderErr: err,
		}
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity:
		return &llm.Error{
			Kind:        llm.ErrorKindProtocol,
			Message:     fmt.Sprintf("openai rejected request: %s", apiErr.Message),
			Retryable:   false,
			StatusCode:  apiErr.HTTPStatusCode,
			ProviderErr: err,
		}
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return &llm.Error{
			Kind:        llm.ErrorKindTransient,
			Message:     fmt.Sprintf("openai server error: %s", apiErr.Message),
			Retryable:   true,
			StatusCode:  apiErr.HTTPStatusCode,
			ProviderErr: err,
		}
	default:
		return &llm.Error{
			Kind:        llm.ErrorKindTransient,
			Message:     fmt.Sprintf("openai API error: %s", apiErr.Message),
			Retryable:   true,
			StatusCode:  apiErr.HTTPStatusCode,
			ProviderErr: err,
		}
	}
}

// Ensure Client implements the full capability surface
var (
	_ llm.CompletionClient = (*Client)(nil)
	_ llm.AssistantClient  = (*Client)(nil)
	_ llm.Transcriber      = (*Client)(nil)
)
