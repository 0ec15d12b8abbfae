// Package ollama implements the completion capability for local models
// served by Ollama. The chat API has no way to pin a tool choice, so
// function-constrained completions are rejected up front; free-text
// completions work as with any other provider.
package ollama

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/parley-llm/parley/llm"
)

// Client implements llm.CompletionClient for Ollama's API.
type Client struct {
	client *api.Client
	model  string // Default model to use if not specified in request
}

// NewClient creates a new Client.
// If host is empty, it uses the environment default (OLLAMA_HOST or
// http://localhost:11434).
func NewClient(host, model string) (*Client, error) {
	var client *api.Client

	if host != "" {
		baseURL, err := parseHost(host)
		if err != nil {
			return nil, llm.NewConfigurationError("invalid ollama host: " + host)
		}
		client = api.NewClient(baseURL, &http.Client{})
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, llm.NewConfigurationError("failed to create ollama client: " + err.Error())
		}
	}

	return &Client{
		client: client,
		model:  model,
	}, nil
}

// parseHost parses a host string into a URL.
func parseHost(host string) (*url.URL, error) {
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return url.Parse(host)
}

// Complete implements llm.CompletionClient.
func (c *Client) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if req == nil {
		return nil, llm.NewValidationError("request is required")
	}
	if req.Function != nil {
		return nil, llm.NewValidationError("ollama cannot pin a tool choice; use a provider with function calling support")
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	if model == "" {
		return nil, llm.NewConfigurationError("ollama model is not configured")
	}

	chatReq := &api.ChatRequest{
		Model:    model,
		Messages: toChatMessages(req.Messages),
		Stream:   new(bool), // false for non-streaming
		Options:  make(map[string]interface{}),
	}
	if req.MaxTokens > 0 {
		chatReq.Options["num_predict"] = int(req.MaxTokens)
	}
	if req.Temperature != nil {
		chatReq.Options["temperature"] = *req.Temperature
	}

	var chatResp api.ChatResponse
	err := c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		chatResp = resp
		return nil
	})
	if err != nil {
		return nil, llm.NewTransientError("ollama chat request failed", err)
	}

	return &llm.CompletionResponse{
		Text:         chatResp.Message.Content,
		FinishReason: llm.FinishReasonStop,
		Usage: &llm.Usage{
			InputTokens:  int64(chatResp.PromptEvalCount),
			OutputTokens: int64(chatResp.EvalCount),
		},
	}, nil
}

func toChatMessages(msgs []llm.Message) []api.Message {
	result := make([]api.Message, 0, len(msgs))
	for _, msg := range msgs {
		result = append(result, api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return result
}

// Ensure Client implements llm.CompletionClient
var _ llm.CompletionClient = (*Client)(nil)
