// Package orchestrate drives LLM interactions: single-shot and
// function-constrained completions over a conversation store, and the
// asynchronous assistant run protocol with tool-output buffering.
package orchestrate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/parley-llm/parley/conversations"
	"github.com/parley-llm/parley/llm"
	"github.com/parley-llm/parley/retry"
)

// Completion drives chat completions: it assembles message history from
// the conversation store, invokes the provider through the retry
// executor, validates the finish reason, and persists the exchange
// after a successful response.
type Completion struct {
	client llm.CompletionClient
	store  conversations.Store
	retry  *retry.Executor
	model  string
	logger zerolog.Logger
}

// NewCompletion creates a Completion orchestrator.
func NewCompletion(client llm.CompletionClient, store conversations.Store, executor *retry.Executor, model string, logger zerolog.Logger) *Completion {
	return &Completion{
		client: client,
		store:  store,
		retry:  executor,
		model:  model,
		logger: logger,
	}
}

// CompletionOptions carries optional parameters for GetCompletion.
type CompletionOptions struct {
	// ConversationID continues an existing conversation. When empty, a
	// new conversation is initialized after the first successful call.
	ConversationID string
	// SystemPrompt seeds a new conversation. Ignored when continuing an
	// existing conversation, whose stored system prompt wins.
	SystemPrompt string
	// Function constrains the completion to a tool call against this
	// schema. The provider's tool choice is pinned to it and a
	// tool_calls finish becomes acceptable. Callers wanting the
	// arguments decoded into a Go type should use CallFunction instead.
	Function    *llm.FunctionSchema
	Model       string
	MaxTokens   int64
	Temperature *float64
	// Retry overrides the orchestrator's executor for this call.
	Retry *retry.Executor
}

// CompletionResult is the outcome of a free-text completion. ToolCalls
// is populated when the call was constrained by a Function option and
// the model resolved it with a tool call.
type CompletionResult struct {
	Text           string
	ToolCalls      []llm.ToolCall
	ConversationID string
}

// GetCompletion performs a free-text completion. The returned
// conversation ID continues the thread on subsequent calls. The
// exchange is persisted only after the provider call succeeds.
func (c *Completion) GetCompletion(ctx context.Context, scopeID, prompt string, opts *CompletionOptions) (*CompletionResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, llm.NewValidationError("prompt is empty")
	}
	if c.client == nil {
		return nil, llm.NewConfigurationError("no completion provider is configured")
	}

	var o CompletionOptions
	if opts != nil {
		o = *opts
	}

	conv, systemPrompt, err := c.loadConversation(ctx, scopeID, o.ConversationID, o.SystemPrompt)
	if err != nil {
		return nil, err
	}

	req := &llm.CompletionRequest{
		Model:       c.resolveModel(o.Model),
		Messages:    buildMessages(conv, systemPrompt, prompt),
		Function:    o.Function,
		MaxTokens:   o.MaxTokens,
		Temperature: o.Temperature,
	}

	resp, err := retry.Do(c.executor(o.Retry), "chat completion", func() (*llm.CompletionResponse, error) {
		return c.client.Complete(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if err := validateFinishReason(resp.FinishReason, o.Function != nil); err != nil {
		return nil, err
	}
	if resp.FinishReason == llm.FinishReasonLength {
		c.logger.Warn().Str("scope", scopeID).Msg("Completion truncated by token limit")
	}

	exchange := llm.Exchange{
		Prompt:   prompt,
		Response: resp.Text,
	}
	if o.Function != nil {
		if call := matchToolCall(resp.ToolCalls, o.Function.Name, c.logger); call != nil {
			exchange.TypedResult = call.Arguments
			if exchange.Response == "" {
				exchange.Response = string(call.Arguments)
			}
		}
	}

	conversationID, err := c.persist(ctx, scopeID, conv, systemPrompt, exchange)
	if err != nil {
		return nil, err
	}

	return &CompletionResult{
		Text:           resp.Text,
		ToolCalls:      resp.ToolCalls,
		ConversationID: conversationID,
	}, nil
}

// FunctionCallInput carries the parameters for CallFunction.
type FunctionCallInput struct {
	SystemPrompt   string
	Prompt         string
	Function       llm.FunctionSchema
	ConversationID string
	Model          string
	// Retry overrides the orchestrator's executor for this call.
	Retry *retry.Executor
}

// CallFunction performs a function-constrained completion: the provider
// is forced to return exactly one call to the named function, whose
// arguments are decoded into T. The typed result is persisted alongside
// the prompt on success. Returns the decoded value and the conversation
// ID for continuation.
func CallFunction[T any](ctx context.Context, c *Completion, scopeID string, in FunctionCallInput) (T, string, error) {
	var zero T

	if strings.TrimSpace(in.Prompt) == "" {
		return zero, "", llm.NewValidationError("prompt is empty")
	}
	if in.Function.Name == "" {
		return zero, "", llm.NewValidationError("function schema has no name")
	}
	if c.client == nil {
		return zero, "", llm.NewConfigurationError("no completion provider is configured")
	}

	conv, systemPrompt, err := c.loadConversation(ctx, scopeID, in.ConversationID, in.SystemPrompt)
	if err != nil {
		return zero, "", err
	}

	req := &llm.CompletionRequest{
		Model:    c.resolveModel(in.Model),
		Messages: buildMessages(conv, systemPrompt, in.Prompt),
		Function: &in.Function,
	}

	resp, err := retry.Do(c.executor(in.Retry), "function call completion", func() (*llm.CompletionResponse, error) {
		return c.client.Complete(ctx, req)
	})
	if err != nil {
		return zero, "", err
	}

	switch resp.FinishReason {
	case llm.FinishReasonStop, llm.FinishReasonToolCalls:
		// The model either called the tool or stopped after doing so.
	case llm.FinishReasonContentFilter:
		return zero, "", llm.NewContentFilterError("completion was rejected by the provider content filter")
	default:
		return zero, "", llm.NewProtocolError(fmt.Sprintf("unexpected finish reason %q for function call", resp.FinishReason))
	}

	call := matchToolCall(resp.ToolCalls, in.Function.Name, c.logger)
	if call == nil {
		return zero, "", llm.NewProtocolError(fmt.Sprintf("model returned no call to function %q", in.Function.Name))
	}

	var result T
	if err := json.Unmarshal(call.Arguments, &result); err != nil {
		c.logger.Error().
			Err(err).
			Str("function", in.Function.Name).
			Str("payload", string(call.Arguments)).
			Msg("Failed to decode tool call arguments")
		return zero, "", llm.NewDecodeError(fmt.Sprintf("tool call arguments do not match the %s schema", in.Function.Name), err)
	}

	conversationID, err := c.persist(ctx, scopeID, conv, systemPrompt, llm.Exchange{
		Prompt:      in.Prompt,
		Response:    string(call.Arguments),
		TypedResult: call.Arguments,
	})
	if err != nil {
		return zero, "", err
	}

	return result, conversationID, nil
}

// loadConversation fetches an existing conversation or returns nil for
// a lazily created one. The effective system prompt is the stored one
// when continuing, the caller's otherwise.
func (c *Completion) loadConversation(ctx context.Context, scopeID, conversationID, systemPrompt string) (*llm.Conversation, string, error) {
	if conversationID == "" {
		return nil, systemPrompt, nil
	}
	conv, err := c.store.Get(ctx, scopeID, conversationID)
	if err != nil {
		return nil, "", err
	}
	return conv, conv.SystemPrompt, nil
}

// persist stores the exchange, initializing the conversation when this
// was its first call.
func (c *Completion) persist(ctx context.Context, scopeID string, conv *llm.Conversation, systemPrompt string, exchange llm.Exchange) (string, error) {
	if conv == nil {
		id, err := c.store.Initialize(ctx, scopeID, systemPrompt, exchange)
		if err != nil {
			return "", fmt.Errorf("initialize conversation: %w", err)
		}
		return id, nil
	}
	if err := c.store.AddMessage(ctx, scopeID, conv.ID, exchange); err != nil {
		return "", fmt.Errorf("append to conversation %s: %w", conv.ID, err)
	}
	return conv.ID, nil
}

func (c *Completion) resolveModel(model string) string {
	if model != "" {
		return model
	}
	return c.model
}

func (c *Completion) executor(override *retry.Executor) *retry.Executor {
	if override != nil {
		return override
	}
	return c.retry
}

// buildMessages assembles the provider message sequence: the system
// prompt, each stored exchange as a (user, assistant) pair, then the
// new prompt.
func buildMessages(conv *llm.Conversation, systemPrompt, prompt string) []llm.Message {
	var msgs []llm.Message
	if conv != nil {
		msgs = conv.History()
	} else if systemPrompt != "" {
		msgs = []llm.Message{llm.NewMessage(llm.RoleSystem, systemPrompt)}
	}
	return append(msgs, llm.NewMessage(llm.RoleUser, prompt))
}

// matchToolCall finds the call for the requested function. Calls to
// other functions are logged and skipped.
func matchToolCall(calls []llm.ToolCall, functionName string, logger zerolog.Logger) *llm.ToolCall {
	for i := range calls {
		if calls[i].Name != functionName {
			logger.Warn().
				Str("function", calls[i].Name).
				Str("expected", functionName).
				Msg("Skipping tool call for unrequested function")
			continue
		}
		return &calls[i]
	}
	return nil
}

// validateFinishReason checks a completion's finish reason. A
// tool_calls finish is only acceptable when a function was pinned on
// the request.
func validateFinishReason(reason llm.FinishReason, functionPinned bool) error {
	switch reason {
	case llm.FinishReasonStop, llm.FinishReasonLength:
		return nil
	case llm.FinishReasonToolCalls:
		if functionPinned {
			return nil
		}
		return llm.NewProtocolError("model returned tool calls for a completion without a tool constraint")
	case llm.FinishReasonContentFilter:
		return llm.NewContentFilterError("completion was rejected by the provider content filter")
	default:
		return llm.NewProtocolError(fmt.Sprintf("unexpected finish reason %q for completion", reason))
	}
}
