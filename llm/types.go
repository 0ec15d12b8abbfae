package llm

import (
	"encoding/json"
	"io"
)

// MessageRole represents the role of a message in a conversation.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message represents a single message sent to a completion provider.
type Message struct {
	Role    MessageRole
	Content string
}

// NewMessage creates a message with the given role and text content.
func NewMessage(role MessageRole, text string) Message {
	return Message{Role: role, Content: text}
}

// Exchange is one (prompt, response) pair within a conversation.
// TypedResult holds the raw JSON arguments of a function-constrained
// completion when the exchange came from a function call.
type Exchange struct {
	Prompt      string
	Response    string
	TypedResult json.RawMessage
}

// Conversation is a logical, caller-continued sequence of exchanges
// tracked by an opaque ID. Insertion order of Exchanges is the replay
// order sent to the provider.
type Conversation struct {
	ID           string
	SystemPrompt string
	Exchanges    []Exchange
}

// History reconstructs the full message sequence for a completion call:
// the system prompt (if any), then each exchange as a (user, assistant)
// pair in insertion order.
func (c *Conversation) History() []Message {
	msgs := make([]Message, 0, 2*len(c.Exchanges)+1)
	if c.SystemPrompt != "" {
		msgs = append(msgs, NewMessage(RoleSystem, c.SystemPrompt))
	}
	for _, ex := range c.Exchanges {
		msgs = append(msgs, NewMessage(RoleUser, ex.Prompt))
		msgs = append(msgs, NewMessage(RoleAssistant, ex.Response))
	}
	return msgs
}

// FunctionSchema describes a single callable function exposed to the model.
// Parameters is a JSON schema describing the request payload shape.
type FunctionSchema struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// CompletionRequest represents a single chat-completion call.
// When Function is set, the provider must be forced to return exactly
// one call to that function (tool choice pinned, parallel calls disabled).
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Function    *FunctionSchema
	MaxTokens   int64
	Temperature *float64
}

// FinishReason is the provider-reported terminal classification of a
// single completion call.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonToolCalls     FinishReason = "tool_calls"
	FinishReasonLength        FinishReason = "length"
	FinishReasonContentFilter FinishReason = "content_filter"
	FinishReasonOther         FinishReason = "other"
)

// ToolCall is a structured request from the model to invoke a named
// function with JSON arguments.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// CompletionResponse represents a complete chat-completion response.
type CompletionResponse struct {
	Text         string
	FinishReason FinishReason
	ToolCalls    []ToolCall
	Usage        *Usage
}

// Usage represents token usage information from a completion response.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// AssistantDefinition binds instructions, a model, and exactly one
// callable function schema. Created once per prompt template, reused
// across runs, never mutated after creation.
type AssistantDefinition struct {
	Name         string
	Description  string
	Instructions string
	Model        string
	Function     FunctionSchema
}

// RunStatus is the state of one execution attempt of an assistant
// against a thread.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusExpired        RunStatus = "expired"
	RunStatusIncomplete     RunStatus = "incomplete"
)

// Terminal reports whether the run has reached a final state and will
// not progress further.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired, RunStatusIncomplete:
		return true
	default:
		return false
	}
}

// RequiredAction is a tool call the run is blocked on. The run cannot
// progress until an output keyed by ToolCallID is submitted.
type RequiredAction struct {
	ToolCallID string
	Name       string
	Arguments  json.RawMessage
}

// ToolOutput is a resolved tool-call output awaiting submission.
type ToolOutput struct {
	ToolCallID string
	Output     string
}

// Run is a snapshot of a provider-side run.
type Run struct {
	ID              string
	Status          RunStatus
	RequiredActions []RequiredAction
	LastError       string
}

// TranscriptionRequest represents a single audio-transcription call.
// FilePath points at a file on disk; providers requiring file-based
// upload read it directly. FileName is the caller's original name,
// used by providers that infer the format from the extension.
type TranscriptionRequest struct {
	FilePath string
	FileName string
	Prompt   string
	Language string
}

// Audio is a raw audio payload prior to transcription.
type Audio struct {
	Reader    io.Reader
	FileName  string
	MediaType string
	Length    int64
}
