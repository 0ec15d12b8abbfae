package openai

import (
	"encoding/json"

	"github.com/samber/lo"
	openai "github.com/sashabaranov/go-openai"

	"github.com/parley-llm/parley/llm"
)

// ToChatMessages converts llm.Messages to OpenAI chat message format.
func ToChatMessages(msgs []llm.Message) []openai.ChatCompletionMessage {
	return lo.Map(msgs, func(msg llm.Message, _ int) openai.ChatCompletionMessage {
		return ToChatMessage(msg)
	})
}

// ToChatMessage converts a single llm.Message to OpenAI format.
func ToChatMessage(msg llm.Message) openai.ChatCompletionMessage {
	var role string
	switch msg.Role {
	case llm.RoleUser:
		role = openai.ChatMessageRoleUser
	case llm.RoleAssistant:
		role = openai.ChatMessageRoleAssistant
	case llm.RoleSystem:
		role = openai.ChatMessageRoleSystem
	default:
		role = openai.ChatMessageRoleUser // Default fallback
	}

	return openai.ChatCompletionMessage{
		Role:    role,
		Content: msg.Content,
	}
}

// ToFunctionTool converts a FunctionSchema to an OpenAI function tool
// with strict schema validation enabled.
func ToFunctionTool(schema *llm.FunctionSchema) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        schema.Name,
			Description: schema.Description,
			Strict:      true,
			Parameters:  schema.Parameters,
		},
	}
}

// PinnedToolChoice builds a tool choice forcing the model to call the
// named function.
func PinnedToolChoice(name string) openai.ToolChoice {
	return openai.ToolChoice{
		Type:     openai.ToolTypeFunction,
		Function: openai.ToolFunction{Name: name},
	}
}

// FromToolCalls converts OpenAI tool calls to the provider-neutral form.
// Non-function calls are dropped.
func FromToolCalls(calls []openai.ToolCall) []llm.ToolCall {
	result := make([]llm.ToolCall, 0, len(calls))
	for _, call := range calls {
		if call.Type != openai.ToolTypeFunction {
			continue
		}
		result = append(result, llm.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: json.RawMessage(call.Function.Arguments),
		})
	}
	return result
}

// FromFinishReason maps OpenAI finish reasons to the provider-neutral
// classification.
func FromFinishReason(reason openai.FinishReason) llm.FinishReason {
	switch reason {
	case openai.FinishReasonStop:
		return llm.FinishReasonStop
	case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return llm.FinishReasonToolCalls
	case openai.FinishReasonLength:
		return llm.FinishReasonLength
	case openai.FinishReasonContentFilter:
		return llm.FinishReasonContentFilter
	default:
		return llm.FinishReasonOther
	}
}

// FromRunStatus maps OpenAI run statuses to the provider-neutral state
// machine.
func FromRunStatus(status openai.RunStatus) llm.RunStatus {
	switch status {
	case openai.RunStatusQueued:
		return llm.RunStatusQueued
	case openai.RunStatusInProgress:
		return llm.RunStatusInProgress
	case openai.RunStatusRequiresAction:
		return llm.RunStatusRequiresAction
	case openai.RunStatusCancelling:
		return llm.RunStatusCancelling
	case openai.RunStatusCompleted:
		return llm.RunStatusCompleted
	case openai.RunStatusFailed:
		return llm.RunStatusFailed
	case openai.RunStatusCancelled:
		return llm.RunStatusCancelled
	case openai.RunStatusExpired:
		return llm.RunStatusExpired
	default:
		return llm.RunStatus(status)
	}
}

// FromRequiredActions extracts the required function calls from a run
// snapshot. Runs without a pending submit_tool_outputs action yield nil.
func FromRequiredActions(run openai.Run) []llm.RequiredAction {
	if run.RequiredAction == nil || run.RequiredAction.SubmitToolOutputs == nil {
		return nil
	}
	actions := make([]llm.RequiredAction, 0, len(run.RequiredAction.SubmitToolOutputs.ToolCalls))
	for _, call := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
		if call.Type != openai.ToolTypeFunction {
			continue
		}
		actions = append(actions, llm.RequiredAction{
			ToolCallID: call.ID,
			Name:       call.Function.Name,
			Arguments:  json.RawMessage(call.Function.Arguments),
		})
	}
	return actions
}
