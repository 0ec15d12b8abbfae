package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/parley-llm/parley/llm"
)

// ToMessageParams converts provider-neutral messages to Anthropic
// MessageParams. Anthropic takes the system prompt out of band, so
// system messages are folded into the returned system string instead of
// appearing in the message list.
func ToMessageParams(msgs []llm.Message) ([]anthropic.MessageParam, string) {
	result := make([]anthropic.MessageParam, 0, len(msgs))
	var system strings.Builder

	for _, msg := range msgs {
		switch msg.Role {
		case llm.RoleSystem:
			if system.Len() > 0 {
				system.WriteString("\n")
			}
			system.WriteString(msg.Content)
		case llm.RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return result, system.String()
}

// jsonSchema is the subset of a JSON schema document Anthropic's tool
// input schema needs split out.
type jsonSchema struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Required   []string               `json:"required"`
}

// ToToolParam converts a FunctionSchema to an Anthropic tool definition.
func ToToolParam(schema *llm.FunctionSchema) (anthropic.ToolUnionParam, error) {
	var parsed jsonSchema
	if err := json.Unmarshal(schema.Parameters, &parsed); err != nil {
		return anthropic.ToolUnionParam{}, llm.NewDecodeError(
			fmt.Sprintf("function %s has an invalid parameters schema", schema.Name), err)
	}

	toolParam := anthropic.ToolParam{
		Name:        schema.Name,
		Description: anthropic.String(schema.Description),
		InputSchema: anthropic.ToolInputSchemaParam{
			Type:       "object",
			Properties: parsed.Properties,
			Required:   parsed.Required,
		},
	}
	return anthropic.ToolUnionParam{OfTool: &toolParam}, nil
}

// PinnedToolChoice builds a tool choice forcing the model to call the
// named tool, with parallel tool use disabled.
func PinnedToolChoice(name string) anthropic.ToolChoiceUnionParam {
	return anthropic.ToolChoiceUnionParam{
		OfTool: &anthropic.ToolChoiceToolParam{
			Name:                   name,
			DisableParallelToolUse: anthropic.Bool(true),
		},
	}
}

// FromStopReason maps Anthropic stop reasons to the provider-neutral
// classification.
func FromStopReason(reason anthropic.StopReason) llm.FinishReason {
	switch reason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		return llm.FinishReasonStop
	case anthropic.StopReasonToolUse:
		return llm.FinishReasonToolCalls
	case anthropic.StopReasonMaxTokens:
		return llm.FinishReasonLength
	case anthropic.StopReasonRefusal:
		return llm.FinishReasonContentFilter
	default:
		return llm.FinishReasonOther
	}
}
