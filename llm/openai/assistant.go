package openai

import (
	"context"

	"github.com/samber/lo"
	openai "github.com/sashabaranov/go-openai"

	"github.com/parley-llm/parley/llm"
)

// CreateAssistant implements llm.AssistantClient. The assistant carries
// a single strict-schema function tool derived from the definition.
func (c *Client) CreateAssistant(ctx context.Context, def llm.AssistantDefinition) (string, error) {
	model := def.Model
	if model == "" {
		model = c.model
	}
	if model == "" {
		return "", llm.NewConfigurationError("openai model is not configured")
	}

	req := openai.AssistantRequest{
		Model:        model,
		Name:         &def.Name,
		Description:  &def.Description,
		Instructions: &def.Instructions,
		Tools: []openai.AssistantTool{
			{
				Type: openai.AssistantToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        def.Function.Name,
					Description: def.Function.Description,
					Strict:      true,
					Parameters:  def.Function.Parameters,
				},
			},
		},
	}

	assistant, err := c.client.CreateAssistant(ctx, req)
	if err != nil {
		return "", convertError(err)
	}
	return assistant.ID, nil
}

// DeleteAssistant implements llm.AssistantClient.
func (c *Client) DeleteAssistant(ctx context.Context, assistantID string) error {
	if _, err := c.client.DeleteAssistant(ctx, assistantID); err != nil {
		return convertError(err)
	}
	return nil
}

// CreateThread implements llm.AssistantClient.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", convertError(err)
	}
	return thread.ID, nil
}

// DeleteThread implements llm.AssistantClient.
func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	if _, err := c.client.DeleteThread(ctx, threadID); err != nil {
		return convertError(err)
	}
	return nil
}

// PostMessage implements llm.AssistantClient.
func (c *Client) PostMessage(ctx context.Context, threadID string, role llm.MessageRole, content string) error {
	_, err := c.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    string(role),
		Content: content,
	})
	if err != nil {
		return convertError(err)
	}
	return nil
}

// CreateRun implements llm.AssistantClient. With requireTool the run is
// forced to resolve the assistant's function, and parallel tool calls
// are disabled so at most one call needs resolution at a time.
func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string, requireTool bool) (string, error) {
	req := openai.RunRequest{
		AssistantID:       assistantID,
		ParallelToolCalls: false,
	}
	if requireTool {
		req.ToolChoice = "required"
	}

	run, err := c.client.CreateRun(ctx, threadID, req)
	if err != nil {
		return "", convertError(err)
	}
	return run.ID, nil
}

// RetrieveRun implements llm.AssistantClient.
func (c *Client) RetrieveRun(ctx context.Context, threadID, runID string) (*llm.Run, error) {
	run, err := c.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return nil, convertError(err)
	}

	snapshot := &llm.Run{
		ID:              run.ID,
		Status:          FromRunStatus(run.Status),
		RequiredActions: FromRequiredActions(run),
	}
	if run.LastError != nil {
		snapshot.LastError = run.LastError.Message
	}
	return snapshot, nil
}

// CancelRun implements llm.AssistantClient.
func (c *Client) CancelRun(ctx context.Context, threadID, runID string) (llm.RunStatus, error) {
	run, err := c.client.CancelRun(ctx, threadID, runID)
	if err != nil {
		return "", convertError(err)
	}
	return FromRunStatus(run.Status), nil
}

// SubmitToolOutputs implements llm.AssistantClient.
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []llm.ToolOutput) error {
	req := openai.SubmitToolOutputsRequest{
		ToolOutputs: lo.Map(outputs, func(out llm.ToolOutput, _ int) openai.ToolOutput {
			return openai.ToolOutput{
				ToolCallID: out.ToolCallID,
				Output:     out.Output,
			}
		}),
	}
	if _, err := c.client.SubmitToolOutputs(ctx, threadID, runID, req); err != nil {
		return convertError(err)
	}
	return nil
}
