package orchestrate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/parley-llm/parley/llm"
	"github.com/parley-llm/parley/retry"
)

// Status labels returned by CancelRun.
const (
	// CancelAlreadyComplete means the run reached a terminal state
	// before the cancel request was made.
	CancelAlreadyComplete = "already complete"
	// CancelFailed means the cancel request was attempted and failed.
	// The failure is logged rather than propagated.
	CancelFailed = "failed to cancel"
)

// AssistantRun drives the asynchronous assistant protocol:
// assistant/thread lifecycle, run polling, and tool-output submission.
//
// Each AssistantRun owns a private tool-output buffer keyed by run ID.
// Outputs accumulate there until the run requires them, and the buffer
// is cleared when the run reaches a terminal state or is cancelled.
// Buffer access is serialized internally, but submissions for the same
// run should not race: the result of interleaved SubmitToolOutput calls
// against one run depends on provider timing.
type AssistantRun struct {
	client llm.AssistantClient
	retry  *retry.Executor
	logger zerolog.Logger

	mu      sync.Mutex
	outputs map[string][]llm.ToolOutput
}

// NewAssistantRun creates an AssistantRun orchestrator.
func NewAssistantRun(client llm.AssistantClient, executor *retry.Executor, logger zerolog.Logger) *AssistantRun {
	return &AssistantRun{
		client:  client,
		retry:   executor,
		logger:  logger,
		outputs: make(map[string][]llm.ToolOutput),
	}
}

// CreateAssistant registers an assistant exposing the definition's
// function as its single tool and returns the assistant ID.
func (a *AssistantRun) CreateAssistant(ctx context.Context, def llm.AssistantDefinition) (string, error) {
	if def.Name == "" {
		return "", llm.NewValidationError("assistant definition has no name")
	}
	if def.Function.Name == "" {
		return "", llm.NewValidationError("assistant definition has no function schema")
	}
	return retry.Do(a.retry, "create assistant", func() (string, error) {
		return a.client.CreateAssistant(ctx, def)
	})
}

// DeleteAssistant removes an assistant. Failures are logged and
// swallowed so cleanup paths never mask the original error.
func (a *AssistantRun) DeleteAssistant(ctx context.Context, assistantID string) {
	if err := a.client.DeleteAssistant(ctx, assistantID); err != nil {
		a.logger.Warn().Err(err).Str("assistant", assistantID).Msg("Failed to delete assistant")
	}
}

// CreateThread creates an empty thread and returns its ID.
func (a *AssistantRun) CreateThread(ctx context.Context) (string, error) {
	return retry.Do(a.retry, "create thread", func() (string, error) {
		return a.client.CreateThread(ctx)
	})
}

// DeleteThread removes a thread. Failures are logged and swallowed.
func (a *AssistantRun) DeleteThread(ctx context.Context, threadID string) {
	if err := a.client.DeleteThread(ctx, threadID); err != nil {
		a.logger.Warn().Err(err).Str("thread", threadID).Msg("Failed to delete thread")
	}
}

// PostMessage appends a user message to the thread.
func (a *AssistantRun) PostMessage(ctx context.Context, threadID, content string) error {
	if content == "" {
		return llm.NewValidationError("message content is empty")
	}
	return a.retry.Do("post message", func() error {
		return a.client.PostMessage(ctx, threadID, llm.RoleUser, content)
	})
}

// CreateRun starts a run of the assistant against the thread. When
// requireTool is true, the provider is instructed to call the
// assistant's function before completing.
func (a *AssistantRun) CreateRun(ctx context.Context, threadID, assistantID string, requireTool bool) (string, error) {
	return retry.Do(a.retry, "create run", func() (string, error) {
		return a.client.CreateRun(ctx, threadID, assistantID, requireTool)
	})
}

// PollRun fetches the run's current status. When the run has reached a
// terminal state, any buffered tool outputs for it are discarded.
func (a *AssistantRun) PollRun(ctx context.Context, threadID, runID string) (llm.RunStatus, error) {
	run, err := retry.Do(a.retry, "poll run", func() (*llm.Run, error) {
		return a.client.RetrieveRun(ctx, threadID, runID)
	})
	if err != nil {
		return "", err
	}
	if run.Status.Terminal() {
		a.clearBuffer(runID)
	}
	return run.Status, nil
}

// CancelRun cancels an in-flight run, best effort. It first polls the
// run and returns its terminal status label without issuing a cancel
// when the run is already complete. Errors are logged rather than
// returned because cancellation is usually invoked as cleanup, and the
// run's buffered tool outputs are discarded regardless of outcome.
func (a *AssistantRun) CancelRun(ctx context.Context, threadID, runID string) string {
	defer a.clearBuffer(runID)

	run, err := retry.Do(a.retry, "poll run before cancel", func() (*llm.Run, error) {
		return a.client.RetrieveRun(ctx, threadID, runID)
	})
	if err != nil {
		a.logger.Warn().Err(err).Str("run", runID).Msg("Failed to poll run before cancelling")
		return CancelFailed
	}
	if run.Status.Terminal() {
		return CancelAlreadyComplete
	}

	status, err := a.client.CancelRun(ctx, threadID, runID)
	if err != nil {
		a.logger.Warn().Err(err).Str("run", runID).Msg("Failed to cancel run")
		return CancelFailed
	}
	return string(status)
}

// GetRequiredAction polls the run for a required call to the named
// function and decodes its arguments into T. A run observed in a
// non-requires_action state is retried, because polling often races the
// provider's transition into requires_action.
func GetRequiredAction[T any](ctx context.Context, a *AssistantRun, threadID, runID, functionName string) (string, T, error) {
	var zero T

	// Wrong-state protocol errors are transient from this caller's
	// point of view, so widen the retry predicate for this operation.
	executor := a.retry.WithRetryable(func(err error) bool {
		return llm.IsRetryableError(err) || llm.IsProtocolError(err)
	})

	type required struct {
		toolCallID string
		arguments  json.RawMessage
	}
	match, err := retry.Do(executor, "get required action", func() (required, error) {
		run, err := a.client.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			return required{}, err
		}
		if run.Status != llm.RunStatusRequiresAction {
			return required{}, llm.NewProtocolError(fmt.Sprintf("run %s is %s, not %s", runID, run.Status, llm.RunStatusRequiresAction))
		}
		for _, action := range run.RequiredActions {
			if action.Name == functionName {
				return required{action.ToolCallID, action.Arguments}, nil
			}
			a.logger.Warn().
				Str("run", runID).
				Str("function", action.Name).
				Str("expected", functionName).
				Msg("Run requires an action for a different function")
		}
		return required{}, llm.NewProtocolError(fmt.Sprintf("run %s requires no call to function %q", runID, functionName))
	})
	if err != nil {
		return "", zero, err
	}

	var result T
	if err := json.Unmarshal(match.arguments, &result); err != nil {
		a.logger.Error().
			Err(err).
			Str("run", runID).
			Str("payload", string(match.arguments)).
			Msg("Failed to decode required action arguments")
		return "", zero, llm.NewDecodeError(fmt.Sprintf("required action arguments do not match the %s schema", functionName), err)
	}
	return match.toolCallID, result, nil
}

// SubmitToolOutput buffers the output for the given tool call, then
// submits every buffered output the run currently requires. Outputs the
// run does not yet require stay buffered in case it asks for them in a
// later requires_action round.
func (a *AssistantRun) SubmitToolOutput(ctx context.Context, threadID, runID, toolCallID, output string) error {
	run, err := retry.Do(a.retry, "poll run before submit", func() (*llm.Run, error) {
		return a.client.RetrieveRun(ctx, threadID, runID)
	})
	if err != nil {
		return err
	}

	requiredIDs := make(map[string]bool, len(run.RequiredActions))
	for _, action := range run.RequiredActions {
		requiredIDs[action.ToolCallID] = true
	}

	a.mu.Lock()
	a.outputs[runID] = append(a.outputs[runID], llm.ToolOutput{ToolCallID: toolCallID, Output: output})
	buffered := a.outputs[runID]
	a.mu.Unlock()

	toSubmit := lo.Filter(buffered, func(out llm.ToolOutput, _ int) bool {
		return requiredIDs[out.ToolCallID]
	})
	if len(toSubmit) == 0 {
		return llm.NewProtocolError(fmt.Sprintf("run %s requires none of the %d buffered tool outputs", runID, len(buffered)))
	}

	err = a.retry.Do("submit tool outputs", func() error {
		return a.client.SubmitToolOutputs(ctx, threadID, runID, toSubmit)
	})
	if err != nil {
		return err
	}

	remaining := lo.Filter(buffered, func(out llm.ToolOutput, _ int) bool {
		return !requiredIDs[out.ToolCallID]
	})
	a.mu.Lock()
	if len(remaining) == 0 {
		delete(a.outputs, runID)
	} else {
		a.outputs[runID] = remaining
	}
	a.mu.Unlock()
	return nil
}

func (a *AssistantRun) clearBuffer(runID string) {
	a.mu.Lock()
	delete(a.outputs, runID)
	a.mu.Unlock()
}
