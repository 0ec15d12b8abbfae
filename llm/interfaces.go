package llm

import (
	"context"
)

// CompletionClient is the provider capability for single-shot chat
// completions. Implementations handle provider-specific details
// internally and report failures as *Error values.
type CompletionClient interface {
	// Complete sends a completion request and returns the full response.
	// When req.Function is set, implementations must pin tool choice to
	// that function and disable parallel tool calls, or return a
	// validation error if the provider cannot do so.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// AssistantClient is the provider capability for the asynchronous
// assistant protocol: assistant/thread lifecycle, run creation and
// polling, and tool-output submission.
type AssistantClient interface {
	// CreateAssistant registers an assistant with a single strict-schema
	// function tool derived from the definition.
	CreateAssistant(ctx context.Context, def AssistantDefinition) (string, error)

	// DeleteAssistant removes a previously created assistant.
	DeleteAssistant(ctx context.Context, assistantID string) error

	// CreateThread creates an empty provider-side message container.
	CreateThread(ctx context.Context) (string, error)

	// DeleteThread removes a thread and its messages.
	DeleteThread(ctx context.Context, threadID string) error

	// PostMessage appends a message to a thread.
	PostMessage(ctx context.Context, threadID string, role MessageRole, content string) error

	// CreateRun starts a run of the assistant against the thread. When
	// requireTool is true, tool choice is set to "required" and parallel
	// tool calls are disabled.
	CreateRun(ctx context.Context, threadID, assistantID string, requireTool bool) (string, error)

	// RetrieveRun fetches the current run snapshot, including any
	// required actions when the run is blocked on tool calls.
	RetrieveRun(ctx context.Context, threadID, runID string) (*Run, error)

	// CancelRun requests cancellation of an in-flight run and returns
	// the status reported by the provider.
	CancelRun(ctx context.Context, threadID, runID string) (RunStatus, error)

	// SubmitToolOutputs submits resolved tool-call outputs for a run in
	// the requires_action state.
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) error
}

// Transcriber is the provider capability for audio transcription.
type Transcriber interface {
	// Transcribe converts the audio file referenced by the request into
	// text.
	Transcribe(ctx context.Context, req *TranscriptionRequest) (string, error)
}
