package orchestrate

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/parley-llm/parley/llm"
	"github.com/parley-llm/parley/retry"
)

type fakeAssistantClient struct {
	// runs is a queue of snapshots returned by successive RetrieveRun
	// calls. The last snapshot repeats once the queue is drained.
	runs []*llm.Run

	retrieveCalls int
	cancelCalls   int
	cancelErr     error
	cancelStatus  llm.RunStatus
	submitted     [][]llm.ToolOutput
	submitErr     error
	deletedIDs    []string
}

func (f *fakeAssistantClient) CreateAssistant(context.Context, llm.AssistantDefinition) (string, error) {
	return "asst_1", nil
}

func (f *fakeAssistantClient) DeleteAssistant(_ context.Context, assistantID string) error {
	f.deletedIDs = append(f.deletedIDs, assistantID)
	return nil
}

func (f *fakeAssistantClient) CreateThread(context.Context) (string, error) {
	return "thread_1", nil
}

func (f *fakeAssistantClient) DeleteThread(_ context.Context, threadID string) error {
	f.deletedIDs = append(f.deletedIDs, threadID)
	return nil
}

func (f *fakeAssistantClient) PostMessage(context.Context, string, llm.MessageRole, string) error {
	return nil
}

func (f *fakeAssistantClient) CreateRun(context.Context, string, string, bool) (string, error) {
	return "run_1", nil
}

func (f *fakeAssistantClient) RetrieveRun(context.Context, string, string) (*llm.Run, error) {
	f.retrieveCalls++
	if len(f.runs) == 0 {
		return nil, fmt.Errorf("no scripted run snapshot")
	}
	run := f.runs[0]
	if len(f.runs) > 1 {
		f.runs = f.runs[1:]
	}
	return run, nil
}

func (f *fakeAssistantClient) CancelRun(context.Context, string, string) (llm.RunStatus, error) {
	f.cancelCalls++
	if f.cancelErr != nil {
		return "", f.cancelErr
	}
	if f.cancelStatus != "" {
		return f.cancelStatus, nil
	}
	return llm.RunStatusCancelling, nil
}

func (f *fakeAssistantClient) SubmitToolOutputs(_ context.Context, _, _ string, outputs []llm.ToolOutput) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, outputs)
	return nil
}

func runSnapshot(status llm.RunStatus, actions ...llm.RequiredAction) *llm.Run {
	return &llm.Run{ID: "run_1", Status: status, RequiredActions: actions}
}

func action(id, name, args string) llm.RequiredAction {
	return llm.RequiredAction{ToolCallID: id, Name: name, Arguments: json.RawMessage(args)}
}

func testAssistantRun(client *fakeAssistantClient) *AssistantRun {
	executor := retry.New(zerolog.Nop()).WithPolicy(3, time.Millisecond)
	return NewAssistantRun(client, executor, zerolog.Nop())
}

func TestSubmitToolOutputRequiredSubset(t *testing.T) {
	// The run requires calls A and B. Outputs for A, B, and C arrive;
	// each submission sends only the buffered outputs the run actually
	// requires.
	requiresAB := runSnapshot(llm.RunStatusRequiresAction,
		action("call_a", "lookup", `{}`),
		action("call_b", "lookup", `{}`),
	)
	requiresBC := runSnapshot(llm.RunStatusRequiresAction,
		action("call_b", "lookup", `{}`),
		action("call_c", "lookup", `{}`),
	)
	client := &fakeAssistantClient{runs: []*llm.Run{requiresAB, requiresAB, requiresBC}}
	a := testAssistantRun(client)
	ctx := context.Background()

	if err := a.SubmitToolOutput(ctx, "thread_1", "run_1", "call_c", "extra"); err == nil {
		t.Fatal("expected protocol error when no buffered output is required")
	} else if !llm.IsProtocolError(err) {
		t.Fatalf("got %v, want protocol error", err)
	}

	if err := a.SubmitToolOutput(ctx, "thread_1", "run_1", "call_a", "result a"); err != nil {
		t.Fatalf("submit a: %v", err)
	}
	if len(client.submitted) != 1 {
		t.Fatalf("got %d submissions", len(client.submitted))
	}
	if len(client.submitted[0]) != 1 || client.submitted[0][0].ToolCallID != "call_a" {
		t.Errorf("first submission is %+v, want only call_a", client.submitted[0])
	}

	// call_c stayed buffered. A later round requiring B and C submits
	// both together.
	if err := a.SubmitToolOutput(ctx, "thread_1", "run_1", "call_b", "result b"); err != nil {
		t.Fatalf("submit b: %v", err)
	}
	second := client.submitted[1]
	got := map[string]bool{}
	for _, out := range second {
		got[out.ToolCallID] = true
	}
	if len(second) != 2 || !got["call_b"] || !got["call_c"] {
		t.Errorf("second submission is %+v, want buffered call_c alongside call_b", second)
	}
}

func TestPollRunClearsBufferOnTerminal(t *testing.T) {
	client := &fakeAssistantClient{runs: []*llm.Run{
		runSnapshot(llm.RunStatusRequiresAction, action("call_a", "lookup", `{}`)),
		runSnapshot(llm.RunStatusCompleted),
		runSnapshot(llm.RunStatusRequiresAction, action("call_b", "lookup", `{}`)),
	}}
	a := testAssistantRun(client)
	ctx := context.Background()

	// Buffer an output the run never asks for.
	_ = a.SubmitToolOutput(ctx, "thread_1", "run_1", "call_x", "orphan")

	status, err := a.PollRun(ctx, "thread_1", "run_1")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if !status.Terminal() {
		t.Fatalf("got status %s, want terminal", status)
	}

	// After terminal cleanup only the new output is submitted.
	if err := a.SubmitToolOutput(ctx, "thread_1", "run_1", "call_b", "result b"); err != nil {
		t.Fatalf("submit after terminal: %v", err)
	}
	if len(client.submitted) != 1 {
		t.Fatalf("got %d submissions", len(client.submitted))
	}
	if len(client.submitted[0]) != 1 || client.submitted[0][0].ToolCallID != "call_b" {
		t.Errorf("submission is %+v, want the orphan discarded", client.submitted[0])
	}
}

func TestCancelRunAlreadyComplete(t *testing.T) {
	client := &fakeAssistantClient{runs: []*llm.Run{runSnapshot(llm.RunStatusCompleted)}}
	a := testAssistantRun(client)

	label := a.CancelRun(context.Background(), "thread_1", "run_1")
	if label != CancelAlreadyComplete {
		t.Errorf("got label %q, want %q", label, CancelAlreadyComplete)
	}
	if client.cancelCalls != 0 {
		t.Errorf("cancel issued %d times for a terminal run", client.cancelCalls)
	}
}

func TestCancelRunSwallowsFailure(t *testing.T) {
	client := &fakeAssistantClient{
		runs:      []*llm.Run{runSnapshot(llm.RunStatusInProgress)},
		cancelErr: llm.NewProtocolError("cancel rejected"),
	}
	a := testAssistantRun(client)
	ctx := context.Background()

	_ = a.SubmitToolOutput(ctx, "thread_1", "run_1", "call_x", "orphan")

	label := a.CancelRun(ctx, "thread_1", "run_1")
	if label != CancelFailed {
		t.Errorf("got label %q, want %q", label, CancelFailed)
	}

	// Buffer is cleared even when the cancel fails.
	client.runs = []*llm.Run{runSnapshot(llm.RunStatusRequiresAction, action("call_b", "lookup", `{}`))}
	if err := a.SubmitToolOutput(ctx, "thread_1", "run_1", "call_b", "result b"); err != nil {
		t.Fatalf("submit after cancel: %v", err)
	}
	if len(client.submitted[0]) != 1 || client.submitted[0][0].ToolCallID != "call_b" {
		t.Errorf("submission is %+v, want the orphan discarded", client.submitted[0])
	}
}

func TestCancelRunReportsProviderStatus(t *testing.T) {
	client := &fakeAssistantClient{
		runs:         []*llm.Run{runSnapshot(llm.RunStatusInProgress)},
		cancelStatus: llm.RunStatusCancelled,
	}
	a := testAssistantRun(client)

	label := a.CancelRun(context.Background(), "thread_1", "run_1")
	if label != string(llm.RunStatusCancelled) {
		t.Errorf("got label %q, want provider status", label)
	}
}

type lookupArgs struct {
	Query string `json:"query"`
}

func TestGetRequiredActionRetriesWrongState(t *testing.T) {
	client := &fakeAssistantClient{runs: []*llm.Run{
		runSnapshot(llm.RunStatusInProgress),
		runSnapshot(llm.RunStatusRequiresAction, action("call_a", "lookup", `{"query":"weather"}`)),
	}}
	a := testAssistantRun(client)

	toolCallID, args, err := GetRequiredAction[lookupArgs](context.Background(), a, "thread_1", "run_1", "lookup")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toolCallID != "call_a" {
		t.Errorf("got tool call ID %q", toolCallID)
	}
	if args.Query != "weather" {
		t.Errorf("got args %+v", args)
	}
	if client.retrieveCalls != 2 {
		t.Errorf("got %d retrieves, want a retry after the in_progress snapshot", client.retrieveCalls)
	}
}

func TestGetRequiredActionNameMismatch(t *testing.T) {
	client := &fakeAssistantClient{runs: []*llm.Run{
		runSnapshot(llm.RunStatusRequiresAction, action("call_a", "other_function", `{}`)),
	}}
	a := testAssistantRun(client)

	_, _, err := GetRequiredAction[lookupArgs](context.Background(), a, "thread_1", "run_1", "lookup")
	if !llm.IsProtocolError(err) {
		t.Fatalf("got %v, want protocol error", err)
	}
	if client.retrieveCalls != 3 {
		t.Errorf("got %d retrieves, want the full retry budget before giving up", client.retrieveCalls)
	}
}

func TestGetRequiredActionDecodeFailure(t *testing.T) {
	client := &fakeAssistantClient{runs: []*llm.Run{
		runSnapshot(llm.RunStatusRequiresAction, action("call_a", "lookup", `{"query":`)),
	}}
	a := testAssistantRun(client)

	_, _, err := GetRequiredAction[lookupArgs](context.Background(), a, "thread_1", "run_1", "lookup")
	if llm.KindOf(err) != llm.ErrorKindDecode {
		t.Fatalf("got %v, want decode error", err)
	}
}

func TestCreateAssistantValidation(t *testing.T) {
	a := testAssistantRun(&fakeAssistantClient{})

	_, err := a.CreateAssistant(context.Background(), llm.AssistantDefinition{Name: "helper"})
	if !llm.IsValidationError(err) {
		t.Fatalf("got %v, want validation error for missing function", err)
	}
}

func TestDeleteSwallowsErrors(t *testing.T) {
	client := &fakeAssistantClient{}
	a := testAssistantRun(client)

	a.DeleteAssistant(context.Background(), "asst_1")
	a.DeleteThread(context.Background(), "thread_1")
	if len(client.deletedIDs) != 2 {
		t.Errorf("got deletions %v", client.deletedIDs)
	}
}
