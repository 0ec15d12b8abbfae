package llm

import (
	"strings"
	"testing"
)

func TestConversationHistory(t *testing.T) {
	conv := &Conversation{
		ID:           "c1",
		SystemPrompt: "You are a calculator.",
		Exchanges: []Exchange{
			{Prompt: "What is 2+2?", Response: "4"},
			{Prompt: "And times 2?", Response: "8"},
		},
	}

	history := conv.History()
	if len(history) != 5 {
		t.Fatalf("Expected 5 messages, got %d", len(history))
	}
	if history[0].Role != RoleSystem || history[0].Content != "You are a calculator." {
		t.Errorf("Expected system prompt first, got %+v", history[0])
	}
	wantRoles := []MessageRole{RoleSystem, RoleUser, RoleAssistant, RoleUser, RoleAssistant}
	for i, role := range wantRoles {
		if history[i].Role != role {
			t.Errorf("Message %d: expected role %s, got %s", i, role, history[i].Role)
		}
	}
	if history[3].Content != "And times 2?" {
		t.Errorf("Expected exchanges in insertion order, got %q at position 3", history[3].Content)
	}
}

func TestConversationHistoryNoSystemPrompt(t *testing.T) {
	conv := &Conversation{
		ID:        "c2",
		Exchanges: []Exchange{{Prompt: "hi", Response: "hello"}},
	}
	history := conv.History()
	if len(history) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(history))
	}
	if history[0].Role != RoleUser {
		t.Errorf("Expected user message first without system prompt, got %s", history[0].Role)
	}
}

func TestRunStatusTerminal(t *testing.T) {
	terminal := []RunStatus{RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired, RunStatusIncomplete}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("Expected %s to be terminal", s)
		}
	}
	nonTerminal := []RunStatus{RunStatusQueued, RunStatusInProgress, RunStatusRequiresAction, RunStatusCancelling}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Errorf("Expected %s to be non-terminal", s)
		}
	}
}

func TestSchemaFor(t *testing.T) {
	type weatherArgs struct {
		City string `json:"city"`
		Unit string `json:"unit,omitempty"`
	}

	schema, err := SchemaFor[weatherArgs]("get_weather", "Look up the weather")
	if err != nil {
		t.Fatalf("SchemaFor failed: %v", err)
	}
	if schema.Name != "get_weather" {
		t.Errorf("Expected name get_weather, got %s", schema.Name)
	}
	if len(schema.Parameters) == 0 {
		t.Fatal("Expected non-empty parameters schema")
	}
	params := string(schema.Parameters)
	if !strings.Contains(params, "city") {
		t.Errorf("Expected schema to mention city field, got %s", params)
	}
}
