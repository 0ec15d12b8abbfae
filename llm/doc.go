// Package llm provides a provider-neutral abstraction layer for Large Language Model (LLM) APIs.
//
// This package defines common types, interfaces, and utilities that allow the codebase
// to orchestrate completions, assistant runs, and audio transcription without being
// tightly coupled to any specific provider's SDK.
//
// # Core Concepts
//
//  1. Conversations: the Conversation type represents a logical, caller-continued
//     sequence of prompt/response exchanges identified by an opaque ID. Persistence
//     is owned by the conversations package; this package only defines the shape.
//
//  2. Completions: CompletionRequest/CompletionResponse model a single chat-completion
//     call, including an optional pinned function. The FinishReason reported by the
//     provider classifies how the completion terminated.
//
//  3. Assistant runs: AssistantDefinition, RunStatus, RequiredAction, and ToolOutput
//     model the asynchronous assistant protocol (create assistant, create thread,
//     post message, create run, poll, submit tool outputs).
//
//  4. Interfaces: CompletionClient, AssistantClient, and Transcriber are the provider
//     capability surfaces consumed by the orchestration layer. Implementations live in
//     the provider subpackages (openai, anthropic, ollama).
//
//  5. Errors: the Error type carries an error Kind (validation, configuration,
//     content filter, protocol, transient, decode) and a Retryable flag, so retry
//     policy can be decided by kind rather than by string matching.
//
// # Extension Points
//
// To add a new provider:
//  1. Implement CompletionClient (and AssistantClient/Transcriber where the vendor
//     API supports them)
//  2. Translate provider-specific errors into *llm.Error values
//  3. Register the provider's configuration check in the registry
package llm
