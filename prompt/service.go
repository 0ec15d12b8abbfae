package prompt

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/parley-llm/parley/llm"
	"github.com/parley-llm/parley/notify"
	"github.com/parley-llm/parley/orchestrate"
	"github.com/parley-llm/parley/transcribe"
)

// StageCompletion is the stage label reported to the notifier when the
// completion step fails.
const StageCompletion = "LLM Completion"

// Result is the outcome of completing a prompt.
type Result struct {
	Text string
	// Source reports whether the prompt arrived as text or audio.
	Source Source
	// Transcript holds the transcribed prompt text for audio prompts.
	Transcript     string
	ConversationID string
}

// Service is the facade over transcription and completion. Audio
// prompts are transcribed first, then both variants flow through the
// completion orchestrator. Failures at either stage are reported to
// the notifier and re-raised.
type Service struct {
	completion  *orchestrate.Completion
	transcriber *transcribe.Adapter
	notifier    notify.Notifier
	logger      zerolog.Logger
}

// NewService creates a Service.
func NewService(completion *orchestrate.Completion, transcriber *transcribe.Adapter, notifier notify.Notifier, logger zerolog.Logger) *Service {
	return &Service{
		completion:  completion,
		transcriber: transcriber,
		notifier:    notifier,
		logger:      logger,
	}
}

// Complete resolves the prompt to text and runs a completion against
// it. For audio prompts the transcript is returned alongside the
// completion text.
func (s *Service) Complete(ctx context.Context, scopeID string, p Prompt, opts *orchestrate.CompletionOptions) (*Result, error) {
	if p == nil {
		return nil, llm.NewValidationError("no prompt provided")
	}

	text, transcript, err := s.resolveText(ctx, p)
	if err != nil {
		return nil, err
	}

	completion, err := s.completion.GetCompletion(ctx, scopeID, text, opts)
	if err != nil {
		s.notifier.NotifyError(StageCompletion, err, "prompt", map[string]string{
			"source": string(p.source()),
		})
		return nil, err
	}

	return &Result{
		Text:           completion.Text,
		Source:         p.source(),
		Transcript:     transcript,
		ConversationID: completion.ConversationID,
	}, nil
}

// resolveText turns the prompt variant into completion input. Audio
// transcription failures are already reported by the adapter.
func (s *Service) resolveText(ctx context.Context, p Prompt) (text, transcript string, err error) {
	switch v := p.(type) {
	case TextPrompt:
		return v.Text, "", nil
	case AudioPrompt:
		if s.transcriber == nil {
			return "", "", llm.NewConfigurationError("no transcription adapter is configured")
		}
		processed, err := s.transcriber.ProcessAudioFile(ctx, v.audio(), nil)
		if err != nil {
			return "", "", err
		}
		s.logger.Debug().
			Str("file", processed.AudioFileName).
			Msg("Transcribed audio prompt")
		return processed.Transcript, processed.Transcript, nil
	default:
		return "", "", llm.NewValidationError(fmt.Sprintf("unsupported prompt type %T", p))
	}
}
