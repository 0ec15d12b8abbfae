package openai

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/parley-llm/parley/llm"
)

// Transcribe implements llm.Transcriber using the Whisper audio API.
// The request's FilePath must reference an audio file on disk; the
// transcribe package owns spooling streams into temporary files.
func (c *Client) Transcribe(ctx context.Context, req *llm.TranscriptionRequest) (string, error) {
	if req == nil || req.FilePath == "" {
		return "", llm.NewValidationError("transcription request requires a file path")
	}

	audioReq := openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: req.FilePath,
		Prompt:   req.Prompt,
		Language: req.Language,
	}

	resp, err := c.client.CreateTranscription(ctx, audioReq)
	if err != nil {
		return "", convertError(err)
	}
	return resp.Text, nil
}
