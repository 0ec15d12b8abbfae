// Package transcribe normalizes audio input into text for the
// completion pipeline. It validates payloads before any network call,
// owns temporary-file handling for file-based provider uploads, and
// derives stable file names for processed audio.
package transcribe

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/parley-llm/parley/llm"
	"github.com/parley-llm/parley/notify"
	"github.com/parley-llm/parley/retry"
)

// StageTranscription is the stage label reported to the notifier when
// transcription fails.
const StageTranscription = "LLM Audio Transcription"

// defaultExtension is used when neither the file name nor the media
// type yields one.
const defaultExtension = ".mp3"

var extByMediaType = map[string]string{
	"audio/mpeg":   ".mp3",
	"audio/mp3":    ".mp3",
	"audio/mp4":    ".m4a",
	"audio/x-m4a":  ".m4a",
	"audio/wav":    ".wav",
	"audio/x-wav":  ".wav",
	"audio/wave":   ".wav",
	"audio/ogg":    ".ogg",
	"audio/webm":   ".webm",
	"audio/flac":   ".flac",
	"audio/x-flac": ".flac",
}

var fileNameSanitizer = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Options carries optional transcription parameters.
type Options struct {
	Prompt   string
	Language string
	// Retry overrides the adapter's executor for this call.
	Retry *retry.Executor
}

// ProcessedAudio is the result of ProcessAudioFile: the transcript plus
// deterministic names for storing the audio and its transcript.
type ProcessedAudio struct {
	Transcript         string
	AudioFileName      string
	TranscriptFileName string
	Timestamp          time.Time
}

// Adapter converts raw audio into text via the provider transcription
// capability.
type Adapter struct {
	transcriber llm.Transcriber
	retry       *retry.Executor
	notifier    notify.Notifier
	logger      zerolog.Logger
}

// NewAdapter creates an Adapter.
func NewAdapter(transcriber llm.Transcriber, executor *retry.Executor, notifier notify.Notifier, logger zerolog.Logger) *Adapter {
	return &Adapter{
		transcriber: transcriber,
		retry:       executor,
		notifier:    notifier,
		logger:      logger,
	}
}

// Transcribe validates the audio payload, spools it to a uniquely named
// temporary file, and calls the provider through the retry executor.
// The temporary file is removed on success and failure alike.
// Validation failures surface before any file or network activity.
func (a *Adapter) Transcribe(ctx context.Context, audio *llm.Audio, opts *Options) (string, error) {
	if err := validateAudio(audio); err != nil {
		return "", err
	}
	if a.transcriber == nil {
		return "", llm.NewConfigurationError("no transcription provider is configured")
	}

	tmp, err := os.CreateTemp("", "transcribe-*"+extensionFor(audio))
	if err != nil {
		return "", fmt.Errorf("create temp audio file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if removeErr := os.Remove(tmpPath); removeErr != nil {
			a.logger.Warn().Err(removeErr).Str("path", tmpPath).Msg("Failed to remove temp audio file")
		}
	}()

	if _, err := io.Copy(tmp, audio.Reader); err != nil {
		_ = tmp.Close() //nolint:errcheck // Cleanup on error
		return "", fmt.Errorf("spool audio to temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp audio file: %w", err)
	}

	req := &llm.TranscriptionRequest{
		FilePath: tmpPath,
		FileName: audio.FileName,
	}
	executor := a.retry
	if opts != nil {
		req.Prompt = opts.Prompt
		req.Language = opts.Language
		if opts.Retry != nil {
			executor = opts.Retry
		}
	}

	transcript, err := retry.Do(executor, "transcribe audio", func() (string, error) {
		return a.transcriber.Transcribe(ctx, req)
	})
	if err != nil {
		return "", err
	}

	a.logger.Debug().Str("file", audio.FileName).Int("transcript_len", len(transcript)).Msg("Audio transcribed")
	return transcript, nil
}

// ProcessAudioFile transcribes the audio and derives deterministic,
// collision-resistant file names from a UTC timestamp and a sanitized
// version of the original name. On failure it notifies the operator
// channel with the stage label and file name, then re-raises.
func (a *Adapter) ProcessAudioFile(ctx context.Context, audio *llm.Audio, opts *Options) (*ProcessedAudio, error) {
	transcript, err := a.Transcribe(ctx, audio, opts)
	if err != nil {
		fileName := ""
		if audio != nil {
			fileName = audio.FileName
		}
		a.notifier.NotifyError(StageTranscription, err, "transcribe", map[string]string{
			"file": fileName,
		})
		return nil, err
	}

	now := time.Now().UTC()
	stamp := now.Format("20060102T150405Z")
	base := sanitizeBaseName(audio.FileName)

	return &ProcessedAudio{
		Transcript:         transcript,
		AudioFileName:      fmt.Sprintf("%s_%s%s", stamp, base, extensionFor(audio)),
		TranscriptFileName: fmt.Sprintf("%s_%s.txt", stamp, base),
		Timestamp:          now,
	}, nil
}

func validateAudio(audio *llm.Audio) error {
	if audio == nil || audio.Reader == nil || audio.Length == 0 {
		return llm.NewValidationError("audio payload is empty")
	}
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(audio.MediaType, ";")[0]))
	if !strings.HasPrefix(mediaType, "audio/") {
		return llm.NewValidationError(fmt.Sprintf("media type %q is not an audio type", audio.MediaType))
	}
	return nil
}

// extensionFor returns the original file's extension, falling back to
// one derived from the declared media type.
func extensionFor(audio *llm.Audio) string {
	if ext := filepath.Ext(audio.FileName); ext != "" {
		return ext
	}
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(audio.MediaType, ";")[0]))
	return lo.ValueOr(extByMediaType, mediaType, defaultExtension)
}

// sanitizeBaseName strips the extension and replaces anything outside
// [A-Za-z0-9._-] so derived names are safe on any filesystem.
func sanitizeBaseName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = fileNameSanitizer.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")
	if base == "" {
		base = "audio"
	}
	return base
}
