package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/parley-llm/parley/llm"
	"github.com/parley-llm/parley/notify"
	"github.com/parley-llm/parley/retry"
)

// fakeTranscriber counts calls and returns a fixed transcript or error.
type fakeTranscriber struct {
	calls      int
	transcript string
	err        error
	lastReq    *llm.TranscriptionRequest
}

func (f *fakeTranscriber) Transcribe(_ context.Context, req *llm.TranscriptionRequest) (string, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.transcript, nil
}

// recordingNotifier captures the last notification.
type recordingNotifier struct {
	stage   string
	err     error
	context map[string]string
	calls   int
}

func (r *recordingNotifier) NotifyError(stage string, err error, _ string, context map[string]string) {
	r.calls++
	r.stage = stage
	r.err = err
	r.context = context
}

func testAdapter(transcriber llm.Transcriber, notifier notify.Notifier) *Adapter {
	executor := retry.New(zerolog.Nop()).WithPolicy(3, time.Millisecond)
	return NewAdapter(transcriber, executor, notifier, zerolog.Nop())
}

func testAudio(name, mediaType, content string) *llm.Audio {
	return &llm.Audio{
		Reader:    strings.NewReader(content),
		FileName:  name,
		MediaType: mediaType,
		Length:    int64(len(content)),
	}
}

func TestTranscribeEmptyAudioShortCircuits(t *testing.T) {
	fake := &fakeTranscriber{transcript: "hello"}
	adapter := testAdapter(fake, notify.Nop{})

	audio := &llm.Audio{Reader: strings.NewReader(""), FileName: "empty.mp3", MediaType: "audio/mpeg", Length: 0}
	_, err := adapter.Transcribe(context.Background(), audio, nil)
	if !llm.IsValidationError(err) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "empty") {
		t.Errorf("Expected error message to mention empty, got %q", err.Error())
	}
	if fake.calls != 0 {
		t.Errorf("Expected zero provider calls, got %d", fake.calls)
	}
}

func TestTranscribeRejectsNilReader(t *testing.T) {
	fake := &fakeTranscriber{transcript: "hello"}
	adapter := testAdapter(fake, notify.Nop{})

	audio := &llm.Audio{FileName: "note.mp3", MediaType: "audio/mpeg", Length: 42}
	_, err := adapter.Transcribe(context.Background(), audio, nil)
	if !llm.IsValidationError(err) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "empty") {
		t.Errorf("Expected error message to mention empty, got %q", err.Error())
	}
	if fake.calls != 0 {
		t.Errorf("Expected zero provider calls, got %d", fake.calls)
	}
}

func TestTranscribeRejectsNonAudioMediaType(t *testing.T) {
	fake := &fakeTranscriber{transcript: "hello"}
	adapter := testAdapter(fake, notify.Nop{})

	_, err := adapter.Transcribe(context.Background(), testAudio("doc.pdf", "application/pdf", "data"), nil)
	if !llm.IsValidationError(err) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if fake.calls != 0 {
		t.Errorf("Expected zero provider calls, got %d", fake.calls)
	}
}

func TestTranscribeSpoolsToTempFileAndCleansUp(t *testing.T) {
	fake := &fakeTranscriber{transcript: "four plus four"}
	adapter := testAdapter(fake, notify.Nop{})

	text, err := adapter.Transcribe(context.Background(), testAudio("note.wav", "audio/wav", "RIFFdata"), nil)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "four plus four" {
		t.Errorf("Expected transcript to round-trip, got %q", text)
	}
	if fake.calls != 1 {
		t.Errorf("Expected 1 provider call, got %d", fake.calls)
	}
	if fake.lastReq.FilePath == "" {
		t.Fatal("Expected provider to receive a temp file path")
	}
	if filepath.Ext(fake.lastReq.FilePath) != ".wav" {
		t.Errorf("Expected temp file to keep the audio extension, got %s", fake.lastReq.FilePath)
	}
	if _, statErr := os.Stat(fake.lastReq.FilePath); !os.IsNotExist(statErr) {
		t.Errorf("Expected temp file %s to be removed", fake.lastReq.FilePath)
	}
}

func TestTranscribeCleansUpTempFileOnFailure(t *testing.T) {
	fake := &fakeTranscriber{err: llm.NewProtocolError("bad audio")}
	adapter := testAdapter(fake, notify.Nop{})

	_, err := adapter.Transcribe(context.Background(), testAudio("note.wav", "audio/wav", "RIFFdata"), nil)
	if err == nil {
		t.Fatal("Expected transcription error")
	}
	if _, statErr := os.Stat(fake.lastReq.FilePath); !os.IsNotExist(statErr) {
		t.Errorf("Expected temp file %s to be removed on failure", fake.lastReq.FilePath)
	}
}

func TestTranscribeRetriesTransientFailures(t *testing.T) {
	fake := &retryOnceTranscriber{}
	adapter := testAdapter(fake, notify.Nop{})

	text, err := adapter.Transcribe(context.Background(), testAudio("note.mp3", "audio/mpeg", "data"), nil)
	if err != nil {
		t.Fatalf("Expected eventual success, got %v", err)
	}
	if text != "recovered" {
		t.Errorf("Expected transcript %q, got %q", "recovered", text)
	}
	if fake.calls != 2 {
		t.Errorf("Expected 2 provider calls, got %d", fake.calls)
	}
}

type retryOnceTranscriber struct {
	calls int
}

func (f *retryOnceTranscriber) Transcribe(context.Context, *llm.TranscriptionRequest) (string, error) {
	f.calls++
	if f.calls == 1 {
		return "", llm.NewTransientError("blip", errors.New("connection reset"))
	}
	return "recovered", nil
}

func TestProcessAudioFileNames(t *testing.T) {
	fake := &fakeTranscriber{transcript: "meeting notes"}
	adapter := testAdapter(fake, notify.Nop{})

	result, err := adapter.ProcessAudioFile(context.Background(), testAudio("team sync (v2).m4a", "audio/mp4", "data"), nil)
	if err != nil {
		t.Fatalf("ProcessAudioFile failed: %v", err)
	}
	if result.Transcript != "meeting notes" {
		t.Errorf("Expected transcript to round-trip, got %q", result.Transcript)
	}
	if !strings.HasSuffix(result.AudioFileName, ".m4a") {
		t.Errorf("Expected audio name to keep extension, got %s", result.AudioFileName)
	}
	if !strings.HasSuffix(result.TranscriptFileName, ".txt") {
		t.Errorf("Expected transcript name to end in .txt, got %s", result.TranscriptFileName)
	}
	if strings.ContainsAny(result.AudioFileName, " ()") {
		t.Errorf("Expected sanitized file name, got %s", result.AudioFileName)
	}
	stamp := result.Timestamp.Format("20060102T150405Z")
	if !strings.HasPrefix(result.AudioFileName, stamp) {
		t.Errorf("Expected audio name to start with timestamp %s, got %s", stamp, result.AudioFileName)
	}
}

func TestProcessAudioFileFallsBackToMediaTypeExtension(t *testing.T) {
	fake := &fakeTranscriber{transcript: "x"}
	adapter := testAdapter(fake, notify.Nop{})

	result, err := adapter.ProcessAudioFile(context.Background(), testAudio("recording", "audio/ogg", "data"), nil)
	if err != nil {
		t.Fatalf("ProcessAudioFile failed: %v", err)
	}
	if !strings.HasSuffix(result.AudioFileName, ".ogg") {
		t.Errorf("Expected extension derived from media type, got %s", result.AudioFileName)
	}
}

func TestProcessAudioFileNotifiesOnFailure(t *testing.T) {
	fake := &fakeTranscriber{err: llm.NewTransientError("provider down", nil)}
	notifier := &recordingNotifier{}
	adapter := testAdapter(fake, notifier)

	_, err := adapter.ProcessAudioFile(context.Background(), testAudio("note.mp3", "audio/mpeg", "data"), nil)
	if err == nil {
		t.Fatal("Expected error to re-raise after notification")
	}
	if notifier.calls != 1 {
		t.Fatalf("Expected 1 notification, got %d", notifier.calls)
	}
	if notifier.stage != StageTranscription {
		t.Errorf("Expected stage %q, got %q", StageTranscription, notifier.stage)
	}
	if notifier.context["file"] != "note.mp3" {
		t.Errorf("Expected file name in notification context, got %v", notifier.context)
	}
}
