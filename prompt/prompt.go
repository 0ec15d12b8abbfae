// Package prompt is the high-level entry point for turning a user
// prompt, textual or spoken, into a completion.
package prompt

import (
	"io"

	"github.com/parley-llm/parley/llm"
)

// Source identifies which prompt variant produced a result.
type Source string

const (
	SourceText  Source = "text"
	SourceAudio Source = "audio"
)

// Prompt is the tagged union of supported prompt inputs. Exactly the
// types in this package implement it.
type Prompt interface {
	source() Source
}

// TextPrompt is a prompt supplied directly as text.
type TextPrompt struct {
	Text string
}

func (TextPrompt) source() Source { return SourceText }

// AudioPrompt is a prompt supplied as recorded audio, transcribed
// before completion.
type AudioPrompt struct {
	Reader    io.Reader
	FileName  string
	MediaType string
	// Length is the payload size in bytes. A zero length is rejected
	// before any provider call.
	Length int64
}

func (AudioPrompt) source() Source { return SourceAudio }

func (p AudioPrompt) audio() *llm.Audio {
	return &llm.Audio{
		Reader:    p.Reader,
		FileName:  p.FileName,
		MediaType: p.MediaType,
		Length:    p.Length,
	}
}
