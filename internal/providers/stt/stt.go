package stt

import "context"

// Audio is one sealed recording handed to a backend.
type Audio struct {
	Data     []byte
	MIMEType string // ex: "audio/webm;codecs=opus"
}

// Provider turns a recording into a transcript. Implementations fail with
// CodeTranscriptionBackend, CodeEmptyTranscription or CodeTimeout.
type Provider interface {
	Transcribe(ctx context.Context, audio Audio) (text string, err error)
	Close() error
}
