package capture

import (
	"context"
	"encoding/base64"
)

// Device is an audio input, ex: a microphone.
type Device interface {
	// Open acquires the input. It fails when access is denied or no input
	// exists.
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open, exclusively owned input.
type Stream interface {
	// Next blocks until the next encoded chunk is available. After Close it
	// keeps returning buffered chunks, then io.EOF.
	Next(ctx context.Context) ([]byte, error)
	MIMEType() string
	// Close releases the hardware. Safe to call more than once.
	Close() error
}

// Blob is a sealed recording.
type Blob struct {
	Data     []byte
	MIMEType string
}

func (b Blob) Empty() bool { return len(b.Data) == 0 }

func (b Blob) Base64() string { return base64.StdEncoding.EncodeToString(b.Data) }
