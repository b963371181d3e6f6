package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/voicetasks/internal/utils"
)

type recorderState int

const (
	recIdle recorderState = iota
	recOpening
	recRecording
	recStopping
)

// Recorder runs one capture session at a time on a Device. Chunks are read in
// the background from Start until Stop or Abort.
type Recorder struct {
	device Device
	log    *logrus.Logger

	mu      sync.Mutex
	state   recorderState
	stream  Stream
	chunks  [][]byte
	readErr error
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewRecorder(device Device, log *logrus.Logger) *Recorder {
	if log == nil {
		log = logrus.New()
	}
	return &Recorder{device: device, log: log}
}

// IsRecording reports whether a session holds the device.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == recRecording
}

// Start opens the device and begins buffering. A second Start while a
// session is active fails with CodeConflict and touches nothing.
func (r *Recorder) Start(ctx context.Context) error {
	const op = "Recorder.Start"

	r.mu.Lock()
	if r.state != recIdle {
		r.mu.Unlock()
		return utils.E(utils.CodeConflict, op, "recording already in progress", nil)
	}
	r.state = recOpening
	r.mu.Unlock()

	stream, err := r.device.Open(ctx)
	if err != nil {
		r.mu.Lock()
		r.state = recIdle
		r.mu.Unlock()
		r.log.WithError(err).Warn("input device unavailable")
		return utils.E(utils.CodePermissionDenied, op, "microphone access denied or no input device", err)
	}

	readCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	r.mu.Lock()
	r.state = recRecording
	r.stream = stream
	r.chunks = nil
	r.readErr = nil
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	go r.read(readCtx, stream, done)

	r.log.WithField("mime_type", stream.MIMEType()).Debug("recording started")
	return nil
}

func (r *Recorder) read(ctx context.Context, stream Stream, done chan struct{}) {
	defer close(done)
	for {
		chunk, err := stream.Next(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				r.mu.Lock()
				r.readErr = err
				r.mu.Unlock()
			}
			return
		}
		r.mu.Lock()
		r.chunks = append(r.chunks, chunk)
		r.mu.Unlock()
	}
}

// Stop ends the session, releases the device and seals every buffered
// non-empty chunk into one Blob. Without an active session it is a no-op
// returning an empty Blob.
func (r *Recorder) Stop(ctx context.Context) (Blob, error) {
	const op = "Recorder.Stop"

	r.mu.Lock()
	if r.state != recRecording {
		r.mu.Unlock()
		return Blob{}, nil
	}
	r.state = recStopping
	stream, done, cancel := r.stream, r.done, r.cancel
	r.mu.Unlock()

	if err := stream.Close(); err != nil {
		r.log.WithError(err).Warn("failed to close input stream")
	}

	// drain what the device already produced
	select {
	case <-done:
	case <-ctx.Done():
		cancel()
		<-done
	}
	cancel()

	r.mu.Lock()
	chunks, readErr := r.chunks, r.readErr
	r.reset()
	r.mu.Unlock()

	if readErr != nil {
		return Blob{}, utils.E(utils.CodeInternal, op, "audio capture failed", readErr)
	}

	size := 0
	for _, c := range chunks {
		size += len(c)
	}
	var buf bytes.Buffer
	buf.Grow(size)
	for _, c := range chunks {
		if len(c) == 0 {
			continue
		}
		buf.Write(c)
	}

	blob := Blob{Data: buf.Bytes(), MIMEType: stream.MIMEType()}
	if blob.MIMEType == "" {
		blob.MIMEType = utils.SniffAudioType(blob.Data)
	}
	r.log.WithFields(logrus.Fields{
		"chunks":    len(chunks),
		"bytes":     len(blob.Data),
		"mime_type": blob.MIMEType,
	}).Debug("recording sealed")
	return blob, nil
}

// Abort releases the device and discards buffered audio. Safe to call in
// any state.
func (r *Recorder) Abort() {
	r.mu.Lock()
	if r.state != recRecording {
		r.mu.Unlock()
		return
	}
	r.state = recStopping
	stream, done, cancel := r.stream, r.done, r.cancel
	r.mu.Unlock()

	cancel()
	_ = stream.Close()
	<-done

	r.mu.Lock()
	r.reset()
	r.mu.Unlock()
	r.log.Debug("recording aborted")
}

// reset must be called with mu held.
func (r *Recorder) reset() {
	r.state = recIdle
	r.stream = nil
	r.chunks = nil
	r.readErr = nil
	r.cancel = nil
	r.done = nil
}
